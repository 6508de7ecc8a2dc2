package job_test

import (
	"testing"

	"alphogen/src/core/job"
)

func TestClampProgress(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "below range", in: -5, want: 0},
		{name: "zero", in: 0, want: 0},
		{name: "in range", in: 42, want: 42},
		{name: "upper bound", in: 100, want: 100},
		{name: "above range", in: 150, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := job.ClampProgress(tt.in)
			if got != tt.want {
				t.Errorf("ClampProgress(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from job.Status
		to   job.Status
		want bool
	}{
		{name: "queued to running", from: job.StatusQueued, to: job.StatusRunning, want: true},
		{name: "queued to done", from: job.StatusQueued, to: job.StatusDone, want: true},
		{name: "running to error", from: job.StatusRunning, to: job.StatusError, want: true},
		{name: "done to running", from: job.StatusDone, to: job.StatusRunning, want: false},
		{name: "done to error", from: job.StatusDone, to: job.StatusError, want: false},
		{name: "error to done", from: job.StatusError, to: job.StatusDone, want: false},
		{name: "done repeated", from: job.StatusDone, to: job.StatusDone, want: true},
		{name: "error repeated", from: job.StatusError, to: job.StatusError, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.from.CanTransitionTo(tt.to)
			if got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[job.Status]bool{
		job.StatusQueued:  false,
		job.StatusRunning: false,
		job.StatusDone:    true,
		job.StatusError:   true,
	}

	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestInferContentType(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{key: "results/abc.mp4", want: "video/mp4"},
		{key: "results/abc.MP4", want: "video/mp4"},
		{key: "clip.webm", want: "video/webm"},
		{key: "poster.png", want: "image/png"},
		{key: "frame.jpeg", want: "image/jpeg"},
		{key: "meta.json", want: "application/json"},
		{key: "dump.bin", want: "application/octet-stream"},
		{key: "noextension", want: "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := job.InferContentType(tt.key)
			if got != tt.want {
				t.Errorf("InferContentType(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
