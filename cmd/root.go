package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "alphogen",
	Short: "Video generation job API",
	Long: `Alphogen accepts video-generation job submissions, dispatches them to
the inference provider, and reconciles job state from provider webhooks.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
