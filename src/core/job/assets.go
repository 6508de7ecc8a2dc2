package job

import (
	"path"
	"strings"
)

// contentTypes is the fixed extension table used when a caller does not
// supply a content type for an asset key.
var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".gif":  "image/gif",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".json": "application/json",
	".txt":  "text/plain",
}

// InferContentType maps an asset key's extension to a MIME type, falling
// back to application/octet-stream for unknown extensions.
func InferContentType(key string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(key))]; ok {
		return ct
	}
	return "application/octet-stream"
}
