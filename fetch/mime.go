package fetch

import (
	"path"
	"strings"

	"github.com/h2non/filetype"
)

const defaultType = "application/octet-stream"

// Text and markup types filetype does not know about.
var textTypes = map[string]string{
	"css":   "text/css",
	"csv":   "text/csv",
	"htm":   "text/html",
	"html":  "text/html",
	"ics":   "text/calendar",
	"js":    "text/javascript",
	"mjs":   "text/javascript",
	"json":  "application/json",
	"yaml":  "application/yaml",
	"yml":   "application/yaml",
	"svg":   "image/svg+xml",
	"txt":   "text/plain",
	"xhtml": "application/xhtml+xml",
	"xml":   "application/xml",
}

// DetectType guesses media type from name extension and, failing that,
// from content signature.
func DetectType(name string, data []byte) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if t, ok := textTypes[ext]; ok {
		return t
	}
	if ext != "" {
		if t := filetype.GetType(ext); t != filetype.Unknown && t.MIME.Value != "" {
			return t.MIME.Value
		}
	}
	if len(data) > 0 {
		if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
			return kind.MIME.Value
		}
	}
	return defaultType
}
