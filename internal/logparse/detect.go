package logparse

import "github.com/tinytelemetry/logsift/internal/model"

// Detect classifies a body by its first byte that is not a space, tab or
// newline. Bodies with no such byte are treated as text.
func Detect(body []byte) model.Format {
	for _, c := range body {
		switch c {
		case ' ', '\t', '\n':
			continue
		case '[', '{':
			return model.FormatJSON
		case '<':
			return model.FormatXML
		default:
			return model.FormatTXT
		}
	}
	return model.FormatTXT
}
