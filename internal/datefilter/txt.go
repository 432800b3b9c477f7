package datefilter

import (
	"strings"

	"github.com/tinytelemetry/logsift/internal/model"
)

// TXT keeps lines whose first ten bytes fall inside r. Lines shorter than
// ten bytes are dropped unconditionally. Every kept line is terminated with
// a newline.
func TXT(body string, r model.DateRange) string {
	var out strings.Builder
	for _, line := range strings.Split(body, "\n") {
		if len(line) < dateLen {
			continue
		}
		if !r.Contains(line[:dateLen]) {
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.String()
}
