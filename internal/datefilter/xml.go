package datefilter

import (
	"strings"

	"github.com/tinytelemetry/logsift/internal/logparse"
	"github.com/tinytelemetry/logsift/internal/model"
)

// XML rebuilds the document as <logs>...</logs> holding only the <log>
// blocks whose timestamp date falls inside r. A block whose timestamp is
// missing or shorter than ten characters has the date "", so it survives
// unless a lower bound is set. Scanning stops at an unclosed <log>.
func XML(doc string, r model.DateRange) string {
	var out strings.Builder
	out.WriteString("<logs>")

	pos := 0
	for {
		start, end, ok := logparse.NextLogBlock(doc, pos)
		if !ok {
			break
		}
		pos = end
		block := doc[start:end]

		date := ""
		if ts := logparse.TagValue(block, "timestamp"); len(ts) >= dateLen {
			date = ts[:dateLen]
		}
		if r.Contains(date) {
			out.WriteString(block)
		}
	}

	out.WriteString("</logs>")
	return out.String()
}
