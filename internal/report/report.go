package report

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	"github.com/tinytelemetry/logsift/internal/model"
)

// NoMatchesLine is the whole response when no group matched.
const NoMatchesLine = "[INFO] No entries matched your query.\n"

// Render serializes counts as one "<key>: <count>" line per group, in map
// iteration order, or NoMatchesLine when counts is empty.
func Render(counts model.CountTable) []byte {
	if len(counts) == 0 {
		return []byte(NoMatchesLine)
	}
	var buf bytes.Buffer
	for key, n := range counts {
		buf.WriteString(key)
		buf.WriteString(": ")
		buf.WriteString(strconv.Itoa(n))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Parse reads a rendered response back into a table. ok is false when the
// response is the no-match line. Lines that do not end in ": <count>" are
// ignored. The split is on the last ": " since keys may contain one.
func Parse(text string) (counts model.CountTable, ok bool) {
	counts = model.CountTable{}
	if text == NoMatchesLine {
		return counts, false
	}
	for _, line := range strings.Split(text, "\n") {
		i := strings.LastIndex(line, ": ")
		if i < 0 {
			continue
		}
		n, err := strconv.Atoi(line[i+2:])
		if err != nil || n <= 0 {
			continue
		}
		counts[line[:i]] += n
	}
	return counts, true
}

// Sorted lists counts by descending count, then key. It exists for display;
// the wire format carries no order.
func Sorted(counts model.CountTable) []model.GroupCount {
	out := make([]model.GroupCount, 0, len(counts))
	for key, n := range counts {
		out = append(out, model.GroupCount{Key: key, Count: int64(n)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}
