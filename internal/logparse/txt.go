package logparse

import (
	"log"
	"strings"

	"github.com/tinytelemetry/logsift/internal/model"
)

// txtFieldCount is the number of pipe-delimited fields in a text record:
// timestamp | level | message | UserID: <id> | IP: <addr>
const txtFieldCount = 5

// ParseTXT counts pipe-delimited text records, one per line.
// Lines with fewer than five fields are skipped. Unlike the JSON and XML
// variants an empty key is counted.
func ParseTXT(body string, typ model.AnalysisType) model.CountTable {
	result := model.CountTable{}

	for i, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}

		parts := strings.Split(line, "|")
		// A trailing '|' terminates the last field instead of opening a new one.
		if len(parts) > 1 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
		if len(parts) < txtFieldCount {
			log.Printf("logparse: skipping malformed line %d: expected %d fields but got %d => %q",
				i+1, txtFieldCount, len(parts), line)
			continue
		}
		for j := range parts {
			parts[j] = strings.Trim(parts[j], " \t")
		}

		var key string
		switch typ {
		case model.ByUser:
			key = valueAfterColon(parts[3])
		case model.ByIP:
			key = valueAfterColon(parts[4])
		default:
			key = parts[1]
		}
		result.Add(strings.Trim(key, " \t\r\n"))
	}
	return result
}

// valueAfterColon returns the trimmed text after the first ':' in field,
// or "" when there is no colon.
func valueAfterColon(field string) string {
	_, value, ok := strings.Cut(field, ":")
	if !ok {
		return ""
	}
	return strings.Trim(value, " \t")
}
