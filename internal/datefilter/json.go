package datefilter

import (
	"bytes"
	"encoding/json"

	"github.com/tinytelemetry/logsift/internal/model"
)

// JSON filters a JSON array of log objects on the first ten characters of
// each object's "timestamp". Elements without a string timestamp of at least
// ten characters are always kept. A body that is not an array is returned
// unchanged so the parser can report it.
func JSON(body []byte, r model.DateRange) []byte {
	var entries []json.RawMessage
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&entries); err != nil {
		return body
	}

	var out bytes.Buffer
	out.WriteByte('[')
	n := 0
	for _, entry := range entries {
		if ts, ok := timestampOf(entry); ok && len(ts) >= dateLen {
			if !r.Contains(ts[:dateLen]) {
				continue
			}
		}
		if n > 0 {
			out.WriteByte(',')
		}
		out.Write(entry)
		n++
	}
	out.WriteByte(']')
	return out.Bytes()
}

func timestampOf(entry json.RawMessage) (string, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(entry, &obj); err != nil {
		return "", false
	}
	raw, ok := obj["timestamp"]
	if !ok {
		return "", false
	}
	var ts string
	if err := json.Unmarshal(raw, &ts); err != nil {
		return "", false
	}
	return ts, true
}
