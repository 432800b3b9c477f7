package logparse

import "github.com/tinytelemetry/logsift/internal/model"

// ParseXML counts <log> blocks by literal tag scanning. Scanning stops at
// the first <log> without a matching </log>; blocks whose selected tag is
// missing or empty are not counted.
func ParseXML(doc string, typ model.AnalysisType) model.CountTable {
	result := model.CountTable{}

	pos := 0
	for {
		start, end, ok := NextLogBlock(doc, pos)
		if !ok {
			break
		}
		pos = end
		entry := LogBlockInner(doc[start:end])

		var key string
		switch typ {
		case model.ByUser:
			key = TagValue(entry, "user_id")
		case model.ByIP:
			key = TagValue(entry, "ip_address")
		default:
			key = TagValue(entry, "log_level")
		}
		if key == "" {
			continue
		}
		result.Add(key)
	}
	return result
}
