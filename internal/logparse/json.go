package logparse

import (
	"bytes"
	"encoding/json"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/tinytelemetry/logsift/internal/model"
)

// ParseJSON counts the elements of a JSON array of log objects.
// A body that does not decode as an array yields an empty table.
func ParseJSON(body []byte, typ model.AnalysisType) model.CountTable {
	result := model.CountTable{}

	entries, err := DecodeJSONArray(body)
	if err != nil {
		log.Printf("logparse: json decode failed: %v", err)
		return result
	}

	for _, entry := range entries {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		var key string
		switch typ {
		case model.ByUser:
			key = numericField(obj, "user_id")
		case model.ByIP:
			key = ExtractStringField(obj, "ip_address")
		default:
			key = ExtractStringField(obj, "log_level")
		}
		if key == "" {
			continue
		}
		result.Add(key)
	}
	return result
}

// DecodeJSONArray decodes body as a JSON array, keeping numbers as
// json.Number so integer ids keep their exact digits.
func DecodeJSONArray(body []byte) ([]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var entries []interface{}
	if err := dec.Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ExtractStringField returns obj[key] when it is a string, else "".
func ExtractStringField(obj map[string]interface{}, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}

// numericField renders an integral JSON number as decimal text. Integer
// literals keep their digits at any magnitude; fractional and exponent forms
// count only when their value is integral. Non-numbers yield "".
func numericField(obj map[string]interface{}, key string) string {
	num, ok := obj[key].(json.Number)
	if !ok {
		return ""
	}
	lit := num.String()
	if !strings.ContainsAny(lit, ".eE") {
		if lit == "-0" {
			return "0"
		}
		return lit
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', 0, 64)
}
