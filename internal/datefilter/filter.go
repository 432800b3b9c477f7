// Package datefilter drops records outside an inclusive date window before
// parsing. Each format has its own variant working on the serialized text,
// and each decides differently what to do with a record whose date cannot be
// determined:
//
//   - JSON keeps records without a usable timestamp, whatever the bounds.
//   - TXT drops lines shorter than ten bytes, even with no bounds set.
//   - XML treats a missing date as "", which only a lower bound excludes.
//
// The output of every variant is a body the matching parser in logparse can
// read unchanged, and applying a filter twice gives the same body.
package datefilter

import "github.com/tinytelemetry/logsift/internal/model"

// dateLen is the length of the YYYY-MM-DD prefix compared against bounds.
const dateLen = 10

// Apply runs the variant for format over body.
func Apply(format model.Format, body []byte, r model.DateRange) []byte {
	switch format {
	case model.FormatJSON:
		return JSON(body, r)
	case model.FormatXML:
		return []byte(XML(string(body), r))
	default:
		return []byte(TXT(string(body), r))
	}
}
