package model

import "time"

// AnalysisType selects which record field becomes the grouping key.
type AnalysisType int

const (
	ByLogLevel AnalysisType = iota
	ByUser
	ByIP
)

// ParseAnalysisType maps a TYPE directive value to an AnalysisType.
// Anything other than the exact tokens USER and IP falls back to ByLogLevel.
func ParseAnalysisType(s string) AnalysisType {
	switch s {
	case "USER":
		return ByUser
	case "IP":
		return ByIP
	default:
		return ByLogLevel
	}
}

// String returns the wire token for the type.
func (t AnalysisType) String() string {
	switch t {
	case ByUser:
		return "USER"
	case ByIP:
		return "IP"
	default:
		return "LOG_LEVEL"
	}
}

// Format is the sniffed encoding of a request body.
type Format int

const (
	FormatTXT Format = iota
	FormatJSON
	FormatXML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatXML:
		return "xml"
	default:
		return "txt"
	}
}

// DateRange is an inclusive window of YYYY-MM-DD bounds. An empty bound is
// unbounded on that side. Bounds compare lexicographically, which matches
// calendar order for the fixed-width form.
type DateRange struct {
	From string
	To   string
}

// Contains reports whether date falls inside the window.
func (r DateRange) Contains(date string) bool {
	if r.From != "" && date < r.From {
		return false
	}
	if r.To != "" && date > r.To {
		return false
	}
	return true
}

// AnalysisRequest is one framed unit of work. It is created per connection
// and consumed once.
type AnalysisRequest struct {
	Type  AnalysisType
	Range DateRange
	Body  []byte
}

// Outcome values recorded for each analysis.
const (
	OutcomeOK             = "ok"
	OutcomeNoMatch        = "no_match"
	OutcomeFramingError   = "framing_error"
	OutcomeTransportError = "transport_error"
)

// AnalysisRecord is the history row kept for a finished request. It holds
// request metadata and the resulting counts, never the uploaded body.
type AnalysisRecord struct {
	ID         string        `json:"id"`
	ReceivedAt time.Time     `json:"received_at"`
	Transport  string        `json:"transport"` // "tcp", "http"
	RemoteAddr string        `json:"remote_addr"`
	Type       string        `json:"type"`
	From       string        `json:"from,omitempty"`
	To         string        `json:"to,omitempty"`
	Format     string        `json:"format"`
	BodyBytes  int           `json:"body_bytes"`
	Outcome    string        `json:"outcome"`
	Duration   time.Duration `json:"duration_ns"`
	Counts     CountTable    `json:"counts"`
}
