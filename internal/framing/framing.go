package framing

import (
	"bytes"
	"errors"
	"strings"

	"github.com/tinytelemetry/logsift/internal/model"
)

// Header directive prefixes. The text after the prefix, unstripped, is the
// directive value.
const (
	DirectiveType = "TYPE:"
	DirectiveFrom = "FROM:"
	DirectiveTo   = "TO:"
)

// boundary separates the header block from the body.
var boundary = []byte("\n\n")

var (
	// ErrEmptyPayload is returned when nothing was received.
	ErrEmptyPayload = errors.New("framing: empty payload")
	// ErrNoBoundary is returned when the payload has no blank line between
	// header and body.
	ErrNoBoundary = errors.New("framing: no header/body separator")
)

// IsFramingError reports whether err means the payload could not be split
// into header and body. No response is written for such requests.
func IsFramingError(err error) bool {
	return errors.Is(err, ErrEmptyPayload) || errors.Is(err, ErrNoBoundary)
}

// Decode splits raw at its first blank line and parses the header block.
// Unknown header lines are ignored and a repeated directive overwrites the
// earlier one.
func Decode(raw []byte) (model.AnalysisRequest, error) {
	if len(raw) == 0 {
		return model.AnalysisRequest{}, ErrEmptyPayload
	}
	idx := bytes.Index(raw, boundary)
	if idx < 0 {
		return model.AnalysisRequest{}, ErrNoBoundary
	}

	var typ string
	req := model.AnalysisRequest{Body: raw[idx+len(boundary):]}
	for _, line := range strings.Split(string(raw[:idx]), "\n") {
		switch {
		case strings.HasPrefix(line, DirectiveType):
			typ = line[len(DirectiveType):]
		case strings.HasPrefix(line, DirectiveFrom):
			req.Range.From = line[len(DirectiveFrom):]
		case strings.HasPrefix(line, DirectiveTo):
			req.Range.To = line[len(DirectiveTo):]
		}
	}
	req.Type = model.ParseAnalysisType(typ)
	return req, nil
}

// Encode builds the wire form of req: a TYPE line, optional FROM and TO
// lines, a blank line, then the body.
func Encode(req model.AnalysisRequest) []byte {
	var buf bytes.Buffer
	buf.Grow(len(req.Body) + 64)
	buf.WriteString(DirectiveType + req.Type.String() + "\n")
	if req.Range.From != "" {
		buf.WriteString(DirectiveFrom + req.Range.From + "\n")
	}
	if req.Range.To != "" {
		buf.WriteString(DirectiveTo + req.Range.To + "\n")
	}
	buf.WriteByte('\n')
	buf.Write(req.Body)
	return buf.Bytes()
}
