package analysis

import (
	"github.com/tinytelemetry/logsift/internal/datefilter"
	"github.com/tinytelemetry/logsift/internal/framing"
	"github.com/tinytelemetry/logsift/internal/logparse"
	"github.com/tinytelemetry/logsift/internal/model"
)

// Result is the outcome of analyzing one request body.
type Result struct {
	Format model.Format
	Type   model.AnalysisType
	Counts model.CountTable
}

// Outcome classifies the result for metrics and history.
func (r Result) Outcome() string {
	if r.Counts.Len() == 0 {
		return model.OutcomeNoMatch
	}
	return model.OutcomeOK
}

// Analyze sniffs the body format, applies the date window for that format
// and counts the surviving records. It holds no state and is safe to call
// from any number of goroutines.
func Analyze(req model.AnalysisRequest) Result {
	format := logparse.Detect(req.Body)
	filtered := datefilter.Apply(format, req.Body, req.Range)
	counts := logparse.Parse(logparse.Document{Format: format, Body: filtered}, req.Type)
	return Result{Format: format, Type: req.Type, Counts: counts}
}

// AnalyzePayload frames raw and analyzes it. It returns the framing error
// unchanged so callers can test it with framing.IsFramingError.
func AnalyzePayload(raw []byte) (model.AnalysisRequest, Result, error) {
	req, err := framing.Decode(raw)
	if err != nil {
		return req, Result{}, err
	}
	return req, Analyze(req), nil
}
