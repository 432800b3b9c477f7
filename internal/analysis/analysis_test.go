package analysis

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tinytelemetry/logsift/internal/framing"
	"github.com/tinytelemetry/logsift/internal/model"
)

func TestAnalyzePayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		raw        string
		wantFormat model.Format
		want       model.CountTable
	}{
		{
			name: "json by user within window",
			raw: "TYPE:USER\nFROM:2024-01-01\nTO:2024-01-31\n\n" +
				`[{"timestamp":"2024-01-05T00:00:00","user_id":1},` +
				`{"timestamp":"2024-02-05T00:00:00","user_id":2},` +
				`{"user_id":3}]`,
			wantFormat: model.FormatJSON,
			want:       model.CountTable{"1": 1, "3": 1},
		},
		{
			name: "xml by ip",
			raw: "TYPE:IP\n\n<logs>" +
				"<log><timestamp>2024-01-05</timestamp><ip_address>1.1.1.1</ip_address></log>" +
				"<log><timestamp>2024-01-06</timestamp></log>" +
				"</logs>",
			wantFormat: model.FormatXML,
			want:       model.CountTable{"1.1.1.1": 1},
		},
		{
			name: "txt by level",
			raw: "TYPE:LOG_LEVEL\nTO:2024-01-05\n\n" +
				"2024-01-05 10:00:00 | INFO | a | UserID: 1 | IP: x\n" +
				"2024-01-06 10:00:00 | ERROR | b | UserID: 1 | IP: x\n",
			wantFormat: model.FormatTXT,
			want:       model.CountTable{"INFO": 1},
		},
		{
			name:       "empty body",
			raw:        "TYPE:USER\n\n",
			wantFormat: model.FormatTXT,
			want:       model.CountTable{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, res, err := AnalyzePayload([]byte(tt.raw))
			if err != nil {
				t.Fatalf("AnalyzePayload returned error: %v", err)
			}
			if res.Format != tt.wantFormat {
				t.Errorf("Format = %v, want %v", res.Format, tt.wantFormat)
			}
			if diff := cmp.Diff(tt.want, res.Counts); diff != "" {
				t.Errorf("counts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnalyzePayload_FramingError(t *testing.T) {
	t.Parallel()

	_, _, err := AnalyzePayload([]byte("TYPE:USER\n[1]"))
	if !framing.IsFramingError(err) {
		t.Fatalf("AnalyzePayload error = %v, want framing error", err)
	}
}

func TestResultOutcome(t *testing.T) {
	t.Parallel()

	if got := (Result{Counts: model.CountTable{}}).Outcome(); got != model.OutcomeNoMatch {
		t.Fatalf("Outcome(empty) = %q, want %q", got, model.OutcomeNoMatch)
	}
	if got := (Result{Counts: model.CountTable{"a": 1}}).Outcome(); got != model.OutcomeOK {
		t.Fatalf("Outcome(non-empty) = %q, want %q", got, model.OutcomeOK)
	}
}
