package framing

import (
	"errors"
	"testing"

	"github.com/tinytelemetry/logsift/internal/model"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		wantType model.AnalysisType
		wantFrom string
		wantTo   string
		wantBody string
	}{
		{
			name:     "full header",
			raw:      "TYPE:USER\nFROM:2024-01-01\nTO:2024-01-31\n\n[1]",
			wantType: model.ByUser,
			wantFrom: "2024-01-01",
			wantTo:   "2024-01-31",
			wantBody: "[1]",
		},
		{
			name:     "type only",
			raw:      "TYPE:IP\n\nbody\n\nmore",
			wantType: model.ByIP,
			wantBody: "body\n\nmore",
		},
		{
			name:     "missing type defaults to level",
			raw:      "FROM:2024-01-01\n\nx",
			wantType: model.ByLogLevel,
			wantFrom: "2024-01-01",
			wantBody: "x",
		},
		{
			name:     "unknown type defaults to level",
			raw:      "TYPE:HOST\n\nx",
			wantType: model.ByLogLevel,
			wantBody: "x",
		},
		{
			name:     "last directive wins",
			raw:      "TYPE:USER\nTYPE:IP\nFROM:a\nFROM:b\n\n",
			wantType: model.ByIP,
			wantFrom: "b",
		},
		{
			name:     "unknown lines ignored",
			raw:      "X-Client: test\nTYPE:USER\nhello\n\nbody",
			wantType: model.ByUser,
			wantBody: "body",
		},
		{
			name:     "values are not trimmed",
			raw:      "TYPE: USER\nFROM: 2024-01-01\n\n",
			wantType: model.ByLogLevel,
			wantFrom: " 2024-01-01",
		},
		{
			name:     "prefix must start the line",
			raw:      " TYPE:USER\n\n",
			wantType: model.ByLogLevel,
		},
		{
			name:     "empty header block",
			raw:      "\n\nbody",
			wantType: model.ByLogLevel,
			wantBody: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Decode([]byte(tt.raw))
			if err != nil {
				t.Fatalf("Decode returned error: %v", err)
			}
			if req.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", req.Type, tt.wantType)
			}
			if req.Range.From != tt.wantFrom {
				t.Errorf("From = %q, want %q", req.Range.From, tt.wantFrom)
			}
			if req.Range.To != tt.wantTo {
				t.Errorf("To = %q, want %q", req.Range.To, tt.wantTo)
			}
			if string(req.Body) != tt.wantBody {
				t.Errorf("Body = %q, want %q", req.Body, tt.wantBody)
			}
		})
	}
}

func TestDecode_FramingErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"empty", "", ErrEmptyPayload},
		{"no blank line", "TYPE:USER\n[1,2,3]", ErrNoBoundary},
		{"crlf is not a boundary", "TYPE:USER\r\n\r\nbody", ErrNoBoundary},
		{"single newline", "\n", ErrNoBoundary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Decode error = %v, want %v", err, tt.want)
			}
			if !IsFramingError(err) {
				t.Fatalf("IsFramingError(%v) = false, want true", err)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	req := model.AnalysisRequest{
		Type:  model.ByIP,
		Range: model.DateRange{From: "2024-03-01"},
		Body:  []byte("line one\n\nline two\n"),
	}

	raw := Encode(req)
	if want := "TYPE:IP\nFROM:2024-03-01\n\nline one\n\nline two\n"; string(raw) != want {
		t.Fatalf("Encode = %q, want %q", raw, want)
	}

	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if got.Type != req.Type || got.Range != req.Range || string(got.Body) != string(req.Body) {
		t.Fatalf("Decode(Encode(req)) = %+v, want %+v", got, req)
	}
}

func TestIsFramingError_OtherErrors(t *testing.T) {
	t.Parallel()

	if IsFramingError(errors.New("boom")) {
		t.Fatal("IsFramingError(other) = true, want false")
	}
	if IsFramingError(nil) {
		t.Fatal("IsFramingError(nil) = true, want false")
	}
}
