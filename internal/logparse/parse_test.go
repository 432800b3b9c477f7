package logparse

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/tinytelemetry/logsift/internal/model"
)

func assertCounts(t *testing.T, got, want model.CountTable) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
}

const sampleJSON = `[
  {"timestamp":"2024-01-02T10:00:00","log_level":"INFO","user_id":1001,"ip_address":"10.0.0.1"},
  {"timestamp":"2024-01-03T10:00:00","log_level":"ERROR","user_id":1002,"ip_address":"10.0.0.2"},
  {"timestamp":"2024-01-04T10:00:00","log_level":"INFO","user_id":1001,"ip_address":"10.0.0.1"}
]`

func TestParseJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		typ  model.AnalysisType
		want model.CountTable
	}{
		{"by level", model.ByLogLevel, model.CountTable{"INFO": 2, "ERROR": 1}},
		{"by user", model.ByUser, model.CountTable{"1001": 2, "1002": 1}},
		{"by ip", model.ByIP, model.CountTable{"10.0.0.1": 2, "10.0.0.2": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCounts(t, ParseJSON([]byte(sampleJSON), tt.typ), tt.want)
		})
	}
}

func TestParseJSON_LevelCountsSumToLength(t *testing.T) {
	t.Parallel()

	levels := []string{"INFO", "WARN", "ERROR", "DEBUG"}
	for n := 0; n < 20; n++ {
		var b strings.Builder
		b.WriteString("[")
		for i := 0; i < n; i++ {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `{"log_level":%q}`, levels[i%len(levels)])
		}
		b.WriteString("]")

		got := ParseJSON([]byte(b.String()), model.ByLogLevel)
		if got.Total() != n {
			t.Fatalf("n=%d: Total = %d, want %d", n, got.Total(), n)
		}
	}
}

func TestParseJSON_SkipsMissingAndEmptyKeys(t *testing.T) {
	t.Parallel()

	body := `[
	  {"log_level":"INFO","user_id":7},
	  {"log_level":"","user_id":"7"},
	  {"ip_address":5},
	  {"user_id":7.0},
	  {"user_id":7.5},
	  "not an object",
	  {}
	]`

	assertCounts(t, ParseJSON([]byte(body), model.ByLogLevel), model.CountTable{"INFO": 1})
	assertCounts(t, ParseJSON([]byte(body), model.ByUser), model.CountTable{"7": 2})
	assertCounts(t, ParseJSON([]byte(body), model.ByIP), model.CountTable{})
}

func TestParseJSON_LargeUserIDKeepsDigits(t *testing.T) {
	t.Parallel()

	body := `[
	  {"user_id":9007199254740993},
	  {"user_id":12345678901234567890},
	  {"user_id":-98765432109876543210},
	  {"user_id":-0},
	  {"user_id":1e3}
	]`
	got := ParseJSON([]byte(body), model.ByUser)
	assertCounts(t, got, model.CountTable{
		"9007199254740993":      1,
		"12345678901234567890":  1,
		"-98765432109876543210": 1,
		"0":                     1,
		"1000":                  1,
	})
}

func TestParseJSON_MalformedYieldsEmpty(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`[{"log_level":"INFO"`, `{"log_level":"INFO"}`, `[1,2`} {
		got := ParseJSON([]byte(body), model.ByLogLevel)
		if got.Len() != 0 {
			t.Fatalf("ParseJSON(%q) = %v, want empty", body, got)
		}
	}
}

func TestParseTXT(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		"2024-01-01 10:00:00 | INFO | started | UserID: 42 | IP: 192.168.0.1",
		"2024-01-01 10:01:00 | ERROR | failed | UserID: 43 | IP: 192.168.0.2",
		"",
		"2024-01-01 10:02:00 |  INFO\t| again | UserID:42 | IP:192.168.0.1  ",
		"garbage line",
		"",
	}, "\n")

	assertCounts(t, ParseTXT(body, model.ByLogLevel), model.CountTable{"INFO": 2, "ERROR": 1})
	assertCounts(t, ParseTXT(body, model.ByUser), model.CountTable{"42": 2, "43": 1})
	assertCounts(t, ParseTXT(body, model.ByIP), model.CountTable{"192.168.0.1": 2, "192.168.0.2": 1})
}

func TestParseTXT_EmptyUserCounted(t *testing.T) {
	t.Parallel()

	lines := []string{
		"2024-01-01 10:00:00 | INFO | a | UserID: 1 | IP: 1.1.1.1",
		"2024-01-01 10:00:00 | INFO | b | UserID: | IP: 1.1.1.1",
		"2024-01-01 10:00:00 | INFO | c | UserID:   | IP: 1.1.1.1",
		"2024-01-01 10:00:00 | INFO | d | no colon | IP: 1.1.1.1",
		"2024-01-01 10:00:00 | INFO | e | UserID: 2 | IP: 1.1.1.1",
	}
	got := ParseTXT(strings.Join(lines, "\n"), model.ByUser)

	if got.Total() != len(lines) {
		t.Fatalf("Total = %d, want %d", got.Total(), len(lines))
	}
	assertCounts(t, got, model.CountTable{"1": 1, "2": 1, "": 3})
}

func TestParseTXT_TrailingPipeDoesNotAddField(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		"2024-01-01 10:00:00 | INFO | msg | UserID: 7 |",
		"2024-01-01 10:00:00 | WARN | msg | UserID: 8 | IP: 1.1.1.1 |",
		"2024-01-01 10:00:00 | ERROR | msg | UserID: 9 ||",
	}, "\n")

	assertCounts(t, ParseTXT(body, model.ByLogLevel), model.CountTable{"WARN": 1, "ERROR": 1})
	assertCounts(t, ParseTXT(body, model.ByIP), model.CountTable{"1.1.1.1": 1, "": 1})
}

func TestParseTXT_TrimsCarriageReturn(t *testing.T) {
	t.Parallel()

	body := "2024-01-01 | WARN | m | UserID: 5 | IP: 9.9.9.9\r\n"
	assertCounts(t, ParseTXT(body, model.ByIP), model.CountTable{"9.9.9.9": 1})
}

func TestParseTXT_EmptyBody(t *testing.T) {
	t.Parallel()

	if got := ParseTXT("", model.ByLogLevel); got.Len() != 0 {
		t.Fatalf("ParseTXT(\"\") = %v, want empty", got)
	}
	if got := ParseTXT("\n\n\n", model.ByLogLevel); got.Len() != 0 {
		t.Fatalf("ParseTXT(newlines) = %v, want empty", got)
	}
}

func TestParseXML(t *testing.T) {
	t.Parallel()

	doc := `<logs>
  <log><timestamp>2024-01-01T00:00:00</timestamp><log_level>INFO</log_level><user_id>1</user_id><ip_address>10.1.1.1</ip_address></log>
  <log><timestamp>2024-01-02T00:00:00</timestamp><log_level>WARN</log_level><user_id>2</user_id></log>
  <log><log_level>INFO</log_level><user_id>1</user_id><ip_address>10.1.1.1</ip_address></log>
  <log><log_level></log_level><ip_address>10.1.1.2</ip_address></log>
</logs>`

	assertCounts(t, ParseXML(doc, model.ByLogLevel), model.CountTable{"INFO": 2, "WARN": 1})
	assertCounts(t, ParseXML(doc, model.ByUser), model.CountTable{"1": 2, "2": 1})

	byIP := ParseXML(doc, model.ByIP)
	assertCounts(t, byIP, model.CountTable{"10.1.1.1": 2, "10.1.1.2": 1})
	// Four blocks, one without <ip_address>.
	if byIP.Total() != 3 {
		t.Fatalf("Total = %d, want 3", byIP.Total())
	}
}

func TestParseXML_StopsAtUnclosedBlock(t *testing.T) {
	t.Parallel()

	doc := `<logs><log><log_level>INFO</log_level></log><log><log_level>ERROR</log_level><log><log_level>WARN</log_level>`
	// The second <log> has no closing tag, so nothing after the first block is visited.
	assertCounts(t, ParseXML(doc, model.ByLogLevel), model.CountTable{"INFO": 1})
}

func TestParseXML_FirstTagWins(t *testing.T) {
	t.Parallel()

	doc := `<log><log_level>INFO</log_level><log_level>ERROR</log_level></log>`
	assertCounts(t, ParseXML(doc, model.ByLogLevel), model.CountTable{"INFO": 1})
}

func TestParseXML_NoEntityDecoding(t *testing.T) {
	t.Parallel()

	doc := `<log><log_level>A&amp;B</log_level></log>`
	assertCounts(t, ParseXML(doc, model.ByLogLevel), model.CountTable{"A&amp;B": 1})
}

func TestTagValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		s, tag, want string
	}{
		{"<a>x</a>", "a", "x"},
		{"<a></a>", "a", ""},
		{"<a>x", "a", ""},
		{"<b>x</b>", "a", ""},
		{"<a> spaced </a>", "a", " spaced "},
		{"<a>1</a><a>2</a>", "a", "1"},
	}
	for _, tt := range tests {
		if got := TagValue(tt.s, tt.tag); got != tt.want {
			t.Errorf("TagValue(%q, %q) = %q, want %q", tt.s, tt.tag, got, tt.want)
		}
	}
}

func TestNextLogBlock(t *testing.T) {
	t.Parallel()

	doc := "xx<log>a</log>yy<log>b</log><log>c"
	var blocks []string
	pos := 0
	for {
		start, end, ok := NextLogBlock(doc, pos)
		if !ok {
			break
		}
		blocks = append(blocks, LogBlockInner(doc[start:end]))
		pos = end
	}
	if diff := cmp.Diff([]string{"a", "b"}, blocks); diff != "" {
		t.Fatalf("blocks mismatch (-want +got):\n%s", diff)
	}
}
