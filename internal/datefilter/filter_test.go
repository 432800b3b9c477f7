package datefilter

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tinytelemetry/logsift/internal/logparse"
	"github.com/tinytelemetry/logsift/internal/model"
)

var january = model.DateRange{From: "2024-01-01", To: "2024-01-31"}

func TestJSON_WindowBounds(t *testing.T) {
	t.Parallel()

	body := `[
	  {"timestamp":"2024-02-01T00:00:00","log_level":"AFTER"},
	  {"timestamp":"2023-12-31T23:59:59","log_level":"BEFORE"},
	  {"timestamp":"2024-01-15T12:00:00","log_level":"INSIDE"},
	  {"log_level":"UNDATED"},
	  {"timestamp":"2024-01","log_level":"SHORT"},
	  {"timestamp":20240115,"log_level":"NUMERIC"},
	  {"timestamp":"2024-01-01","log_level":"FIRST"},
	  {"timestamp":"2024-01-31T23:59:59","log_level":"LAST"}
	]`

	filtered := JSON([]byte(body), january)
	got := logparse.ParseJSON(filtered, model.ByLogLevel)
	want := model.CountTable{
		"INSIDE":  1,
		"UNDATED": 1,
		"SHORT":   1,
		"NUMERIC": 1,
		"FIRST":   1,
		"LAST":    1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("filtered counts mismatch (-want +got):\n%s", diff)
	}
}

func TestJSON_UndatedKeptWhateverTheBounds(t *testing.T) {
	t.Parallel()

	body := `[{"log_level":"X"}]`
	for _, r := range []model.DateRange{
		{},
		{From: "2999-01-01"},
		{To: "0001-01-01"},
		{From: "2999-01-01", To: "0001-01-01"},
	} {
		got := logparse.ParseJSON(JSON([]byte(body), r), model.ByLogLevel)
		if got["X"] != 1 {
			t.Fatalf("range %+v: undated record dropped", r)
		}
	}
}

func TestJSON_MalformedReturnedUnchanged(t *testing.T) {
	t.Parallel()

	body := []byte(`[{"timestamp":"2024-01-01"`)
	if got := JSON(body, january); string(got) != string(body) {
		t.Fatalf("JSON(malformed) = %q, want unchanged", got)
	}
}

func TestTXT(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		"2023-12-31 23:59:59 | INFO | old | UserID: 1 | IP: a",
		"2024-01-01 00:00:00 | INFO | first | UserID: 2 | IP: b",
		"short",
		"",
		"2024-01-31 10:00:00 | WARN | last | UserID: 3 | IP: c",
		"2024-02-01 00:00:00 | INFO | new | UserID: 4 | IP: d",
	}, "\n")

	want := "2024-01-01 00:00:00 | INFO | first | UserID: 2 | IP: b\n" +
		"2024-01-31 10:00:00 | WARN | last | UserID: 3 | IP: c\n"
	if got := TXT(body, january); got != want {
		t.Fatalf("TXT() = %q, want %q", got, want)
	}
}

func TestTXT_ShortLinesDroppedWithoutBounds(t *testing.T) {
	t.Parallel()

	body := "tiny\n123456789\n1234567890\n"
	if got, want := TXT(body, model.DateRange{}), "1234567890\n"; got != want {
		t.Fatalf("TXT() = %q, want %q", got, want)
	}
}

func TestXML(t *testing.T) {
	t.Parallel()

	doc := `<logs>` +
		`<log><timestamp>2023-12-31T00:00:00</timestamp><log_level>BEFORE</log_level></log>` +
		`<log><timestamp>2024-01-10T00:00:00</timestamp><log_level>INSIDE</log_level></log>` +
		`<log><log_level>UNDATED</log_level></log>` +
		`<log><timestamp>2024-02-10T00:00:00</timestamp><log_level>AFTER</log_level></log>` +
		`</logs>`

	tests := []struct {
		name string
		r    model.DateRange
		want model.CountTable
	}{
		{"no bounds", model.DateRange{}, model.CountTable{"BEFORE": 1, "INSIDE": 1, "UNDATED": 1, "AFTER": 1}},
		{"upper bound only keeps undated", model.DateRange{To: "2024-01-31"}, model.CountTable{"BEFORE": 1, "INSIDE": 1, "UNDATED": 1}},
		{"lower bound drops undated", model.DateRange{From: "2024-01-01"}, model.CountTable{"INSIDE": 1, "AFTER": 1}},
		{"window", january, model.CountTable{"INSIDE": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := logparse.ParseXML(XML(doc, tt.r), model.ByLogLevel)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("counts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestXML_WrapsInLogs(t *testing.T) {
	t.Parallel()

	got := XML(`<log><timestamp>2024-01-10</timestamp></log>`, model.DateRange{})
	want := `<logs><log><timestamp>2024-01-10</timestamp></log></logs>`
	if got != want {
		t.Fatalf("XML() = %q, want %q", got, want)
	}
}

func TestFiltersAreIdempotent(t *testing.T) {
	t.Parallel()

	jsonBody := []byte(`[ {"timestamp":"2024-01-05"}, {"timestamp":"2025-01-05"}, {"x":1} ]`)
	txtBody := []byte("2024-01-05 a\nxx\n2025-01-05 b\n2024-01-20 c")
	xmlBody := []byte(`<logs><log><timestamp>2024-01-05</timestamp></log><log></log><log><timestamp>2025-01-01</timestamp></log></logs>`)

	for _, r := range []model.DateRange{{}, january, {From: "2024-01-10"}, {To: "2024-01-10"}} {
		for _, tc := range []struct {
			format model.Format
			body   []byte
		}{
			{model.FormatJSON, jsonBody},
			{model.FormatTXT, txtBody},
			{model.FormatXML, xmlBody},
		} {
			once := Apply(tc.format, tc.body, r)
			twice := Apply(tc.format, once, r)
			if string(once) != string(twice) {
				t.Fatalf("%v %+v: second pass changed body\nonce:  %q\ntwice: %q", tc.format, r, once, twice)
			}
		}
	}
}
