package model

import "testing"

func TestParseAnalysisType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  AnalysisType
	}{
		{"USER", ByUser},
		{"IP", ByIP},
		{"LOG_LEVEL", ByLogLevel},
		{"", ByLogLevel},
		{"user", ByLogLevel},
		{"USER ", ByLogLevel},
		{"USER\r", ByLogLevel},
		{"SOMETHING", ByLogLevel},
	}

	for _, tt := range tests {
		if got := ParseAnalysisType(tt.input); got != tt.want {
			t.Errorf("ParseAnalysisType(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAnalysisTypeString(t *testing.T) {
	t.Parallel()

	for _, typ := range []AnalysisType{ByUser, ByIP, ByLogLevel} {
		if got := ParseAnalysisType(typ.String()); got != typ {
			t.Errorf("ParseAnalysisType(%q) = %v, want %v", typ.String(), got, typ)
		}
	}
}

func TestDateRangeContains(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		r    DateRange
		date string
		want bool
	}{
		{"unbounded", DateRange{}, "1999-01-01", true},
		{"unbounded empty date", DateRange{}, "", true},
		{"lower bound inclusive", DateRange{From: "2024-01-01"}, "2024-01-01", true},
		{"below lower bound", DateRange{From: "2024-01-01"}, "2023-12-31", false},
		{"upper bound inclusive", DateRange{To: "2024-01-31"}, "2024-01-31", true},
		{"above upper bound", DateRange{To: "2024-01-31"}, "2024-02-01", false},
		{"inside window", DateRange{From: "2024-01-01", To: "2024-01-31"}, "2024-01-15", true},
		{"empty date with lower bound", DateRange{From: "2024-01-01"}, "", false},
		{"empty date with upper bound", DateRange{To: "2024-01-31"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Contains(tt.date); got != tt.want {
				t.Fatalf("Contains(%q) = %v, want %v", tt.date, got, tt.want)
			}
		})
	}
}

func TestCountTable(t *testing.T) {
	t.Parallel()

	c := CountTable{}
	if c.Len() != 0 || c.Total() != 0 {
		t.Fatalf("empty table: Len = %d, Total = %d, want 0, 0", c.Len(), c.Total())
	}

	c.Add("INFO")
	c.Add("INFO")
	c.Add("")

	if got := c["INFO"]; got != 2 {
		t.Fatalf("count[INFO] = %d, want 2", got)
	}
	if got := c[""]; got != 1 {
		t.Fatalf("count[\"\"] = %d, want 1", got)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if c.Total() != 3 {
		t.Fatalf("Total = %d, want 3", c.Total())
	}
}

func TestObserverFunc(t *testing.T) {
	t.Parallel()

	var got string
	var o Observer = ObserverFunc(func(rec *AnalysisRecord) { got = rec.Outcome })
	o.Observe(&AnalysisRecord{Outcome: OutcomeNoMatch})
	if got != OutcomeNoMatch {
		t.Fatalf("ObserverFunc saw %q, want %q", got, OutcomeNoMatch)
	}
}
