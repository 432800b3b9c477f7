package model

// HistoryQuerier provides read-only queries over recorded analyses.
type HistoryQuerier interface {
	TotalAnalyses() (int64, error)
	OutcomeCounts() (map[string]int64, error)
	RecentAnalyses(limit int) ([]AnalysisRecord, error)
	TopGroups(analysisType string, limit int) ([]GroupCount, error)
}

// SchemaQuerier provides schema introspection and arbitrary read-only queries.
type SchemaQuerier interface {
	ExecuteQuery(query string) ([]map[string]interface{}, error)
	GetSchemaDescription() string
	TableRowCounts() (map[string]int64, error)
}

// HistoryWriter provides append-oriented writes for finished analyses.
type HistoryWriter interface {
	InsertAnalysisBatch(records []*AnalysisRecord) error
}

// HistoryReader is the unified read contract for the HTTP API.
type HistoryReader interface {
	HistoryQuerier
	SchemaQuerier
}

// Observer receives one record per finished analysis, after the response
// has been written. Implementations must not block for long.
type Observer interface {
	Observe(rec *AnalysisRecord)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(rec *AnalysisRecord)

// Observe calls f(rec).
func (f ObserverFunc) Observe(rec *AnalysisRecord) { f(rec) }
