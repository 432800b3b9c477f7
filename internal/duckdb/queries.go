package duckdb

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/tinytelemetry/logsift/internal/model"
)

// dangerousKeywordPattern matches write or side-effecting SQL keywords at
// word boundaries, so "RESET" does not match "SET".
var dangerousKeywordPattern = regexp.MustCompile(
	`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|COPY|ATTACH|DETACH|LOAD|EXPORT|IMPORT|INSTALL|CALL|EXECUTE|PRAGMA|SET|CHECKPOINT)\b`,
)

var blockCommentPattern = regexp.MustCompile(`/\*[\s\S]*?\*/`)

// maxQueryRows caps the rows returned by ExecuteQuery.
const maxQueryRows = 1000

// stripSQLComments removes -- line comments and /* */ block comments from a query.
func stripSQLComments(query string) string {
	cleaned := blockCommentPattern.ReplaceAllString(query, " ")
	var result strings.Builder
	for _, line := range strings.Split(cleaned, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		result.WriteString(line)
		result.WriteByte('\n')
	}
	return result.String()
}

// validateReadOnly rejects anything that is not a single SELECT/WITH query.
func validateReadOnly(query string) error {
	if strings.Contains(query, ";") {
		return fmt.Errorf("query must not contain semicolons")
	}
	stripped := strings.TrimSpace(stripSQLComments(query))
	upper := strings.ToUpper(stripped)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("only SELECT/WITH queries are allowed")
	}
	if match := dangerousKeywordPattern.FindString(stripped); match != "" {
		return fmt.Errorf("query contains disallowed keyword: %s", strings.ToUpper(match))
	}
	return nil
}

// TotalAnalyses returns the number of recorded analyses.
func (s *Store) TotalAnalyses() (int64, error) {
	ctx, release, err := s.beginRead()
	if err != nil {
		return 0, err
	}
	defer release()

	var count int64
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&count)
	return count, err
}

// OutcomeCounts returns the number of recorded analyses per outcome.
func (s *Store) OutcomeCounts() (map[string]int64, error) {
	ctx, release, err := s.beginRead()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM analyses GROUP BY outcome`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var outcome string
		var count int64
		if err := rows.Scan(&outcome, &count); err != nil {
			log.Printf("duckdb scan error (OutcomeCounts): %v", err)
			continue
		}
		result[outcome] = count
	}
	return result, rows.Err()
}

// RecentAnalyses returns up to limit analyses, newest first, with their
// count tables attached.
func (s *Store) RecentAnalyses(limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	ctx, release, err := s.beginRead()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.db.QueryContext(ctx, `
		SELECT analysis_id, received_at, transport, remote_addr, analysis_type,
			from_date, to_date, format, body_bytes, outcome, duration_ms
		FROM analyses
		ORDER BY received_at DESC, analysis_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}

	var results []model.AnalysisRecord
	index := make(map[string]int)
	for rows.Next() {
		var r model.AnalysisRecord
		var bodyBytes int64
		var durationMS float64
		if err := rows.Scan(&r.ID, &r.ReceivedAt, &r.Transport, &r.RemoteAddr, &r.Type,
			&r.From, &r.To, &r.Format, &bodyBytes, &r.Outcome, &durationMS); err != nil {
			log.Printf("duckdb scan error (RecentAnalyses): %v", err)
			continue
		}
		r.BodyBytes = int(bodyBytes)
		r.Duration = time.Duration(durationMS * float64(time.Millisecond))
		r.Counts = model.CountTable{}
		index[r.ID] = len(results)
		results = append(results, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil || len(results) == 0 {
		return results, err
	}

	ids := make([]interface{}, 0, len(results))
	placeholders := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
		placeholders = append(placeholders, "?")
	}
	groupRows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT analysis_id, group_key, count FROM analysis_groups WHERE analysis_id IN (%s)`,
		strings.Join(placeholders, ", ")), ids...)
	if err != nil {
		return nil, err
	}
	defer groupRows.Close()

	for groupRows.Next() {
		var id, key string
		var count int64
		if err := groupRows.Scan(&id, &key, &count); err != nil {
			log.Printf("duckdb scan error (RecentAnalyses groups): %v", err)
			continue
		}
		if i, ok := index[id]; ok {
			results[i].Counts[key] = int(count)
		}
	}
	return results, groupRows.Err()
}

// TopGroups sums counts per group key across every recorded analysis of the
// given type (USER, IP or LOG_LEVEL) and returns the largest first. An empty
// analysisType sums across all types.
func (s *Store) TopGroups(analysisType string, limit int) ([]model.GroupCount, error) {
	ctx, release, err := s.beginRead()
	if err != nil {
		return nil, err
	}
	defer release()

	where := ""
	var args []interface{}
	if analysisType != "" {
		where = "WHERE analysis_type = ?"
		args = append(args, analysisType)
	}
	query := fmt.Sprintf(`
		SELECT group_key, CAST(SUM(count) AS BIGINT) AS total
		FROM analysis_groups %s
		GROUP BY group_key
		ORDER BY total DESC, group_key ASC
		LIMIT ?`, where)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.GroupCount
	for rows.Next() {
		var gc model.GroupCount
		if err := rows.Scan(&gc.Key, &gc.Count); err != nil {
			log.Printf("duckdb scan error (TopGroups): %v", err)
			continue
		}
		results = append(results, gc)
	}
	return results, rows.Err()
}

// DeleteBefore removes analyses received before cutoff together with their
// group rows, returning the number of analyses removed.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analysis_groups WHERE received_at < ?`, cutoff); err != nil {
		return 0, fmt.Errorf("delete groups: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE received_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete analyses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// ExecuteQuery runs a read-only SQL query and returns results as maps.
// Only a single SELECT/WITH statement is allowed.
func (s *Store) ExecuteQuery(query string) ([]map[string]interface{}, error) {
	trimmed := strings.TrimSpace(query)
	if err := validateReadOnly(trimmed); err != nil {
		return nil, err
	}

	ctx, release, err := s.beginRead()
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.db.QueryContext(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() && len(results) < maxQueryRows {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			log.Printf("duckdb scan error (ExecuteQuery): %v", err)
			continue
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// GetSchemaDescription returns a human-readable description of the history tables.
func (s *Store) GetSchemaDescription() string {
	return `Table 'analyses': analysis_id (VARCHAR), received_at (TIMESTAMP), ` +
		`transport (VARCHAR: tcp/http), remote_addr (VARCHAR), ` +
		`analysis_type (VARCHAR: USER/IP/LOG_LEVEL), from_date (VARCHAR), to_date (VARCHAR), ` +
		`format (VARCHAR: json/xml/txt), body_bytes (BIGINT), ` +
		`outcome (VARCHAR: ok/no_match/framing_error/transport_error), duration_ms (DOUBLE), ` +
		`group_count (INTEGER), total_count (BIGINT). ` +
		`Table 'analysis_groups': analysis_id (VARCHAR), received_at (TIMESTAMP), ` +
		`analysis_type (VARCHAR), group_key (VARCHAR), count (BIGINT).`
}

// TableRowCounts returns the row count of each history table.
func (s *Store) TableRowCounts() (map[string]int64, error) {
	ctx, release, err := s.beginRead()
	if err != nil {
		return nil, err
	}
	defer release()

	allowedTables := []string{"analyses", "analysis_groups"}
	counts := make(map[string]int64, len(allowedTables))
	for _, table := range allowedTables {
		var count int64
		// Table names come from the allowlist above.
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			continue
		}
		counts[table] = count
	}
	return counts, nil
}
