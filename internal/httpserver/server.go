package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/logsift/internal/model"
)

const (
	// DefaultMaxBody bounds the size of an /api/analyze request body.
	DefaultMaxBody int64 = 64 << 20

	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
	defaultGroupsLimit  = 20
	maxGroupsLimit      = 1000
)

// DefaultAddr is the listen address used when NewServer gets "".
var DefaultAddr = net.JoinHostPort(model.DefaultBindHost, strconv.Itoa(model.DefaultAPIPort))

// ServerConfig holds optional collaborators for the HTTP API.
type ServerConfig struct {
	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
	// Observers are notified of every /api/analyze request.
	Observers []model.Observer
	// MaxBody bounds /api/analyze bodies; defaults to DefaultMaxBody.
	MaxBody int64
}

// Server provides the HTTP API: an analyze endpoint mirroring the TCP
// protocol plus read-only views over the analysis history.
type Server struct {
	addr      string
	store     model.HistoryReader
	metrics   http.Handler
	observers []model.Observer
	maxBody   int64
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
	serveDone chan struct{}
	serveErr  error
}

// NewServer creates a new HTTP API server. store may be nil when history is
// disabled; the history endpoints then answer 503.
func NewServer(addr string, store model.HistoryReader, conf ...ServerConfig) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:      addr,
		store:     store,
		maxBody:   DefaultMaxBody,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
		serveDone: make(chan struct{}),
	}
	if len(conf) > 0 {
		s.metrics = conf[0].Metrics
		s.observers = append(s.observers, conf[0].Observers...)
		if conf[0].MaxBody > 0 {
			s.maxBody = conf[0].MaxBody
		}
	}
	return s
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api/analyze", s.handleAnalyze)
	r.GET("/api/health", s.handleHealth)
	r.GET("/api/history", s.handleHistory)
	r.GET("/api/groups", s.handleGroups)
	r.GET("/api/schema", s.handleSchema)
	r.POST("/api/query", s.handleQuery)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics))
	}
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = time.Now()

	go func() {
		defer close(s.serveDone)
		if err := s.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			s.serveErr = fmt.Errorf("httpserver: serve: %w", err)
		}
	}()
	return nil
}

// Wait blocks until the server started by Start stops serving. It returns
// nil after Stop and the serve error otherwise.
func (s *Server) Wait() error {
	<-s.serveDone
	return s.serveErr
}

// Addr returns the active listen address.
// Before Start, it returns the configured address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) historyAvailable(c *gin.Context) bool {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis history is disabled"})
		return false
	}
	return true
}

// queryLimit reads ?limit=N, falling back to def and clamping to max.
func queryLimit(c *gin.Context, def, max int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if n > max {
		n = max
	}
	return n, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":          "ok",
		"uptime":          time.Since(s.startTime).String(),
		"history_enabled": s.store != nil,
	}
	if s.store != nil {
		total, err := s.store.TotalAnalyses()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
			return
		}
		body["analyses"] = total

		outcomes, err := s.store.OutcomeCounts()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
			return
		}
		body["outcomes"] = outcomes
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleHistory(c *gin.Context) {
	if !s.historyAvailable(c) {
		return
	}
	limit, err := queryLimit(c, defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := s.store.RecentAnalyses(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
		return
	}
	if records == nil {
		records = []model.AnalysisRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"analyses": records,
		"count":    len(records),
	})
}

func (s *Server) handleGroups(c *gin.Context) {
	if !s.historyAvailable(c) {
		return
	}
	limit, err := queryLimit(c, defaultGroupsLimit, maxGroupsLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	analysisType := ""
	if raw := c.Query("type"); raw != "" {
		analysisType = model.ParseAnalysisType(raw).String()
	}

	groups, err := s.store.TopGroups(analysisType, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read group totals"})
		return
	}
	if groups == nil {
		groups = []model.GroupCount{}
	}
	c.JSON(http.StatusOK, gin.H{
		"type":   analysisType,
		"groups": groups,
	})
}

func (s *Server) handleSchema(c *gin.Context) {
	if !s.historyAvailable(c) {
		return
	}
	description := s.store.GetSchemaDescription()

	tables, err := s.store.ExecuteQuery(
		"SELECT table_name, column_name, data_type FROM information_schema.columns WHERE table_schema = 'main' ORDER BY table_name, ordinal_position",
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read schema metadata"})
		return
	}

	schema := make(map[string][]map[string]string)
	for _, row := range tables {
		tableName := fmt.Sprintf("%v", row["table_name"])
		schema[tableName] = append(schema[tableName], map[string]string{
			"column": fmt.Sprintf("%v", row["column_name"]),
			"type":   fmt.Sprintf("%v", row["data_type"]),
		})
	}

	counts, err := s.store.TableRowCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read table row counts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"description": description,
		"tables":      schema,
		"row_counts":  counts,
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	if !s.historyAvailable(c) {
		return
	}
	var req struct {
		SQL string `json:"sql" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing sql field"})
		return
	}

	results, err := s.store.ExecuteQuery(req.SQL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	columns := []string{}
	if len(results) > 0 {
		for col := range results[0] {
			columns = append(columns, col)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"columns":   columns,
		"rows":      results,
		"row_count": len(results),
	})
}
