package httpserver

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/logsift/internal/analysis"
	"github.com/tinytelemetry/logsift/internal/framing"
	"github.com/tinytelemetry/logsift/internal/model"
	"github.com/tinytelemetry/logsift/internal/report"
)

// Transport is the label used for records produced by this server.
const Transport = "http"

type analyzeResponse struct {
	Format string             `json:"format"`
	Type   string             `json:"type"`
	Groups model.CountTable   `json:"groups"`
	Sorted []model.GroupCount `json:"sorted"`
	Total  int                `json:"total"`
}

// handleAnalyze accepts the same framed payload as the TCP listener. The
// default response is the plain-text report; ?format=json returns the
// counts as a JSON object.
func (s *Server) handleAnalyze(c *gin.Context) {
	rec := &model.AnalysisRecord{
		Transport:  Transport,
		RemoteAddr: c.Request.RemoteAddr,
	}
	defer s.notify(rec)

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody))
	rec.BodyBytes = len(raw)
	if err != nil {
		rec.Outcome = model.OutcomeTransportError
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		log.Printf("httpserver: read body from %s: %v", rec.RemoteAddr, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	rec.ReceivedAt = time.Now()

	req, res, err := analysis.AnalyzePayload(raw)
	if err != nil {
		rec.Outcome = model.OutcomeFramingError
		if !framing.IsFramingError(err) {
			rec.Outcome = model.OutcomeTransportError
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec.Type = req.Type.String()
	rec.From = req.Range.From
	rec.To = req.Range.To
	rec.Format = res.Format.String()
	rec.Outcome = res.Outcome()
	rec.Counts = res.Counts

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, analyzeResponse{
			Format: rec.Format,
			Type:   rec.Type,
			Groups: res.Counts,
			Sorted: report.Sorted(res.Counts),
			Total:  res.Counts.Total(),
		})
	} else {
		c.Data(http.StatusOK, "text/plain; charset=utf-8", report.Render(res.Counts))
	}
	rec.Duration = time.Since(rec.ReceivedAt)
}

func (s *Server) notify(rec *model.AnalysisRecord) {
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now()
	}
	for _, o := range s.observers {
		o.Observe(rec)
	}
}
