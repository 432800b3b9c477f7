package tcpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/tinytelemetry/logsift/internal/analysis"
	"github.com/tinytelemetry/logsift/internal/framing"
	"github.com/tinytelemetry/logsift/internal/model"
	"github.com/tinytelemetry/logsift/internal/report"
)

// Transport is the label used for records produced by this server.
const Transport = "tcp"

// ErrPayloadTooLarge is returned when a peer sends more than MaxPayload bytes.
var ErrPayloadTooLarge = errors.New("payload exceeds configured maximum")

// handleConnection serves exactly one request: read to EOF, analyze, write
// the report once, close. A framing error closes the connection silently.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	// Shutdown unblocks a pending read so Stop does not wait on idle peers.
	stop := context.AfterFunc(s.ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	rec := &model.AnalysisRecord{
		Transport:  Transport,
		RemoteAddr: conn.RemoteAddr().String(),
	}
	defer s.notify(rec)

	raw, err := s.readPayload(conn)
	rec.BodyBytes = len(raw)
	if err != nil {
		log.Printf("tcpserver: read from %s: %v", rec.RemoteAddr, err)
		rec.Outcome = model.OutcomeTransportError
		return
	}
	rec.ReceivedAt = time.Now()

	req, res, err := analysis.AnalyzePayload(raw)
	if err != nil {
		if framing.IsFramingError(err) {
			log.Printf("tcpserver: %s: %v, closing without response", rec.RemoteAddr, err)
			rec.Outcome = model.OutcomeFramingError
			return
		}
		log.Printf("tcpserver: %s: analysis failed: %v", rec.RemoteAddr, err)
		rec.Outcome = model.OutcomeTransportError
		return
	}
	fillRecord(rec, req, res)

	if _, err := conn.Write(report.Render(res.Counts)); err != nil {
		log.Printf("tcpserver: write to %s: %v", rec.RemoteAddr, err)
		rec.Outcome = model.OutcomeTransportError
	}
	rec.Duration = time.Since(rec.ReceivedAt)
}

// readPayload reads until the peer half-closes its write side.
func (s *Server) readPayload(conn net.Conn) ([]byte, error) {
	if s.readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			return nil, fmt.Errorf("set read deadline: %w", err)
		}
	}

	var r io.Reader = conn
	if s.maxPayload > 0 {
		// One extra byte distinguishes "exactly at the limit" from "over it".
		r = io.LimitReader(conn, s.maxPayload+1)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return raw, err
	}
	if s.maxPayload > 0 && int64(len(raw)) > s.maxPayload {
		return raw, fmt.Errorf("%w (%d bytes)", ErrPayloadTooLarge, s.maxPayload)
	}
	return raw, nil
}

func fillRecord(rec *model.AnalysisRecord, req model.AnalysisRequest, res analysis.Result) {
	rec.Type = req.Type.String()
	rec.From = req.Range.From
	rec.To = req.Range.To
	rec.Format = res.Format.String()
	rec.Outcome = res.Outcome()
	rec.Counts = res.Counts
}

func (s *Server) notify(rec *model.AnalysisRecord) {
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now()
	}
	for _, o := range s.observers {
		o.Observe(rec)
	}
}
