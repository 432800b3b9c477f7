package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/tinytelemetry/logsift/internal/framing"
	"github.com/tinytelemetry/logsift/internal/model"
)

// errNoLogFiles is returned when a folder holds nothing to analyze.
var errNoLogFiles = errors.New("no log files (.json, .xml, .txt) found")

// logExtensions are the file suffixes sent for analysis.
var logExtensions = map[string]bool{".json": true, ".xml": true, ".txt": true}

// collectLogFiles returns the regular files directly inside dir whose
// extension marks them as logs, sorted by name.
func collectLogFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !logExtensions[filepath.Ext(e.Name())] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in folder: %s", errNoLogFiles, dir)
	}
	sort.Strings(files)
	return files, nil
}

// buildPayload frames one file's contents with the query settings.
func buildPayload(cfg clientConfig, body []byte) []byte {
	return framing.Encode(model.AnalysisRequest{
		Type:  model.ParseAnalysisType(cfg.Type),
		Range: model.DateRange{From: cfg.From, To: cfg.To},
		Body:  body,
	})
}

// sendPayload opens one connection, writes payload, half-closes the write
// side and returns everything the server sends back.
func sendPayload(ctx context.Context, addr string, payload []byte, timeout time.Duration) ([]byte, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connection to server failed: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("sending payload: %w", err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.CloseWrite(); err != nil {
			return nil, fmt.Errorf("half-closing connection: %w", err)
		}
	}

	resp, err := io.ReadAll(conn)
	if err != nil {
		return resp, fmt.Errorf("reading response: %w", err)
	}
	return resp, nil
}

func serverAddr(cfg clientConfig) string {
	return net.JoinHostPort(cfg.Server, strconv.Itoa(cfg.Port))
}
