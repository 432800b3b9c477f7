package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/logsift/internal/duckdb"
	"github.com/tinytelemetry/logsift/internal/httpserver"
	"github.com/tinytelemetry/logsift/internal/metrics"
	"github.com/tinytelemetry/logsift/internal/model"
	"github.com/tinytelemetry/logsift/internal/tcpserver"
)

// runServer starts the TCP analyzer, the optional HTTP API and the history
// store, then blocks until SIGINT/SIGTERM.
func runServer(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	m := metrics.New()
	observers := []model.Observer{m, analysisLogger()}

	var history model.HistoryReader
	if cfg.HistoryEnabled {
		store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
		if err != nil {
			return fmt.Errorf("failed to initialize DuckDB: %w", err)
		}
		defer store.Close()
		store.SetMaxConcurrentQueries(cfg.MaxConcurrentReads)
		history = store
		log.Printf("server: recording history in %s", store.Path())

		insertBuffer := duckdb.NewInsertBuffer(store, duckdb.InsertBufferConfig{
			BatchSize:      cfg.InsertBatchSize,
			FlushInterval:  cfg.InsertFlushInterval,
			FlushQueueSize: cfg.InsertFlushQueue,
		})
		defer insertBuffer.Stop()
		observers = append(observers, insertBuffer)

		retentionCleaner := duckdb.NewRetentionCleaner(store, duckdb.RetentionConfig{
			RetentionDays: cfg.HistoryRetention,
		})
		defer retentionCleaner.Stop()
	}

	listeners := make([]servingListener, 0, 2)

	analyzer := tcpserver.NewServer(cfg.TCPAddr, tcpserver.ServerConfig{
		MaxConnections: cfg.TCPMaxConnections,
		ReadTimeout:    cfg.TCPReadTimeout,
		MaxPayload:     cfg.TCPMaxPayload,
		Observers:      observers,
	})
	m.RegisterActiveConnections(tcpserver.Transport, analyzer.ActiveConnections)
	if err := analyzer.Start(); err != nil {
		return fmt.Errorf("failed to start TCP analyzer: %w", err)
	}
	defer analyzer.Stop()
	listeners = append(listeners, analyzer)

	if cfg.APIEnabled {
		apiConf := httpserver.ServerConfig{
			Observers: observers,
			MaxBody:   cfg.APIMaxBody,
		}
		if cfg.MetricsEnabled {
			apiConf.Metrics = m.Handler()
		}
		apiServer := httpserver.NewServer(cfg.APIAddr, history, apiConf)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
		listeners = append(listeners, apiServer)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// The deadline starts at the first signal, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	printStartupBanner(cfg)
	log.Printf("server: analyzing on %s", analyzer.Addr())

	err := superviseListeners(ctx, listeners...)
	signal.Stop(sigCh)
	if err != nil {
		log.Printf("server: listener exited with error: %v", err)
		return err
	}
	return nil
}

// analysisLogger writes one runtime log line per finished analysis.
func analysisLogger() model.Observer {
	return model.ObserverFunc(func(rec *model.AnalysisRecord) {
		log.Printf("server: %s %s type=%s format=%s outcome=%s bytes=%d groups=%d took=%s",
			rec.Transport, rec.RemoteAddr, rec.Type, rec.Format, rec.Outcome,
			rec.BodyBytes, rec.Counts.Len(), rec.Duration)
	})
}

// servingListener is a started server that can be waited on and stopped.
type servingListener interface {
	Wait() error
	Stop() error
}

// superviseListeners blocks until ctx is cancelled or one listener fails,
// then stops every listener. It returns the first listener failure.
func superviseListeners(ctx context.Context, listeners ...servingListener) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, l := range listeners {
		g.Go(l.Wait)
	}
	g.Go(func() error {
		<-gctx.Done()
		for _, l := range listeners {
			if err := l.Stop(); err != nil {
				log.Printf("server: stop listener: %v", err)
			}
		}
		return nil
	})
	return g.Wait()
}

func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "logsift")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	f, err := os.OpenFile(filepath.Join(logDir, "logsift.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig) {
	fmt.Println(renderStartupBanner(cfg))
}

func renderStartupBanner(cfg appConfig) string {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╦  ╔═╗╔═╗╔═╗╦╔═╗╔╦╗
    ║  ║ ║║ ╦╚═╗║╠╣  ║
    ╩═╝╚═╝╚═╝╚═╝╩╚   ╩`)

	separator := dim.Render("    ─────────────────────────────────")

	lines := []string{"", logo, "    " + dim.Render("v"+version), "", separator, ""}

	lines = append(lines, bold.Render("    Listeners"), "")
	lines = append(lines, fmt.Sprintf("    %s  TCP Analyzer   %s", check, cyan.Render(cfg.TCPAddr)))
	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
		if cfg.MetricsEnabled {
			lines = append(lines, fmt.Sprintf("    %s  Metrics        %s", check, cyan.Render(cfg.APIAddr+"/metrics")))
		} else {
			lines = append(lines, fmt.Sprintf("    %s  Metrics        %s", dot, dim.Render("disabled")))
		}
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Limits"), "")
	lines = append(lines, fmt.Sprintf("    %s  Connections    %s", check, dim.Render(limitText(int64(cfg.TCPMaxConnections), ""))))
	lines = append(lines, fmt.Sprintf("    %s  Read Timeout   %s", check, dim.Render(durationText(cfg.TCPReadTimeout))))
	lines = append(lines, fmt.Sprintf("    %s  Max Payload    %s", check, dim.Render(limitText(cfg.TCPMaxPayload, " bytes"))))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    History"), "")
	if cfg.HistoryEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Storage        %s", check, dim.Render(shortenPath(cfg.DBPath))))
		if cfg.HistoryRetention > 0 {
			lines = append(lines, fmt.Sprintf("    %s  Retention      %s", check, dim.Render(fmt.Sprintf("%d days", cfg.HistoryRetention))))
		} else {
			lines = append(lines, fmt.Sprintf("    %s  Retention      %s", dot, dim.Render("keep forever")))
		}
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Storage        %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	return strings.Join(lines, "\n")
}

func limitText(n int64, unit string) string {
	if n <= 0 {
		return "unbounded"
	}
	return fmt.Sprintf("%d%s", n, unit)
}

func durationText(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return d.String()
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
