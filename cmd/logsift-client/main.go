package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-isatty"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

// cliFlags are the command-line overrides; empty or zero means "not given".
type cliFlags struct {
	configPath  string
	server      string
	port        int
	typ         string
	from        string
	to          string
	dir         string
	output      string
	interactive bool
	showVersion bool
}

func parseFlags(fs *flag.FlagSet, args []string) (cliFlags, error) {
	var f cliFlags
	fs.StringVar(&f.configPath, "config", "", "config file (default is $HOME/.config/logsift/client.yml)")
	fs.StringVar(&f.server, "server", "", "analyzer host or IP")
	fs.IntVar(&f.port, "port", 0, "analyzer TCP port")
	fs.StringVar(&f.typ, "type", "", "analysis type: USER, IP or LOG_LEVEL")
	fs.StringVar(&f.from, "from", "", "inclusive start date, YYYY-MM-DD")
	fs.StringVar(&f.to, "to", "", "inclusive end date, YYYY-MM-DD")
	fs.StringVar(&f.dir, "dir", "", "folder holding .json, .xml and .txt log files")
	fs.StringVar(&f.output, "output", "", "output format: text, yaml or chart")
	fs.BoolVar(&f.interactive, "i", false, "prompt for every setting")
	fs.BoolVar(&f.showVersion, "version", false, "print version information")
	err := fs.Parse(args)
	return f, err
}

// apply overlays the flags that were given on top of cfg.
func (f cliFlags) apply(cfg clientConfig) clientConfig {
	if f.server != "" {
		cfg.Server = f.server
	}
	if f.port != 0 {
		cfg.Port = f.port
	}
	if f.typ != "" {
		cfg.Type = f.typ
	}
	if f.from != "" {
		cfg.From = f.from
	}
	if f.to != "" {
		cfg.To = f.to
	}
	if f.dir != "" {
		cfg.Dir = f.dir
	}
	if f.output != "" {
		cfg.Output = f.output
	}
	return cfg
}

func main() {
	flags, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if flags.showVersion {
		fmt.Printf("Logsift Client\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadClientConfig(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg = flags.apply(cfg)

	if flags.interactive || len(cfg.missingRequired()) > 0 {
		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			fmt.Fprintf(os.Stderr, "[ERROR] missing settings %v and stdin is not a terminal\n", cfg.missingRequired())
			os.Exit(1)
		}
		cfg, err = runPrompt(cfg)
		if err != nil {
			if errors.Is(err, errPromptAborted) {
				os.Exit(130)
			}
			fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
			os.Exit(1)
		}
	}

	if err := cfg.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
}

// run sends every log file in cfg.Dir to the analyzer, one connection per
// file, and prints each response. A failure on one file is reported and
// the next file is still sent.
func run(ctx context.Context, cfg clientConfig, out, errOut io.Writer) error {
	files, err := collectLogFiles(cfg.Dir)
	if err != nil {
		return err
	}

	w := newResultWriter(out, errOut, cfg.Output, cfg.ChartTop)
	addr := serverAddr(cfg)
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		name := filepath.Base(path)
		body, err := os.ReadFile(path)
		if err != nil {
			if werr := w.Write(name, nil, fmt.Errorf("cannot open log file: %w", err)); werr != nil {
				return werr
			}
			continue
		}
		resp, err := sendPayload(ctx, addr, buildPayload(cfg, body), cfg.DialTimeout)
		if werr := w.Write(name, resp, err); werr != nil {
			return werr
		}
	}
	return w.Close()
}
