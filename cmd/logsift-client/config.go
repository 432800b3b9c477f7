package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/logsift/internal/model"
)

const (
	defaultServer      = model.DefaultBindHost
	defaultPort        = model.DefaultTCPPort
	defaultOutput      = outputText
	defaultDialTimeout = 10 * time.Second
)

const (
	outputText  = "text"
	outputYAML  = "yaml"
	outputChart = "chart"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// clientConfig holds everything needed to analyze one directory.
type clientConfig struct {
	Server      string        `mapstructure:"server"`
	Port        int           `mapstructure:"port"`
	Type        string        `mapstructure:"type"`
	From        string        `mapstructure:"from"`
	To          string        `mapstructure:"to"`
	Dir         string        `mapstructure:"dir"`
	Output      string        `mapstructure:"output"`
	DialTimeout time.Duration `mapstructure:"dial-timeout"`
	ChartTop    int           `mapstructure:"chart-top"`
}

func loadClientConfig(configPath string) (clientConfig, error) {
	var cfg clientConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("LOGSIFT_CLIENT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("server", defaultServer)
	v.SetDefault("port", defaultPort)
	v.SetDefault("type", "")
	v.SetDefault("from", "")
	v.SetDefault("to", "")
	v.SetDefault("dir", "")
	v.SetDefault("output", defaultOutput)
	v.SetDefault("dial-timeout", defaultDialTimeout)
	v.SetDefault("chart-top", 12)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "logsift", "client.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		// Only the default location may be absent.
		var configFileNotFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &configFileNotFound) || errors.Is(err, fs.ErrNotExist)
		if configPath != "" || !missing {
			return cfg, fmt.Errorf("reading config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// missingRequired lists the settings that have no usable value yet.
func (c clientConfig) missingRequired() []string {
	var missing []string
	if c.Server == "" {
		missing = append(missing, "server")
	}
	if c.Port == 0 {
		missing = append(missing, "port")
	}
	if c.Type == "" {
		missing = append(missing, "type")
	}
	if c.Dir == "" {
		missing = append(missing, "dir")
	}
	return missing
}

// validate normalizes the analysis type and checks every field.
func (c *clientConfig) validate() error {
	if c.Server == "" {
		return errors.New("server address is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	typ, err := normalizeType(c.Type)
	if err != nil {
		return err
	}
	c.Type = typ
	if err := validateDate("From", c.From); err != nil {
		return err
	}
	if err := validateDate("To", c.To); err != nil {
		return err
	}
	if err := validateDir(c.Dir); err != nil {
		return err
	}
	switch c.Output {
	case outputText, outputYAML, outputChart:
	default:
		return fmt.Errorf("invalid output %q: want %s, %s or %s", c.Output, outputText, outputYAML, outputChart)
	}
	return nil
}

func normalizeType(s string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	switch upper {
	case "USER", "IP", "LOG_LEVEL":
		return upper, nil
	}
	return "", fmt.Errorf("invalid analysis type %q: want USER, IP or LOG_LEVEL", s)
}

func validateDate(label, s string) error {
	if s == "" || datePattern.MatchString(s) {
		return nil
	}
	return fmt.Errorf("invalid %s date format %q: expected YYYY-MM-DD", label, s)
}

func validateDir(dir string) error {
	if dir == "" {
		return errors.New("log folder path is required")
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("log folder does not exist: %s", dir)
	}
	return nil
}

func validatePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return port, nil
}
