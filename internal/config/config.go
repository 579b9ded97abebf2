package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/lanectl/internal/link"
)

const (
	EnvSerialPort   = "LANECTL_SERIAL_PORT"
	EnvSerialDriver = "LANECTL_SERIAL_DRIVER"
	EnvSerialBaud   = "LANECTL_SERIAL_BAUD"
	EnvHTTPListen   = "LANECTL_HTTP_LISTEN"
)

var ErrInvalidConfig = errors.New("config: invalid")

// HTTPConfig controls the operator API.
type HTTPConfig struct {
	Enabled     bool
	Listen      string
	CorsOrigins []string
}

// Config is the resolved runtime configuration for lanectl.
type Config struct {
	Link    link.Config
	HTTP    HTTPConfig
	Console bool
}

func Default() Config {
	return Config{
		Link: link.DefaultConfig(),
		HTTP: HTTPConfig{
			Enabled:     true,
			Listen:      "127.0.0.1:8080",
			CorsOrigins: []string{"http://localhost:3000"},
		},
		Console: true,
	}
}

type fileConfig struct {
	Console   bool             `toml:"console"`
	Serial    serialSection    `toml:"serial"`
	Transport transportSection `toml:"transport"`
	Link      linkSection      `toml:"link"`
	HTTP      httpSection      `toml:"http"`
}

type serialSection struct {
	Port     string `toml:"port"`
	Driver   string `toml:"driver"`
	Baud     int    `toml:"baud"`
	DataBits int    `toml:"data_bits"`
	StopBits int    `toml:"stop_bits"`
	Parity   string `toml:"parity"`
	DTR      bool   `toml:"dtr"`
	RTS      bool   `toml:"rts"`
	VID      string `toml:"vid"`
	PID      string `toml:"pid"`
}

type transportSection struct {
	Repeat       int    `toml:"repeat"`
	Gap          string `toml:"gap"`
	WriteTimeout string `toml:"write_timeout"`
}

type linkSection struct {
	PollInterval       string  `toml:"poll_interval"`
	ReconnectOnPoll    bool    `toml:"reconnect_on_poll"`
	MaxConnectAttempts int     `toml:"max_connect_attempts"`
	BackoffInitial     string  `toml:"backoff_initial"`
	BackoffMax         string  `toml:"backoff_max"`
	BackoffMultiplier  float64 `toml:"backoff_multiplier"`
	BackoffJitter      bool    `toml:"backoff_jitter"`
	HistoryLimit       int     `toml:"history_limit"`
}

type httpSection struct {
	Enabled     bool     `toml:"enabled"`
	Listen      string   `toml:"listen"`
	CorsOrigins []string `toml:"cors_origins"`
}

// Load reads path over Default. Keys absent from the file keep their
// defaults. An empty path skips the file and only applies env overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		var raw fileConfig
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("load lanectl config (%s): %w", path, err)
		}
		if err := apply(&cfg, raw, meta); err != nil {
			return Config{}, fmt.Errorf("load lanectl config (%s): %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func apply(cfg *Config, raw fileConfig, meta toml.MetaData) error {
	if meta.IsDefined("console") {
		cfg.Console = raw.Console
	}

	line := &cfg.Link.Line
	if meta.IsDefined("serial", "port") {
		line.Port = strings.TrimSpace(raw.Serial.Port)
		cfg.Link.Filter.Port = line.Port
	}
	if meta.IsDefined("serial", "driver") {
		line.Driver = strings.ToLower(strings.TrimSpace(raw.Serial.Driver))
	}
	if meta.IsDefined("serial", "baud") {
		line.BaudRate = raw.Serial.Baud
	}
	if meta.IsDefined("serial", "data_bits") {
		line.DataBits = raw.Serial.DataBits
	}
	if meta.IsDefined("serial", "stop_bits") {
		line.StopBits = raw.Serial.StopBits
	}
	if meta.IsDefined("serial", "parity") {
		line.Parity = strings.ToLower(strings.TrimSpace(raw.Serial.Parity))
	}
	if meta.IsDefined("serial", "dtr") {
		line.DTR = raw.Serial.DTR
	}
	if meta.IsDefined("serial", "rts") {
		line.RTS = raw.Serial.RTS
	}
	if meta.IsDefined("serial", "vid") {
		cfg.Link.Filter.VID = strings.TrimSpace(raw.Serial.VID)
	}
	if meta.IsDefined("serial", "pid") {
		cfg.Link.Filter.PID = strings.TrimSpace(raw.Serial.PID)
	}

	tr := &cfg.Link.Transport
	if meta.IsDefined("transport", "repeat") {
		tr.Repeat = raw.Transport.Repeat
	}
	if meta.IsDefined("transport", "gap") {
		d, err := parseDuration("transport.gap", raw.Transport.Gap)
		if err != nil {
			return err
		}
		tr.Gap = d
	}
	if meta.IsDefined("transport", "write_timeout") {
		d, err := parseDuration("transport.write_timeout", raw.Transport.WriteTimeout)
		if err != nil {
			return err
		}
		tr.WriteTimeout = d
	}

	if meta.IsDefined("link", "poll_interval") {
		d, err := parseDuration("link.poll_interval", raw.Link.PollInterval)
		if err != nil {
			return err
		}
		cfg.Link.PollInterval = d
	}
	if meta.IsDefined("link", "reconnect_on_poll") {
		cfg.Link.ReconnectOnPoll = raw.Link.ReconnectOnPoll
	}
	if meta.IsDefined("link", "max_connect_attempts") {
		cfg.Link.MaxConnectAttempts = raw.Link.MaxConnectAttempts
	}
	if meta.IsDefined("link", "backoff_initial") {
		d, err := parseDuration("link.backoff_initial", raw.Link.BackoffInitial)
		if err != nil {
			return err
		}
		cfg.Link.Backoff.InitialDelay = d
	}
	if meta.IsDefined("link", "backoff_max") {
		d, err := parseDuration("link.backoff_max", raw.Link.BackoffMax)
		if err != nil {
			return err
		}
		cfg.Link.Backoff.MaxDelay = d
	}
	if meta.IsDefined("link", "backoff_multiplier") {
		cfg.Link.Backoff.Multiplier = raw.Link.BackoffMultiplier
	}
	if meta.IsDefined("link", "backoff_jitter") {
		cfg.Link.Backoff.Jitter = raw.Link.BackoffJitter
	}
	if meta.IsDefined("link", "history_limit") {
		cfg.Link.HistoryLimit = raw.Link.HistoryLimit
	}

	if meta.IsDefined("http", "enabled") {
		cfg.HTTP.Enabled = raw.HTTP.Enabled
	}
	if meta.IsDefined("http", "listen") {
		cfg.HTTP.Listen = strings.TrimSpace(raw.HTTP.Listen)
	}
	if meta.IsDefined("http", "cors_origins") {
		cfg.HTTP.CorsOrigins = normalizeList(raw.HTTP.CorsOrigins)
	}
	return nil
}

// ApplyEnv overlays LANECTL_* variables, typically loaded from .env.
func ApplyEnv(cfg *Config) error {
	if v, ok := lookup(EnvSerialPort); ok {
		cfg.Link.Line.Port = v
		cfg.Link.Filter.Port = v
	}
	if v, ok := lookup(EnvSerialDriver); ok {
		cfg.Link.Line.Driver = strings.ToLower(v)
	}
	if v, ok := lookup(EnvHTTPListen); ok {
		cfg.HTTP.Listen = v
	}
	if v, ok := lookup(EnvSerialBaud); ok {
		baud, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvSerialBaud, v)
		}
		cfg.Link.Line.BaudRate = baud
	}
	return nil
}

func Validate(cfg Config) error {
	if cfg.Link.Line.BaudRate < 0 {
		return fmt.Errorf("%w: serial.baud %d", ErrInvalidConfig, cfg.Link.Line.BaudRate)
	}
	if err := cfg.Link.Line.WithDefaults().Validate(); err != nil {
		return fmt.Errorf("%w: serial: %w", ErrInvalidConfig, err)
	}
	tr := cfg.Link.Transport
	if tr.Repeat < 0 {
		return fmt.Errorf("%w: transport.repeat %d", ErrInvalidConfig, tr.Repeat)
	}
	if tr.Gap < 0 || tr.WriteTimeout < 0 {
		return fmt.Errorf("%w: transport durations must not be negative", ErrInvalidConfig)
	}
	if cfg.HTTP.Enabled && strings.TrimSpace(cfg.HTTP.Listen) == "" {
		return fmt.Errorf("%w: http.listen is required when http is enabled", ErrInvalidConfig)
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		v := strings.TrimSpace(item)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// LineSummary is a short human description of the serial setup.
func LineSummary(cfg Config) string {
	line := cfg.Link.Line.WithDefaults()
	port := line.Port
	if port == "" {
		port = "auto"
	}
	return fmt.Sprintf("%s via %s (%s)", port, line.Driver, line.String())
}
