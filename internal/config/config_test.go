package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/lanectl/internal/link"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lanectl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadTemplateMatchesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lanectl.toml")
	if err := WriteTemplate(path, "lanectl", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	def := Default()
	if cfg.Link.Transport != def.Link.Transport {
		t.Fatalf("unexpected transport: %+v", cfg.Link.Transport)
	}
	if cfg.Link.Line != def.Link.Line {
		t.Fatalf("unexpected line: %+v", cfg.Link.Line)
	}
	if cfg.Link.Backoff != link.DefaultBackoffConfig() {
		t.Fatalf("unexpected backoff: %+v", cfg.Link.Backoff)
	}
	if cfg.HTTP.Listen != "127.0.0.1:8080" || !cfg.HTTP.Enabled {
		t.Fatalf("unexpected http: %+v", cfg.HTTP)
	}
	if err := WriteTemplate(path, "lanectl", false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
}

func TestLoadOverridesOnlyDefinedKeys(t *testing.T) {
	path := writeConfig(t, `
[serial]
port = "/dev/ttyUSB3"
driver = "TARM"
dtr = false

[transport]
gap = "75ms"

[http]
enabled = false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Link.Line.Port != "/dev/ttyUSB3" || cfg.Link.Filter.Port != "/dev/ttyUSB3" {
		t.Fatalf("port not applied: %+v", cfg.Link)
	}
	if cfg.Link.Line.Driver != "tarm" {
		t.Fatalf("unexpected driver: %q", cfg.Link.Line.Driver)
	}
	if cfg.Link.Line.DTR {
		t.Fatalf("expected dtr disabled")
	}
	if !cfg.Link.Line.RTS {
		t.Fatalf("expected rts default kept")
	}
	if cfg.Link.Transport.Gap != 75*time.Millisecond {
		t.Fatalf("unexpected gap: %v", cfg.Link.Transport.Gap)
	}
	if cfg.Link.Transport.Repeat != 3 || cfg.Link.Transport.WriteTimeout != 100*time.Millisecond {
		t.Fatalf("unexpected transport defaults: %+v", cfg.Link.Transport)
	}
	if cfg.HTTP.Enabled {
		t.Fatalf("expected http disabled")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"bad duration": "[transport]\ngap = \"soon\"\n",
		"bad driver":   "[serial]\ndriver = \"usbfs\"\n",
		"bad parity":   "[serial]\nparity = \"mark\"\n",
		"no listen":    "[http]\nlisten = \"\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadInvalidDriverIsConfigError(t *testing.T) {
	_, err := Load(writeConfig(t, "[serial]\ndriver = \"usbfs\"\n"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv(EnvSerialPort, "COM7")
	t.Setenv(EnvHTTPListen, ":9999")
	t.Setenv(EnvSerialBaud, "9600")
	cfg, err := Load(writeConfig(t, "[serial]\nport = \"/dev/ttyACM0\"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Link.Line.Port != "COM7" || cfg.Link.Filter.Port != "COM7" {
		t.Fatalf("env port not applied: %+v", cfg.Link.Line)
	}
	if cfg.HTTP.Listen != ":9999" {
		t.Fatalf("env listen not applied: %q", cfg.HTTP.Listen)
	}
	if cfg.Link.Line.BaudRate != 9600 {
		t.Fatalf("env baud not applied: %d", cfg.Link.Line.BaudRate)
	}

	t.Setenv(EnvSerialBaud, "fast")
	if _, err := Load(""); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}

func TestTemplateKinds(t *testing.T) {
	if _, err := Template("env"); err != nil {
		t.Fatalf("env template: %v", err)
	}
	if _, err := Template("mirage"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestEnvTemplateListsEveryKey(t *testing.T) {
	tmpl, err := Template("env")
	if err != nil {
		t.Fatalf("env template: %v", err)
	}
	for _, key := range []string{EnvSerialPort, EnvSerialDriver, EnvSerialBaud, EnvHTTPListen} {
		if !strings.Contains(tmpl, key+"=") {
			t.Fatalf("env template missing %s", key)
		}
	}
}

func TestLineSummary(t *testing.T) {
	got := LineSummary(Default())
	if got != "auto via bugst (115200 8N1)" {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestExampleConfigLoads(t *testing.T) {
	path := filepath.Join("..", "..", filepath.FromSlash(ExamplePath))
	if _, err := os.Stat(path); err != nil {
		t.Skipf("example config not found: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load example: %v", err)
	}
	if cfg.Link.Transport.Repeat != 3 {
		t.Fatalf("unexpected repeat: %d", cfg.Link.Transport.Repeat)
	}
}
