package config

import (
	"fmt"
	"os"
	"strings"
)

// ExamplePath is the lanectl template location relative to the module root.
const ExamplePath = "cmd/lanectl/ex.config.toml"

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "lanectl", "":
		return lanectlTemplate, nil
	case "env":
		return envTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const lanectlTemplate = `console = true

[serial]
# leave port empty to pick the first USB adapter matching vid/pid
port = ""
driver = "bugst"
baud = 115200
data_bits = 8
stop_bits = 1
parity = "none"
dtr = true
rts = true
vid = ""
pid = ""

[transport]
repeat = 3
gap = "50ms"
write_timeout = "100ms"

[link]
poll_interval = "1s"
reconnect_on_poll = true
max_connect_attempts = 3
backoff_initial = "250ms"
backoff_max = "5s"
backoff_multiplier = 2.0
backoff_jitter = true
history_limit = 32

[http]
enabled = true
listen = "127.0.0.1:8080"
cors_origins = ["http://localhost:3000"]
`

const envTemplate = `# LANECTL_SERIAL_PORT=/dev/ttyUSB0
# LANECTL_SERIAL_DRIVER=bugst
# LANECTL_SERIAL_BAUD=115200
# LANECTL_HTTP_LISTEN=127.0.0.1:8080
LANECTL_LOG_LEVEL=info
`
