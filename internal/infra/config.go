package infra

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keys recognised in the config file.
const (
	KeyCheckInterval  = "check_interval"
	KeyKillTimeout    = "kill_timeout"
	KeyReloadOnChange = "reload_on_change"
	KeyProcessBackend = "process_backend"
)

// Defaults applied when a key is missing or invalid.
const (
	DefaultCheckInterval = 60 * time.Second
	DefaultKillTimeout   = 5 * time.Second
)

// Config is the daemon configuration read from the key=value config file.
type Config struct {
	CheckInterval  time.Duration
	KillTimeout    time.Duration
	ReloadOnChange bool
	ProcessBackend string
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		CheckInterval:  DefaultCheckInterval,
		KillTimeout:    DefaultKillTimeout,
		ReloadOnChange: true,
		ProcessBackend: BackendGopsutil,
	}
}

// ConfigTemplate is written by `timeguard init`.
const ConfigTemplate = `# timeguard configuration
#
# Seconds between two process scans.
check_interval = 60
#
# Seconds to wait for a single process termination.
kill_timeout = 5
#
# Reload the rules file when it changes on disk (true/false).
reload_on_change = true
#
# Process listing backend: gopsutil or ps.
process_backend = gopsutil
`

// ParseConfig reads key=value lines. Blank lines and lines starting with #
// are ignored. A bad line or value never fails: the default is kept and a
// warning describing the problem is returned.
func ParseConfig(r io.Reader) (Config, []string) {
	cfg := DefaultConfig()
	var warnings []string

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			warnings = append(warnings, fmt.Sprintf("line %d: %q is not key=value, ignored", lineNo, line))
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case KeyCheckInterval:
			if d, ok := parseSeconds(value); ok {
				cfg.CheckInterval = d
			} else {
				warnings = append(warnings, fmt.Sprintf("line %d: %s=%q is not a positive number of seconds, using %s",
					lineNo, key, value, DefaultCheckInterval))
			}
		case KeyKillTimeout:
			if d, ok := parseSeconds(value); ok {
				cfg.KillTimeout = d
			} else {
				warnings = append(warnings, fmt.Sprintf("line %d: %s=%q is not a positive number of seconds, using %s",
					lineNo, key, value, DefaultKillTimeout))
			}
		case KeyReloadOnChange:
			if b, err := strconv.ParseBool(value); err == nil {
				cfg.ReloadOnChange = b
			} else {
				warnings = append(warnings, fmt.Sprintf("line %d: %s=%q is not true or false, using true", lineNo, key, value))
			}
		case KeyProcessBackend:
			if value == BackendGopsutil || value == BackendPS {
				cfg.ProcessBackend = value
			} else {
				warnings = append(warnings, fmt.Sprintf("line %d: unknown %s %q, using %s", lineNo, key, value, BackendGopsutil))
			}
		default:
			warnings = append(warnings, fmt.Sprintf("line %d: unknown key %q, ignored", lineNo, key))
		}
	}
	if err := scanner.Err(); err != nil {
		warnings = append(warnings, fmt.Sprintf("failed to read config: %v, remaining lines ignored", err))
	}

	return cfg, warnings
}

// LoadConfig reads the config file at path. A missing file yields the
// defaults without warnings; an unreadable one yields the defaults and an error.
func LoadConfig(path string) (Config, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil, nil
		}
		return DefaultConfig(), nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, warnings := ParseConfig(f)
	return cfg, warnings, nil
}

// parseSeconds accepts a positive integer number of seconds.
func parseSeconds(value string) (time.Duration, bool) {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}
