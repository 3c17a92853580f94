package infra

import (
	"os"
	"os/user"
	"path/filepath"
)

// ExecMode represents the execution mode of the application.
type ExecMode string

const (
	// ExecModeUser runs as a regular user with per-user files
	ExecModeUser ExecMode = "user"
	// ExecModeSystem runs as root with system-wide files
	ExecModeSystem ExecMode = "system"
)

const (
	appName        = "timeguard"
	configFileName = "config"
	rulesFileName  = "rules"
	systemDir      = "/etc/timeguard"
)

// Paths holds the file locations used by the daemon.
type Paths struct {
	Mode       ExecMode
	Dir        string // directory holding config and rules
	ConfigPath string
	RulesPath  string
	IsRoot     bool
}

// DetectPaths determines file locations based on effective UID.
// Root uses /etc/timeguard; a user uses ~/.config/timeguard, resolving the
// invoking user's home under sudo.
func DetectPaths() *Paths {
	if os.Geteuid() == 0 && os.Getenv("SUDO_USER") == "" {
		p := PathsForDir(systemDir)
		p.Mode = ExecModeSystem
		p.IsRoot = true
		return p
	}
	p := PathsForDir(filepath.Join(userConfigDir(), appName))
	p.IsRoot = os.Geteuid() == 0
	return p
}

// PathsForDir returns user-mode paths rooted at dir (for --dir and tests).
func PathsForDir(dir string) *Paths {
	return &Paths{
		Mode:       ExecModeUser,
		Dir:        dir,
		ConfigPath: filepath.Join(dir, configFileName),
		RulesPath:  filepath.Join(dir, rulesFileName),
	}
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (root)"
	case ExecModeUser:
		return "user (non-root)"
	default:
		return "unknown"
	}
}

// userConfigDir honours XDG_CONFIG_HOME, then falls back to ~/.config of the
// real user.
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && os.Getenv("SUDO_USER") == "" {
		return xdg
	}
	return filepath.Join(GetRealUserHome(), ".config")
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
// Under sudo, os.UserHomeDir() returns root's home, so we use SUDO_USER to find the real user.
func GetRealUserHome() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	home, _ := os.UserHomeDir()
	return home
}
