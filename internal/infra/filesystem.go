package infra

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
)

// RulesTemplate is written by `timeguard init`.
const RulesTemplate = `# timeguard rules
#
# process_name=RANGES;DAYS|RANGES;DAYS
#
# RANGES: * (all day) or HH:MM~HH:MM[,HH:MM~HH:MM...], bounds inclusive
# DAYS:   MO,TU,WE,TH,FR,SA,SU
#
# A listed process may only run inside one of its periods; outside them it
# is killed. Processes that are not listed are never touched. Windows cannot
# cross midnight: write 22:00~23:59;FR|00:00~02:00;SA instead of 22:00~02:00.
#
# Examples:
# steam=18:00~20:00;MO,TU,WE,TH,FR|*;SA,SU
# discord=12:00~13:00,17:00~21:00;MO,TU,WE,TH,FR
`

// RuleFile implements domain.RuleSource for a rules file on disk.
// The file is only read, never written.
type RuleFile struct {
	path string
}

// NewRuleFile creates a rule source for path (~ is expanded).
func NewRuleFile(path string) *RuleFile {
	home, _ := os.UserHomeDir()
	return &RuleFile{path: ExpandHome(path, home)}
}

// Name returns the file path.
func (f *RuleFile) Name() string {
	return f.path
}

// Read returns the file contents.
func (f *RuleFile) Read() ([]byte, error) {
	return os.ReadFile(f.path)
}

// ModTime returns the file modification time.
func (f *RuleFile) ModTime() (time.Time, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// Exists checks if the file exists.
func (f *RuleFile) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// ExpandHome expands a leading ~ to home.
func ExpandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		return home
	}
	return path
}

// EnsureFile creates path with content if it does not exist yet.
// It reports whether the file was created. Existing files are left alone.
func EnsureFile(path, content string, perm os.FileMode) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return false, err
	}
	return true, f.Close()
}

// Ensure RuleFile implements domain.RuleSource.
var _ domain.RuleSource = (*RuleFile)(nil)
