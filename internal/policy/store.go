package policy

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
)

// ErrNotLoaded is returned by Store operations that need an initial RuleSet.
var ErrNotLoaded = errors.New("rules not loaded")

// version identifies one state of the rule source.
type version struct {
	modTime time.Time
	sum     [sha256.Size]byte
}

// Store holds the RuleSet in effect. A reload parses into a fresh RuleSet and
// swaps the pointer only on success, so readers always see a complete set.
type Store struct {
	source  domain.RuleSource
	current atomic.Pointer[domain.RuleSet]
	logger  *zap.Logger

	mu     sync.Mutex
	loaded version // source version behind current
	failed version // last source version that failed to parse
}

// NewStore creates an empty store for the given source. Call Load before use.
func NewStore(source domain.RuleSource, logger *zap.Logger) *Store {
	return &Store{source: source, logger: logger}
}

// Current returns the RuleSet in effect, or nil before the first Load.
func (s *Store) Current() *domain.RuleSet {
	return s.current.Load()
}

// Load reads and parses the source and installs the result.
// A parse failure leaves the store untouched and is returned as-is.
func (s *Store) Load() ([]Warning, error) {
	if s.source == nil {
		return nil, fmt.Errorf("no rule source configured")
	}

	modTime, err := s.source.ModTime()
	if err != nil {
		return nil, fmt.Errorf("failed to stat rules %s: %w", s.source.Name(), err)
	}
	data, err := s.source.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read rules %s: %w", s.source.Name(), err)
	}

	v := version{modTime: modTime, sum: sha256.Sum256(data)}

	rs, warnings, err := Parse(bytes.NewReader(data))
	if err != nil {
		var perr *domain.ParseError
		if errors.As(err, &perr) {
			perr.Source = s.source.Name()
		}
		s.mu.Lock()
		s.failed = v
		s.mu.Unlock()
		return nil, err
	}

	s.mu.Lock()
	s.current.Store(rs)
	s.loaded = v
	s.mu.Unlock()

	for _, w := range warnings {
		s.logger.Warn("rules warning",
			zap.String("source", s.source.Name()),
			zap.Int("line", w.Line),
			zap.String("warning", w.Message))
	}
	s.logger.Info("rules loaded",
		zap.String("source", s.source.Name()),
		zap.Int("rules", rs.Len()))

	return warnings, nil
}

// Reload replaces the RuleSet with a freshly parsed one. On failure the
// previous RuleSet stays in effect and a *domain.ReloadError is returned.
func (s *Store) Reload() ([]Warning, error) {
	if s.Current() == nil {
		return nil, ErrNotLoaded
	}
	warnings, err := s.Load()
	if err != nil {
		return nil, &domain.ReloadError{Err: err}
	}
	return warnings, nil
}

// Changed reports whether the source differs from the version behind the
// RuleSet in effect. A version that already failed to parse is not reported
// again. When the modification time matches a known version the content is
// compared too, so an edit within the same timestamp tick is still seen.
func (s *Store) Changed() (bool, error) {
	if s.source == nil {
		return false, nil
	}
	modTime, err := s.source.ModTime()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	loaded, failed := s.loaded, s.failed
	s.mu.Unlock()

	if !modTime.Equal(loaded.modTime) && !modTime.Equal(failed.modTime) {
		return true, nil
	}
	data, err := s.source.Read()
	if err != nil {
		return false, err
	}
	sum := sha256.Sum256(data)
	return sum != loaded.sum && sum != failed.sum, nil
}

// LoadedAt returns the source modification time of the RuleSet in effect.
func (s *Store) LoadedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded.modTime
}

// Ensure Store implements domain.RuleProvider.
var _ domain.RuleProvider = (*Store)(nil)
