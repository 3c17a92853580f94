// Package usecase contains application business logic.
package usecase

import (
	"time"

	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
)

// Verdict is a decision together with what produced it.
type Verdict struct {
	Decision domain.Decision
	Process  string
	At       domain.Instant
	Rule     *domain.Rule // nil when Unmanaged
	Period   int          // index of the first matching period, -1 if none
}

// Evaluate decides what to do with a process at the given instant.
//
// A process with no rule is Unmanaged and is never touched: rules list the
// windows in which a process may run, so only named processes can be killed.
// A named process is allowed while any of its periods matches and killed
// otherwise. Evaluate is pure.
func Evaluate(rs *domain.RuleSet, name string, at domain.Instant) Verdict {
	v := Verdict{Decision: domain.Unmanaged, Process: name, At: at, Period: -1}

	rule, ok := rs.Lookup(name)
	if !ok {
		return v
	}
	v.Rule = &rule
	v.Period = rule.MatchingPeriod(at)
	if v.Period >= 0 {
		v.Decision = domain.Allow
	} else {
		v.Decision = domain.Kill
	}
	return v
}

// Decide returns only the decision part of Evaluate.
func Decide(rs *domain.RuleSet, name string, at domain.Instant) domain.Decision {
	return Evaluate(rs, name, at).Decision
}

// DecideAt decides using the wall-clock time t in its own location.
func DecideAt(rs *domain.RuleSet, name string, t time.Time) domain.Decision {
	return Decide(rs, name, domain.InstantOf(t))
}
