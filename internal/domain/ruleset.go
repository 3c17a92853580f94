package domain

import (
	"sort"
	"strings"
)

// Rule binds a process name to the periods in which it may run.
// Periods are OR-ed; their order is kept for stable output only.
type Rule struct {
	ProcessName string
	Periods     []Period
	Line        int // source line in the rules file, 0 if built in code
}

// Allows reports whether any period matches the instant.
func (r Rule) Allows(at Instant) bool {
	return r.MatchingPeriod(at) >= 0
}

// MatchingPeriod returns the index of the first matching period, or -1.
func (r Rule) MatchingPeriod(at Instant) int {
	for i, p := range r.Periods {
		if p.Matches(at) {
			return i
		}
	}
	return -1
}

// String renders the rule as one rules file line.
func (r Rule) String() string {
	periods := make([]string, len(r.Periods))
	for i, p := range r.Periods {
		periods[i] = p.String()
	}
	return r.ProcessName + "=" + strings.Join(periods, "|")
}

// RuleSet is an immutable mapping from process name to Rule.
// Build a new one to change it; never mutate a published set.
type RuleSet struct {
	rules map[string]Rule
}

// NewRuleSet builds a RuleSet. When two rules share a process name, the later
// one wins. Period slices are copied so callers cannot mutate the set.
func NewRuleSet(rules ...Rule) *RuleSet {
	rs := &RuleSet{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		periods := make([]Period, len(r.Periods))
		for i, p := range r.Periods {
			periods[i] = Period{
				Ranges: append([]TimeRange(nil), p.Ranges...),
				Days:   p.Days,
			}
		}
		r.Periods = periods
		rs.rules[r.ProcessName] = r
	}
	return rs
}

// Lookup returns the rule for a process name (exact, case-sensitive match).
func (rs *RuleSet) Lookup(name string) (Rule, bool) {
	if rs == nil {
		return Rule{}, false
	}
	r, ok := rs.rules[name]
	return r, ok
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Names returns the managed process names, sorted.
func (rs *RuleSet) Names() []string {
	if rs == nil {
		return nil
	}
	names := make([]string, 0, len(rs.rules))
	for n := range rs.rules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Rules returns all rules sorted by process name.
func (rs *RuleSet) Rules() []Rule {
	names := rs.Names()
	out := make([]Rule, len(names))
	for i, n := range names {
		out[i] = rs.rules[n]
	}
	return out
}

// String renders the set in rules file syntax, one line per rule, sorted.
func (rs *RuleSet) String() string {
	var b strings.Builder
	for _, r := range rs.Rules() {
		b.WriteString(r.String())
		b.WriteByte('\n')
	}
	return b.String()
}
