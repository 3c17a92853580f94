// Package policy parses rules files into RuleSets and keeps the RuleSet in
// effect for the daemon.
//
// Rules file format, one rule per line:
//
//	# comment
//	process_name=RANGES;DAYS|RANGES;DAYS
//
// RANGES is "*" or a comma-separated list of HH:MM~HH:MM windows, DAYS is a
// comma-separated list of MO,TU,WE,TH,FR,SA,SU. A process may run while any
// of its periods matches; outside all of them it is killed. Processes with no
// rule are never touched.
package policy

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
)

// Grammar fragments reported in parse errors.
const (
	expectRule     = `process_name "=" period_list`
	expectName     = "non-empty process name before \"=\""
	expectPeriod   = `range_list ";" weekday_list`
	expectRange    = `"*" or TIME "~" TIME`
	expectTime     = "TIME (H:MM or HH:MM, 24-hour)"
	expectWeekday  = "weekday (MO, TU, WE, TH, FR, SA or SU)"
	expectNonEmpty = "at least one entry"
)

const crossingHint = "windows crossing midnight are not supported; split it into two ranges such as 22:00~23:59 and 00:00~02:00"

// Warning is a non-fatal condition found while parsing.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

// ParseString parses rules text held in memory.
func ParseString(text string) (*domain.RuleSet, []Warning, error) {
	return Parse(strings.NewReader(text))
}

// Parse reads a rules file. Any malformed line fails the whole parse and no
// RuleSet is returned. Duplicate process names keep the last definition and
// add a warning.
func Parse(r io.Reader) (*domain.RuleSet, []Warning, error) {
	var (
		rules    []domain.Rule
		warnings []Warning
		seen     = make(map[string]int) // name -> line of previous definition
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p := lineParser{line: lineNo}
		rule, err := p.parseRule(line)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, p.warnings...)

		if prev, ok := seen[rule.ProcessName]; ok {
			warnings = append(warnings, Warning{
				Line:    lineNo,
				Message: fmt.Sprintf("duplicate rule for %q (first defined on line %d); this definition replaces it", rule.ProcessName, prev),
			})
		}
		seen[rule.ProcessName] = lineNo
		rules = append(rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read rules: %w", err)
	}

	return domain.NewRuleSet(rules...), warnings, nil
}

// lineParser parses a single rule line and collects its warnings.
type lineParser struct {
	line     int
	warnings []Warning
}

func (p *lineParser) fail(token, expected string) error {
	return &domain.ParseError{Line: p.line, Token: token, Expected: expected}
}

func (p *lineParser) parseRule(line string) (domain.Rule, error) {
	name, periodList, ok := strings.Cut(line, "=")
	if !ok {
		return domain.Rule{}, p.fail(line, expectRule)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Rule{}, p.fail(line, expectName)
	}

	var periods []domain.Period
	for _, raw := range strings.Split(periodList, "|") {
		period, err := p.parsePeriod(strings.TrimSpace(raw))
		if err != nil {
			return domain.Rule{}, err
		}
		periods = append(periods, period)
	}

	return domain.Rule{ProcessName: name, Periods: periods, Line: p.line}, nil
}

func (p *lineParser) parsePeriod(raw string) (domain.Period, error) {
	rangeList, dayList, ok := strings.Cut(raw, ";")
	if !ok || strings.Contains(dayList, ";") {
		return domain.Period{}, p.fail(raw, expectPeriod)
	}

	ranges, err := p.parseRanges(strings.TrimSpace(rangeList))
	if err != nil {
		return domain.Period{}, err
	}
	days, err := p.parseDays(strings.TrimSpace(dayList))
	if err != nil {
		return domain.Period{}, err
	}
	return domain.Period{Ranges: ranges, Days: days}, nil
}

func (p *lineParser) parseRanges(raw string) ([]domain.TimeRange, error) {
	if raw == "" {
		return nil, p.fail(raw, expectRange+", "+expectNonEmpty)
	}

	var (
		ranges   []domain.TimeRange
		wildcard bool
	)
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "*" {
			wildcard = true
			ranges = append(ranges, domain.AllDay)
			continue
		}
		r, err := p.parseRange(tok)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}

	if wildcard && len(ranges) > 1 {
		p.warnings = append(p.warnings, Warning{
			Line:    p.line,
			Message: fmt.Sprintf("%q mixes \"*\" with explicit ranges; the whole list matches all day", raw),
		})
	}
	return ranges, nil
}

func (p *lineParser) parseRange(tok string) (domain.TimeRange, error) {
	from, to, ok := strings.Cut(tok, "~")
	if !ok {
		return domain.TimeRange{}, p.fail(tok, expectRange)
	}
	start, err := p.parseTime(strings.TrimSpace(from))
	if err != nil {
		return domain.TimeRange{}, err
	}
	end, err := p.parseTime(strings.TrimSpace(to))
	if err != nil {
		return domain.TimeRange{}, err
	}
	if start > end {
		return domain.TimeRange{}, &domain.ParseError{
			Line:     p.line,
			Token:    tok,
			Expected: "start time not after end time",
			Hint:     crossingHint,
		}
	}
	return domain.TimeRange{Start: start, End: end}, nil
}

// parseTime accepts H:MM or HH:MM with a two-digit minute field.
func (p *lineParser) parseTime(tok string) (domain.TimeOfDay, error) {
	hh, mm, ok := strings.Cut(tok, ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 || !isDigits(hh) || !isDigits(mm) {
		return 0, p.fail(tok, expectTime)
	}
	hour, _ := strconv.Atoi(hh)
	minute, _ := strconv.Atoi(mm)
	t, err := domain.NewTimeOfDay(hour, minute)
	if err != nil {
		return 0, p.fail(tok, expectTime)
	}
	return t, nil
}

func (p *lineParser) parseDays(raw string) (domain.WeekdaySet, error) {
	if raw == "" {
		return 0, p.fail(raw, expectWeekday+", "+expectNonEmpty)
	}
	var set domain.WeekdaySet
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		d, ok := domain.ParseWeekday(tok)
		if !ok {
			return 0, p.fail(tok, expectWeekday)
		}
		set = set.With(d)
	}
	return set, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
