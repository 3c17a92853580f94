package policy

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/timeguard/internal/domain"
)

// Output formats supported by Export.
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// RuleDoc is the structured form of a Rule used for YAML/JSON output.
type RuleDoc struct {
	Process string      `yaml:"process" json:"process"`
	Line    int         `yaml:"line,omitempty" json:"line,omitempty"`
	Periods []PeriodDoc `yaml:"periods" json:"periods"`
}

// PeriodDoc is the structured form of a Period.
type PeriodDoc struct {
	Ranges []string `yaml:"ranges" json:"ranges"`
	Days   []string `yaml:"days" json:"days"`
}

// ToDocs converts a RuleSet to documents sorted by process name.
func ToDocs(rs *domain.RuleSet) []RuleDoc {
	rules := rs.Rules()
	docs := make([]RuleDoc, len(rules))
	for i, r := range rules {
		doc := RuleDoc{Process: r.ProcessName, Line: r.Line, Periods: make([]PeriodDoc, len(r.Periods))}
		for j, p := range r.Periods {
			pd := PeriodDoc{Ranges: make([]string, len(p.Ranges))}
			for k, tr := range p.Ranges {
				pd.Ranges[k] = tr.String()
			}
			for _, d := range p.Days.Days() {
				pd.Days = append(pd.Days, d.String())
			}
			doc.Periods[j] = pd
		}
		docs[i] = doc
	}
	return docs
}

// Export writes rs to w in the given format. The text format is the rules
// file syntax itself and parses back to an equivalent RuleSet.
func Export(w io.Writer, rs *domain.RuleSet, format string) error {
	switch format {
	case "", FormatText:
		_, err := io.WriteString(w, rs.String())
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ToDocs(rs)); err != nil {
			return fmt.Errorf("failed to encode rules as yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(ToDocs(rs)); err != nil {
			return fmt.Errorf("failed to encode rules as json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want %s, %s or %s)", format, FormatText, FormatYAML, FormatJSON)
	}
}
