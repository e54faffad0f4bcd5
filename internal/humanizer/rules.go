package humanizer

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// DefaultProfileName is used when a rule file does not name one.
const DefaultProfileName = "strong"

// Baseline thresholds applied when a profile leaves them unset.
const (
	defaultHedgeMinWords = 7
	defaultSplitMinWords = 20
	defaultMergeMaxWords = 9
)

// Profile is a named strength level. Chance scales every stage's trigger
// probability; the word thresholds gate the sentence-level stages.
type Profile struct {
	Chance        float64 `yaml:"chance" mapstructure:"chance"`
	HedgeMinWords int     `yaml:"hedge_min_words" mapstructure:"hedge_min_words"`
	SplitMinWords int     `yaml:"split_min_words" mapstructure:"split_min_words"`
	MergeMaxWords int     `yaml:"merge_max_words" mapstructure:"merge_max_words"`
}

// Validate reports a chance outside [0, 1].
func (p Profile) Validate() error {
	if p.Chance < 0 || p.Chance > 1 {
		return fmt.Errorf("chance %v outside [0, 1]", p.Chance)
	}
	return nil
}

func (p Profile) withDefaults() Profile {
	if p.HedgeMinWords <= 0 {
		p.HedgeMinWords = defaultHedgeMinWords
	}
	if p.SplitMinWords <= 0 {
		p.SplitMinWords = defaultSplitMinWords
	}
	if p.MergeMaxWords <= 0 {
		p.MergeMaxWords = defaultMergeMaxWords
	}
	return p
}

// PhraseRule maps a formulaic phrase to its paraphrases.
type PhraseRule struct {
	Phrase       string   `yaml:"phrase"`
	Alternatives []string `yaml:"alternatives"`

	re *regexp.Regexp
}

// Addenda holds the template sentences appended after per-sentence work.
type Addenda struct {
	Asides        []string `yaml:"asides"`
	Contributions []string `yaml:"contributions"`
	Limitations   []string `yaml:"limitations"`
	Slips         []string `yaml:"slips"`
}

// RuleSet is the static vocabulary and profile table. It is never modified
// after ParseRules returns and may be shared by any number of goroutines.
type RuleSet struct {
	DefaultProfile string              `yaml:"default_profile"`
	Profiles       map[string]Profile  `yaml:"profiles"`
	Synonyms       map[string][]string `yaml:"synonyms"`
	Phrases        []PhraseRule        `yaml:"phrases"`
	Hedges         []string            `yaml:"hedges"`
	Transitions    []string            `yaml:"transitions"`
	Openers        []string            `yaml:"openers"`
	Connectors     []string            `yaml:"connectors"`
	Addenda        Addenda             `yaml:"addenda"`

	// lower-cased transitions and openers without trailing commas
	leadKeys []string
}

// ParseRules decodes and validates a YAML rule document.
func ParseRules(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	if rs.DefaultProfile == "" {
		rs.DefaultProfile = DefaultProfileName
	}
	if len(rs.Profiles) == 0 {
		return nil, fmt.Errorf("rules define no strength profiles")
	}
	if _, ok := rs.Profiles[rs.DefaultProfile]; !ok {
		return nil, fmt.Errorf("default profile %q is not defined", rs.DefaultProfile)
	}
	for name, p := range rs.Profiles {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		rs.Profiles[name] = p.withDefaults()
	}

	synonyms := make(map[string][]string, len(rs.Synonyms))
	for word, candidates := range rs.Synonyms {
		synonyms[strings.ToLower(word)] = candidates
	}
	rs.Synonyms = synonyms

	for i := range rs.Phrases {
		phrase := strings.TrimSpace(rs.Phrases[i].Phrase)
		if phrase == "" {
			return nil, fmt.Errorf("phrase rule %d is empty", i)
		}
		rs.Phrases[i].re = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase))
	}

	for _, t := range append(append([]string{}, rs.Transitions...), rs.Openers...) {
		if key := leadKey(t); key != "" {
			rs.leadKeys = append(rs.leadKeys, key)
		}
	}

	return &rs, nil
}

// LoadRules reads a rule file from disk.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

var defaultRules = sync.OnceValue(func() *RuleSet {
	rs, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("humanizer: embedded rules are invalid: %v", err))
	}
	return rs
})

// DefaultRules returns the embedded rule set.
func DefaultRules() *RuleSet {
	return defaultRules()
}

// Profile resolves a strength name. Unknown or empty names silently fall
// back to the default profile.
func (rs *RuleSet) Profile(name string) Profile {
	if p, ok := rs.Profiles[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return rs.Profiles[rs.DefaultProfile]
}

// ProfileNames lists the configured strength levels.
func (rs *RuleSet) ProfileNames() []string {
	names := make([]string, 0, len(rs.Profiles))
	for name := range rs.Profiles {
		names = append(names, name)
	}
	return names
}

// leadingTransition reports the length of a tracked transition or opener at
// the start of body, including a trailing comma if present.
func (rs *RuleSet) leadingTransition(body string) (int, bool) {
	lower := strings.ToLower(body)
	for _, key := range rs.leadKeys {
		if !strings.HasPrefix(lower, key) {
			continue
		}
		n := len(key)
		if n < len(lower) && isWordByte(lower[n]) {
			continue
		}
		if n < len(lower) && lower[n] == ',' {
			n++
		}
		return n, true
	}
	return 0, false
}

func leadKey(phrase string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(phrase), ","))
}

func isWordByte(b byte) bool {
	return b == '_' || b == '\'' || b == '-' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}
