// Package humanizer applies probabilistic stylistic perturbations to
// machine-written prose: lexical and phrase substitution, hedging,
// transitions, sentence splitting and merging, closing addenda and a final
// capitalization pass.
//
// A call never fails. All state lives in the call; the rule set is shared
// read-only, so a Humanizer may be used from any number of goroutines.
package humanizer

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stage selects pipeline stages. Stages always run in the order below.
type Stage uint16

const (
	StagePhrase Stage = 1 << iota
	StageLexical
	StageHedge
	StageTransition
	StageRhythm
	StageAddenda
	StageFinalize

	AllStages = StagePhrase | StageLexical | StageHedge | StageTransition |
		StageRhythm | StageAddenda | StageFinalize
)

var stageNames = []struct {
	stage Stage
	name  string
}{
	{StagePhrase, "phrase"},
	{StageLexical, "lexical"},
	{StageHedge, "hedge"},
	{StageTransition, "transition"},
	{StageRhythm, "rhythm"},
	{StageAddenda, "addenda"},
	{StageFinalize, "finalize"},
}

func (s Stage) String() string {
	var names []string
	for _, sn := range stageNames {
		if s&sn.stage != 0 {
			names = append(names, sn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}

// ParseStages converts stage names ("hedge", "rhythm", ... or "all") into
// a Stage set.
func ParseStages(names []string) (Stage, error) {
	var set Stage
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if name == "all" {
			set |= AllStages
			continue
		}
		found := false
		for _, sn := range stageNames {
			if sn.name == name {
				set |= sn.stage
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown stage %q", raw)
		}
	}
	if set == 0 {
		return AllStages, nil
	}
	return set, nil
}

// Humanizer runs the transformation pipeline.
type Humanizer struct {
	rules    *RuleSet
	profiles map[string]Profile
	stages   Stage
	seed     *uint64
	logger   *zap.Logger
}

type Option func(*Humanizer)

// WithRules replaces the embedded rule set.
func WithRules(rs *RuleSet) Option {
	return func(h *Humanizer) {
		if rs != nil {
			h.rules = rs
		}
	}
}

// WithProfiles adds or overrides strength profiles on top of the rule set's
// table.
func WithProfiles(profiles map[string]Profile) Option {
	return func(h *Humanizer) {
		for name, p := range profiles {
			h.profiles[strings.ToLower(name)] = p.withDefaults()
		}
	}
}

// WithSeed makes every call draw from the same deterministic source, so a
// given input and profile always produce the same output.
func WithSeed(seed uint64) Option {
	return func(h *Humanizer) {
		h.seed = &seed
	}
}

// WithStages restricts the pipeline to the given stages.
func WithStages(stages Stage) Option {
	return func(h *Humanizer) {
		h.stages = stages
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(h *Humanizer) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func New(opts ...Option) *Humanizer {
	h := &Humanizer{
		rules:    DefaultRules(),
		profiles: make(map[string]Profile),
		stages:   AllStages,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Rules returns the rule set in use.
func (h *Humanizer) Rules() *RuleSet {
	return h.rules
}

// Profile resolves a strength name against overrides first, then the rule
// set. Unknown names fall back to the rule set's default.
func (h *Humanizer) Profile(strength string) Profile {
	if p, ok := h.profiles[strings.ToLower(strings.TrimSpace(strength))]; ok {
		return p
	}
	return h.rules.Profile(strength)
}

// Humanize transforms text at the named strength.
func (h *Humanizer) Humanize(text, strength string) string {
	return h.Apply(text, h.Profile(strength))
}

// Apply transforms text with an explicit profile.
func (h *Humanizer) Apply(text string, p Profile) string {
	return h.run(h.newRand(), text, p.withDefaults())
}

// HumanizeBatch transforms each text independently and returns the results
// in input order.
func (h *Humanizer) HumanizeBatch(texts []string, strength string) []string {
	out := make([]string, len(texts))
	p := h.Profile(strength)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, text := range texts {
		g.Go(func() error {
			out[i] = h.Apply(text, p)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (h *Humanizer) newRand() *rand.Rand {
	if h.seed != nil {
		return rand.New(rand.NewPCG(*h.seed, *h.seed^0x9e3779b97f4a7c15))
	}
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewChaCha8(seed))
}

// pass carries the per-call state shared by the stages.
type pass struct {
	rng     *rand.Rand
	rules   *RuleSet
	profile Profile
}

func (p *pass) roll(prob float64) bool {
	return prob > 0 && p.rng.Float64() < prob
}

func (h *Humanizer) run(rng *rand.Rand, text string, profile Profile) string {
	doc := Segment(text)
	if len(doc) == 0 {
		return ""
	}
	in := len(doc)

	p := &pass{rng: rng, rules: h.rules, profile: profile}
	if h.stages&StagePhrase != 0 {
		p.phrases(doc)
	}
	if h.stages&StageLexical != 0 {
		p.lexical(doc)
	}
	if h.stages&StageHedge != 0 {
		p.hedges(doc)
	}
	if h.stages&StageTransition != 0 {
		p.transitions(doc)
	}
	if h.stages&StageRhythm != 0 {
		doc = p.rhythm(doc)
	}
	if h.stages&StageAddenda != 0 {
		doc = p.addenda(doc)
	}
	if h.stages&StageFinalize != 0 {
		p.rewriteOpener(doc)
	}

	out := doc.String()
	if h.stages&StageFinalize != 0 {
		out = capitalizeSentences(out)
	}

	h.logger.Debug("humanized text",
		zap.Float64("chance", profile.Chance),
		zap.Stringer("stages", h.stages),
		zap.Int("sentences_in", in),
		zap.Int("sentences_out", len(doc)),
	)
	return out
}

var defaultHumanizer = sync.OnceValue(func() *Humanizer { return New() })

// Humanize transforms text with the embedded rule set. An unknown strength
// falls back to the default profile.
func Humanize(text, strength string) string {
	return defaultHumanizer().Humanize(text, strength)
}

// HumanizeBatch is the batch form of Humanize.
func HumanizeBatch(texts []string, strength string) []string {
	return defaultHumanizer().HumanizeBatch(texts, strength)
}
