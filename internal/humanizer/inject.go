package humanizer

import (
	"slices"
	"strings"
)

// hedges inserts "<hedge>," at an interior token position of every long
// enough sentence that wins the roll. Positions 0, 1 and the last token are
// never used, so the sentence keeps its opening and its terminal word.
func (p *pass) hedges(doc Document) {
	if len(p.rules.Hedges) == 0 {
		return
	}
	for i := range doc {
		tokens := doc[i].Tokens()
		n := len(tokens)
		if n <= p.profile.HedgeMinWords || n < 4 || !p.roll(p.profile.Chance) {
			continue
		}
		at := 2 + p.rng.IntN(n-3)
		tokens = slices.Insert(tokens, at, pick(p.rng, p.rules.Hedges)+",")
		doc[i].Body = strings.Join(tokens, " ")
	}
}

// transitions prefixes sentences after the first with a transition phrase
// unless they already open with one.
func (p *pass) transitions(doc Document) {
	if len(p.rules.Transitions) == 0 {
		return
	}
	for i := 1; i < len(doc); i++ {
		s := &doc[i]
		if s.Heading || s.Body == "" {
			continue
		}
		if _, ok := p.rules.leadingTransition(s.Body); ok {
			continue
		}
		if !p.roll(p.profile.Chance) {
			continue
		}
		s.Body = pick(p.rng, p.rules.Transitions) + " " + lowerFirstWord(s.Body)
	}
}

// addenda appends closing template sentences. Each family rolls
// independently; slips roll at half the chance.
func (p *pass) addenda(doc Document) Document {
	if len(doc) == 0 {
		return doc
	}

	a := p.rules.Addenda
	families := []struct {
		prob      float64
		templates []string
	}{
		{p.profile.Chance, a.Asides},
		{p.profile.Chance, a.Contributions},
		{p.profile.Chance, a.Limitations},
		{p.profile.Chance / 2, a.Slips},
	}

	for _, f := range families {
		if len(f.templates) == 0 || !p.roll(f.prob) {
			continue
		}
		last := &doc[len(doc)-1]
		if last.Term == "" && !last.Heading {
			last.Term = "."
		}
		if last.Sep == "" {
			last.Sep = " "
		}
		doc = append(doc, Segment(pick(p.rng, f.templates))...)
	}
	return doc
}
