package humanizer

import "strings"

// trailingPunct is stripped from a token before synonym lookup and put back
// after replacement.
const trailingPunct = `.,!?;:"`

// phrases replaces the first occurrence of each tracked phrase, in rule
// order, with one of its paraphrases.
func (p *pass) phrases(doc Document) {
	prob := min(p.profile.Chance*1.5, 1)
	if prob <= 0 {
		return
	}

	for _, rule := range p.rules.Phrases {
		if len(rule.Alternatives) == 0 {
			continue
		}
		idx, loc := -1, []int(nil)
		for i, s := range doc {
			if loc = rule.re.FindStringIndex(s.Body); loc != nil {
				idx = i
				break
			}
		}
		if idx < 0 || !p.roll(prob) {
			continue
		}
		body := doc[idx].Body
		doc[idx].Body = body[:loc[0]] + pick(p.rng, rule.Alternatives) + body[loc[1]:]
	}
}

// lexical swaps tracked words for synonyms, keeping the original's leading
// capital and trailing punctuation.
func (p *pass) lexical(doc Document) {
	prob := min(p.profile.Chance*2, 1)
	if prob <= 0 || len(p.rules.Synonyms) == 0 {
		return
	}
	for i := range doc {
		doc[i].Body = p.substituteWords(doc[i].Body, prob)
	}
}

func (p *pass) substituteWords(body string, prob float64) string {
	tokens := strings.Fields(body)
	changed := false

	for i, tok := range tokens {
		word := strings.TrimRight(tok, trailingPunct)
		candidates := p.rules.Synonyms[strings.ToLower(word)]
		if len(candidates) == 0 || !p.roll(prob) {
			continue
		}
		repl := pick(p.rng, candidates)
		if startsUpper(word) {
			repl = upperFirst(repl)
		}
		tokens[i] = repl + tok[len(word):]
		changed = true
	}

	if !changed {
		return body
	}
	return strings.Join(tokens, " ")
}
