package humanizer

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerAfterStopRe = regexp.MustCompile(`\. \p{Ll}`)

// capitalizeSentences title-cases a lowercase letter that directly follows
// ". ". Letters without a single-rune capital expand ("ß" becomes "Ss").
// It must be the last transformation applied.
func capitalizeSentences(text string) string {
	title := cases.Title(language.Und)
	return lowerAfterStopRe.ReplaceAllStringFunc(text, title.String)
}

// rewriteOpener varies the opening of the second sentence of documents with
// at least three sentences: an existing transition is swapped for an
// opener, otherwise an opener is prepended.
func (p *pass) rewriteOpener(doc Document) {
	if len(doc) < 3 || len(p.rules.Openers) == 0 || !p.roll(p.profile.Chance) {
		return
	}
	s := &doc[1]
	if s.Heading || s.Body == "" {
		return
	}

	body := s.Body
	if n, ok := p.rules.leadingTransition(body); ok {
		body = strings.TrimLeft(body[n:], ", ")
		if body == "" {
			return
		}
	}
	s.Body = pick(p.rng, p.rules.Openers) + " " + lowerFirstWord(body)
}
