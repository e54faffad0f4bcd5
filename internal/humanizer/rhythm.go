package humanizer

import (
	"regexp"
	"strings"
)

// clauseDelimRe matches a run of clause delimiters followed by whitespace,
// which keeps numbers like 1,000 and times like 12:30 intact.
var clauseDelimRe = regexp.MustCompile(`[,;:]+\s+`)

// SplitClause cuts body at its first clause delimiter. head+delim+tail is
// always equal to body; ok is false when there is no delimiter or either
// side would be empty.
func SplitClause(body string) (head, delim, tail string, ok bool) {
	loc := clauseDelimRe.FindStringIndex(body)
	if loc == nil {
		return "", "", "", false
	}
	head, delim, tail = body[:loc[0]], body[loc[0]:loc[1]], body[loc[1]:]
	if strings.TrimSpace(head) == "" || strings.TrimSpace(tail) == "" {
		return "", "", "", false
	}
	return head, delim, tail, true
}

// rhythm splits long sentences and merges short ones into their
// predecessor. A sentence that was split is not considered for merging in
// the same pass. Sentences without tokens are dropped.
func (p *pass) rhythm(doc Document) Document {
	out := make(Document, 0, len(doc))

	for _, s := range doc {
		n := len(s.Tokens())
		if n == 0 {
			continue
		}

		if !s.Heading && n > p.profile.SplitMinWords && p.roll(p.profile.Chance) {
			if head, _, tail, ok := SplitClause(s.Body); ok {
				out = append(out,
					Sentence{Body: strings.TrimSpace(head), Term: ".", Sep: " "},
					Sentence{Body: upperFirst(strings.TrimSpace(tail)), Term: s.Term, Sep: s.Sep},
				)
				continue
			}
		}

		if n < p.profile.MergeMaxWords && len(out) > 0 && len(p.rules.Connectors) > 0 &&
			canMerge(out[len(out)-1], s) && p.roll(p.profile.Chance) {
			prev := &out[len(out)-1]
			conn := pick(p.rng, p.rules.Connectors)
			if conn == "," {
				prev.Body += ", " + lowerFirstWord(s.Body)
			} else {
				prev.Body += " " + conn + " " + lowerFirstWord(s.Body)
			}
			prev.Term, prev.Sep = s.Term, s.Sep
			continue
		}

		out = append(out, s)
	}
	return out
}

// canMerge allows merging only a statement into a plain statement in the
// same paragraph.
func canMerge(prev, cur Sentence) bool {
	return !prev.Heading && !cur.Heading && prev.Term == "." && prev.separator() == " "
}
