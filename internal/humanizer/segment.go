package humanizer

import (
	"iter"
	"regexp"
	"slices"
	"strings"
)

// boundaryRe matches either a run of terminal punctuation followed by
// whitespace (or the end of text), or a blank line. The second form marks a
// heading-like line that ended without punctuation.
var boundaryRe = regexp.MustCompile(`([.!?]+)(\s+|$)|[ \t]*\n[ \t]*\n\s*`)

// Sentence is one unit of the document. Body holds the prose without its
// terminal punctuation, Term the punctuation run and Sep the normalized
// whitespace that followed it.
type Sentence struct {
	Body    string
	Term    string
	Sep     string
	Heading bool
}

// Tokens returns the whitespace-delimited tokens of the body.
func (s Sentence) Tokens() []string {
	return strings.Fields(s.Body)
}

func (s Sentence) String() string {
	return s.Body + s.Term
}

// Document is the ordered sentence sequence threaded through every stage.
type Document []Sentence

// Segment splits text into sentences. The terminator stays attached to its
// sentence, so joining the result with String loses nothing but redundant
// whitespace between sentences.
func Segment(text string) Document {
	var doc Document
	last := 0

	for _, m := range boundaryRe.FindAllStringSubmatchIndex(text, -1) {
		body := strings.TrimSpace(text[last:m[0]])
		last = m[1]

		if m[2] < 0 {
			// blank line without terminal punctuation
			if body == "" {
				if n := len(doc); n > 0 {
					doc[n-1].Sep = "\n\n"
				}
				continue
			}
			doc = append(doc, Sentence{Body: body, Sep: "\n\n", Heading: true})
			continue
		}

		term := text[m[2]:m[3]]
		sep := normalizeSep(text[m[4]:m[5]])

		// stray punctuation such as "Done. ." belongs to the previous sentence
		if body == "" && len(doc) > 0 {
			prev := &doc[len(doc)-1]
			prev.Term += prev.separator() + term
			prev.Sep = sep
			continue
		}
		doc = append(doc, Sentence{Body: body, Term: term, Sep: sep})
	}

	if rest := strings.TrimSpace(text[last:]); rest != "" {
		doc = append(doc, Sentence{Body: rest})
	}
	return doc
}

// Sentences yields the sentences in order. The sequence can be ranged over
// any number of times.
func (d Document) Sentences() iter.Seq[Sentence] {
	return slices.Values(d)
}

// String joins the document back into text using each sentence's separator.
func (d Document) String() string {
	var sb strings.Builder
	for i, s := range d {
		sb.WriteString(s.Body)
		sb.WriteString(s.Term)
		if i < len(d)-1 {
			sb.WriteString(s.separator())
		}
	}
	return sb.String()
}

func (s Sentence) separator() string {
	if s.Sep == "" {
		return " "
	}
	return s.Sep
}

func normalizeSep(ws string) string {
	switch n := strings.Count(ws, "\n"); {
	case n >= 2:
		return "\n\n"
	case n == 1:
		return "\n"
	default:
		return " "
	}
}
