// Package chunker splits long papers into pieces small enough for a single
// model call while keeping paragraphs whole wherever possible. Pieces carry
// the separator that followed them so Join can rebuild the layout.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChars bounds a piece when the caller passes no limit.
const DefaultMaxChars = 12000

// Piece is one chunk of a paper. Sep is the separator that followed it in
// the source: "\n\n" between paragraphs, " " inside an oversized paragraph,
// empty for the last piece.
type Piece struct {
	Text string
	Sep  string
}

var paragraphBreakRe = regexp.MustCompile(`\n[ \t]*\n\s*`)

// Split packs whole paragraphs into pieces of at most maxChars runes. A
// paragraph longer than maxChars is cut further with Chunk. If maxChars ≤ 0
// DefaultMaxChars is used.
func Split(text string, maxChars int) []Piece {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var (
		pieces []Piece
		cur    strings.Builder
		curLen int
	)
	flush := func() {
		if cur.Len() > 0 {
			pieces = append(pieces, Piece{Text: cur.String(), Sep: "\n\n"})
			cur.Reset()
			curLen = 0
		}
	}

	for _, para := range paragraphBreakRe.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		n := utf8.RuneCountInString(para)

		if n > maxChars {
			flush()
			parts := Chunk(para, maxChars)
			for i, part := range parts {
				sep := " "
				if i == len(parts)-1 {
					sep = "\n\n"
				}
				pieces = append(pieces, Piece{Text: part, Sep: sep})
			}
			continue
		}

		if curLen > 0 && curLen+2+n > maxChars {
			flush()
		}
		if curLen > 0 {
			cur.WriteString("\n\n")
			curLen += 2
		}
		cur.WriteString(para)
		curLen += n
	}
	flush()

	if len(pieces) > 0 {
		pieces[len(pieces)-1].Sep = ""
	}
	return pieces
}

// Join concatenates texts with the separators recorded in pieces. texts must
// be parallel to pieces; it is usually the rewritten form of each piece.
func Join(pieces []Piece, texts []string) string {
	var sb strings.Builder
	for i, p := range pieces {
		if i < len(texts) {
			sb.WriteString(strings.TrimSpace(texts[i]))
		}
		sb.WriteString(p.Sep)
	}
	return sb.String()
}

// Chunk splits text into pieces each no longer than maxChars unicode
// code points. Splits are attempted (in order of preference) at:
//  1. Paragraph boundaries (\n\n)
//  2. Sentence-ending punctuation (. ! ?) followed by whitespace
//  3. Whitespace (word boundary)
//  4. Hard cut at maxChars if no suitable boundary is found
//
// If text fits entirely within maxChars, a single-element slice is returned.
// If maxChars ≤ 0 it is treated as unlimited (returns the whole text).
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	var chunks []string
	remaining := text

	for utf8.RuneCountInString(remaining) > maxChars {
		split := findSplit(remaining, maxChars)
		if chunk := strings.TrimSpace(remaining[:split]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = strings.TrimSpace(remaining[split:])
	}

	if remaining != "" {
		chunks = append(chunks, remaining)
	}

	return chunks
}

// findSplit returns the byte index within text at which to split, aiming for
// at most maxChars runes. It searches backwards from maxChars for the best
// boundary.
func findSplit(text string, maxChars int) int {
	end := len(text)
	for i := range text {
		if maxChars == 0 {
			end = i
			break
		}
		maxChars--
	}
	candidate := text[:end]

	if idx := strings.LastIndex(candidate, "\n\n"); idx > 0 {
		return idx + 2
	}

	for i := len(candidate) - 2; i > 0; i-- {
		switch candidate[i] {
		case '.', '!', '?':
			if r, _ := utf8.DecodeRuneInString(candidate[i+1:]); unicode.IsSpace(r) {
				return i + 1
			}
		}
	}

	if idx := strings.LastIndexFunc(candidate, unicode.IsSpace); idx > 0 {
		return idx
	}

	return len(candidate)
}
