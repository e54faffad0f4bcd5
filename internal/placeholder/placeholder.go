// Package placeholder shields the parts of a paper that must survive
// rewriting verbatim (reference lists, equations, citations, code) by
// swapping them for numbered markers ⟦0⟧, ⟦1⟧, … before the text is
// rewritten or humanized. Restore puts the originals back afterwards.
//
// Markers contain no letters and no sentence punctuation, so case changes
// and sentence segmentation leave them intact.
package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// trailing reference section: a heading line followed by everything to EOF
	reReferences = regexp.MustCompile(`(?is)(?:^|\n)[ \t#]*(?:references|bibliography|works cited)[ \t]*:?[ \t]*\n.*$`)

	reFencedCode = regexp.MustCompile("(?s)```.*?```")
	reInlineCode = regexp.MustCompile("`[^`\n]+`")

	reDisplayMath = regexp.MustCompile(`(?s)\$\$.+?\$\$|\\\[.+?\\\]`)
	reInlineMath  = regexp.MustCompile(`\$[^$\n]+\$|\\\(.+?\\\)`)

	// \cite{key}, \citep[p. 3]{a,b}, \ref{fig:1}, \eqref{eq}
	reLatexRef = regexp.MustCompile(`\\(?:cite[a-z]*|ref|eqref|autoref|cref)\*?(?:\[[^\]]*\])*\{[^}]*\}`)

	// [1], [2, 3], [4-6], [7–9]
	reNumericCite = regexp.MustCompile(`\[\d+(?:\s*[-–,]\s*\d+)*\]`)

	// (Smith, 2020), (Smith et al., 2020a; Doe 2019), (see Lee & Kim, 2018, p. 4)
	reAuthorYear = regexp.MustCompile(`\((?:[^()]*?[A-Z][^()]*?,?\s+(?:19|20)\d{2}[a-z]?[^()]*?)\)`)

	reMarker = regexp.MustCompile(`⟦(\d+)⟧`)
)

// Marker returns the placeholder used for index i.
func Marker(i int) string {
	return fmt.Sprintf("⟦%d⟧", i)
}

// Protect replaces protected spans with markers in the order listed at the
// top of this file and returns the captured originals for Restore.
func Protect(text string) (string, []string) {
	var originals []string

	replace := func(match string) string {
		originals = append(originals, match)
		return Marker(len(originals) - 1)
	}

	if loc := reReferences.FindStringIndex(text); loc != nil {
		section := text[loc[0]:]
		lead := ""
		if strings.HasPrefix(section, "\n") {
			lead, section = "\n", section[1:]
		}
		text = text[:loc[0]] + lead + replace(section)
	}

	// Order matters: longer constructs first.
	for _, re := range []*regexp.Regexp{
		reFencedCode,
		reInlineCode,
		reDisplayMath,
		reInlineMath,
		reLatexRef,
		reNumericCite,
		reAuthorYear,
	} {
		text = re.ReplaceAllStringFunc(text, replace)
	}

	return text, originals
}

// Restore substitutes markers in text with the originals captured by
// Protect. A span captured late may itself contain an earlier marker, so
// restoration repeats until no known marker is left. Unknown indices are
// left as they are.
func Restore(text string, originals []string) string {
	for range len(originals) + 1 {
		changed := false
		text = reMarker.ReplaceAllStringFunc(text, func(match string) string {
			idx, err := strconv.Atoi(reMarker.FindStringSubmatch(match)[1])
			if err != nil || idx < 0 || idx >= len(originals) {
				return match
			}
			changed = true
			return originals[idx]
		})
		if !changed {
			break
		}
	}
	return text
}

// InstructionHint is appended to model prompts so the markers come back
// untouched.
func InstructionHint() string {
	return "Keep every ⟦n⟧ marker exactly as it appears: do not rewrite, move, or remove it."
}

// Validate returns the indices of markers that are missing from text.
func Validate(text string, originals []string) []int {
	var missing []int
	for i := range originals {
		if !strings.Contains(text, Marker(i)) {
			missing = append(missing, i)
		}
	}
	return missing
}

// Around protects text, applies fn to the protected form and restores the
// result.
func Around(text string, fn func(string) string) string {
	protected, originals := Protect(text)
	return Restore(fn(protected), originals)
}
