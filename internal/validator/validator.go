// Package validator checks a rewritten paper against its source: the rewrite
// should stay within ±10% of the original length and keep its language.
package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/valpere/peredit/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

// DefaultLengthTolerance is the accepted relative drift in length.
const DefaultLengthTolerance = 0.10

// Report describes how a rewrite compares to its source. Warnings are
// advisory; a rewrite with warnings is still returned to the caller.
type Report struct {
	OriginalChars  int      `json:"original_chars"`
	RewrittenChars int      `json:"rewritten_chars"`
	Ratio          float64  `json:"ratio"`
	Warnings       []string `json:"warnings,omitempty"`
}

func (r *Report) OK() bool {
	return len(r.Warnings) == 0
}

// Validator compares rewrites with their sources.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det       *detector.Detector
	tolerance float64
}

// New creates a Validator backed by the shared lingua-go detector. A
// tolerance ≤ 0 selects DefaultLengthTolerance.
func New(tolerance float64) *Validator {
	if tolerance <= 0 {
		tolerance = DefaultLengthTolerance
	}
	return &Validator{det: detector.Default(), tolerance: tolerance}
}

// Check compares rewritten with original. It fails only when the rewrite is
// empty; length drift and a language change are reported as warnings.
func (v *Validator) Check(original, rewritten string) (*Report, error) {
	original = strings.TrimSpace(original)
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return nil, fmt.Errorf("rewrite is empty")
	}

	r := &Report{
		OriginalChars:  utf8.RuneCountInString(original),
		RewrittenChars: utf8.RuneCountInString(rewritten),
	}
	if r.OriginalChars > 0 {
		r.Ratio = float64(r.RewrittenChars) / float64(r.OriginalChars)
		if r.Ratio < 1-v.tolerance || r.Ratio > 1+v.tolerance {
			r.Warnings = append(r.Warnings, fmt.Sprintf("length changed by %+.0f%% (allowed ±%.0f%%)", (r.Ratio-1)*100, v.tolerance*100))
		}
	}

	// Detector is unreliable for very short texts; skip the language check.
	if r.OriginalChars < minValidationLength || r.RewrittenChars < minValidationLength {
		return r, nil
	}

	if same, ok := v.det.SameLanguage(original, rewritten); ok && !same {
		from, _ := v.det.DetectISO(original)
		to, _ := v.det.DetectISO(rewritten)
		r.Warnings = append(r.Warnings, fmt.Sprintf("language changed from %s to %s", from, to))
	}

	return r, nil
}
