// Package detector identifies the language of a paper so a rewrite can be
// checked against its source.
package detector

import (
	"strings"
	"sync"

	lingua "github.com/pemistahl/lingua-go"
)

// sampleRunes caps the text handed to the detector; the opening of a
// paper is enough to tell its language.
const sampleRunes = 4000

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over all languages. Building is expensive; reuse the
// instance or call Default.
func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

var defaultDetector = sync.OnceValue(New)

// Default returns a process-wide detector built on first use.
func Default() *Detector {
	return defaultDetector()
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	text = sample(text)
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}

// SameLanguage reports whether a and b are detected as the same language.
// ok is false when either side cannot be detected.
func (d *Detector) SameLanguage(a, b string) (same, ok bool) {
	la, okA := d.Detect(a)
	lb, okB := d.Detect(b)
	if !okA || !okB {
		return false, false
	}
	return la == lb, true
}

func sample(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= sampleRunes {
		return text
	}
	n := 0
	for i := range text {
		if n == sampleRunes {
			return text[:i]
		}
		n++
	}
	return text
}
