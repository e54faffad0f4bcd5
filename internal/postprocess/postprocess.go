// Package postprocess removes common LLM artifacts from rewrite output.
//
// It is applied to the raw text returned by every model-backed rewriter
// (OpenRouter, Ollama) before the result is restored and humanized.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes LLM artifacts from text in four phases and returns the
// trimmed result:
//  1. Thinking / reasoning block removal
//  2. Whole-output code fence removal
//  3. Instruction echo removal (prompt leakage)
//  4. Quote wrapping removal
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removeFenceWrapping(text)
	text = removeInstructionEchoes(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// --- Phase 1: thinking blocks ---

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// RE2 has no backreferences, so each tag pair is listed.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: fence wrapping ---

// fenceWrapRe matches output wrapped as a single ``` block, with an optional
// info string such as "markdown" or "text".
var fenceWrapRe = regexp.MustCompile("(?s)^```[a-zA-Z]*[ \t]*\n(.*?)\n?```$")

func removeFenceWrapping(text string) string {
	if m := fenceWrapRe.FindStringSubmatch(text); m != nil && !strings.Contains(m[1], "```") {
		return strings.TrimSpace(m[1])
	}
	return text
}

// --- Phase 3: instruction echoes ---

// echoPatterns match introductory phrases that LLMs sometimes prepend even
// when instructed not to. Each pattern is anchored to the start of the string
// and requires a colon to reduce false positives on legitimate content.
var echoPatterns = []*regexp.Regexp{
	// "Here is / Here's [the] [rewritten|revised|edited|polished] [paper|text|version]:"
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| your)? (?:rewritten |revised |edited |polished |humanized )?(?:research )?(?:paper|text|version|draft)\s*:`),
	// "[The] [rewritten|revised] [paper|text]:"
	regexp.MustCompile(`(?i)^(?:the )?(?:rewritten|revised|edited) (?:paper|text|version)\s*:`),
	// "Certainly / Sure / Of course[,] here is [the] rewritten paper:"
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]? here(?:'s| is)(?: the| your)? (?:rewritten |revised |edited |polished |humanized )?(?:research )?(?:paper|text|version|draft)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// --- Phase 4: quote wrapping ---

// removeQuoteWrapping strips a matching pair of outer quotes when the entire
// text is wrapped in them. Supported pairs:
//
//	"…"  '…'  «…»  "…"  '…'
func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') {
		inner := string(runes[1 : n-1])
		// "A" said x. "B" said y. is content, not wrapping
		if strings.ContainsRune(inner, first) && first == last {
			return text
		}
		return strings.TrimSpace(inner)
	}
	return text
}
