package rewriter

import (
	"encoding/json"
	"strings"
)

// SystemPrompt is sent as the system message of every rewrite call.
const SystemPrompt = `You are an academic editor. Rewrite the research paper to sound human-written,
clear, professional, and natural. Follow these rules:

1. Vary sentence length and structure. Mix long, detailed analysis with shorter, emphatic statements.
2. Allow slight imperfections or informal phrasing where natural (but stay professional).
3. Avoid repetitive transitions like "Moreover," "Thus," "Therefore" at the start of every sentence.
4. Do NOT remove or invent citations, equations, or references.
5. Keep the overall meaning but make it feel like a human's unique voice.
6. Add light stylistic touches: occasional rhetorical questions, hedging ("might," "could," "in some cases").
7. Keep the length within ±10% of the original.

Output only the rewritten paper text.`

// Style is the STYLE_JSON block placed in front of the paper.
type Style struct {
	Tone       string   `json:"tone"`
	Style      string   `json:"style"`
	Avoid      []string `json:"avoid"`
	Structure  []string `json:"structure"`
	ExtraRules []string `json:"extra_rules"`
}

var DefaultStyle = Style{
	Tone:  "Formal, academic, professional, but approachable and natural",
	Style: "Engaging, avoids robotic phrasing, varies sentence structure",
	Avoid: []string{
		"Overly casual language",
		"AI-sounding disclaimers",
		"Excessive repetition",
		"Inventing citations",
		"Overly complex jargon",
	},
	Structure: []string{
		"Abstract", "Introduction", "Literature Review",
		"Methodology", "Results", "Discussion",
		"Conclusion", "References",
	},
	ExtraRules: []string{
		"Ensure logical flow",
		"Vary rhythm",
		"Keep length ±10%",
		"Mark unclear sentences as [Check: unclear]",
		"Allow slight imperfections so text doesn't sound AI-generated",
	},
}

func buildSystemPrompt(instructions string) string {
	if instructions == "" {
		return SystemPrompt
	}
	return SystemPrompt + "\n" + instructions
}

// buildUserPrompt renders "STYLE_JSON: {...}\n\nPAPER:\n<text>".
func buildUserPrompt(text string) string {
	var sb strings.Builder
	sb.WriteString("STYLE_JSON: ")
	style, _ := json.Marshal(DefaultStyle)
	sb.Write(style)
	sb.WriteString("\n\nPAPER:\n")
	sb.WriteString(text)
	return sb.String()
}
