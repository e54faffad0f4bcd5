package humanizer

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleParagraph = "It is important to note that many studies show a clear link between sleep and memory. " +
	"Researchers used a large sample of students from various universities, and they examined how rest affects recall over several weeks of testing. " +
	"The results were good. " +
	"They also suggest that small changes in routine can improve performance. " +
	"In conclusion, the method provides a robust framework for future work on memory and learning in a wide range of settings."

func zeroProfile() Profile {
	return Profile{Chance: 0, HedgeMinWords: 7, SplitMinWords: 20, MergeMaxWords: 9}
}

func fullProfile() Profile {
	return Profile{Chance: 1, HedgeMinWords: 7, SplitMinWords: 20, MergeMaxWords: 9}
}

func TestHumanize_Totality(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"word",
		".",
		"...",
		"!?",
		"Done. . Next.",
		", ; :",
		"Heading\n\n\n\n",
		"Ünïcödé sentences work too. Ещё одно предложение. 第三句。",
		"One two three.",
		strings.Repeat("A long sentence with many words, several clauses; and more: ", 20),
		sampleParagraph,
	}

	for _, strength := range []string{"mild", "medium", "strong", "extreme", "unknown", ""} {
		for seed := uint64(0); seed < 10; seed++ {
			h := New(WithSeed(seed))
			for _, in := range inputs {
				assert.NotPanics(t, func() { _ = h.Humanize(in, strength) }, "strength=%s seed=%d input=%q", strength, seed, in)
			}
		}
	}
}

func TestHumanize_EmptyInput(t *testing.T) {
	assert.Equal(t, "", Humanize("", "strong"))
	assert.Equal(t, "", Humanize(" \n\n ", "extreme"))
}

func TestApply_ZeroChanceIsNoOp(t *testing.T) {
	inputs := []string{
		"One sentence only.",
		"The study was large. It found effects. Results were clear!",
		"Spacing   inside    stays. But between sentences it collapses.",
		"Methods\n\nWe used a survey. It had many questions.\n\nResults\n\nThe data show growth.",
		sampleParagraph,
	}

	h := New(WithSeed(42))
	for _, in := range inputs {
		assert.Equal(t, Segment(in).String(), h.Apply(in, zeroProfile()))
	}
	assert.Equal(t, "Spacing   inside    stays. But between sentences it collapses.",
		h.Apply("Spacing   inside    stays.    But between sentences it collapses.", zeroProfile()))
}

func TestApply_HedgeOnlyCoversLongSentences(t *testing.T) {
	h := New(WithStages(StageHedge), WithSeed(3))
	rules := h.Rules()

	in := Segment(sampleParagraph)
	out := Segment(h.Apply(sampleParagraph, fullProfile()))
	require.Len(t, out, len(in))

	for i := range in {
		body := out[i].Body
		hasHedge := false
		for _, hedge := range rules.Hedges {
			if strings.Contains(body, hedge+",") {
				hasHedge = true
				break
			}
		}
		if len(in[i].Tokens()) > 7 {
			assert.True(t, hasHedge, "sentence %d lacks a hedge: %q", i, body)
			tokens := out[i].Tokens()
			assert.Equal(t, in[i].Tokens()[0], tokens[0], "first token moved")
			assert.Equal(t, in[i].Tokens()[len(in[i].Tokens())-1], tokens[len(tokens)-1], "last token moved")
		} else {
			assert.Equal(t, in[i].Body, body, "short sentence %d changed", i)
		}
	}
}

func TestHumanize_CapitalizationAfterStop(t *testing.T) {
	lowerAfterStop := regexp.MustCompile(`\. \p{Ll}`)
	inputs := []string{
		sampleParagraph,
		"the text starts lower. and continues lower. and ends lower.",
		"Short one. Short two. Short three. Short four. Short five.",
	}

	for seed := uint64(0); seed < 50; seed++ {
		h := New(WithSeed(seed))
		for _, in := range inputs {
			out := h.Humanize(in, "extreme")
			assert.False(t, lowerAfterStop.MatchString(out), "seed %d: %q", seed, out)
		}
	}
}

func TestApply_CapitalizesLettersWithoutSingleRuneUpper(t *testing.T) {
	h := New(WithSeed(1))

	out := h.Apply("Das ist gut. ßtraße ist lang.", zeroProfile())

	assert.Equal(t, "Das ist gut. Sstraße ist lang.", out)
	assert.NotRegexp(t, `\. \p{Ll}`, out)
}

func TestApply_SplitRoundTrip(t *testing.T) {
	body := "Although the sample was drawn from a single region, the authors argue that the pattern is likely to hold in other places and in other years too"
	h := New(WithStages(StageRhythm), WithSeed(1))

	out := Segment(h.Apply(body+".", fullProfile()))
	require.Len(t, out, 2)

	head, delim, tail, ok := SplitClause(body)
	require.True(t, ok)
	assert.Equal(t, head, out[0].Body)
	assert.Equal(t, ".", out[0].Term)
	assert.Equal(t, upperFirst(tail), out[1].Body)
	assert.Equal(t, ".", out[1].Term)

	rejoined := out[0].Body + delim + lowerFirstWord(out[1].Body)
	assert.Equal(t, body, rejoined)
}

func TestApply_MergeShortSentences(t *testing.T) {
	h := New(WithStages(StageRhythm), WithSeed(5))

	out := Segment(h.Apply("It rained. The match went on. Fans stayed.", fullProfile()))
	require.Len(t, out, 1)
	assert.True(t, strings.HasPrefix(out[0].Body, "It rained"))
	assert.Contains(t, out[0].Body, "the match went on")
	assert.Contains(t, out[0].Body, "fans stayed")
}

func TestApply_MergeRespectsParagraphs(t *testing.T) {
	h := New(WithStages(StageRhythm), WithSeed(5))

	out := h.Apply("It rained.\n\nFans stayed.", fullProfile())
	assert.Equal(t, "It rained.\n\nFans stayed.", out)
}

func TestApply_MergeSkipsQuestions(t *testing.T) {
	h := New(WithStages(StageRhythm), WithSeed(5))

	out := h.Apply("Why did it rain? Fans stayed.", fullProfile())
	assert.Equal(t, "Why did it rain? Fans stayed.", out)
}

func TestApply_VariesAcrossRuns(t *testing.T) {
	h := New()
	seen := make(map[string]struct{})
	for range 20 {
		seen[h.Humanize(sampleParagraph, "extreme")] = struct{}{}
	}
	assert.Greater(t, len(seen), 1, "expected different outputs across runs")
}

func TestApply_SeedIsDeterministic(t *testing.T) {
	a := New(WithSeed(99)).Humanize(sampleParagraph, "strong")
	b := New(WithSeed(99)).Humanize(sampleParagraph, "strong")
	assert.Equal(t, a, b)
}

func TestApply_LexicalScenario(t *testing.T) {
	in := "This is an important finding that many researchers show in their work."
	rules := DefaultRules()

	for seed := uint64(0); seed < 20; seed++ {
		out := New(WithStages(StageLexical), WithSeed(seed)).Apply(in, fullProfile())

		assert.True(t, strings.HasPrefix(out, "This is an "), out)
		assert.True(t, strings.HasSuffix(out, " in their work."), out)
		assert.NotContains(t, out, "important")
		assert.NotContains(t, out, " many ")
		assert.NotContains(t, out, " show ")

		found := false
		for _, candidate := range []string{"crucial", "significant", "vital", "paramount", "essential", "key"} {
			if strings.HasPrefix(out, "This is an "+candidate+" finding") {
				found = true
			}
		}
		assert.True(t, found, out)

		manyOK := false
		for _, candidate := range rules.Synonyms["many"] {
			if strings.Contains(out, "that "+candidate+" researchers") {
				manyOK = true
			}
		}
		assert.True(t, manyOK, out)
	}
}

func TestApply_LexicalKeepsCapitalAndPunctuation(t *testing.T) {
	out := New(WithStages(StageLexical), WithSeed(8)).Apply("Important, very important!", fullProfile())

	tokens := strings.Fields(out)
	require.Len(t, tokens, 3)
	assert.True(t, startsUpper(tokens[0]), out)
	assert.True(t, strings.HasSuffix(tokens[0], ","), out)
	assert.True(t, strings.HasSuffix(out, "!"), out)
}

func TestApply_ThreeWordSentenceUntouchedByStructuralStages(t *testing.T) {
	in := "Results were mixed."
	h := New(WithStages(StageHedge|StageRhythm|StageTransition|StageFinalize), WithSeed(11))

	for range 10 {
		assert.Equal(t, in, h.Apply(in, fullProfile()))
	}
}

func TestApply_PhraseSubstitution(t *testing.T) {
	in := "We stayed late In Order To finish. Then we left in order to rest."
	out := New(WithStages(StagePhrase), WithSeed(2)).Apply(in, fullProfile())

	assert.NotContains(t, out, "In Order To")
	assert.Contains(t, out, "in order to rest", "only the first occurrence is replaced")
}

func TestApply_TransitionsSkipFirstAndExisting(t *testing.T) {
	in := "The first stays. However, this one already has one. The third gets one."
	h := New(WithStages(StageTransition), WithSeed(4))
	out := Segment(h.Apply(in, fullProfile()))

	require.Len(t, out, 3)
	assert.Equal(t, "The first stays", out[0].Body)
	assert.Equal(t, "However, this one already has one", out[1].Body)
	assert.True(t, strings.HasSuffix(out[2].Body, " the third gets one"), out[2].Body)
	_, ok := h.Rules().leadingTransition(out[2].Body)
	assert.True(t, ok)
}

func TestApply_AddendaAppendsTemplates(t *testing.T) {
	in := "A short note."
	out := New(WithStages(StageAddenda), WithSeed(6)).Apply(in, fullProfile())

	doc := Segment(out)
	assert.Equal(t, "A short note", doc[0].Body)
	// asides, contributions and limitations always fire at chance 1
	assert.GreaterOrEqual(t, len(doc), 4)
}

func TestApply_OpenerRewrite(t *testing.T) {
	in := "First sentence here. Moreover, second sentence here. Third sentence here."
	h := New(WithStages(StageFinalize), WithSeed(10))
	out := Segment(h.Apply(in, fullProfile()))

	require.Len(t, out, 3)
	assert.NotContains(t, out[1].Body, "Moreover")
	assert.True(t, strings.HasSuffix(out[1].Body, " second sentence here"), out[1].Body)

	matched := false
	for _, opener := range h.Rules().Openers {
		if strings.HasPrefix(out[1].Body, opener+" ") {
			matched = true
		}
	}
	assert.True(t, matched, out[1].Body)
}

func TestHumanizeBatch_PreservesOrder(t *testing.T) {
	out := HumanizeBatch([]string{"A.", "B."}, "mild")

	require.Len(t, out, 2)
	assert.True(t, strings.HasPrefix(out[0], "A."), out[0])
	assert.True(t, strings.HasPrefix(out[1], "B."), out[1])
}

func TestHumanizeBatch_Empty(t *testing.T) {
	assert.Empty(t, HumanizeBatch(nil, "strong"))
}

func TestHumanizer_ProfileFallback(t *testing.T) {
	h := New()
	strong := h.Rules().Profile("strong")

	assert.Equal(t, strong, h.Profile("no-such-level"))
	assert.Equal(t, strong, h.Profile(""))
	assert.Equal(t, h.Rules().Profile("mild"), h.Profile(" MILD "))
}

func TestHumanizer_WithProfiles(t *testing.T) {
	h := New(WithProfiles(map[string]Profile{"gentle": {Chance: 0.05}}))

	p := h.Profile("gentle")
	assert.Equal(t, 0.05, p.Chance)
	assert.Equal(t, defaultHedgeMinWords, p.HedgeMinWords)
}

func TestParseStages(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    Stage
		wantErr bool
	}{
		{"empty means all", nil, AllStages, false},
		{"all", []string{"all"}, AllStages, false},
		{"subset", []string{"hedge", " Lexical "}, StageHedge | StageLexical, false},
		{"unknown", []string{"hedge", "bogus"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStages(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "none", Stage(0).String())
	assert.Equal(t, "lexical+hedge", (StageHedge | StageLexical).String())
}
