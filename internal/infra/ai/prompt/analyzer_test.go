package prompt

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
)

func wellFormedPage() *audit.PageContent {
	sentence := "Our bakery in Bandung bakes sourdough bread, croissants and custom cakes every morning for local cafes. "
	text := strings.Repeat(sentence, 25)
	return &audit.PageContent{
		URL:         "https://acme-bakery.com",
		Title:       "Acme Bakery | Sourdough and cakes in Bandung",
		Description: "Fresh sourdough, croissants and custom cakes baked daily in Bandung.",
		Headings: []audit.Heading{
			{Level: 1, Text: "Acme Bakery"},
			{Level: 2, Text: "Bread"},
			{Level: 3, Text: "Sourdough"},
			{Level: 2, Text: "Cakes"},
		},
		Text:      text,
		WordCount: len(strings.Fields(text)),
		LogoURL:   "https://acme-bakery.com/logo.png",
	}
}

func TestAnalyzePageContent_WellFormedPage(t *testing.T) {
	rep := AnalyzePageContent(wellFormedPage())

	assert.Greater(t, rep.ContentClarity, 80)
	assert.Greater(t, rep.LogicalStructure, 80)
	assert.Positive(t, rep.Score)
	assert.LessOrEqual(t, rep.Score, 100)
	assert.Empty(t, rep.ConfusingParts)
	assert.Equal(t, "https://acme-bakery.com/logo.png", rep.LogoURL)
	assert.LessOrEqual(t, len(rep.Topics), 5)
}

func TestAnalyzePageContent_ThinPageGetsSuggestions(t *testing.T) {
	rep := AnalyzePageContent(&audit.PageContent{URL: "https://x.test", Text: "Hello."})

	assert.Less(t, rep.ContentClarity, 60)
	assert.Less(t, rep.LogicalStructure, 60)
	assert.NotEmpty(t, rep.Suggestions)
	assert.LessOrEqual(t, len(rep.Suggestions), 5)
	assert.Contains(t, rep.Suggestions, "Add exactly one H1 stating what the page is about.")
}

func TestAnalyzePageContent_KeywordStuffing(t *testing.T) {
	page := wellFormedPage()
	page.Text = strings.Repeat("cheap shoes cheap shoes buy cheap shoes online. ", 40)

	rep := AnalyzePageContent(page)
	assert.Less(t, rep.NaturalLanguage, 70)
	assert.Equal(t, "cheap", rep.Topics[0])
}

func TestAnalyzePageContent_IsDeterministic(t *testing.T) {
	a := AnalyzePageContent(wellFormedPage())
	b := AnalyzePageContent(wellFormedPage())
	assert.Equal(t, a, b)
}

func TestHeuristic_ImplementsClient(t *testing.T) {
	rep, err := Heuristic{}.AnalyzeContent(context.Background(), wellFormedPage())
	require.NoError(t, err)
	assert.NotNil(t, rep)
}

func TestParseResponse(t *testing.T) {
	rep, err := ParseResponse("```json\n{\"contentClarity\":120,\"logicalStructure\":60,\"naturalLanguage\":60,\"topics\":[\"bread\",\" \"]}\n```")
	require.NoError(t, err)

	assert.Equal(t, 100, rep.ContentClarity)
	assert.Equal(t, 73, rep.Score)
	assert.Equal(t, []string{"bread"}, rep.Topics)
	assert.Equal(t, []string{}, rep.Suggestions)
}

func TestParseResponse_Invalid(t *testing.T) {
	_, err := ParseResponse("not json")
	assert.Error(t, err)
}

func TestGetUserPrompt_TruncatesText(t *testing.T) {
	page := wellFormedPage()
	page.Text = strings.Repeat("a", maxPromptChars+100)

	p := GetUserPrompt(page)
	assert.Contains(t, p, "URL: https://acme-bakery.com")
	assert.Contains(t, p, "h1 Acme Bakery")
	assert.Contains(t, p, "  h2 Bread")
	assert.Less(t, len(p), maxPromptChars+1000)
}
