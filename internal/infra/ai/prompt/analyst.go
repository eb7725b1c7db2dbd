package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
)

// maxPromptChars bounds the page text sent to the model.
const maxPromptChars = 6000

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior content strategist who evaluates how well a web page can be understood, summarized and cited by AI assistants (AI optimization, "AIO"). You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Every score is an integer from 0 to 100.
- score is your overall AIO verdict, roughly the mean of the three sub-scores.
- contentClarity: is the offer, audience and main message obvious from the text?
- logicalStructure: do the headings form a sensible outline a model can follow?
- naturalLanguage: is the text written for people, without keyword stuffing?
- topics: up to 5 short topic labels detected on the page.
- confusingParts: up to 3 short quotes or descriptions of passages that are hard to understand.
- suggestions: up to 5 concrete, actionable improvements.

Schema (example with empty values):
{
  "score": 0,
  "contentClarity": 0,
  "logicalStructure": 0,
  "naturalLanguage": 0,
  "topics": ["<string>"],
  "confusingParts": ["<string>"],
  "suggestions": ["<string>"]
}`
}

// GetUserPrompt builds a compact user message around the extracted page.
func GetUserPrompt(page *audit.PageContent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this page and respond with the JSON per schema.\nURL: %s\n", page.URL)
	if page.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", page.Title)
	}
	if page.Description != "" {
		fmt.Fprintf(&b, "Meta description: %s\n", page.Description)
	}
	if page.Lang != "" {
		fmt.Fprintf(&b, "Language: %s\n", page.Lang)
	}
	if len(page.Headings) > 0 {
		b.WriteString("Headings:\n")
		for _, h := range page.Headings {
			fmt.Fprintf(&b, "%sh%d %s\n", strings.Repeat("  ", max(0, h.Level-1)), h.Level, h.Text)
		}
	}
	text := page.Text
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars] + "..."
	}
	fmt.Fprintf(&b, "Text (%d words):\n%s", page.WordCount, text)
	return b.String()
}

// Response matches the schema used by the system prompt.
type Response struct {
	Score            int      `json:"score"`
	ContentClarity   int      `json:"contentClarity"`
	LogicalStructure int      `json:"logicalStructure"`
	NaturalLanguage  int      `json:"naturalLanguage"`
	Topics           []string `json:"topics"`
	ConfusingParts   []string `json:"confusingParts"`
	Suggestions      []string `json:"suggestions"`
}

// ParseResponse decodes the model output. Models sometimes wrap the object
// in code fences despite the instructions, so those are stripped first.
func ParseResponse(content string) (*audit.AIOReport, error) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	var r Response
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &r); err != nil {
		return nil, fmt.Errorf("decode ai response: %w", err)
	}
	return r.Report(), nil
}

// Report converts the response, clamping scores and filling a missing
// overall score from the sub-scores.
func (r Response) Report() *audit.AIOReport {
	rep := &audit.AIOReport{
		Score:            clamp(r.Score),
		ContentClarity:   clamp(r.ContentClarity),
		LogicalStructure: clamp(r.LogicalStructure),
		NaturalLanguage:  clamp(r.NaturalLanguage),
		Topics:           limit(r.Topics, 5),
		ConfusingParts:   limit(r.ConfusingParts, 3),
		Suggestions:      limit(r.Suggestions, 5),
	}
	if rep.Score == 0 {
		rep.Score = (rep.ContentClarity + rep.LogicalStructure + rep.NaturalLanguage) / 3
	}
	return rep
}

func clamp(v int) int { return max(0, min(100, v)) }

func limit(in []string, n int) []string {
	out := make([]string, 0, min(len(in), n))
	for _, s := range in {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		if len(out) == n {
			break
		}
		out = append(out, s)
	}
	return out
}
