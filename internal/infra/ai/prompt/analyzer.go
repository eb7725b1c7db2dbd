package prompt

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
)

// Heuristic scores page content without calling a model. It is used when
// no OpenAI key is configured and as the fallback on quota errors.
type Heuristic struct{}

func (Heuristic) AnalyzeContent(_ context.Context, page *audit.PageContent) (*audit.AIOReport, error) {
	return AnalyzePageContent(page), nil
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+\s+`)
	wordPattern   = regexp.MustCompile(`[\p{L}\p{N}']+`)
)

// vague marketing phrases that tell a model nothing concrete
var fluffDetectors = []struct {
	re     *regexp.Regexp
	advice string
}{
	{regexp.MustCompile(`(?i)\b(world[- ]class|best[- ]in[- ]class|cutting[- ]edge|next[- ]gen(eration)?)\b`), "Replace superlatives like \"world-class\" with concrete facts, numbers or examples."},
	{regexp.MustCompile(`(?i)\b(synerg\w*|leverag\w*|paradigm|holistic)\b`), "Swap business jargon for plain words that describe what you actually do."},
	{regexp.MustCompile(`(?i)\b(click here|read more|learn more)\b`), "Use descriptive link text instead of \"click here\" or \"read more\"."},
	{regexp.MustCompile(`(?i)lorem ipsum`), "Remove placeholder (lorem ipsum) text."},
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true,
	"from": true, "your": true, "you": true, "our": true, "are": true, "was": true,
	"have": true, "has": true, "will": true, "can": true, "not": true, "but": true,
	"all": true, "they": true, "their": true, "more": true, "about": true, "into": true,
	"what": true, "when": true, "which": true, "also": true, "been": true, "were": true,
	"yang": true, "dan": true, "untuk": true, "dengan": true, "dari": true, "ini": true,
}

// AnalyzePageContent derives AIO sub-scores from readability, heading
// outline and word distribution of the page.
func AnalyzePageContent(page *audit.PageContent) *audit.AIOReport {
	rep := &audit.AIOReport{LogoURL: page.LogoURL}
	suggestions := make([]string, 0, 8)
	add := func(s string) {
		for _, existing := range suggestions {
			if existing == s {
				return
			}
		}
		suggestions = append(suggestions, s)
	}

	words := wordPattern.FindAllString(strings.ToLower(page.Text), -1)
	sentences := splitSentences(page.Text)

	// clarity
	clarity := 40
	if page.Title != "" {
		clarity += 15
	} else {
		add("Add a descriptive <title> that names the business and its main offer.")
	}
	if page.Description != "" {
		clarity += 15
	} else {
		add("Write a meta description summarizing the page in one or two sentences.")
	}
	switch n := len(words); {
	case n >= 300:
		clarity += 20
	case n >= 100:
		clarity += 10
	default:
		add("Add more explanatory text; thin pages give AI assistants little to cite.")
	}
	if avg := averageSentenceLength(sentences); avg > 25 {
		clarity -= int(math.Min(30, (avg-25)*2))
		add("Shorten long sentences; aim for 15 to 20 words on average.")
	} else if avg > 0 {
		clarity += 10
	}

	// structure
	structure := 30
	h1 := 0
	levels := map[int]bool{}
	skipped := false
	prev := 0
	for _, h := range page.Headings {
		if h.Level == 1 {
			h1++
		}
		levels[h.Level] = true
		if prev > 0 && h.Level > prev+1 {
			skipped = true
		}
		prev = h.Level
	}
	switch {
	case h1 == 1:
		structure += 25
	case h1 == 0:
		add("Add exactly one H1 stating what the page is about.")
	default:
		structure += 10
		add("Use a single H1; demote the others to H2.")
	}
	if levels[2] {
		structure += 20
	}
	if levels[3] {
		structure += 10
	}
	if len(page.Headings) >= 4 {
		structure += 15
	}
	if skipped {
		structure -= 15
		add("Do not skip heading levels (for example H2 straight to H4).")
	}

	// natural language
	natural := 85
	freq := map[string]int{}
	content := 0
	for _, w := range words {
		if len(w) < 4 || stopWords[w] || isNumber(w) {
			continue
		}
		freq[w]++
		content++
	}
	if content > 0 {
		top := topWords(freq, 1)
		if len(top) == 1 {
			if ratio := float64(freq[top[0]]) / float64(content); ratio > 0.06 {
				natural -= int(math.Min(40, (ratio-0.06)*400))
				add("The word \"" + top[0] + "\" is repeated very often; vary the wording.")
			}
		}
		if diversity := float64(len(freq)) / float64(content); diversity < 0.3 && content > 50 {
			natural -= 15
		}
	}

	lower := strings.ToLower(page.Text)
	for _, d := range fluffDetectors {
		if d.re.FindStringIndex(lower) != nil {
			natural -= 5
			add(d.advice)
		}
	}

	// confusing parts: very long sentences
	confusing := make([]string, 0, 3)
	for _, s := range sentences {
		if len(confusing) == 3 {
			break
		}
		if len(wordPattern.FindAllString(s, -1)) > 40 {
			confusing = append(confusing, trim(s, 120))
		}
	}

	rep.ContentClarity = clamp(clarity)
	rep.LogicalStructure = clamp(structure)
	rep.NaturalLanguage = clamp(natural)
	rep.Score = int(math.Round(float64(rep.ContentClarity+rep.LogicalStructure+rep.NaturalLanguage) / 3))
	rep.Topics = topWords(freq, 5)
	rep.ConfusingParts = confusing
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	rep.Suggestions = suggestions
	return rep
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceSplit.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func averageSentenceLength(sentences []string) float64 {
	if len(sentences) == 0 {
		return 0
	}
	total := 0
	for _, s := range sentences {
		total += len(wordPattern.FindAllString(s, -1))
	}
	return float64(total) / float64(len(sentences))
}

// topWords returns the n most frequent words, ties broken alphabetically.
func topWords(freq map[string]int, n int) []string {
	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func trim(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
