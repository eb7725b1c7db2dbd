package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
)

func TestOverallScore_WeightedAndRounded(t *testing.T) {
	assert.Equal(t, 68.3, OverallScore(82, 55, 70, 50))
	assert.Equal(t, 100.0, OverallScore(100, 100, 100, 100))
	assert.Equal(t, 0.0, OverallScore(0, 0, 0, 0))
	// 0.4*33 + 0.3*67 + 0.2*41 + 0.1*9 = 42.4
	assert.Equal(t, 42.4, OverallScore(33, 67, 41, 9))
}

func TestClassifyOverall_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.OverallStatus
	}{
		{100, domain.StatusHealthy},
		{80, domain.StatusHealthy},
		{79.9, domain.StatusNeedsImprovement},
		{79, domain.StatusNeedsImprovement},
		{60, domain.StatusNeedsImprovement},
		{59.9, domain.StatusCritical},
		{59, domain.StatusCritical},
		{0, domain.StatusCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyOverall(tt.score), "score %v", tt.score)
	}
}

func TestAssemble_Example(t *testing.T) {
	res := Assemble("https://example.com",
		&domain.SEOReport{Score: 82, PerformanceScore: 70, DesktopLoadSeconds: 1.8, MobileLoadSeconds: 3.2, HTTPS: true, MobileFriendly: true},
		&domain.AIOReport{Score: 55, ContentClarity: 50, LogicalStructure: 60, NaturalLanguage: 55, Topics: []string{"bread"}, LogoURL: "https://example.com/logo.png"},
		nil,
	)

	assert.Equal(t, 68.3, res.OverallScore)
	assert.Equal(t, domain.StatusNeedsImprovement, res.OverallStatus)
	assert.True(t, res.SEO.Available)
	assert.True(t, res.AIO.Available)
	assert.False(t, res.Presence.Available)
	assert.Equal(t, DefaultPresenceScore, res.Presence.Score)
	assert.Equal(t, domain.LoadTimes{Desktop: 1.8, Mobile: 3.2}, res.SEO.LoadTimes)
	assert.Equal(t, []string{"bread"}, res.AIO.TopicsDetected)
	assert.Equal(t, "https://example.com/logo.png", res.LogoURL)
	assert.Contains(t, res.Recommendations, "Fine-tune performance to reach a score of 90 or more.")
	assert.Contains(t, res.Recommendations, "State the main offer and audience in the first paragraph so AI assistants can summarize it.")
}

func TestAssemble_Fallbacks(t *testing.T) {
	res := Assemble("https://example.com", nil, nil, nil)

	assert.False(t, res.SEO.Available)
	assert.False(t, res.AIO.Available)
	assert.Equal(t, DefaultPerformanceScore, res.SEO.PerformanceScore)
	assert.Equal(t, domain.LoadTimes{Desktop: DefaultDesktopLoadSeconds, Mobile: DefaultMobileLoadSeconds}, res.SEO.LoadTimes)
	assert.Equal(t, domain.CoreWebVitals{}, res.SEO.Vitals)
	assert.NotNil(t, res.AIO.TopicsDetected)
	assert.NotNil(t, res.AIO.ConfusingParts)
	assert.NotNil(t, res.Presence.MatchedFields)
	assert.NotNil(t, res.Recommendations)
	// 0.2*50 + 0.1*50
	assert.Equal(t, 15.0, res.OverallScore)
	assert.Equal(t, domain.StatusCritical, res.OverallStatus)
}

func TestAssemble_ZeroLoadTimesFallBack(t *testing.T) {
	res := Assemble("u", &domain.SEOReport{Score: 90, PerformanceScore: 90}, nil, nil)
	assert.Equal(t, DefaultDesktopLoadSeconds, res.SEO.LoadTimes.Desktop)
	assert.Equal(t, DefaultMobileLoadSeconds, res.SEO.LoadTimes.Mobile)
}

func TestAssemble_ClampsScores(t *testing.T) {
	res := Assemble("u", &domain.SEOReport{Score: 140, PerformanceScore: -5}, &domain.AIOReport{Score: 101}, &domain.PresenceReport{Found: true, Score: 300})
	assert.Equal(t, 100, res.SEO.Score)
	assert.Equal(t, 0, res.SEO.PerformanceScore)
	assert.Equal(t, 100, res.AIO.Score)
	assert.Equal(t, 100, res.Presence.Score)
}

func TestAssemble_DeterministicAndDeduplicated(t *testing.T) {
	seo := &domain.SEOReport{Score: 40, PerformanceScore: 30, Suggestions: []string{"Fix failing audit: Render-blocking resources", "fix failing audit: render-blocking resources"}}
	aio := &domain.AIOReport{Score: 30, Suggestions: []string{"Add an FAQ section", " "}}
	pres := &domain.PresenceReport{Found: false, MatchedFields: nil}

	first := Assemble("u", seo, aio, pres)
	second := Assemble("u", seo, aio, pres)
	assert.Equal(t, first, second)

	count := 0
	for _, r := range first.Recommendations {
		if r == "Fix failing audit: Render-blocking resources" {
			count++
		}
		assert.NotEmpty(t, r)
	}
	assert.Equal(t, 1, count)
	assert.Contains(t, first.Recommendations, "Create or claim a listing in local business directories.")
	assert.Contains(t, first.Recommendations, "Add an FAQ section")
}

func TestAssemble_DoesNotAliasInputs(t *testing.T) {
	topics := []string{"a", "b"}
	res := Assemble("u", nil, &domain.AIOReport{Score: 50, Topics: topics}, nil)
	topics[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, res.AIO.TopicsDetected)
}
