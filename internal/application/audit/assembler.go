package audit

import (
	"math"
	"strings"

	domain "github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
)

// Fallbacks used when a source is missing or reports nothing.
const (
	DefaultPerformanceScore   = 50
	DefaultDesktopLoadSeconds = 3.0
	DefaultMobileLoadSeconds  = 5.0
	DefaultPresenceScore      = 50
)

const (
	weightSEO         = 0.4
	weightAIO         = 0.3
	weightPerformance = 0.2
	weightPresence    = 0.1

	healthyThreshold          = 80
	needsImprovementThreshold = 60
)

// Assemble builds the composite result from whichever sources are present.
// It is pure: identical inputs always give identical output, and every
// field is filled with a fallback when its source is nil.
func Assemble(url string, seo *domain.SEOReport, aio *domain.AIOReport, presence *domain.PresenceReport) domain.AnalysisResult {
	res := domain.AnalysisResult{
		URL: url,
		SEO: domain.SEOSummary{
			PerformanceScore: DefaultPerformanceScore,
			LoadTimes: domain.LoadTimes{
				Desktop: DefaultDesktopLoadSeconds,
				Mobile:  DefaultMobileLoadSeconds,
			},
		},
		AIO: domain.AIOSummary{
			TopicsDetected: []string{},
			ConfusingParts: []string{},
		},
		Presence: domain.PresenceSummary{
			Score:         DefaultPresenceScore,
			MatchedFields: []string{},
		},
	}

	if seo != nil {
		res.SEO = domain.SEOSummary{
			Available:          true,
			Score:              clampScore(seo.Score),
			PerformanceScore:   clampScore(seo.PerformanceScore),
			AccessibilityScore: clampScore(seo.AccessibilityScore),
			BestPracticesScore: clampScore(seo.BestPracticesScore),
			LoadTimes: domain.LoadTimes{
				Desktop: orDefault(seo.DesktopLoadSeconds, DefaultDesktopLoadSeconds),
				Mobile:  orDefault(seo.MobileLoadSeconds, DefaultMobileLoadSeconds),
			},
			Vitals:         seo.Vitals,
			MobileFriendly: seo.MobileFriendly,
			HTTPS:          seo.HTTPS,
		}
	}

	if aio != nil {
		res.AIO = domain.AIOSummary{
			Available:        true,
			Score:            clampScore(aio.Score),
			ContentClarity:   clampScore(aio.ContentClarity),
			LogicalStructure: clampScore(aio.LogicalStructure),
			NaturalLanguage:  clampScore(aio.NaturalLanguage),
			TopicsDetected:   cloneStrings(aio.Topics),
			ConfusingParts:   cloneStrings(aio.ConfusingParts),
		}
		res.LogoURL = aio.LogoURL
	}

	if presence != nil {
		res.Presence = domain.PresenceSummary{
			Available:     true,
			Found:         presence.Found,
			Score:         clampScore(presence.Score),
			MatchedFields: cloneStrings(presence.MatchedFields),
		}
	}

	res.OverallScore = OverallScore(res.SEO.Score, res.AIO.Score, res.SEO.PerformanceScore, res.Presence.Score)
	res.OverallStatus = ClassifyOverall(res.OverallScore)
	res.Recommendations = recommendations(res, seo, aio)
	return res
}

// OverallScore is the weighted score, rounded to one decimal.
func OverallScore(seo, aio, performance, presence int) float64 {
	raw := weightSEO*float64(seo) +
		weightAIO*float64(aio) +
		weightPerformance*float64(performance) +
		weightPresence*float64(presence)
	return math.Round(raw*10) / 10
}

// ClassifyOverall buckets an overall score.
func ClassifyOverall(score float64) domain.OverallStatus {
	switch {
	case score >= healthyThreshold:
		return domain.StatusHealthy
	case score >= needsImprovementThreshold:
		return domain.StatusNeedsImprovement
	default:
		return domain.StatusCritical
	}
}

func recommendations(res domain.AnalysisResult, seo *domain.SEOReport, aio *domain.AIOReport) []string {
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		for _, existing := range out {
			if strings.EqualFold(existing, s) {
				return
			}
		}
		out = append(out, s)
	}

	if res.SEO.Available {
		switch perf := res.SEO.PerformanceScore; {
		case perf < 50:
			add("Improve page performance: compress images, defer non-critical JavaScript and enable caching.")
		case perf < 90:
			add("Fine-tune performance to reach a score of 90 or more.")
		}
		v := res.SEO.Vitals
		if v.LCP > 2500 {
			add("Largest Contentful Paint is above 2.5s; optimize the main image and server response time.")
		}
		if v.CLS > 0.1 {
			add("Reserve space for images and embeds to keep Cumulative Layout Shift under 0.1.")
		}
		if v.INP > 200 {
			add("Reduce main-thread work to bring Interaction to Next Paint under 200ms.")
		}
		if !res.SEO.HTTPS {
			add("Serve every page over HTTPS.")
		}
		if !res.SEO.MobileFriendly {
			add("Add a responsive viewport and test the layout on mobile devices.")
		}
		if res.SEO.LoadTimes.Mobile > 4 {
			add("Mobile load time is above 4s; ship less JavaScript to mobile visitors.")
		}
	}

	if res.AIO.Available {
		if res.AIO.ContentClarity < 60 {
			add("State the main offer and audience in the first paragraph so AI assistants can summarize it.")
		}
		if res.AIO.LogicalStructure < 60 {
			add("Use one H1 and a logical H2/H3 hierarchy that mirrors the questions users ask.")
		}
		if res.AIO.NaturalLanguage < 60 {
			add("Rewrite keyword-stuffed passages in natural, conversational language.")
		}
		if len(res.AIO.ConfusingParts) > 0 {
			add("Clarify the passages flagged as confusing.")
		}
	}

	if res.Presence.Available && !res.Presence.Found {
		add("Create or claim a listing in local business directories.")
	}

	if seo != nil {
		for _, s := range seo.Suggestions {
			add(s)
		}
	}
	if aio != nil {
		for _, s := range aio.Suggestions {
			add(s)
		}
	}

	if out == nil {
		out = []string{}
	}
	return out
}

func clampScore(v int) int {
	return max(0, min(100, v))
}

func orDefault(v, fallback float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

func cloneStrings(in []string) []string {
	out := make([]string, 0, len(in))
	return append(out, in...)
}
