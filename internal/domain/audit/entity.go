package audit

// OverallStatus classifies the weighted overall score.
type OverallStatus string

const (
	StatusHealthy          OverallStatus = "healthy"
	StatusNeedsImprovement OverallStatus = "needs_improvement"
	StatusCritical         OverallStatus = "critical"
)

// CoreWebVitals in milliseconds, except CLS which is unitless.
type CoreWebVitals struct {
	LCP  float64 `json:"lcpMs"`
	INP  float64 `json:"inpMs"`
	CLS  float64 `json:"cls"`
	FCP  float64 `json:"fcpMs"`
	TTFB float64 `json:"ttfbMs"`
}

// PageSpeedMetrics is the results payload of a desktop or mobile task.
type PageSpeedMetrics struct {
	Platform           string        `json:"platform"`
	PerformanceScore   int           `json:"performanceScore"`
	SEOScore           int           `json:"seoScore"`
	AccessibilityScore int           `json:"accessibilityScore"`
	BestPracticesScore int           `json:"bestPracticesScore"`
	LoadTimeSeconds    float64       `json:"loadTimeSeconds"`
	Vitals             CoreWebVitals `json:"vitals"`
	HTTPS              bool          `json:"https"`
	FailedAudits       []string      `json:"failedAudits,omitempty"`
}

// DirectoryMatch is the results payload of a directory_search task.
type DirectoryMatch struct {
	Found         bool     `json:"found"`
	Name          string   `json:"name,omitempty"`
	Address       string   `json:"address,omitempty"`
	Phone         string   `json:"phone,omitempty"`
	Website       string   `json:"website,omitempty"`
	MatchedFields []string `json:"matchedFields,omitempty"`
}

// SEOReport is what an SEO source returns.
type SEOReport struct {
	Score              int
	PerformanceScore   int
	AccessibilityScore int
	BestPracticesScore int
	DesktopLoadSeconds float64
	MobileLoadSeconds  float64
	Vitals             CoreWebVitals
	MobileFriendly     bool
	HTTPS              bool
	Suggestions        []string
}

// AIOReport is what an AIO (content) source returns.
type AIOReport struct {
	Score            int
	ContentClarity   int
	LogicalStructure int
	NaturalLanguage  int
	Topics           []string
	ConfusingParts   []string
	Suggestions      []string
	LogoURL          string
}

// PresenceReport is what the external-presence source returns.
type PresenceReport struct {
	Found         bool
	Score         int
	MatchedFields []string
}

// Heading is one h1-h6 element, in document order.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// PageContent is the extracted, analyzable text of a page.
type PageContent struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Lang        string    `json:"lang,omitempty"`
	Headings    []Heading `json:"headings"`
	Text        string    `json:"text"`
	WordCount   int       `json:"wordCount"`
	LogoURL     string    `json:"logoUrl,omitempty"`
}

// LoadTimes in seconds.
type LoadTimes struct {
	Desktop float64 `json:"desktop"`
	Mobile  float64 `json:"mobile"`
}

// SEOSummary is the SEO half of a composite result. Available is false
// when the SEO source failed and every field holds its fallback value.
type SEOSummary struct {
	Available          bool          `json:"available"`
	Score              int           `json:"score"`
	PerformanceScore   int           `json:"performanceScore"`
	AccessibilityScore int           `json:"accessibilityScore"`
	BestPracticesScore int           `json:"bestPracticesScore"`
	LoadTimes          LoadTimes     `json:"loadTimes"`
	Vitals             CoreWebVitals `json:"coreWebVitals"`
	MobileFriendly     bool          `json:"mobileFriendly"`
	HTTPS              bool          `json:"https"`
}

// AIOSummary is the AI-optimization half of a composite result.
type AIOSummary struct {
	Available        bool     `json:"available"`
	Score            int      `json:"score"`
	ContentClarity   int      `json:"contentClarity"`
	LogicalStructure int      `json:"logicalStructure"`
	NaturalLanguage  int      `json:"naturalLanguage"`
	TopicsDetected   []string `json:"topicsDetected"`
	ConfusingParts   []string `json:"confusingParts"`
}

// PresenceSummary is the directory/external-presence part of a result.
type PresenceSummary struct {
	Available     bool     `json:"available"`
	Found         bool     `json:"found"`
	Score         int      `json:"score"`
	MatchedFields []string `json:"matchedFields"`
}

// AnalysisResult is the composite, client-assembled audit of one URL.
type AnalysisResult struct {
	URL             string          `json:"url"`
	LogoURL         string          `json:"logoUrl,omitempty"`
	SEO             SEOSummary      `json:"seo"`
	AIO             AIOSummary      `json:"aio"`
	Presence        PresenceSummary `json:"presence"`
	OverallScore    float64         `json:"overallScore"`
	OverallStatus   OverallStatus   `json:"overallStatus"`
	Recommendations []string        `json:"recommendations"`
	SEOError        string          `json:"seoError,omitempty"`
	AIOError        string          `json:"aioError,omitempty"`
	PresenceError   string          `json:"presenceError,omitempty"`
	Partial         bool            `json:"partial"`
}

// Failures lists the sub-analyses that failed, for a partial-failure banner.
func (r *AnalysisResult) Failures() map[string]string {
	out := map[string]string{}
	if r.SEOError != "" {
		out["seo"] = r.SEOError
	}
	if r.AIOError != "" {
		out["aio"] = r.AIOError
	}
	if r.PresenceError != "" {
		out["presence"] = r.PresenceError
	}
	return out
}

// Update is one emission of an orchestrator run.
type Update struct {
	Result    AnalysisResult `json:"result"`
	Final     bool           `json:"final"`
	FromCache bool           `json:"fromCache,omitempty"`
}
