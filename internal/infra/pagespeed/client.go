package pagespeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
)

// DefaultBaseURL is the PageSpeed Insights v5 endpoint.
const DefaultBaseURL = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

var categories = []string{"performance", "seo", "accessibility", "best-practices"}

// Client runs Lighthouse through PageSpeed Insights. It is the tasks.Runner
// for the desktop and mobile task kinds.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 2 * time.Minute},
	}
}

type psiResponse struct {
	LighthouseResult struct {
		FinalURL   string                 `json:"finalUrl"`
		Categories map[string]psiCategory `json:"categories"`
		Audits     map[string]psiAudit    `json:"audits"`
	} `json:"lighthouseResult"`
	LoadingExperience struct {
		Metrics map[string]struct {
			Percentile float64 `json:"percentile"`
		} `json:"metrics"`
	} `json:"loadingExperience"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type psiCategory struct {
	Score *float64 `json:"score"`
}

type psiAudit struct {
	Title            string   `json:"title"`
	Score            *float64 `json:"score"`
	ScoreDisplayMode string   `json:"scoreDisplayMode"`
	NumericValue     float64  `json:"numericValue"`
}

// Run implements tasks.Runner.
func (c *Client) Run(ctx context.Context, p tasks.Params) (json.RawMessage, error) {
	ps, ok := p.(tasks.PageSpeedParams)
	if !ok {
		return nil, fmt.Errorf("%w: pagespeed runner got %T", tasks.ErrInvalidParams, p)
	}
	m, err := c.Analyze(ctx, ps.URL, ps.Platform)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Analyze fetches the Lighthouse report of target for one platform.
func (c *Client) Analyze(ctx context.Context, target string, platform tasks.Kind) (*audit.PageSpeedMetrics, error) {
	q := url.Values{}
	q.Set("url", target)
	q.Set("strategy", string(platform))
	for _, cat := range categories {
		q.Add("category", cat)
	}
	if c.APIKey != "" {
		q.Set("key", c.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pagespeed request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("pagespeed read: %w", err)
	}

	var out psiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("pagespeed decode (status %d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("pagespeed error %d: %s", out.Error.Code, out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pagespeed status %d", resp.StatusCode)
	}
	return metricsFrom(&out, target, platform), nil
}

func metricsFrom(r *psiResponse, target string, platform tasks.Kind) *audit.PageSpeedMetrics {
	lh := r.LighthouseResult
	audits := lh.Audits
	num := func(id string) float64 { return audits[id].NumericValue }

	m := &audit.PageSpeedMetrics{
		Platform:           string(platform),
		PerformanceScore:   categoryScore(lh.Categories["performance"]),
		SEOScore:           categoryScore(lh.Categories["seo"]),
		AccessibilityScore: categoryScore(lh.Categories["accessibility"]),
		BestPracticesScore: categoryScore(lh.Categories["best-practices"]),
		Vitals: audit.CoreWebVitals{
			LCP:  num("largest-contentful-paint"),
			CLS:  num("cumulative-layout-shift"),
			FCP:  num("first-contentful-paint"),
			TTFB: num("server-response-time"),
		},
	}

	// INP is a field metric only; lab runs have no interaction
	if inp, ok := r.LoadingExperience.Metrics["INTERACTION_TO_NEXT_PAINT"]; ok {
		m.Vitals.INP = inp.Percentile
	}

	loadMs := num("interactive")
	if loadMs == 0 {
		loadMs = num("speed-index")
	}
	m.LoadTimeSeconds = math.Round(loadMs/100) / 10

	if a, ok := audits["is-on-https"]; ok && a.Score != nil {
		m.HTTPS = *a.Score == 1
	} else {
		final := lh.FinalURL
		if final == "" {
			final = target
		}
		m.HTTPS = strings.HasPrefix(final, "https://")
	}

	ids := make([]string, 0, len(audits))
	for id, a := range audits {
		if a.Score == nil || *a.Score >= 0.9 {
			continue
		}
		if a.ScoreDisplayMode != "binary" && a.ScoreDisplayMode != "numeric" && a.ScoreDisplayMode != "metricSavings" {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		title := audits[id].Title
		if title == "" {
			title = id
		}
		m.FailedAudits = append(m.FailedAudits, title)
	}
	return m
}

func categoryScore(c psiCategory) int {
	if c.Score == nil {
		return 0
	}
	return int(math.Round(*c.Score * 100))
}
