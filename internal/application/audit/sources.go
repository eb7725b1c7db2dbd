package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	apptasks "github.com/bryanwahyu/seo-aio-audit/internal/application/tasks"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/ai"
	domain "github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
)

// maxAuditSuggestions caps how many failed PageSpeed audits become suggestions.
const maxAuditSuggestions = 5

// TaskSEOSource runs desktop and mobile PageSpeed tasks through the task
// API and merges them into one SEO report.
type TaskSEOSource struct {
	Tasks  tasks.Submitter
	Poller *apptasks.Poller
	UserID string
}

// AnalyzeSEO fails only when both platforms fail.
func (s *TaskSEOSource) AnalyzeSEO(ctx context.Context, target string) (*domain.SEOReport, error) {
	var (
		desktop, mobile       *domain.PageSpeedMetrics
		desktopErr, mobileErr error
		g                     errgroup.Group
	)
	// plain Group: one failed platform must not cancel the other
	g.Go(func() error {
		desktop, desktopErr = s.runPlatform(ctx, target, tasks.KindDesktop)
		return desktopErr
	})
	g.Go(func() error {
		mobile, mobileErr = s.runPlatform(ctx, target, tasks.KindMobile)
		return mobileErr
	})
	if err := g.Wait(); err == nil {
		return seoReportFromMetrics(target, desktop, mobile), nil
	}

	if desktop == nil && mobile == nil {
		return nil, errors.Join(desktopErr, mobileErr)
	}
	return seoReportFromMetrics(target, desktop, mobile), nil
}

func (s *TaskSEOSource) runPlatform(ctx context.Context, target string, platform tasks.Kind) (*domain.PageSpeedMetrics, error) {
	params, err := tasks.NewPageSpeedParams(target, platform, s.UserID)
	if err != nil {
		return nil, err
	}
	id, err := s.Tasks.CreateTask(ctx, params)
	if err != nil {
		return nil, err
	}
	snap, err := s.Poller.PollUntilComplete(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	if snap.Status != tasks.StatusSuccess {
		return nil, fmt.Errorf("%s task %s: %s", platform, id, snap.Message)
	}
	var m domain.PageSpeedMetrics
	if err := json.Unmarshal(snap.Results, &m); err != nil {
		return nil, fmt.Errorf("%s task %s: decode results: %w", platform, id, err)
	}
	return &m, nil
}

// seoReportFromMetrics prefers mobile numbers, falling back to desktop.
// The SEO score blends the Lighthouse SEO category with performance,
// HTTPS and mobile-friendliness.
func seoReportFromMetrics(target string, desktop, mobile *domain.PageSpeedMetrics) *domain.SEOReport {
	primary := mobile
	if primary == nil {
		primary = desktop
	}

	r := &domain.SEOReport{
		PerformanceScore:   primary.PerformanceScore,
		AccessibilityScore: primary.AccessibilityScore,
		BestPracticesScore: primary.BestPracticesScore,
		Vitals:             primary.Vitals,
		HTTPS:              primary.HTTPS || strings.HasPrefix(target, "https://"),
	}
	if desktop != nil {
		r.DesktopLoadSeconds = desktop.LoadTimeSeconds
	}
	if mobile != nil {
		r.MobileLoadSeconds = mobile.LoadTimeSeconds
		r.MobileFriendly = !containsFold(mobile.FailedAudits, "viewport")
	}

	bonus := 0.0
	if r.HTTPS {
		bonus += 10
	}
	if r.MobileFriendly {
		bonus += 10
	}
	r.Score = int(math.Round(0.5*float64(primary.SEOScore) + 0.3*float64(primary.PerformanceScore) + bonus))

	seen := map[string]bool{}
	for _, m := range []*domain.PageSpeedMetrics{mobile, desktop} {
		if m == nil {
			continue
		}
		for _, a := range m.FailedAudits {
			if len(r.Suggestions) == maxAuditSuggestions {
				break
			}
			if a == "" || seen[a] {
				continue
			}
			seen[a] = true
			r.Suggestions = append(r.Suggestions, "Fix failing audit: "+a)
		}
	}
	return r
}

func containsFold(list []string, needle string) bool {
	for _, s := range list {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// ContentAIOSource fetches the page and asks an AI client to score it.
type ContentAIOSource struct {
	Reader   domain.PageReader
	Analyzer ai.Client
}

func (s *ContentAIOSource) AnalyzeAIO(ctx context.Context, target string) (*domain.AIOReport, error) {
	page, err := s.Reader.Read(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	report, err := s.Analyzer.AnalyzeContent(ctx, page)
	if err != nil {
		return nil, err
	}
	if report.LogoURL == "" {
		report.LogoURL = page.LogoURL
	}
	return report, nil
}

// TaskPresenceSource looks the site up through a directory_search task.
type TaskPresenceSource struct {
	Tasks  tasks.Submitter
	Poller *apptasks.Poller
	UserID string
}

func (s *TaskPresenceSource) LookupPresence(ctx context.Context, target string) (*domain.PresenceReport, error) {
	params, err := tasks.NewDirectorySearchParams(tasks.Business{
		Name:    BusinessNameFromURL(target),
		Website: target,
	}, s.UserID)
	if err != nil {
		return nil, err
	}
	id, err := s.Tasks.CreateTask(ctx, params)
	if err != nil {
		return nil, err
	}
	snap, err := s.Poller.PollUntilComplete(ctx, id, nil)
	if err != nil {
		return nil, err
	}
	if snap.Status != tasks.StatusSuccess {
		return nil, fmt.Errorf("directory task %s: %s", id, snap.Message)
	}
	var m domain.DirectoryMatch
	if err := json.Unmarshal(snap.Results, &m); err != nil {
		return nil, fmt.Errorf("directory task %s: decode results: %w", id, err)
	}
	return presenceFromMatch(m), nil
}

func presenceFromMatch(m domain.DirectoryMatch) *domain.PresenceReport {
	if !m.Found {
		return &domain.PresenceReport{MatchedFields: []string{}}
	}
	return &domain.PresenceReport{
		Found:         true,
		Score:         min(100, 60+10*len(m.MatchedFields)),
		MatchedFields: append([]string{}, m.MatchedFields...),
	}
}

// BusinessNameFromURL guesses a business name from the host, e.g.
// "https://www.acme-bakery.com" gives "acme bakery".
func BusinessNameFromURL(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return strings.TrimSpace(target)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	label, _, _ := strings.Cut(host, ".")
	return strings.NewReplacer("-", " ", "_", " ").Replace(label)
}
