package audit

import "context"

// SEOSource produces page-performance / technical SEO metrics.
type SEOSource interface {
	AnalyzeSEO(ctx context.Context, url string) (*SEOReport, error)
}

// AIOSource produces AI-optimization content metrics.
type AIOSource interface {
	AnalyzeAIO(ctx context.Context, url string) (*AIOReport, error)
}

// PresenceSource looks the site up in a local-business directory.
type PresenceSource interface {
	LookupPresence(ctx context.Context, url string) (*PresenceReport, error)
}

// PageReader fetches and extracts the analyzable content of a page.
type PageReader interface {
	Read(ctx context.Context, url string) (*PageContent, error)
}

// KV is the key/value persistence behind the cache store.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
