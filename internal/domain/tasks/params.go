package tasks

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Params is the typed configuration of a task. The concrete type decides
// the task kind: PageSpeedParams or DirectorySearchParams.
type Params interface {
	Kind() Kind
	Validate() error
	// TargetURL is the page the task is about, if any.
	TargetURL() string
	isParams()
}

// PageSpeedParams configures a page-performance task for one platform.
type PageSpeedParams struct {
	URL      string `json:"url"`
	Platform Kind   `json:"platform"`
	UserID   string `json:"userId,omitempty"`
}

// NewPageSpeedParams normalizes rawURL and validates the platform.
func NewPageSpeedParams(rawURL string, platform Kind, userID string) (PageSpeedParams, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return PageSpeedParams{}, err
	}
	p := PageSpeedParams{URL: u, Platform: platform, UserID: userID}
	return p, p.Validate()
}

func (p PageSpeedParams) Kind() Kind        { return p.Platform }
func (p PageSpeedParams) TargetURL() string { return p.URL }
func (PageSpeedParams) isParams()           {}

func (p PageSpeedParams) Validate() error {
	if p.Platform != KindDesktop && p.Platform != KindMobile {
		return fmt.Errorf("%w: platform must be desktop or mobile, got %q", ErrInvalidParams, p.Platform)
	}
	if _, err := NormalizeURL(p.URL); err != nil {
		return err
	}
	return nil
}

// Business holds the structured fields of a directory lookup.
type Business struct {
	Name       string `json:"name"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Website    string `json:"website,omitempty"`
}

// DirectorySearchParams configures a local-business directory lookup.
type DirectorySearchParams struct {
	Business Business `json:"business"`
	UserID   string   `json:"userId,omitempty"`
}

// NewDirectorySearchParams trims every field and validates the result.
func NewDirectorySearchParams(b Business, userID string) (DirectorySearchParams, error) {
	b.Name = strings.TrimSpace(b.Name)
	b.Address = strings.TrimSpace(b.Address)
	b.City = strings.TrimSpace(b.City)
	b.PostalCode = strings.TrimSpace(b.PostalCode)
	b.Phone = strings.TrimSpace(b.Phone)
	b.Website = strings.TrimSpace(b.Website)
	if b.Website != "" {
		u, err := NormalizeURL(b.Website)
		if err != nil {
			return DirectorySearchParams{}, err
		}
		b.Website = u
	}
	p := DirectorySearchParams{Business: b, UserID: userID}
	return p, p.Validate()
}

func (DirectorySearchParams) Kind() Kind          { return KindDirectorySearch }
func (p DirectorySearchParams) TargetURL() string { return p.Business.Website }
func (DirectorySearchParams) isParams()           {}

func (p DirectorySearchParams) Validate() error {
	if p.Business.Name == "" {
		return fmt.Errorf("%w: business name is required", ErrInvalidParams)
	}
	return nil
}

// CreateRequest is the wire body of the create endpoint.
type CreateRequest struct {
	URL      string    `json:"url,omitempty"`
	Platform Kind      `json:"platform,omitempty"`
	TaskKind Kind      `json:"taskKind,omitempty"`
	UserID   string    `json:"userId,omitempty"`
	Business *Business `json:"business,omitempty"`
}

// EncodeParams converts typed params into the wire request.
func EncodeParams(p Params) CreateRequest {
	switch v := p.(type) {
	case PageSpeedParams:
		return CreateRequest{URL: v.URL, Platform: v.Platform, UserID: v.UserID}
	case DirectorySearchParams:
		b := v.Business
		return CreateRequest{TaskKind: KindDirectorySearch, UserID: v.UserID, Business: &b}
	}
	return CreateRequest{}
}

// Params validates the wire request and returns the typed variant.
func (r CreateRequest) Params() (Params, error) {
	kind := r.TaskKind
	if kind == "" {
		kind = r.Platform
	}
	switch kind {
	case KindDesktop, KindMobile:
		return NewPageSpeedParams(r.URL, kind, r.UserID)
	case KindDirectorySearch:
		if r.Business == nil {
			return nil, fmt.Errorf("%w: business is required for %s", ErrInvalidParams, kind)
		}
		return NewDirectorySearchParams(*r.Business, r.UserID)
	case "":
		return nil, fmt.Errorf("%w: platform or taskKind is required", ErrInvalidParams)
	default:
		return nil, fmt.Errorf("%w: unknown task kind %q", ErrInvalidParams, kind)
	}
}

// DecodeParams restores params persisted alongside a task.
func DecodeParams(kind Kind, raw json.RawMessage) (Params, error) {
	switch kind {
	case KindDesktop, KindMobile:
		var p PageSpeedParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		return p, p.Validate()
	case KindDirectorySearch:
		var p DirectorySearchParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		return p, p.Validate()
	}
	return nil, fmt.Errorf("%w: unknown task kind %q", ErrInvalidParams, kind)
}

// NormalizeURL trims raw, infers https:// when the scheme is missing and
// requires an http(s) URL with a host.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: url is required", ErrInvalidParams)
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidParams, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: url has no host", ErrInvalidParams)
	}
	return u.String(), nil
}
