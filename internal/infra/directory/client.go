package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
	"github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
)

// DefaultBaseURL is the Google Places web service root.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// Client looks businesses up in the Places directory. It is the
// tasks.Runner for directory_search tasks.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type findResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Candidates   []struct {
		PlaceID          string `json:"place_id"`
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"candidates"`
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		FormattedPhoneNumber string `json:"formatted_phone_number"`
		InternationalPhone   string `json:"international_phone_number"`
		Website              string `json:"website"`
	} `json:"result"`
}

// Run implements tasks.Runner.
func (c *Client) Run(ctx context.Context, p tasks.Params) (json.RawMessage, error) {
	ds, ok := p.(tasks.DirectorySearchParams)
	if !ok {
		return nil, fmt.Errorf("%w: directory runner got %T", tasks.ErrInvalidParams, p)
	}
	m, err := c.Lookup(ctx, ds.Business)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Lookup searches the business by name and location and compares the best
// candidate field by field.
func (c *Client) Lookup(ctx context.Context, b tasks.Business) (*audit.DirectoryMatch, error) {
	q := url.Values{}
	q.Set("input", strings.Join(nonEmpty(b.Name, b.Address, b.City, b.PostalCode), " "))
	q.Set("inputtype", "textquery")
	q.Set("fields", "place_id,name,formatted_address")
	q.Set("key", c.APIKey)

	var found findResponse
	if err := c.get(ctx, "/findplacefromtext/json", q, &found); err != nil {
		return nil, err
	}
	switch found.Status {
	case "OK":
	case "ZERO_RESULTS":
		return &audit.DirectoryMatch{Found: false}, nil
	default:
		return nil, fmt.Errorf("directory search: %s %s", found.Status, found.ErrorMessage)
	}
	if len(found.Candidates) == 0 {
		return &audit.DirectoryMatch{Found: false}, nil
	}

	cand := found.Candidates[0]
	m := &audit.DirectoryMatch{Found: true, Name: cand.Name, Address: cand.FormattedAddress}

	if cand.PlaceID != "" {
		dq := url.Values{}
		dq.Set("place_id", cand.PlaceID)
		dq.Set("fields", "formatted_phone_number,international_phone_number,website")
		dq.Set("key", c.APIKey)
		var details detailsResponse
		if err := c.get(ctx, "/details/json", dq, &details); err != nil {
			return nil, err
		}
		if details.Status == "OK" {
			m.Phone = firstNonEmpty(details.Result.InternationalPhone, details.Result.FormattedPhoneNumber)
			m.Website = details.Result.Website
		}
	}

	m.MatchedFields = matchFields(b, m)
	return m, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.BaseURL, "/")+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("directory status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("directory decode: %w", err)
	}
	return nil
}

// matchFields lists which submitted fields agree with the listing, in a
// fixed order: name, address, phone, website.
func matchFields(b tasks.Business, m *audit.DirectoryMatch) []string {
	out := []string{}
	if b.Name != "" && containsEither(normalize(b.Name), normalize(m.Name)) {
		out = append(out, "name")
	}
	addr := normalize(m.Address)
	for _, part := range nonEmpty(b.Address, b.City, b.PostalCode) {
		if strings.Contains(addr, normalize(part)) {
			out = append(out, "address")
			break
		}
	}
	if p1, p2 := digits(b.Phone), digits(m.Phone); len(p1) >= 6 && len(p2) >= 6 && containsEither(p1, p2) {
		out = append(out, "phone")
	}
	if h1, h2 := host(b.Website), host(m.Website); h1 != "" && h1 == h2 {
		out = append(out, "website")
	}
	return out
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// containsEither handles local phone numbers against international ones
// and short names against full listing names.
func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	// drop a leading trunk zero so 0812... matches +62 812...
	return strings.TrimPrefix(b.String(), "0")
}

func host(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
