package middleware

import (
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"regexp"
	"strings"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/tasks"
)

// Input validation and sanitization utilities

// ValidateURL normalizes an audit target and refuses obvious internal
// hosts. DNS names are checked again at dial time by the page fetcher.
func ValidateURL(rawURL string) (string, error) {
	normalized, err := tasks.NormalizeURL(SanitizeString(rawURL))
	if err != nil {
		return "", err
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %v", tasks.ErrInvalidParams, err)
	}

	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".internal") {
		return "", fmt.Errorf("%w: localhost/internal hosts are not allowed", tasks.ErrInvalidParams)
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		addr = addr.Unmap()
		if !addr.IsGlobalUnicast() || addr.IsPrivate() {
			return "", fmt.Errorf("%w: private IP ranges are not allowed", tasks.ErrInvalidParams)
		}
	}
	if u.Port() != "" {
		if _, _, err := net.SplitHostPort(u.Host); err != nil {
			return "", fmt.Errorf("%w: invalid port", tasks.ErrInvalidParams)
		}
	}
	return normalized, nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

var (
	taskIDPattern    = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}-(desktop|mobile|directory_search)$`)
	sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
)

// ValidateTaskID checks the uuid-kind format of task IDs.
func ValidateTaskID(taskID string) error {
	if taskID == "" {
		return fmt.Errorf("%w: taskId cannot be empty", tasks.ErrInvalidParams)
	}
	if !taskIDPattern.MatchString(taskID) {
		return fmt.Errorf("%w: invalid taskId format", tasks.ErrInvalidParams)
	}
	return nil
}

// ValidateSessionID validates the X-Session-ID header value.
func ValidateSessionID(id string) error {
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("%w: invalid session id (alphanumeric, dash, underscore only, max 64 chars)", tasks.ErrInvalidParams)
	}
	return nil
}
