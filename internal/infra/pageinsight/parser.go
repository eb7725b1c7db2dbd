package pageinsight

import (
	"errors"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
)

// skipped elements never contribute to the page text
var skipped = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "svg": true, "iframe": true,
}

// Parse performs a single-pass traversal of the HTML body and extracts
// what the content analyzers need: title, description, language, heading
// outline, visible text and a logo candidate.
func Parse(body io.Reader, baseURL *url.URL) (*audit.PageContent, error) {
	page := &audit.PageContent{URL: baseURL.String(), Headings: []audit.Heading{}}

	z := html.NewTokenizer(body)
	var (
		text       strings.Builder
		heading    strings.Builder
		inTitle    bool
		headingLvl int
		skipDepth  int
		ogDesc     string
		ogImage    string
		icon       string
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if !errors.Is(z.Err(), io.EOF) {
				return nil, z.Err()
			}
			if page.Description == "" {
				page.Description = ogDesc
			}
			page.LogoURL = resolve(baseURL, firstNonEmpty(ogImage, icon))
			page.Text = collapse(text.String())
			page.WordCount = len(strings.Fields(page.Text))
			return page, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := z.TagName()
			tag := string(tn)
			var attrs map[string]string
			if hasAttr {
				attrs = readAttrs(z)
			}

			switch {
			case skipped[tag]:
				if tt == html.StartTagToken {
					skipDepth++
				}
			case tag == "html":
				page.Lang = strings.TrimSpace(attrs["lang"])
			case tag == "title":
				inTitle = true
			case headingLevel(tag) > 0:
				headingLvl = headingLevel(tag)
				heading.Reset()
			case tag == "meta":
				name := strings.ToLower(firstNonEmpty(attrs["name"], attrs["property"]))
				switch name {
				case "description":
					page.Description = strings.TrimSpace(attrs["content"])
				case "og:description":
					ogDesc = strings.TrimSpace(attrs["content"])
				case "og:image":
					ogImage = strings.TrimSpace(attrs["content"])
				}
			case tag == "link":
				rel := strings.ToLower(attrs["rel"])
				if icon == "" && strings.Contains(rel, "icon") {
					icon = strings.TrimSpace(attrs["href"])
				}
			case isBlock(tag):
				text.WriteByte(' ')
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			t := string(z.Text())
			switch {
			case inTitle:
				page.Title = collapse(t)
				inTitle = false
			default:
				if headingLvl > 0 {
					heading.WriteString(t)
				}
				text.WriteString(t)
			}

		case html.EndTagToken:
			tn, _ := z.TagName()
			tag := string(tn)
			switch {
			case skipped[tag]:
				if skipDepth > 0 {
					skipDepth--
				}
			case tag == "title":
				inTitle = false
			case headingLevel(tag) > 0 && headingLvl > 0:
				if h := collapse(heading.String()); h != "" {
					page.Headings = append(page.Headings, audit.Heading{Level: headingLvl, Text: h})
				}
				headingLvl = 0
				text.WriteString(". ")
			case isBlock(tag):
				text.WriteByte(' ')
			}
		}
	}
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "li", "br", "tr", "td", "header", "footer", "main", "nav", "aside":
		return true
	}
	return false
}

func readAttrs(z *html.Tokenizer) map[string]string {
	attrs := map[string]string{}
	for {
		key, val, more := z.TagAttr()
		attrs[strings.ToLower(string(key))] = string(val)
		if !more {
			return attrs
		}
	}
}

func resolve(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
