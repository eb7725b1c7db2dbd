package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/bryanwahyu/seo-aio-audit/internal/domain/audit"
)

func printUpdate(w io.Writer, u audit.Update) {
	res := u.Result
	switch {
	case u.FromCache:
		fmt.Fprintln(w, "== cached result ==")
	case u.Final:
		fmt.Fprintln(w, "== final result ==")
	default:
		fmt.Fprintln(w, "== partial result (remaining analyses still running) ==")
	}

	fmt.Fprintf(w, "URL:       %s\n", res.URL)
	fmt.Fprintf(w, "Overall:   %.1f (%s)\n", res.OverallScore, res.OverallStatus)

	if res.SEO.Available {
		fmt.Fprintf(w, "SEO:       %d  performance %d  load desktop %.1fs / mobile %.1fs\n",
			res.SEO.Score, res.SEO.PerformanceScore, res.SEO.LoadTimes.Desktop, res.SEO.LoadTimes.Mobile)
	} else {
		fmt.Fprintln(w, "SEO:       unavailable")
	}
	if res.AIO.Available {
		fmt.Fprintf(w, "AIO:       %d  clarity %d  structure %d  language %d\n",
			res.AIO.Score, res.AIO.ContentClarity, res.AIO.LogicalStructure, res.AIO.NaturalLanguage)
		if len(res.AIO.TopicsDetected) > 0 {
			fmt.Fprintf(w, "Topics:    %s\n", strings.Join(res.AIO.TopicsDetected, ", "))
		}
	} else {
		fmt.Fprintln(w, "AIO:       unavailable")
	}
	switch {
	case !res.Presence.Available:
	case res.Presence.Found:
		fmt.Fprintf(w, "Presence:  listed (score %d, matched %s)\n", res.Presence.Score, strings.Join(res.Presence.MatchedFields, ", "))
	default:
		fmt.Fprintln(w, "Presence:  no directory listing found")
	}

	if !u.Final {
		fmt.Fprintln(w)
		return
	}

	if failures := res.Failures(); len(failures) > 0 {
		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(w, "\n! Some analyses failed, scores above use fallback values:")
		for _, name := range names {
			fmt.Fprintf(w, "  - %s: %s\n", name, failures[name])
		}
	}

	if len(res.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for i, r := range res.Recommendations {
			fmt.Fprintf(w, "  %d. %s\n", i+1, r)
		}
	}
	fmt.Fprintln(w)
}

func printRemediation(w io.Writer, err *audit.NoUsableDataError) {
	fmt.Fprintln(w, "No analysis produced usable data.")
	if err.SEOError != "" {
		fmt.Fprintf(w, "  seo: %s\n", err.SEOError)
	}
	if err.AIOError != "" {
		fmt.Fprintf(w, "  aio: %s\n", err.AIOError)
	}
	fmt.Fprintln(w, "\nTry the following:")
	for _, step := range err.Remediation() {
		fmt.Fprintf(w, "  - %s\n", step)
	}
}
