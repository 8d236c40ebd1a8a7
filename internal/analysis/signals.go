// Package analysis - signals.go detects client-side rendering markers in raw HTML.
package analysis

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// frameworkMarkers maps a signal name to substrings that betray the framework
// in page source. Matching is done on the raw HTML, scripts included.
var frameworkMarkers = map[string][]string{
	"react":   {"data-reactroot", "__REACT_DEVTOOLS", "react.production.min.js", "react-dom"},
	"next.js": {"__NEXT_DATA__", "_next/static"},
	"vue":     {"data-v-app", "vue.runtime", "vue.min.js", "__VUE__"},
	"nuxt":    {"__NUXT__", "_nuxt/"},
	"angular": {"ng-version", "ng-app", "angular.min.js"},
	"svelte":  {"svelte-", "__SVELTE"},
}

var loadingMarkers = map[string][]string{
	"infinite-scroll": {"infinite-scroll", "infinitescroll", "IntersectionObserver"},
	"load-more":       {"load-more", "loadMore", "show-more"},
	"spinner":         {"loading-spinner", "skeleton-loader", "placeholder-glow"},
}

// DetectDynamicSignals inspects HTML for JavaScript frameworks, SPA mount
// points and dynamic-loading patterns. The returned names feed the analysis
// prompt and the strategy decision.
func DetectDynamicSignals(html string) []string {
	var signals []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			signals = append(signals, name)
		}
	}

	for name, markers := range frameworkMarkers {
		for _, marker := range markers {
			if strings.Contains(html, marker) {
				add(name)
				break
			}
		}
	}
	for name, markers := range loadingMarkers {
		for _, marker := range markers {
			if strings.Contains(html, marker) {
				add(name)
				break
			}
		}
	}

	// An empty mount-point div plus heavy scripting is the classic SPA shell.
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		root := doc.Find("#root, #app, #__next")
		if root.Length() > 0 && len(strings.TrimSpace(root.First().Text())) == 0 {
			add("empty-mount-point")
		}
	}

	return signals
}
