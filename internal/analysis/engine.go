// Package analysis turns a fetched page plus a user description into a
// structured scraping analysis via the LLM.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/SameerVers3/Scrapply/internal/fetch"
	"github.com/SameerVers3/Scrapply/internal/llm"
	"github.com/SameerVers3/Scrapply/internal/prompts"
	"github.com/SameerVers3/Scrapply/internal/types"
)

const (
	htmlSampleSize = 2000
	textSampleSize = 1000

	defaultBrowserTimeout = 45 * time.Second
)

// AccessError wraps failures reaching or reading the target site.
type AccessError struct {
	URL string
	Err error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("cannot access %s: %v", e.URL, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// Engine performs website analysis. It fetches the target, falls back to a
// headless browser when the static HTML looks like an empty SPA shell, and
// asks the LLM for selectors, schema and a confidence score.
type Engine struct {
	client         llm.Client
	fetchOpts      *fetch.Options
	browserTimeout time.Duration
}

// Result is the outcome of Analyze. UsedBrowser records whether the page
// needed headless rendering, which forces the dynamic strategy downstream.
type Result struct {
	Analysis    *types.Analysis
	UsedBrowser bool
}

// NewEngine builds an Engine with the given LLM client and fetch options.
// A nil opts uses the fetch defaults.
func NewEngine(client llm.Client, opts *fetch.Options) *Engine {
	return &Engine{
		client:         client,
		fetchOpts:      opts,
		browserTimeout: defaultBrowserTimeout,
	}
}

// Analyze fetches url, samples its content and asks the LLM to characterize
// the site for scraping. Fetch failures return an *AccessError. An LLM
// response that cannot be parsed degrades to a low-confidence static analysis
// rather than failing the job.
func (e *Engine) Analyze(ctx context.Context, url, description string) (*Result, error) {
	res, err := fetch.URL(ctx, url, e.fetchOpts)
	if err != nil {
		return nil, &AccessError{URL: url, Err: err}
	}

	html := res.HTML
	text, terr := fetch.ExtractMainText(html, nil)
	if terr != nil {
		text = ""
	}
	usedBrowser := false

	if fetch.ShouldUseBrowser(text) {
		log.Printf("[ANALYSIS] static content thin for %s, rendering with browser", url)
		rendered, berr := fetch.WithBrowser(ctx, url, e.browserTimeout)
		if berr != nil {
			log.Printf("[ANALYSIS] browser render failed for %s: %v", url, berr)
		} else {
			html = rendered
			if text, terr = fetch.ExtractMainText(html, nil); terr != nil {
				text = ""
			}
			usedBrowser = true
		}
	}

	if strings.TrimSpace(text) == "" && strings.TrimSpace(html) == "" {
		return nil, &AccessError{URL: url, Err: fmt.Errorf("empty response body")}
	}

	signals := DetectDynamicSignals(html)

	tmpl, err := prompts.Get("analysis.json", "analyze-website")
	if err != nil {
		return nil, fmt.Errorf("loading analysis prompt: %w", err)
	}
	prompt := prompts.Format(tmpl, map[string]string{
		"URL":         url,
		"Description": description,
		"HTMLSample":  sample(html, htmlSampleSize),
		"TextSample":  sample(text, textSampleSize),
		"Signals":     strings.Join(signals, ", "),
	})

	raw, err := e.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, fmt.Errorf("analysis generation: %w", err)
	}

	analysis := parseAnalysis(raw, signals)
	analysis.DynamicSignals = signals
	if usedBrowser {
		analysis.Approach = "dynamic"
	}

	return &Result{Analysis: analysis, UsedBrowser: usedBrowser}, nil
}

// parseAnalysis decodes the LLM response. Unparseable output yields a
// conservative low-confidence analysis so the pipeline can still attempt a
// static scraper.
func parseAnalysis(raw string, signals []string) *types.Analysis {
	var analysis types.Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		log.Printf("[ANALYSIS] unparseable LLM response, falling back to low confidence: %v", err)
		return fallbackAnalysis(signals)
	}
	if analysis.Confidence < 0 {
		analysis.Confidence = 0
	}
	if analysis.Confidence > 1 {
		analysis.Confidence = 1
	}
	if analysis.Approach == "" {
		analysis.Approach = "static"
	}
	return &analysis
}

func fallbackAnalysis(signals []string) *types.Analysis {
	approach := "static"
	if len(signals) > 0 {
		approach = "dynamic"
	}
	return &types.Analysis{
		SiteType:   "unknown",
		Selectors:  map[string]string{},
		Schema:     map[string]string{},
		Challenges: []string{"analysis response could not be parsed"},
		Confidence: 0.3,
		Approach:   approach,
	}
}

func sample(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
