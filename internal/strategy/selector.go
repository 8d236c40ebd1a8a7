// Package strategy decides the fetch approach for a job based on its analysis.
package strategy

import (
	"github.com/SameerVers3/Scrapply/internal/types"
)

// Strategy is the fetch approach used by generated scrapers.
type Strategy string

const (
	// Static fetches raw HTML over HTTP and parses it.
	Static Strategy = "static"
	// Dynamic drives a headless browser so client-side rendering completes.
	Dynamic Strategy = "dynamic"
	// Hybrid tries static first and falls back to dynamic inside the same
	// testing stage when static extraction comes back empty.
	Hybrid Strategy = "hybrid"
)

// Thresholds holds the confidence cut points for strategy selection.
type Thresholds struct {
	Dynamic float64 // above this: dynamic
	Hybrid  float64 // above this (up to Dynamic): hybrid
}

// DefaultThresholds returns the standard cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{Dynamic: 0.7, Hybrid: 0.3}
}

// Selector maps an analysis confidence score to a strategy. It is a pure
// function of its thresholds; all inputs arrive per call.
type Selector struct {
	thresholds Thresholds
}

// NewSelector creates a selector with the given thresholds.
func NewSelector(t Thresholds) *Selector {
	return &Selector{thresholds: t}
}

// Select returns the strategy for an analysis. forceDynamic short-circuits the
// thresholds when a browser render was already needed to sample the page.
func (s *Selector) Select(analysis *types.Analysis, forceDynamic bool) Strategy {
	if forceDynamic {
		return Dynamic
	}
	confidence := 0.0
	if analysis != nil {
		confidence = analysis.Confidence
	}

	switch {
	case confidence > s.thresholds.Dynamic:
		return Dynamic
	case confidence > s.thresholds.Hybrid:
		return Hybrid
	default:
		return Static
	}
}

// ShouldFallbackToDynamic reports whether a hybrid job's static attempt should
// be retried with a browser-backed scraper. This fallback is strategy-internal:
// it does not consume the refinement budget.
func (s *Selector) ShouldFallbackToDynamic(succeeded bool, data []any, analysis *types.Analysis) bool {
	if !succeeded {
		return true
	}
	if len(data) == 0 {
		return true
	}
	// Very few, very thin items usually mean the real content renders client-side.
	if len(data) < 3 && allThin(data) {
		return true
	}
	if analysis != nil && analysis.Confidence > 0.6 {
		return true
	}
	return false
}

func allThin(data []any) bool {
	for _, item := range data {
		switch v := item.(type) {
		case string:
			if len(v) >= 50 {
				return false
			}
		case map[string]any:
			total := 0
			for _, fv := range v {
				if s, ok := fv.(string); ok {
					total += len(s)
				}
			}
			if total >= 50 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
