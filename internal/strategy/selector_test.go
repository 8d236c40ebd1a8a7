package strategy

import (
	"testing"

	"github.com/SameerVers3/Scrapply/internal/types"
	"github.com/stretchr/testify/assert"
)

func analysisWith(confidence float64) *types.Analysis {
	return &types.Analysis{SiteType: "listing", Confidence: confidence}
}

func TestSelector_Select(t *testing.T) {
	sel := NewSelector(DefaultThresholds())

	tests := []struct {
		name       string
		confidence float64
		force      bool
		want       Strategy
	}{
		{"high confidence picks dynamic", 0.9, false, Dynamic},
		{"boundary stays hybrid", 0.7, false, Hybrid},
		{"middle confidence picks hybrid", 0.5, false, Hybrid},
		{"low boundary stays static", 0.3, false, Static},
		{"low confidence picks static", 0.1, false, Static},
		{"browser rendering forces dynamic", 0.1, true, Dynamic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sel.Select(analysisWith(tt.confidence), tt.force))
		})
	}
}

func TestSelector_Select_NilAnalysis(t *testing.T) {
	sel := NewSelector(DefaultThresholds())
	assert.Equal(t, Static, sel.Select(nil, false))
	assert.Equal(t, Dynamic, sel.Select(nil, true))
}

func TestShouldFallbackToDynamic(t *testing.T) {
	sel := NewSelector(DefaultThresholds())

	t.Run("failed run always falls back", func(t *testing.T) {
		assert.True(t, sel.ShouldFallbackToDynamic(false, nil, analysisWith(0.1)))
	})

	t.Run("empty results fall back", func(t *testing.T) {
		assert.True(t, sel.ShouldFallbackToDynamic(true, []any{}, analysisWith(0.1)))
	})

	t.Run("few thin items fall back", func(t *testing.T) {
		data := []any{"x", "y"}
		assert.True(t, sel.ShouldFallbackToDynamic(true, data, analysisWith(0.1)))
	})

	t.Run("rich items stay static", func(t *testing.T) {
		long := "this item body is comfortably longer than the thin-content cutoff used by the fallback check"
		data := []any{long, long}
		assert.False(t, sel.ShouldFallbackToDynamic(true, data, analysisWith(0.1)))
	})

	t.Run("high confidence with few items falls back", func(t *testing.T) {
		long := "this item body is comfortably longer than the thin-content cutoff used by the fallback check"
		data := []any{long, long}
		assert.True(t, sel.ShouldFallbackToDynamic(true, data, analysisWith(0.65)))
	})

	t.Run("plenty of items stays static", func(t *testing.T) {
		data := []any{"a", "b", "c", "d"}
		assert.False(t, sel.ShouldFallbackToDynamic(true, data, analysisWith(0.1)))
	})
}
