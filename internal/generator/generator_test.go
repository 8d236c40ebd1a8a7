package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/SameerVers3/Scrapply/internal/llm"
	"github.com/SameerVers3/Scrapply/internal/strategy"
	"github.com/SameerVers3/Scrapply/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLLMClient struct {
	response   string
	err        error
	lastPrompt string
}

func (m *mockLLMClient) GenerateContent(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	m.lastPrompt = prompt
	return m.response, m.err
}

func (m *mockLLMClient) GenerateJSON(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
	m.lastPrompt = prompt
	return m.response, m.err
}

func (m *mockLLMClient) GetModel(llm.ModelTier) string { return "mock" }
func (m *mockLLMClient) Close() error                  { return nil }

const validScraper = "```python\nimport requests\n\ndef scrape_data(url):\n    return {\"data\": [], \"metadata\": {}}\n```"

func testAnalysis() *types.Analysis {
	return &types.Analysis{
		SiteType:   "listing",
		Selectors:  map[string]string{"title": ".product-title"},
		Confidence: 0.6,
	}
}

func TestGenerate_StripsCodeFences(t *testing.T) {
	mock := &mockLLMClient{response: validScraper}
	gen := New(mock)

	code, err := gen.Generate(context.Background(), "https://example.com", "titles", testAnalysis(), strategy.Static)
	require.NoError(t, err)
	assert.NotContains(t, code, "```")
	assert.Contains(t, code, "def scrape_data")
}

func TestGenerate_PromptCarriesAnalysis(t *testing.T) {
	mock := &mockLLMClient{response: validScraper}
	gen := New(mock)

	_, err := gen.Generate(context.Background(), "https://example.com", "product titles", testAnalysis(), strategy.Static)
	require.NoError(t, err)
	assert.Contains(t, mock.lastPrompt, "https://example.com")
	assert.Contains(t, mock.lastPrompt, "product titles")
	assert.Contains(t, mock.lastPrompt, ".product-title")
}

func TestGenerate_DynamicUsesPlaywrightPrompt(t *testing.T) {
	mock := &mockLLMClient{response: validScraper}
	gen := New(mock)

	_, err := gen.Generate(context.Background(), "https://example.com", "titles", testAnalysis(), strategy.Dynamic)
	require.NoError(t, err)
	assert.Contains(t, mock.lastPrompt, "Playwright for a JavaScript-rendered website")
}

func TestGenerate_LLMFailure(t *testing.T) {
	mock := &mockLLMClient{err: errors.New("quota exceeded")}
	gen := New(mock)

	_, err := gen.Generate(context.Background(), "https://example.com", "titles", testAnalysis(), strategy.Static)
	require.Error(t, err)

	var genErr *GenerationError
	assert.ErrorAs(t, err, &genErr)
	assert.Equal(t, "generation", genErr.Stage)
}

func TestGenerate_MissingEntryPoint(t *testing.T) {
	mock := &mockLLMClient{response: "print('hello')"}
	gen := New(mock)

	_, err := gen.Generate(context.Background(), "https://example.com", "titles", testAnalysis(), strategy.Static)
	require.Error(t, err)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "validation", genErr.Stage)
}

func TestRefine_PromptCarriesFailure(t *testing.T) {
	mock := &mockLLMClient{response: validScraper}
	gen := New(mock)

	broken := "def scrape_data(url):\n    raise RuntimeError('selector not found')"
	refined, err := gen.Refine(context.Background(), broken, "SandboxExecutionError", "selector not found", testAnalysis())
	require.NoError(t, err)
	assert.Contains(t, refined, "def scrape_data")
	assert.Contains(t, mock.lastPrompt, "selector not found")
	assert.Contains(t, mock.lastPrompt, "SandboxExecutionError")
}
