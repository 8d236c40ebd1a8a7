// Package generator produces and refines Python scraper code via the LLM.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/SameerVers3/Scrapply/internal/llm"
	"github.com/SameerVers3/Scrapply/internal/prompts"
	"github.com/SameerVers3/Scrapply/internal/strategy"
	"github.com/SameerVers3/Scrapply/internal/types"
)

// GenerationError indicates the LLM could not produce usable scraper code.
type GenerationError struct {
	Stage string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("scraper generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator wraps an LLM client with the code generation prompts.
type Generator struct {
	client llm.Client
}

func New(client llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate writes a scraper for url implementing the user's description,
// using the selectors and schema from analysis. The strategy picks the
// static (requests+bs4) or dynamic (Playwright) prompt. Hybrid starts static;
// the pipeline regenerates as dynamic if the static attempt falls over.
func (g *Generator) Generate(ctx context.Context, url, description string, analysis *types.Analysis, strat strategy.Strategy) (string, error) {
	key := "generate-static"
	if strat == strategy.Dynamic {
		key = "generate-dynamic"
	}

	tmpl, err := prompts.Get("generation.json", key)
	if err != nil {
		return "", &GenerationError{Stage: "prompt", Err: err}
	}
	prompt := prompts.Format(tmpl, map[string]string{
		"URL":         url,
		"Description": description,
		"Analysis":    marshalAnalysis(analysis),
	})

	raw, err := g.client.GenerateContent(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return "", &GenerationError{Stage: "generation", Err: err}
	}

	code := llm.CleanCodeBlock(raw)
	if err := checkContract(code); err != nil {
		return "", &GenerationError{Stage: "validation", Err: err}
	}
	log.Printf("[GENERATOR] generated %s scraper for %s (%d bytes)", strat, url, len(code))
	return code, nil
}

// Refine asks the LLM to repair code given the failure from a sandbox run.
// kind is the error classification, failure the captured message.
func (g *Generator) Refine(ctx context.Context, code, kind, failure string, analysis *types.Analysis) (string, error) {
	tmpl, err := prompts.Get("generation.json", "refine")
	if err != nil {
		return "", &GenerationError{Stage: "prompt", Err: err}
	}
	prompt := prompts.Format(tmpl, map[string]string{
		"Code":     code,
		"Kind":     kind,
		"Failure":  failure,
		"Analysis": marshalAnalysis(analysis),
	})

	raw, err := g.client.GenerateContent(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return "", &GenerationError{Stage: "refinement", Err: err}
	}

	refined := llm.CleanCodeBlock(raw)
	if err := checkContract(refined); err != nil {
		return "", &GenerationError{Stage: "validation", Err: err}
	}
	return refined, nil
}

// checkContract makes sure the generated source defines the entry point the
// sandbox harness calls. Anything else is caught at execution time.
func checkContract(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("empty code")
	}
	if !strings.Contains(code, "def scrape_data") {
		return fmt.Errorf("missing scrape_data entry point")
	}
	return nil
}

func marshalAnalysis(analysis *types.Analysis) string {
	if analysis == nil {
		return "{}"
	}
	b, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
