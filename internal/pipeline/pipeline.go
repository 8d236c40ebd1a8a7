// Package pipeline drives a job from pending to ready or failed: analyze the
// site, generate scraper code, test it in the sandbox, and publish the
// generated endpoint.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/SameerVers3/Scrapply/internal/analysis"
	"github.com/SameerVers3/Scrapply/internal/events"
	"github.com/SameerVers3/Scrapply/internal/sandbox"
	"github.com/SameerVers3/Scrapply/internal/store"
	"github.com/SameerVers3/Scrapply/internal/strategy"
	"github.com/SameerVers3/Scrapply/internal/types"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Progress milestones per stage. A refinement or hybrid fallback detour
// re-enters generating at the detour values.
const (
	progressAnalyzing       = 20
	progressGenerating      = 50
	progressTesting         = 80
	progressDetourGenerate  = 60
	progressDetourTesting   = 85
	progressDone            = 100
	maxRefinements          = 1
	storeWriteRetries       = 3
	storeWriteRetryInterval = 200 * time.Millisecond
)

// Analyzer characterizes a target website.
type Analyzer interface {
	Analyze(ctx context.Context, url, description string) (*analysis.Result, error)
}

// CodeGenerator produces and repairs scraper code.
type CodeGenerator interface {
	Generate(ctx context.Context, url, description string, a *types.Analysis, s strategy.Strategy) (string, error)
	Refine(ctx context.Context, code, kind, failure string, a *types.Analysis) (string, error)
}

// Executor runs scraper code in the sandbox.
type Executor interface {
	Exec(ctx context.Context, code, url string, flavor sandbox.Flavor) (*sandbox.Result, error)
}

// EndpointRegistry publishes and withdraws generated endpoints.
type EndpointRegistry interface {
	Activate(jobID uuid.UUID) string
	Revoke(jobID uuid.UUID)
}

// Options configures a Processor.
type Options struct {
	MaxConcurrent int
	SampleSize    int
}

// Processor runs the job state machine. Process calls from the server are
// fire-and-forget goroutines; the semaphore caps how many run at once.
type Processor struct {
	store    store.Store
	analyzer Analyzer
	gen      CodeGenerator
	exec     Executor
	registry EndpointRegistry
	events   *events.Manager
	selector *strategy.Selector

	sampleSize int
	sem        *semaphore.Weighted
	wg         sync.WaitGroup
}

func New(st store.Store, an Analyzer, gen CodeGenerator, exec Executor, reg EndpointRegistry, ev *events.Manager, sel *strategy.Selector, opts Options) *Processor {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 5
	}
	if opts.SampleSize < 1 {
		opts.SampleSize = 3
	}
	return &Processor{
		store:      st,
		analyzer:   an,
		gen:        gen,
		exec:       exec,
		registry:   reg,
		events:     ev,
		selector:   sel,
		sampleSize: opts.SampleSize,
		sem:        semaphore.NewWeighted(int64(opts.MaxConcurrent)),
	}
}

// Start launches Process for jobID in the background.
func (p *Processor) Start(ctx context.Context, jobID uuid.UUID) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.Process(ctx, jobID); err != nil {
			log.Printf("[PIPELINE] job %s failed: %v", jobID, err)
		}
	}()
}

// Wait blocks until all in-flight jobs finish. Used during shutdown.
func (p *Processor) Wait() {
	p.wg.Wait()
}

// Retry resets a failed job back to pending and withdraws any stale endpoint.
// The caller starts processing afterwards.
func (p *Processor) Retry(ctx context.Context, jobID uuid.UUID) (*types.Job, error) {
	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !job.Status.CanTransition(types.StatusPending) {
		return nil, fmt.Errorf("job in status %q cannot be retried", job.Status)
	}

	p.registry.Revoke(jobID)
	job, err = p.transition(ctx, jobID, types.StatusPending, 0, "Job queued for retry", types.JobUpdate{
		ClearErrorInfo: true,
		SampleData:     []any{},
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Process runs the full pipeline for jobID. The returned error is for
// logging; the user-visible outcome is always written to the job record.
func (p *Processor) Process(ctx context.Context, jobID uuid.UUID) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquiring worker slot: %w", err)
	}
	defer p.sem.Release(1)

	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading job: %w", err)
	}
	if job.Status != types.StatusPending {
		return fmt.Errorf("job %s is %q, not pending", jobID, job.Status)
	}

	// Stage 1: analysis.
	if _, err := p.transition(ctx, jobID, types.StatusAnalyzing, progressAnalyzing, "Analyzing website structure", types.JobUpdate{}); err != nil {
		return err
	}

	res, err := p.analyzer.Analyze(ctx, job.URL, job.Description)
	if err != nil {
		return p.fail(ctx, jobID, err)
	}

	strat := p.selector.Select(res.Analysis, res.UsedBrowser)
	stratName := string(strat)
	log.Printf("[PIPELINE] job %s: strategy %s (confidence %.2f)", jobID, strat, res.Analysis.Confidence)

	// Stage 2: code generation. Hybrid starts with the static flavor and
	// falls back to dynamic if the static scraper comes up empty.
	if _, err := p.transition(ctx, jobID, types.StatusGenerating, progressGenerating, "Generating scraper code", types.JobUpdate{
		Analysis: res.Analysis,
		Strategy: &stratName,
	}); err != nil {
		return err
	}

	flavor := strategy.Static
	if strat == strategy.Dynamic {
		flavor = strategy.Dynamic
	}

	code, err := p.gen.Generate(ctx, job.URL, job.Description, res.Analysis, flavor)
	if err != nil {
		return p.fail(ctx, jobID, err)
	}
	version := 1

	// Stage 3: sandbox testing, with at most one refinement and, for the
	// hybrid strategy, one escalation from static to dynamic. The escalation
	// does not consume the refinement budget.
	refinements := 0
	escalated := false
	for {
		progress := progressTesting
		if version > 1 {
			progress = progressDetourTesting
		}
		if _, err := p.transition(ctx, jobID, types.StatusTesting, progress, "Testing generated scraper", types.JobUpdate{
			ScraperCode: &code,
			CodeVersion: &version,
		}); err != nil {
			return err
		}

		result, runErr := p.exec.Exec(ctx, code, job.URL, execFlavor(flavor))
		if runErr == nil {
			if flavor == strategy.Static && strat == strategy.Hybrid && !escalated &&
				p.selector.ShouldFallbackToDynamic(true, result.Data, res.Analysis) {
				escalated = true
				flavor = strategy.Dynamic
				code, version, err = p.regenerate(ctx, jobID, job, res.Analysis, flavor, version, "Static scraper returned thin results, regenerating with browser automation")
				if err != nil {
					return p.fail(ctx, jobID, err)
				}
				continue
			}
			return p.succeed(ctx, jobID, code, version, flavor, result)
		}

		log.Printf("[PIPELINE] job %s: test run failed: %v", jobID, runErr)

		if flavor == strategy.Static && strat == strategy.Hybrid && !escalated &&
			p.selector.ShouldFallbackToDynamic(false, nil, res.Analysis) {
			escalated = true
			flavor = strategy.Dynamic
			code, version, err = p.regenerate(ctx, jobID, job, res.Analysis, flavor, version, "Static scraper failed, regenerating with browser automation")
			if err != nil {
				return p.fail(ctx, jobID, err)
			}
			continue
		}

		if refinements < maxRefinements {
			refinements++
			info := errorInfo(runErr)
			if _, terr := p.transition(ctx, jobID, types.StatusGenerating, progressDetourGenerate, "Refining scraper code after test failure", types.JobUpdate{}); terr != nil {
				return terr
			}
			refined, rerr := p.gen.Refine(ctx, code, info.Kind, info.Message+": "+info.Detail, res.Analysis)
			if rerr != nil {
				return p.fail(ctx, jobID, runErr)
			}
			code = refined
			version++
			continue
		}

		return p.fail(ctx, jobID, runErr)
	}
}

// regenerate writes the detour transition and produces a fresh scraper with
// the new flavor.
func (p *Processor) regenerate(ctx context.Context, jobID uuid.UUID, job *types.Job, a *types.Analysis, flavor strategy.Strategy, version int, message string) (string, int, error) {
	if _, err := p.transition(ctx, jobID, types.StatusGenerating, progressDetourGenerate, message, types.JobUpdate{}); err != nil {
		return "", version, err
	}
	code, err := p.gen.Generate(ctx, job.URL, job.Description, a, flavor)
	if err != nil {
		return "", version, err
	}
	return code, version + 1, nil
}

func (p *Processor) succeed(ctx context.Context, jobID uuid.UUID, code string, version int, flavor strategy.Strategy, result *sandbox.Result) error {
	sample := result.Data
	if len(sample) > p.sampleSize {
		sample = sample[:p.sampleSize]
	}
	if sample == nil {
		sample = []any{}
	}

	path := p.registry.Activate(jobID)
	finalStrategy := string(flavor)
	now := time.Now().UTC()
	_, err := p.transition(ctx, jobID, types.StatusReady, progressDone, "Scraper ready, API endpoint is live", types.JobUpdate{
		ScraperCode:     &code,
		CodeVersion:     &version,
		Strategy:        &finalStrategy,
		SampleData:      sample,
		ClearErrorInfo:  true,
		APIEndpointPath: &path,
		CompletedAt:     &now,
	})
	if err != nil {
		p.registry.Revoke(jobID)
		return err
	}
	log.Printf("[PIPELINE] job %s ready at %s (%d sample items)", jobID, path, len(sample))
	return nil
}

func (p *Processor) fail(ctx context.Context, jobID uuid.UUID, cause error) error {
	info := errorInfo(cause)
	now := time.Now().UTC()
	if _, err := p.transition(ctx, jobID, types.StatusFailed, progressDone, "Job failed: "+info.Message, types.JobUpdate{
		ErrorInfo:   info,
		CompletedAt: &now,
	}); err != nil {
		return fmt.Errorf("recording failure (%v): %w", cause, err)
	}
	return fmt.Errorf("job failed: %w", cause)
}

// transition writes one status change and publishes it. The write is retried
// a few times so a transient storage blip does not strand the state machine.
func (p *Processor) transition(ctx context.Context, jobID uuid.UUID, status types.JobStatus, progress int, message string, upd types.JobUpdate) (*types.Job, error) {
	upd.Status = &status
	upd.Progress = &progress
	upd.Message = &message

	var job *types.Job
	var err error
	for attempt := 1; attempt <= storeWriteRetries; attempt++ {
		job, err = p.store.Update(ctx, jobID, upd)
		if err == nil {
			break
		}
		if err == store.ErrNotFound || ctx.Err() != nil {
			return nil, err
		}
		log.Printf("[PIPELINE] job %s: status write failed (attempt %d/%d): %v", jobID, attempt, storeWriteRetries, err)
		time.Sleep(storeWriteRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("writing %s transition: %w", status, err)
	}

	p.events.Publish(job)
	return job, nil
}

func execFlavor(s strategy.Strategy) sandbox.Flavor {
	if s == strategy.Dynamic {
		return sandbox.FlavorDynamic
	}
	return sandbox.FlavorStatic
}
