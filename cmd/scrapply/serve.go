package main

import (
	"context"
	"fmt"
	"log"

	"github.com/SameerVers3/Scrapply/internal/analysis"
	"github.com/SameerVers3/Scrapply/internal/config"
	"github.com/SameerVers3/Scrapply/internal/events"
	"github.com/SameerVers3/Scrapply/internal/fetch"
	"github.com/SameerVers3/Scrapply/internal/generator"
	"github.com/SameerVers3/Scrapply/internal/llm"
	"github.com/SameerVers3/Scrapply/internal/pipeline"
	"github.com/SameerVers3/Scrapply/internal/registry"
	"github.com/SameerVers3/Scrapply/internal/sandbox"
	"github.com/SameerVers3/Scrapply/internal/server"
	"github.com/SameerVers3/Scrapply/internal/store"
	"github.com/SameerVers3/Scrapply/internal/strategy"
	"github.com/spf13/cobra"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that accepts scraping jobs, generates and tests scrapers, and serves the generated endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		st = pg
	} else {
		log.Println("DATABASE_URL not set, using in-memory store (jobs are lost on restart)")
		st = store.NewMemory()
	}

	client, err := llm.NewClient(ctx, llm.DefaultGeminiConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close()

	fetchOpts := &fetch.Options{
		Timeout:     cfg.FetchTimeout,
		UserAgent:   cfg.UserAgent,
		MaxBodySize: cfg.MaxPageSize,
	}

	runner := sandbox.NewRunner(sandbox.Options{
		PythonBin:            cfg.PythonBin,
		StaticTimeout:        cfg.SandboxTimeout,
		DynamicTimeout:       cfg.DynamicTimeout,
		StaticMemoryLimitMB:  cfg.MemoryLimitMB,
		DynamicMemoryLimitMB: cfg.DynamicMemoryLimitMB,
	})

	ev := events.NewManager()
	reg := registry.New(st, runner, cfg.SampleSize)
	if err := reg.Restore(ctx); err != nil {
		log.Printf("Warning: %v", err)
	}

	sel := strategy.NewSelector(strategy.Thresholds{
		Dynamic: cfg.DynamicThreshold,
		Hybrid:  cfg.HybridThreshold,
	})

	proc := pipeline.New(
		st,
		analysis.NewEngine(client, fetchOpts),
		generator.New(client),
		runner,
		reg,
		ev,
		sel,
		pipeline.Options{
			MaxConcurrent: cfg.MaxConcurrentJobs,
			SampleSize:    cfg.SampleSize,
		},
	)

	srv := server.New(cfg.Port, server.Deps{
		Store:     st,
		Processor: proc,
		Registry:  reg,
		Events:    ev,
	})
	return srv.Start()
}
