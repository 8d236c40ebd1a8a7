package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SameerVers3/Scrapply/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the production Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool and ensures the jobs table exists.
func Connect(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id UUID PRIMARY KEY,
			url TEXT NOT NULL,
			description TEXT NOT NULL,
			status TEXT NOT NULL,
			progress INT NOT NULL DEFAULT 0,
			message TEXT NOT NULL DEFAULT '',
			analysis JSONB,
			scraper_code TEXT NOT NULL DEFAULT '',
			code_version INT NOT NULL DEFAULT 0,
			strategy TEXT NOT NULL DEFAULT '',
			sample_data JSONB,
			error_info JSONB,
			api_endpoint_path TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS jobs_status_idx ON jobs (status);
		CREATE INDEX IF NOT EXISTS jobs_created_at_idx ON jobs (created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

const jobColumns = `id, url, description, status, progress, message, analysis,
	scraper_code, code_version, strategy, sample_data, error_info,
	api_endpoint_path, created_at, updated_at, completed_at`

func (p *Postgres) Create(ctx context.Context, job *types.Job) error {
	var analysis, sampleData, errorInfo []byte
	var err error
	if job.Analysis != nil {
		if analysis, err = marshalNullable(job.Analysis); err != nil {
			return err
		}
	}
	if job.SampleData != nil {
		if sampleData, err = marshalNullable(job.SampleData); err != nil {
			return err
		}
	}
	if job.ErrorInfo != nil {
		if errorInfo, err = marshalNullable(job.ErrorInfo); err != nil {
			return err
		}
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		job.ID, job.URL, job.Description, job.Status, job.Progress, job.Message,
		analysis, job.ScraperCode, job.CodeVersion, job.Strategy, sampleData,
		errorInfo, job.APIEndpointPath, job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (*types.Job, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (p *Postgres) Update(ctx context.Context, id uuid.UUID, upd types.JobUpdate) (*types.Job, error) {
	sets := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.Progress != nil {
		add("progress", *upd.Progress)
	}
	if upd.Message != nil {
		add("message", *upd.Message)
	}
	if upd.Analysis != nil {
		analysis, err := marshalNullable(upd.Analysis)
		if err != nil {
			return nil, err
		}
		add("analysis", analysis)
	}
	if upd.ScraperCode != nil {
		add("scraper_code", *upd.ScraperCode)
	}
	if upd.CodeVersion != nil {
		add("code_version", *upd.CodeVersion)
	}
	if upd.Strategy != nil {
		add("strategy", *upd.Strategy)
	}
	if upd.SampleData != nil {
		sampleData, err := marshalNullable(upd.SampleData)
		if err != nil {
			return nil, err
		}
		add("sample_data", sampleData)
	}
	if upd.ClearErrorInfo {
		sets = append(sets, "error_info = NULL")
	} else if upd.ErrorInfo != nil {
		errorInfo, err := marshalNullable(upd.ErrorInfo)
		if err != nil {
			return nil, err
		}
		add("error_info", errorInfo)
	}
	if upd.APIEndpointPath != nil {
		add("api_endpoint_path", *upd.APIEndpointPath)
	}
	if upd.CompletedAt != nil {
		add("completed_at", *upd.CompletedAt)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE jobs SET %s WHERE id = $%d RETURNING `+jobColumns,
		strings.Join(sets, ", "), len(args))

	job, err := scanJob(p.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	return job, nil
}

func (p *Postgres) List(ctx context.Context, filter ListFilter) (*types.JobList, error) {
	filter = filter.normalized()

	where := ""
	args := []any{}
	if filter.Status != "" {
		where = "WHERE status = $1"
		args = append(args, filter.Status)
	}

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM jobs `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	args = append(args, filter.Size, (filter.Page-1)*filter.Size)
	query := fmt.Sprintf(`SELECT `+jobColumns+` FROM jobs %s
		ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*types.Job, 0, filter.Size)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return &types.JobList{Jobs: jobs, Total: total, Page: filter.Page, Size: filter.Size}, nil
}

func (p *Postgres) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*types.Job, error) {
	var (
		job        types.Job
		analysis   []byte
		sampleData []byte
		errorInfo  []byte
	)
	err := row.Scan(
		&job.ID, &job.URL, &job.Description, &job.Status, &job.Progress,
		&job.Message, &analysis, &job.ScraperCode, &job.CodeVersion,
		&job.Strategy, &sampleData, &errorInfo, &job.APIEndpointPath,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(analysis) > 0 {
		job.Analysis = &types.Analysis{}
		if err := json.Unmarshal(analysis, job.Analysis); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
		}
	}
	if len(sampleData) > 0 {
		if err := json.Unmarshal(sampleData, &job.SampleData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sample data: %w", err)
		}
	}
	if len(errorInfo) > 0 {
		job.ErrorInfo = &types.ErrorInfo{}
		if err := json.Unmarshal(errorInfo, job.ErrorInfo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal error info: %w", err)
		}
	}
	return &job, nil
}

func marshalNullable(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal field: %w", err)
	}
	return b, nil
}
