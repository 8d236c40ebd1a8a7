package pipeline

import (
	"errors"

	"github.com/SameerVers3/Scrapply/internal/analysis"
	"github.com/SameerVers3/Scrapply/internal/generator"
	"github.com/SameerVers3/Scrapply/internal/sandbox"
	"github.com/SameerVers3/Scrapply/internal/types"
)

// errorInfo maps a pipeline failure onto the public error taxonomy.
func errorInfo(err error) *types.ErrorInfo {
	var accessErr *analysis.AccessError
	if errors.As(err, &accessErr) {
		return &types.ErrorInfo{
			Kind:    types.ErrKindWebsiteAccess,
			Message: "the target website could not be accessed",
			Detail:  accessErr.Error(),
		}
	}

	var genErr *generator.GenerationError
	if errors.As(err, &genErr) {
		return &types.ErrorInfo{
			Kind:    types.ErrKindGeneration,
			Message: "scraper code could not be generated",
			Detail:  genErr.Error(),
		}
	}

	var sandboxErr *sandbox.Error
	if errors.As(err, &sandboxErr) {
		return &types.ErrorInfo{
			Kind:    sandboxErr.Kind,
			Message: sandboxErr.Message,
			Detail:  sandboxErr.Detail,
		}
	}

	return &types.ErrorInfo{
		Kind:    types.ErrKindInternal,
		Message: "an internal error occurred while processing the job",
		Detail:  err.Error(),
	}
}
