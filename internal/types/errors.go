package types

// Machine-readable failure kinds recorded in ErrorInfo.Kind. A UI can offer a
// retry action from the kind alone, without parsing free text.
const (
	// ErrKindWebsiteAccess - target unreachable, non-2xx, or fetch timeout
	// during analysis. Not eligible for refinement (no code exists yet).
	ErrKindWebsiteAccess = "WebsiteAccessError"
	// ErrKindGeneration - code-generation service failure or unparseable output.
	ErrKindGeneration = "ScraperGenerationError"
	// ErrKindSafetyViolation - generated code rejected by the static safety
	// gate before execution. Eligible for the single refinement retry.
	ErrKindSafetyViolation = "SandboxSafetyViolation"
	// ErrKindExecution - runtime failure during sandboxed execution.
	ErrKindExecution = "SandboxExecutionError"
	// ErrKindTimeout - sandbox wall-clock limit exceeded.
	ErrKindTimeout = "SandboxTimeoutError"
	// ErrKindResource - sandbox memory/resource ceiling exceeded.
	ErrKindResource = "SandboxResourceError"
	// ErrKindImport - generated code imported a module outside the allow-list.
	ErrKindImport = "SandboxImportError"
	// ErrKindInternal - infrastructure failure (e.g. storage) escalated to the job.
	ErrKindInternal = "InternalError"
)
