package llm

import "errors"

// ErrBackendUnavailable means a generation backend could not be initialized:
// bad credential, unreachable endpoint, or an unsupported provider string.
var ErrBackendUnavailable = errors.New("llm backend unavailable")

// ErrGenerationFailure means the model call itself failed. Callers recover
// by returning a fixed apology string, never the raw error.
var ErrGenerationFailure = errors.New("llm generation failed")
