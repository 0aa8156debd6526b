// Package rag wires retrieval, context assembly, generation, and answer
// sanitization into a query pipeline.
package rag

import "errors"

// ErrMalformedOutput means the generated answer failed sanitization. The
// caller receives a fixed apology string instead of the raw output.
var ErrMalformedOutput = errors.New("malformed model output")
