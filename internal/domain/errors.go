package domain

import "errors"

var (
	// ErrNoInferenceConfig means no usable inference configuration was supplied.
	ErrNoInferenceConfig = errors.New("no inference configuration available")

	// ErrMalformedObject means a structured model response failed decoding or validation.
	ErrMalformedObject = errors.New("malformed structured output")

	// ErrCallTimeout means an LLM call did not settle within its bound.
	ErrCallTimeout = errors.New("llm call timed out")
)
