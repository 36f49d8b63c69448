package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexUnavailable means a retrieval index could not be loaded. Fatal
	// at startup, never recovered per query.
	ErrIndexUnavailable = errors.New("retrieval index unavailable")
	// ErrMalformedModelOutput means an LLM reply did not match its declared
	// schema. Always recovered locally with a fallback value.
	ErrMalformedModelOutput = errors.New("malformed model output")
	// ErrExternalCall covers transport failures against the model/embedding
	// services.
	ErrExternalCall = errors.New("external call failure")
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
