package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// RetrievalErrorMessage describes vector index or embedding failures.
	RetrievalErrorMessage = "book retrieval is unavailable"
	// LLMErrorMessage describes failures of the language model call itself.
	LLMErrorMessage = "language model call failed"
)

// Sentinel kinds. Match them with errors.Is.
var (
	// ErrClassificationDegraded marks an intent classification that fell back to the default category.
	ErrClassificationDegraded = errors.New("classification degraded")
	// ErrRetrievalUnavailable marks an unreachable vector index or embedder.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrLookupFailed marks a single failed weather lookup.
	ErrLookupFailed = errors.New("weather lookup failed")
	// ErrUpstreamLLM marks a failed language model call.
	ErrUpstreamLLM = errors.New("upstream llm error")
)

// AppError wraps an underlying error with an HTTP status, a safe message and an optional kind.
type AppError struct {
	Err     error
	Status  int
	Message string
	Kind    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether the target is the error kind or matches the underlying error.
func (e *AppError) Is(target error) bool {
	if e.Kind != nil && target == e.Kind {
		return true
	}
	return errors.Is(e.Err, target)
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapRetrieval marks err as a retrieval outage.
func WrapRetrieval(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Err:     err,
		Status:  http.StatusServiceUnavailable,
		Message: RetrievalErrorMessage,
		Kind:    ErrRetrievalUnavailable,
	}
}

// WrapLLM marks err as a failure of the language model call.
func WrapLLM(err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Err:     err,
		Status:  http.StatusBadGateway,
		Message: LLMErrorMessage,
		Kind:    ErrUpstreamLLM,
	}
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
