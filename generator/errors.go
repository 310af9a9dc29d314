package generator

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration    = errors.New("generator: configuration error")
	ErrAuth             = errors.New("generator: provider rejected credentials")
	ErrTransport        = errors.New("generator: provider request failed")
	ErrMalformedPayload = errors.New("AI response format was invalid")
	ErrExhausted        = errors.New("generator: attempts exhausted")
	ErrGenerationFailed = errors.New("generator: generation failed")
	ErrTopicRequired    = errors.New("topic is required")
	ErrInvalidTone      = errors.New("tone must be one of academic, friendly, expert")
)

// Error is returned by Agent.Generate. Kind is one of the sentinels above;
// Message is safe to show to an operator.
type Error struct {
	Kind       error
	Message    string
	LastReason string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func configurationError() *Error {
	return &Error{
		Kind:    ErrConfiguration,
		Message: "OPENAI_API_KEY is missing. Configure it in your environment.",
	}
}

func authError(cause error) *Error {
	return &Error{
		Kind:    ErrAuth,
		Message: "OpenAI authentication failed (401). Check the active OPENAI_API_KEY in the running server process.",
		Err:     cause,
	}
}

func exhaustedError(attempts int, lastReason string) *Error {
	reason := lastReason
	if reason == "" {
		reason = "Unknown validation error"
	}
	return &Error{
		Kind:       ErrExhausted,
		Message:    fmt.Sprintf("AI response failed validation after %d attempts. Last issue: %s", attempts, reason),
		LastReason: lastReason,
	}
}

func failedError(cause error) *Error {
	return &Error{
		Kind:    ErrGenerationFailed,
		Message: "AI generation failed. Please try again.",
		Err:     cause,
	}
}
