package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind tags a pipeline failure with a classification that user-facing messages
// and callers can switch on, instead of inspecting raw error text.
type Kind string

const (
	KindInvalidInput  Kind = "invalid_input"
	KindConfig        Kind = "config"
	KindAuth          Kind = "auth"
	KindQuota         Kind = "quota"
	KindUnavailable   Kind = "unavailable"
	KindTimeout       Kind = "timeout"
	KindMalformed     Kind = "malformed"
	KindEmptyResponse Kind = "empty_response"
	KindInternal      Kind = "internal"
)

// Pipeline stages a failure can originate from. Retrieval and assembly are
// pure local computation; a failure there is a contract violation.
const (
	StageConfig   = "config"
	StageValidate = "validate"
	StageEmbed    = "embed"
	StageRetrieve = "retrieve"
	StageAssemble = "assemble"
	StageGenerate = "generate"
)

// PipelineError is a classified failure from one pipeline stage.
type PipelineError struct {
	Stage string
	Kind  Kind
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewError wraps err with a stage and an explicit kind.
func NewError(stage string, kind Kind, err error) *PipelineError {
	return &PipelineError{Stage: stage, Kind: kind, Err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(stage string, kind Kind, format string, args ...any) *PipelineError {
	return &PipelineError{Stage: stage, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a stage to err, classifying by message if the error carries no
// kind yet. Already classified errors pass through unchanged.
func Wrap(stage string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return err
	}
	return &PipelineError{Stage: stage, Kind: classifyMessage(err), Err: err}
}

// KindOf returns the classification of err, falling back to message inspection
// for errors from boundaries that do not emit structured kinds.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return classifyMessage(err)
}

// classifyMessage is the fallback adapter for untagged errors: it scans the
// message for service-failure markers. Structured kinds from the client
// boundaries always take precedence.
func classifyMessage(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return KindQuota
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "permission") || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return KindAuth
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return KindTimeout
	case strings.Contains(msg, "model not found") || strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "overloaded") || strings.Contains(msg, "503"):
		return KindUnavailable
	}
	return KindInternal
}

// Fixed user-facing messages, one per failure kind. The raw service error text
// is logged for operators but never shown to the user.
var userMessages = map[Kind]string{
	KindConfig:        "The bot is missing its service credentials. Please set the API key and restart.",
	KindAuth:          "The answer service rejected the configured credentials. Please check the API key.",
	KindQuota:         "The answer service has reached its usage quota. Please try again in a little while.",
	KindUnavailable:   "The answer service is temporarily unavailable. Please try again later.",
	KindTimeout:       "The answer service took too long to respond. Please try again.",
	KindMalformed:     "The answer service returned an unexpected response. Please try again.",
	KindEmptyResponse: "The model returned an empty answer. Please try rephrasing your question.",
	KindInternal:      "Something went wrong while answering your question. Please try again.",
}

// UserMessage maps a failure to its fixed user-safe message. Validation
// failures carry our own literal message and are returned as-is.
func UserMessage(err error) string {
	kind := KindOf(err)
	if kind == KindInvalidInput {
		var pe *PipelineError
		if errors.As(err, &pe) && pe.Err != nil {
			return pe.Err.Error()
		}
		return err.Error()
	}
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[KindInternal]
}
