package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ndrohith09/Zerobase/api_gateway/internal/store"
	"github.com/ndrohith09/Zerobase/pkg/logging"
	"github.com/ndrohith09/Zerobase/pkg/middleware"
)

const defaultPublicMessage = "request failed"

// Codes reported under extensions.code.
const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
	CodeStorage    = "STORAGE_ERROR"
	CodeInternal   = "INTERNAL"
)

var codeMessages = map[string]string{
	CodeNotFound:   "resource not found",
	CodeValidation: "invalid request",
	CodeStorage:    "storage failure",
	CodeInternal:   "internal error",
}

// GraphQLError is the client-facing form of a resolver error. graphql-go copies
// Extensions into the response when it is the error a resolver returns.
type GraphQLError struct {
	Message string
	Code    string
	Extra   map[string]interface{}
	cause   error
}

func (e *GraphQLError) Error() string { return e.Message }

func (e *GraphQLError) Unwrap() error { return e.cause }

// Extensions implements gqlerrors.ExtendedError.
func (e *GraphQLError) Extensions() map[string]interface{} {
	ext := make(map[string]interface{}, len(e.Extra)+1)
	for k, v := range e.Extra {
		ext[k] = v
	}
	ext["code"] = e.Code
	return ext
}

// Present converts a store error into a GraphQLError, logging what clients do not see.
func Present(ctx context.Context, logger logging.Logger, err error) error {
	if err == nil {
		return nil
	}
	var presented *GraphQLError
	if stderrors.As(err, &presented) {
		return presented
	}

	log := logger.WithField("request_id", middleware.RequestIDFromContext(ctx))

	var (
		ve *store.ValidationError
		se *store.StorageError
	)
	switch {
	case stderrors.Is(err, store.ErrNotFound):
		return &GraphQLError{Message: err.Error(), Code: CodeNotFound, cause: err}

	case stderrors.As(err, &ve):
		extra := map[string]interface{}{"entity": ve.Entity}
		if ve.Field != "" {
			extra["field"] = ve.Field
		}
		return &GraphQLError{Message: err.Error(), Code: CodeValidation, Extra: extra, cause: err}

	case stderrors.As(err, &se):
		entry := log.WithError(err).WithFields(logging.Fields{
			"entity":    se.Entity,
			"operation": se.Op,
			"sqlstate":  se.SQLState,
		})
		if ctx.Err() != nil {
			entry.Warn("GraphQL storage operation aborted")
		} else {
			entry.Error("GraphQL storage operation failed")
		}
		extra := map[string]interface{}{"entity": se.Entity, "operation": se.Op}
		if se.SQLState != "" {
			extra["sqlstate"] = se.SQLState
		}
		return &GraphQLError{Message: SanitizeErrorMessage(err, ""), Code: CodeStorage, Extra: extra, cause: err}
	}

	log.WithError(err).Error("GraphQL request failed")
	return &GraphQLError{Message: messageForCode(CodeInternal), Code: CodeInternal, cause: err}
}

// SanitizeErrorMessage strips driver detail from err, keeping messages the store
// already made safe.
func SanitizeErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallbackMessage(fallback)
	}
	var se *store.StorageError
	if stderrors.As(err, &se) {
		return fmt.Sprintf("%s %s failed: %s", se.Op, se.Entity, se.Reason())
	}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return fallbackMessage(fallback)
	}
	message := err.Error()
	if strings.HasPrefix(message, "pq:") || strings.HasPrefix(message, "sql:") {
		return fallbackMessage(fallback)
	}
	return message
}

func messageForCode(code string) string {
	if message, ok := codeMessages[code]; ok {
		return message
	}
	return codeMessages[CodeInternal]
}

func fallbackMessage(fallback string) string {
	if fallback == "" {
		return defaultPublicMessage
	}
	return fallback
}
