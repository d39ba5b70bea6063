package auth

import (
	"context"
	"errors"
	"time"
)

// contextKey is an unexported type to prevent key collisions in context.
type contextKey string

const operatorKey contextKey = "operator"

// Authentication methods recorded on the Operator.
const (
	MethodAPIKey  = "api_key"
	MethodSession = "session"
)

// Operator identifies who is calling the API.
type Operator struct {
	Name   string
	Method string
	// Since is the login time of a session operator; zero for API keys.
	Since time.Time
}

// ErrOperatorNotFound is returned when no Operator exists in the request context.
// Handlers should return 401 when this error occurs.
var ErrOperatorNotFound = errors.New("operator not found in context")

// OperatorFromCtx extracts the authenticated operator from the request context.
func OperatorFromCtx(ctx context.Context) (Operator, error) {
	op, ok := ctx.Value(operatorKey).(Operator)
	if !ok || op.Name == "" {
		return Operator{}, ErrOperatorNotFound
	}
	return op, nil
}

// WithOperator returns a new context with op attached.
// Used by RequireAuth after validating the API key or session.
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey, op)
}
