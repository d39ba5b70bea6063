package auth

import (
	"context"
	"errors"
	"testing"
)

func TestWithOperator_OperatorFromCtx(t *testing.T) {
	want := Operator{Name: "admin", Method: MethodSession}
	got, err := OperatorFromCtx(WithOperator(context.Background(), want))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestOperatorFromCtx_Missing(t *testing.T) {
	tests := map[string]context.Context{
		"empty context": context.Background(),
		"empty name":    WithOperator(context.Background(), Operator{Method: MethodAPIKey}),
	}
	for name, ctx := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := OperatorFromCtx(ctx); !errors.Is(err, ErrOperatorNotFound) {
				t.Fatalf("expected ErrOperatorNotFound, got %v", err)
			}
		})
	}
}
