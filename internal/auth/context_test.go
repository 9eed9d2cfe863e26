package auth

import (
	"context"
	"testing"
)

func TestWithSessionAndFromContext(t *testing.T) {
	ctx := WithSession(context.Background(), Session{UserID: "u-1", Email: "a@example.com"})

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected session in context")
	}
	if got.UserID != "u-1" {
		t.Errorf("UserID = %q, want %q", got.UserID, "u-1")
	}
	if got.Email != "a@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "a@example.com")
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected false for missing session")
	}
}

func TestFromContextEmptyUserID(t *testing.T) {
	ctx := WithSession(context.Background(), Session{})
	if _, ok := FromContext(ctx); ok {
		t.Error("expected false for session without user ID")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithSession(context.Background(), Session{UserID: "u-7"})
	if UserID(ctx) != "u-7" {
		t.Errorf("UserID = %q, want %q", UserID(ctx), "u-7")
	}
	if UserID(context.Background()) != "" {
		t.Error("expected empty user ID for missing context")
	}
}

func TestIsAuthenticated(t *testing.T) {
	if IsAuthenticated(context.Background()) {
		t.Error("expected anonymous context")
	}
	if !IsAuthenticated(WithSession(context.Background(), Session{UserID: "u"})) {
		t.Error("expected authenticated context")
	}
}
