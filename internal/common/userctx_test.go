package common

import (
	"context"
	"testing"
)

func TestUserContext_RoundTrip(t *testing.T) {
	ctx := context.Background()

	if uc := UserContextFromContext(ctx); uc != nil {
		t.Error("Expected nil UserContext from empty context")
	}
	if id := ResolveUserID(ctx); id != "" {
		t.Errorf("Expected anonymous user, got %q", id)
	}

	ctx = WithUserContext(ctx, &UserContext{UserID: "user-123", Email: "a@b.c"})

	got := UserContextFromContext(ctx)
	if got == nil {
		t.Fatal("Expected non-nil UserContext")
	}
	if got.Email != "a@b.c" {
		t.Errorf("Expected a@b.c, got %s", got.Email)
	}
	if id := ResolveUserID(ctx); id != "user-123" {
		t.Errorf("Expected user-123, got %s", id)
	}
}
