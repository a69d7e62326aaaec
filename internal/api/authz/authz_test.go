package authz

import (
	"context"
	"errors"
	"testing"
)

func TestCanActFor(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		owner int64
		want  bool
	}{
		{name: "owner", actor: Actor{AccountID: 7}, owner: 7, want: true},
		{name: "other member", actor: Actor{AccountID: 8}, owner: 7, want: false},
		{name: "anonymous", actor: Actor{}, owner: 0, want: false},
		{name: "privileged", actor: Actor{AccountID: 1, Privileged: true}, owner: 7, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanActFor(tt.actor, tt.owner); got != tt.want {
				t.Fatalf("CanActFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsOwnerIgnoresPrivilege(t *testing.T) {
	if IsOwner(Actor{AccountID: 1, Privileged: true}, 7) {
		t.Fatalf("privileged non-owner must not count as owner")
	}
}

func TestRequireActorUnauthenticated(t *testing.T) {
	_, err := RequireActor(context.Background())
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRequirePrivilegedForbidden(t *testing.T) {
	ctx := ContextWithActor(context.Background(), &Actor{AccountID: 3})
	_, err := RequirePrivileged(ctx)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	ctx = ContextWithActor(context.Background(), &Actor{AccountID: 3, Privileged: true})
	if _, err := RequirePrivileged(ctx); err != nil {
		t.Fatalf("expected privileged actor to pass, got %v", err)
	}
}

func TestIsPrivilegedRole(t *testing.T) {
	for _, role := range []string{"admin", " Staff ", "MANAGER"} {
		if !IsPrivilegedRole(role) {
			t.Fatalf("expected %q to be privileged", role)
		}
	}
	if IsPrivilegedRole("member") {
		t.Fatalf("member must not be privileged")
	}
}
