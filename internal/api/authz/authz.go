package authz

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Actor is the authenticated caller as asserted by the identity collaborator.
// AccountID is the member the caller owns; Privileged marks facility staff.
type Actor struct {
	AccountID  int64
	Privileged bool
}

type actorContextKey struct{}

func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns nil when ctx carries no actor.
func ActorFromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	actor, ok := ctx.Value(actorContextKey{}).(*Actor)
	if !ok {
		return nil
	}
	return actor
}

// IsPrivilegedRole reports whether a gateway role name grants staff rights.
func IsPrivilegedRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "admin", "manager", "staff":
		return true
	}
	return false
}

// CanActFor reports whether actor may operate on a record owned by ownerID.
// Privileged actors may act for anyone.
func CanActFor(actor Actor, ownerID int64) bool {
	if actor.Privileged {
		return true
	}
	return actor.AccountID != 0 && actor.AccountID == ownerID
}

// IsOwner is the owner-only variant of CanActFor.
func IsOwner(actor Actor, ownerID int64) bool {
	return actor.AccountID != 0 && actor.AccountID == ownerID
}

// RequireActor returns the actor in ctx or ErrUnauthenticated.
func RequireActor(ctx context.Context) (Actor, error) {
	actor := ActorFromContext(ctx)
	if actor == nil || (actor.AccountID == 0 && !actor.Privileged) {
		return Actor{}, ErrUnauthenticated
	}
	return *actor, nil
}

// RequirePrivileged fails unless ctx carries a privileged actor.
func RequirePrivileged(ctx context.Context) (Actor, error) {
	actor, err := RequireActor(ctx)
	if err != nil {
		return Actor{}, err
	}
	if !actor.Privileged {
		return Actor{}, ErrForbidden
	}
	return actor, nil
}
