package engine

import (
	"context"
	"log/slog"

	"github.com/engramdb/engram/internal/store"
)

// Directory operations: simple CRUD over users, identities, scopes,
// and per-owner state. No derived views are touched here; these exist
// so the merge/delete engine has real owned relations to work over.

// CreateUser creates an active user and returns its uid.
func (e *Engine) CreateUser(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", validationErr("user name is required")
	}
	uid := e.ids.NewID("u")
	if err := store.InsertUser(ctx, e.store.DB(), uid, name, e.now()); err != nil {
		return "", storageErr("create user", err)
	}
	if err := e.observer.OnEvent(DomainEvent{Kind: EventUserCreated, UID: uid}); err != nil {
		return uid, err
	}
	slog.Debug("user created", "uid", uid)
	return uid, nil
}

// ListUsers returns all users, newest first.
func (e *Engine) ListUsers(ctx context.Context) ([]store.User, error) {
	users, err := store.ListUsers(ctx, e.store.DB())
	if err != nil {
		return nil, storageErr("list users", err)
	}
	return users, nil
}

// ShowUser returns one user or a NOT_FOUND error.
func (e *Engine) ShowUser(ctx context.Context, uid string) (*store.User, error) {
	u, err := store.GetUser(ctx, e.store.DB(), uid)
	if err != nil {
		return nil, storageErr("show user", err)
	}
	if u == nil {
		return nil, notFoundErr("user not found: %s", uid)
	}
	return u, nil
}

// RenameUser updates a user's display name.
func (e *Engine) RenameUser(ctx context.Context, uid, name string) error {
	n, err := store.UpdateUserName(ctx, e.store.DB(), uid, name, e.now())
	if err != nil {
		return storageErr("rename user", err)
	}
	if n == 0 {
		return notFoundErr("user not found: %s", uid)
	}
	return nil
}

// LinkIdentity attaches a channel identity to an existing user and
// returns the identity id.
func (e *Engine) LinkIdentity(ctx context.Context, uid, channel, channelUserID string) (string, error) {
	u, err := store.GetUser(ctx, e.store.DB(), uid)
	if err != nil {
		return "", storageErr("link identity", err)
	}
	if u == nil {
		return "", notFoundErr("user not found: %s", uid)
	}

	id := store.Identity{
		IdentityID:    e.ids.NewID("ident"),
		UID:           uid,
		Channel:       channel,
		ChannelUserID: channelUserID,
		Confidence:    1.0,
	}
	if err := store.InsertIdentity(ctx, e.store.DB(), id, e.now()); err != nil {
		if store.IsConflict(err) {
			return "", conflictErr("identity already linked", err)
		}
		return "", storageErr("link identity", err)
	}
	if err := e.observer.OnEvent(DomainEvent{Kind: EventIdentityLinked, UID: uid, Channel: channel}); err != nil {
		return id.IdentityID, err
	}
	return id.IdentityID, nil
}

// ResolveIdentity maps (channel, channelUserID) to a uid.
func (e *Engine) ResolveIdentity(ctx context.Context, channel, channelUserID string) (string, error) {
	uid, err := store.ResolveIdentity(ctx, e.store.DB(), channel, channelUserID)
	if err != nil {
		return "", storageErr("resolve identity", err)
	}
	if uid == "" {
		return "", notFoundErr("identity not found: %s:%s", channel, channelUserID)
	}
	return uid, nil
}

// UnlinkIdentity removes a channel identity.
func (e *Engine) UnlinkIdentity(ctx context.Context, channel, channelUserID string) error {
	n, err := store.DeleteIdentity(ctx, e.store.DB(), channel, channelUserID)
	if err != nil {
		return storageErr("unlink identity", err)
	}
	if n == 0 {
		return notFoundErr("identity not found: %s:%s", channel, channelUserID)
	}
	return nil
}

// CreateScope creates a memory scope.
func (e *Engine) CreateScope(ctx context.Context, scopeID, scopeType string) error {
	if err := store.InsertScope(ctx, e.store.DB(), scopeID, scopeType, e.now()); err != nil {
		if store.IsConflict(err) {
			return conflictErr("scope already exists", err)
		}
		return storageErr("create scope", err)
	}
	return nil
}

// AddScopeMember adds a user to a scope.
func (e *Engine) AddScopeMember(ctx context.Context, scopeID, uid, role string) error {
	sc, err := store.GetScope(ctx, e.store.DB(), scopeID)
	if err != nil {
		return storageErr("add scope member", err)
	}
	if sc == nil {
		return notFoundErr("scope not found: %s", scopeID)
	}

	if err := store.InsertMember(ctx, e.store.DB(), scopeID, uid, role, e.now()); err != nil {
		if store.IsConflict(err) {
			return conflictErr("already a member", err)
		}
		return storageErr("add scope member", err)
	}
	return e.observer.OnEvent(DomainEvent{Kind: EventScopeMemberAdded, ScopeID: scopeID, UID: uid})
}

// ListScopes returns all scopes, newest first.
func (e *Engine) ListScopes(ctx context.Context) ([]store.Scope, error) {
	scopes, err := store.ListScopes(ctx, e.store.DB())
	if err != nil {
		return nil, storageErr("list scopes", err)
	}
	return scopes, nil
}

// ScopeMembers returns the members of a scope.
func (e *Engine) ScopeMembers(ctx context.Context, scopeID string) ([]store.Member, error) {
	members, err := store.ListMembers(ctx, e.store.DB(), scopeID)
	if err != nil {
		return nil, storageErr("list scope members", err)
	}
	return members, nil
}

// GetState returns one state document, or a NOT_FOUND error.
func (e *Engine) GetState(ctx context.Context, uid, scopeID, key string) (*store.StateRow, error) {
	r, err := store.GetState(ctx, e.store.DB(), scopeID, uid, key)
	if err != nil {
		return nil, storageErr("get state", err)
	}
	if r == nil {
		return nil, notFoundErr("state not found: %s", key)
	}
	return r, nil
}

// SetState writes one state document.
func (e *Engine) SetState(ctx context.Context, uid, scopeID, key, valueJSON string) error {
	if err := store.SetState(ctx, e.store.DB(), scopeID, uid, key, valueJSON, e.now()); err != nil {
		return storageErr("set state", err)
	}
	return nil
}

// DeleteState removes one state document.
func (e *Engine) DeleteState(ctx context.Context, uid, scopeID, key string) error {
	n, err := store.DeleteState(ctx, e.store.DB(), scopeID, uid, key)
	if err != nil {
		return storageErr("delete state", err)
	}
	if n == 0 {
		return notFoundErr("state not found: %s", key)
	}
	return nil
}
