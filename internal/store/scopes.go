package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Scope is a memory partition shared by its members.
type Scope struct {
	ScopeID   string
	ScopeType string
	CreatedAt string
}

// Member is a user's membership in a scope.
type Member struct {
	UID  string
	Role string
}

// InsertScope creates a scope.
func InsertScope(ctx context.Context, db DBTX, scopeID, scopeType, now string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO scopes (scope_id, scope_type, created_at) VALUES (?, ?, ?)
	`, scopeID, scopeType, now)
	if err != nil {
		return fmt.Errorf("insert scope: %w", err)
	}
	return nil
}

// GetScope returns the scope with the given id, or nil if absent.
func GetScope(ctx context.Context, db DBTX, scopeID string) (*Scope, error) {
	var sc Scope
	err := db.QueryRowContext(ctx, `
		SELECT scope_id, scope_type, created_at FROM scopes WHERE scope_id = ?
	`, scopeID).Scan(&sc.ScopeID, &sc.ScopeType, &sc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scope: %w", err)
	}
	return &sc, nil
}

// InsertMember adds a user to a scope with the given role.
func InsertMember(ctx context.Context, db DBTX, scopeID, uid, role, now string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO scope_members (scope_id, uid, role, added_at) VALUES (?, ?, ?, ?)
	`, scopeID, uid, role, now)
	if err != nil {
		return fmt.Errorf("insert scope member: %w", err)
	}
	return nil
}

// ListScopes returns all scopes, newest first.
func ListScopes(ctx context.Context, db DBTX) ([]Scope, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT scope_id, scope_type, created_at FROM scopes ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	defer rows.Close()

	var out []Scope
	for rows.Next() {
		var sc Scope
		if err := rows.Scan(&sc.ScopeID, &sc.ScopeType, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scope: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scopes: %w", err)
	}
	return out, nil
}

// ListMembers returns the members of a scope, most recently added first.
func ListMembers(ctx context.Context, db DBTX, scopeID string) ([]Member, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT uid, role FROM scope_members WHERE scope_id = ? ORDER BY added_at DESC
	`, scopeID)
	if err != nil {
		return nil, fmt.Errorf("list scope members: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UID, &m.Role); err != nil {
			return nil, fmt.Errorf("scan scope member: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scope members: %w", err)
	}
	return out, nil
}

// MergeMemberships moves fromUID's memberships to toUID. Where toUID
// already holds a membership in the same scope, the target's row (and
// role) wins and the source row is dropped.
func MergeMemberships(ctx context.Context, db DBTX, fromUID, toUID string) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM scope_members
		WHERE uid = ?
		  AND scope_id IN (SELECT scope_id FROM scope_members WHERE uid = ?)
	`, fromUID, toUID)
	if err != nil {
		return fmt.Errorf("merge memberships: drop overlapping: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		UPDATE scope_members SET uid = ? WHERE uid = ?
	`, toUID, fromUID)
	if err != nil {
		return fmt.Errorf("merge memberships: reassign: %w", err)
	}
	return nil
}

// CountMemberships returns the number of scope memberships held by uid.
func CountMemberships(ctx context.Context, db DBTX, uid string) (int64, error) {
	return countOwned(ctx, db, "scope_members", uid)
}

// DeleteMembershipsByUID removes every membership held by uid.
func DeleteMembershipsByUID(ctx context.Context, db DBTX, uid string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM scope_members WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("delete memberships: %w", err)
	}
	return nil
}
