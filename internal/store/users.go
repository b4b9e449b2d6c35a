package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// User statuses. Merged and deleted users keep their row; only a hard
// delete removes it.
const (
	UserStatusActive  = "active"
	UserStatusMerged  = "merged"
	UserStatusDeleted = "deleted"
)

// User is a canonical user record.
type User struct {
	UID         string
	DisplayName string
	Status      string
	CreatedAt   string
	UpdatedAt   string
}

// InsertUser creates a new active user.
func InsertUser(ctx context.Context, db DBTX, uid, name, now string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (uid, display_name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, uid, name, UserStatusActive, now, now)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser returns the user with the given uid, or nil if absent.
func GetUser(ctx context.Context, db DBTX, uid string) (*User, error) {
	var u User
	err := db.QueryRowContext(ctx, `
		SELECT uid, display_name, status, created_at, updated_at
		FROM users WHERE uid = ?
	`, uid).Scan(&u.UID, &u.DisplayName, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// ListUsers returns all users, newest first.
func ListUsers(ctx context.Context, db DBTX) ([]User, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT uid, display_name, status, created_at, updated_at
		FROM users ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UID, &u.DisplayName, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// UpdateUserName renames a user. Returns the number of rows updated
// (zero means the uid is unknown).
func UpdateUserName(ctx context.Context, db DBTX, uid, name, now string) (int64, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE users SET display_name = ?, updated_at = ? WHERE uid = ?
	`, name, now, uid)
	if err != nil {
		return 0, fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update user: rows affected: %w", err)
	}
	return n, nil
}

// SetUserStatus flips a user's lifecycle status (active/merged/deleted).
func SetUserStatus(ctx context.Context, db DBTX, uid, status, now string) (int64, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE users SET status = ?, updated_at = ? WHERE uid = ?
	`, status, now, uid)
	if err != nil {
		return 0, fmt.Errorf("set user status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set user status: rows affected: %w", err)
	}
	return n, nil
}

// DeleteUserRow physically removes the user record. Owned rows in
// other tables are the caller's responsibility.
func DeleteUserRow(ctx context.Context, db DBTX, uid string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM users WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
