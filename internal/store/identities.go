package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Identity links a channel-local user id (e.g. a chat platform account)
// to a canonical uid.
type Identity struct {
	IdentityID    string
	UID           string
	Channel       string
	ChannelUserID string
	IsVerified    bool
	Confidence    float64
}

// InsertIdentity links a channel identity to a user. The
// (channel, channel_user_id) pair is unique across all users.
func InsertIdentity(ctx context.Context, db DBTX, id Identity, now string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO user_identities
		(identity_id, uid, channel, channel_user_id, is_verified, confidence, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id.IdentityID, id.UID, id.Channel, id.ChannelUserID, id.IsVerified, id.Confidence, now, now)
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

// ResolveIdentity returns the uid owning (channel, channelUserID), or
// "" if no such identity exists.
func ResolveIdentity(ctx context.Context, db DBTX, channel, channelUserID string) (string, error) {
	var uid string
	err := db.QueryRowContext(ctx, `
		SELECT uid FROM user_identities WHERE channel = ? AND channel_user_id = ?
	`, channel, channelUserID).Scan(&uid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve identity: %w", err)
	}
	return uid, nil
}

// DeleteIdentity unlinks a channel identity. Returns rows deleted.
func DeleteIdentity(ctx context.Context, db DBTX, channel, channelUserID string) (int64, error) {
	res, err := db.ExecContext(ctx, `
		DELETE FROM user_identities WHERE channel = ? AND channel_user_id = ?
	`, channel, channelUserID)
	if err != nil {
		return 0, fmt.Errorf("delete identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete identity: rows affected: %w", err)
	}
	return n, nil
}

// ReassignIdentities moves every identity owned by fromUID to toUID.
func ReassignIdentities(ctx context.Context, db DBTX, fromUID, toUID, now string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE user_identities SET uid = ?, updated_at = ? WHERE uid = ?
	`, toUID, now, fromUID)
	if err != nil {
		return fmt.Errorf("reassign identities: %w", err)
	}
	return nil
}

// CountIdentities returns the number of identities owned by uid.
func CountIdentities(ctx context.Context, db DBTX, uid string) (int64, error) {
	return countOwned(ctx, db, "user_identities", uid)
}

// DeleteIdentitiesByUID removes every identity owned by uid.
func DeleteIdentitiesByUID(ctx context.Context, db DBTX, uid string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM user_identities WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("delete identities: %w", err)
	}
	return nil
}

// countOwned counts rows in table owned by uid. The table name is
// always one of the fixed core tables, never user input.
func countOwned(ctx context.Context, db DBTX, table, uid string) (int64, error) {
	var n int64
	query := fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE uid = ?", table)
	if err := db.QueryRowContext(ctx, query, uid).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
