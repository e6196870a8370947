// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

// Package store persists the webhooks the bot posts through, so they
// survive restarts.
package store

import (
	"context"
	_ "embed"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitemigration"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/runicbabble/runicbabble/internal/xdg"
)

//go:embed sql/schema.sql
var schema string

// Error codes returned by the store.
const (
	CodeBadLocation = "BAD_DB_LOCATION"
	CodeQuery       = "DB_QUERY_FAILED"
)

const sqliteScheme = "sqlite:///"

// Webhook is the stored identity of a channel's webhook.
type Webhook struct {
	ChannelID string
	ID        string
	Token     string
}

// WebhookStore keeps one webhook per channel in SQLite.
type WebhookStore struct {
	pool *sqlitemigration.Pool
}

// ParseLocation turns a database location such as "sqlite:///runic.sqlite"
// into a file path. Three slashes give a relative path, four an absolute one.
func ParseLocation(location string) (string, error) {
	path, ok := strings.CutPrefix(location, sqliteScheme)
	if !ok || path == "" {
		return "", oops.Code(CodeBadLocation).
			With("location", location).
			Errorf("database location must look like %s<path>", sqliteScheme)
	}
	return path, nil
}

// Open opens the database at location, creating and migrating it as needed.
func Open(ctx context.Context, location string) (*WebhookStore, error) {
	path, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := xdg.EnsureDir(dir); err != nil {
			return nil, oops.Code(CodeBadLocation).With("location", location).Wrap(err)
		}
	}

	pool := sqlitemigration.NewPool(path, sqlitemigration.Schema{
		Migrations: strings.Split(strings.TrimSpace(schema), "\n\n"),
	}, sqlitemigration.Options{
		Flags: sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenWAL,
		PrepareConn: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteTransient(conn, "PRAGMA busy_timeout = 5000;", nil)
		},
	})

	// The first connection waits for migrations and surfaces their errors.
	conn, err := pool.Get(ctx)
	if err != nil {
		_ = pool.Close()
		return nil, oops.Code(CodeQuery).With("location", location).Wrapf(err, "open database")
	}
	pool.Put(conn)

	return &WebhookStore{pool: pool}, nil
}

// Close releases every connection.
func (s *WebhookStore) Close() error {
	if err := s.pool.Close(); err != nil {
		return oops.Code(CodeQuery).Wrapf(err, "close database")
	}
	return nil
}

func (s *WebhookStore) conn(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := s.pool.Get(ctx)
	if err != nil {
		return nil, oops.Code(CodeQuery).Wrapf(err, "get connection")
	}
	return conn, nil
}

// Get returns the webhook stored for channelID.
func (s *WebhookStore) Get(ctx context.Context, channelID string) (Webhook, bool, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return Webhook{}, false, err
	}
	defer s.pool.Put(conn)

	stmt := conn.Prep(`SELECT webhook_id, token FROM webhooks WHERE channel_id = :channel_id;`)
	defer stmt.Reset()
	stmt.SetText(":channel_id", channelID)

	hasRow, err := stmt.Step()
	if err != nil {
		return Webhook{}, false, oops.Code(CodeQuery).With("channel_id", channelID).Wrap(err)
	}
	if !hasRow {
		return Webhook{}, false, nil
	}
	return Webhook{
		ChannelID: channelID,
		ID:        stmt.GetText("webhook_id"),
		Token:     stmt.GetText("token"),
	}, true, nil
}

// Put stores w, replacing any webhook previously stored for its channel.
func (s *WebhookStore) Put(ctx context.Context, w Webhook) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO webhooks (channel_id, webhook_id, token)
		VALUES (:channel_id, :webhook_id, :token)
		ON CONFLICT (channel_id) DO UPDATE SET
			webhook_id = excluded.webhook_id,
			token = excluded.token;`,
		&sqlitex.ExecOptions{
			Named: map[string]any{
				":channel_id": w.ChannelID,
				":webhook_id": w.ID,
				":token":      w.Token,
			},
		})
	if err != nil {
		return oops.Code(CodeQuery).With("channel_id", w.ChannelID).Wrap(err)
	}
	return nil
}

// Delete forgets the webhook of channelID. Deleting an absent entry is not
// an error.
func (s *WebhookStore) Delete(ctx context.Context, channelID string) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `DELETE FROM webhooks WHERE channel_id = :channel_id;`,
		&sqlitex.ExecOptions{Named: map[string]any{":channel_id": channelID}})
	if err != nil {
		return oops.Code(CodeQuery).With("channel_id", channelID).Wrap(err)
	}
	return nil
}

// Count returns the number of stored webhooks.
func (s *WebhookStore) Count(ctx context.Context) (int, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	defer s.pool.Put(conn)

	var n int
	err = sqlitex.Execute(conn, `SELECT count(*) FROM webhooks;`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			n = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, oops.Code(CodeQuery).Wrap(err)
	}
	return n, nil
}
