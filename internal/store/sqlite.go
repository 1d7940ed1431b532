package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRegistry implements TokenRegistry using SQLite.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the token registry database.
func NewSQLite(dbPath string) (*SQLiteRegistry, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	reg := &SQLiteRegistry{db: db}
	if err := reg.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return reg, nil
}

func (r *SQLiteRegistry) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS tokens (
		conversation_id TEXT NOT NULL,
		name            TEXT NOT NULL,
		symbol          TEXT NOT NULL,
		supply          TEXT NOT NULL,
		address         TEXT NOT NULL,
		tx_hash         TEXT NOT NULL,
		chain_name      TEXT NOT NULL,
		created_at      INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tokens_conversation ON tokens(conversation_id);
	`
	if _, err := r.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// RecordToken appends a deployed token to the registry.
func (r *SQLiteRegistry) RecordToken(ctx context.Context, token Token) error {
	created := token.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (conversation_id, name, symbol, supply, address, tx_hash, chain_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		token.ConversationID, token.Name, token.Symbol, token.Supply,
		token.Address, token.TxHash, token.ChainName, created.Unix())
	if err != nil {
		return fmt.Errorf("record token: %w", err)
	}
	return nil
}

// TokensByConversation lists tokens the conversation deployed, newest first.
func (r *SQLiteRegistry) TokensByConversation(ctx context.Context, conversationID string) ([]Token, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT conversation_id, name, symbol, supply, address, tx_hash, chain_name, created_at
		FROM tokens WHERE conversation_id = ? ORDER BY created_at DESC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []Token
	for rows.Next() {
		var t Token
		var created int64
		if err := rows.Scan(&t.ConversationID, &t.Name, &t.Symbol, &t.Supply,
			&t.Address, &t.TxHash, &t.ChainName, &created); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		t.CreatedAt = time.Unix(created, 0).UTC()
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// Close closes the database connection.
func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}
