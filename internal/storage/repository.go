package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/p-estor/ranksync-bot/internal/rank"
)

// Repository handles all database operations
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new repository with SQLite
func NewRepository(dbPath string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the database schema
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS linked_accounts (
			user_id VARCHAR(20) NOT NULL,
			puuid VARCHAR(100) PRIMARY KEY,
			tft_puuid VARCHAR(100),
			summoner_name VARCHAR(50) NOT NULL,
			tag_line VARCHAR(10) NOT NULL,
			rank_soloq TEXT NOT NULL DEFAULT 'UNRANKED',
			rank_flex TEXT NOT NULL DEFAULT 'UNRANKED',
			rank_tft TEXT NOT NULL DEFAULT 'UNRANKED',
			rank_doubleup TEXT NOT NULL DEFAULT 'UNRANKED',
			last_updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_linked_accounts_user ON linked_accounts(user_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

const accountColumns = `user_id, puuid, tft_puuid, summoner_name, tag_line,
	rank_soloq, rank_flex, rank_tft, rank_doubleup, last_updated`

func scanAccount(row interface{ Scan(...any) error }) (*LinkedAccount, error) {
	a := &LinkedAccount{}
	var tftPUUID sql.NullString
	err := row.Scan(&a.UserID, &a.PUUID, &tftPUUID, &a.SummonerName, &a.TagLine,
		&a.RankSoloQ, &a.RankFlex, &a.RankTFT, &a.RankDoubleUp, &a.LastUpdated)
	if err != nil {
		return nil, err
	}
	a.TFTPUUID = tftPUUID.String
	return a, nil
}

// Upsert inserts a new linked account or updates an existing one by
// PUUID. Before an insert it checks the owner's account count; linking
// a new account past MaxAccounts fails with ErrLimitExceeded and writes
// nothing. The check-then-write is not atomic across concurrent upserts
// of different accounts for the same user; that race is accepted and
// bounded to a single account over the cap.
func (r *Repository) Upsert(ctx context.Context, a *LinkedAccount) error {
	existing, err := r.ListByUser(ctx, a.UserID)
	if err != nil {
		return err
	}

	known := false
	for _, acc := range existing {
		if acc.PUUID == a.PUUID {
			known = true
			break
		}
	}
	if !known && len(existing) >= MaxAccounts {
		slog.Warn("Account cap reached, refusing to link", "userID", a.UserID, "cap", MaxAccounts)
		return ErrLimitExceeded
	}

	if a.RankSoloQ == "" {
		a.RankSoloQ = rank.TierUnranked
	}
	if a.RankFlex == "" {
		a.RankFlex = rank.TierUnranked
	}
	if a.RankTFT == "" {
		a.RankTFT = rank.TierUnranked
	}
	if a.RankDoubleUp == "" {
		a.RankDoubleUp = rank.TierUnranked
	}

	var tftPUUID sql.NullString
	if a.TFTPUUID != "" {
		tftPUUID = sql.NullString{String: a.TFTPUUID, Valid: true}
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO linked_accounts (user_id, puuid, tft_puuid, summoner_name, tag_line,
			rank_soloq, rank_flex, rank_tft, rank_doubleup)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(puuid) DO UPDATE SET
			user_id = excluded.user_id,
			tft_puuid = excluded.tft_puuid,
			summoner_name = excluded.summoner_name,
			tag_line = excluded.tag_line,
			rank_soloq = excluded.rank_soloq,
			rank_flex = excluded.rank_flex,
			rank_tft = excluded.rank_tft,
			rank_doubleup = excluded.rank_doubleup,
			last_updated = CURRENT_TIMESTAMP`,
		a.UserID, a.PUUID, tftPUUID, a.SummonerName, a.TagLine,
		a.RankSoloQ, a.RankFlex, a.RankTFT, a.RankDoubleUp,
	)
	return err
}

// ListByUser returns all accounts linked to a Discord user, oldest
// link first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]*LinkedAccount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM linked_accounts WHERE user_id = ? ORDER BY last_updated, puuid`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*LinkedAccount
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

// GetByPUUID finds a linked account by its Riot PUUID. Returns
// sql.ErrNoRows when no account matches.
func (r *Repository) GetByPUUID(ctx context.Context, puuid string) (*LinkedAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM linked_accounts WHERE puuid = ?`,
		puuid,
	)
	return scanAccount(row)
}

// Delete removes one linked account. Returns true iff a row matching
// both the user and the PUUID was removed.
func (r *Repository) Delete(ctx context.Context, userID, puuid string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM linked_accounts WHERE user_id = ? AND puuid = ?`,
		userID, puuid,
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListUserIDs returns the distinct owners of all linked accounts
func (r *Repository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM linked_accounts`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}

	return users, rows.Err()
}
