package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"arbengine/internal/arb"
)

// Store provides an append-only SQLite log of detected arbitrage
// opportunities, for offline analysis. The live graph itself is never
// persisted here (spec.md §9 "No persistence") — this is an observability
// trail, not a durability layer for ArbitrageService state.
type Store struct {
	db *sql.DB
}

// OpportunityRecord is one scan result, as stored.
type OpportunityRecord struct {
	ID         int64
	Kind       string // "quick", "full", "sparse"
	Weight     float64
	Nodes      []string
	PoolsJSON  string
	Block      uint64
	DetectedAt time.Time
}

// NewStore creates a new SQLite store and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS opportunities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			weight REAL NOT NULL,
			nodes TEXT NOT NULL,
			pools TEXT NOT NULL,
			block INTEGER NOT NULL DEFAULT 0,
			detected_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_opportunities_detected_at ON opportunities(detected_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_opportunities_weight ON opportunities(weight ASC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	log.Info().Msg("database migrations completed")
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LogOpportunity appends one scan result to the opportunity log. kind is the
// scan that produced it ("quick", "full", "sparse").
func (s *Store) LogOpportunity(ctx context.Context, kind string, path arb.DecoratedPath, block uint64) error {
	pools := make([]string, len(path.Edges))
	for i, e := range path.Edges {
		pools[i] = e.PoolAddress
	}
	poolsJSON, err := json.Marshal(pools)
	if err != nil {
		return fmt.Errorf("marshaling pool list: %w", err)
	}
	nodesJSON, err := json.Marshal(path.Nodes)
	if err != nil {
		return fmt.Errorf("marshaling node list: %w", err)
	}

	query := `INSERT INTO opportunities (kind, weight, nodes, pools, block, detected_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query, kind, path.Weight, string(nodesJSON), string(poolsJSON), block, time.Now())
	return err
}

// RecentOpportunities retrieves the most recently logged opportunities,
// newest first.
func (s *Store) RecentOpportunities(ctx context.Context, limit int) ([]OpportunityRecord, error) {
	query := `SELECT id, kind, weight, nodes, pools, block, detected_at
		FROM opportunities
		ORDER BY detected_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying opportunities: %w", err)
	}
	defer rows.Close()

	var out []OpportunityRecord
	for rows.Next() {
		var r OpportunityRecord
		var nodesJSON string
		if err := rows.Scan(&r.ID, &r.Kind, &r.Weight, &nodesJSON, &r.PoolsJSON, &r.Block, &r.DetectedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal([]byte(nodesJSON), &r.Nodes); err != nil {
			return nil, fmt.Errorf("unmarshaling nodes: %w", err)
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

// MostNegativeOpportunities retrieves the opportunities with the most
// negative weight logged so far.
func (s *Store) MostNegativeOpportunities(ctx context.Context, limit int) ([]OpportunityRecord, error) {
	query := `SELECT id, kind, weight, nodes, pools, block, detected_at
		FROM opportunities
		ORDER BY weight ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying opportunities: %w", err)
	}
	defer rows.Close()

	var out []OpportunityRecord
	for rows.Next() {
		var r OpportunityRecord
		var nodesJSON string
		if err := rows.Scan(&r.ID, &r.Kind, &r.Weight, &nodesJSON, &r.PoolsJSON, &r.Block, &r.DetectedAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		if err := json.Unmarshal([]byte(nodesJSON), &r.Nodes); err != nil {
			return nil, fmt.Errorf("unmarshaling nodes: %w", err)
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

// Count returns the total number of logged opportunities.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM opportunities").Scan(&count)
	return count, err
}
