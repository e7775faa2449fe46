package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"mxshs/oddsranker/src/domain"

	pq "github.com/lib/pq"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id     UUID PRIMARY KEY,
    started_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS matches (
    match_id    SERIAL PRIMARY KEY,
    run_id      UUID NOT NULL REFERENCES runs (run_id),
    sport       TEXT NOT NULL,
    bookmakers  TEXT[] NOT NULL,
    rank        INTEGER NOT NULL,
    kickoff     TEXT NOT NULL,
    team1       TEXT NOT NULL,
    team2       TEXT NOT NULL,
    return_rate NUMERIC NOT NULL,
    odds        NUMERIC[] NOT NULL,
    scraped_on  DATE NOT NULL
);`

// Env keys read by DSNFromEnv.
var dsnKeys = []struct{ env, param string }{
	{"DB_HOST", "host"},
	{"DB_PORT", "port"},
	{"DB_USER", "user"},
	{"DB_PASS", "password"},
	{"DB", "dbname"},
}

// DSNFromEnv builds a lib/pq connection string from DB_* values. It returns
// "" when DB_HOST is absent, which disables the Postgres sink.
func DSNFromEnv(env map[string]string) string {
	if env["DB_HOST"] == "" {
		return ""
	}

	parts := make([]string, 0, len(dsnKeys)+1)
	for _, k := range dsnKeys {
		if v := env[k.env]; v != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", k.param, quote(v)))
		}
	}
	parts = append(parts, "sslmode=disable")

	return strings.Join(parts, " ")
}

func quote(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// DB stores ranked result sets under a single run.
type DB struct {
	db    *sql.DB
	runID string
	log   *zap.Logger
}

// Open connects, creates the schema if needed and registers the run.
func Open(ctx context.Context, dsn, runID string, log *zap.Logger) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	db := &DB{db: conn, runID: runID, log: log.Named("postgres")}
	if err := db.insertRun(ctx, time.Now()); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) insertRun(ctx context.Context, started time.Time) error {
	_, err := db.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at) VALUES ($1, $2)
        ON CONFLICT (run_id) DO NOTHING;`,
		db.runID,
		started,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Persist inserts every record of rs in one transaction.
func (db *DB) Persist(ctx context.Context, rs domain.ResultSet) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO matches
        (run_id, sport, bookmakers, rank, kickoff, team1, team2, return_rate, odds, scraped_on)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	names := bookmakerNames(rs.Bookmakers)
	for i, r := range rs.Records {
		_, err := stmt.ExecContext(ctx,
			db.runID,
			rs.Sport.String(),
			pq.Array(names),
			i+1,
			r.Kickoff,
			r.Team1,
			r.Team2,
			r.ReturnRate.String(),
			pq.Array(OddsArray(r.Odds)),
			rs.Date,
		)
		if err != nil {
			return fmt.Errorf("insert match %s: %w", r.Participants(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	db.log.Info("stored ranked matches",
		zap.String("sport", rs.Sport.String()),
		zap.String("bookmakers", rs.Label()),
		zap.Int("count", len(rs.Records)),
	)
	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// OddsArray lists odds in column order: team 1, draw when present, team 2.
func OddsArray(o domain.OddsSet) []string {
	odds := []string{o.Team1.String()}
	if o.HasDraw() {
		odds = append(odds, o.Draw.Decimal.String())
	}
	return append(odds, o.Team2.String())
}

func bookmakerNames(bs []domain.Bookmaker) []string {
	names := make([]string, 0, len(bs))
	for _, b := range bs {
		names = append(names, b.Name)
	}
	return names
}
