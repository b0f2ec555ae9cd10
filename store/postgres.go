package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ducka/go-flow/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const defaultTable = "flow_state"

// PgxConn is satisfied by *pgxpool.Pool and *pgx.Conn.
type PgxConn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps entries in a single table, using a version column for optimistic concurrency.
type PostgresStore[TState any] struct {
	conn       PgxConn
	marshaller utils.Marshaller
	table      string
}

type PostgresOption func(o *postgresOptions)

type postgresOptions struct {
	marshaller utils.Marshaller
	table      string
}

func WithTable(table string) PostgresOption {
	return func(o *postgresOptions) {
		o.table = table
	}
}

func WithPostgresMarshaller(marshaller utils.Marshaller) PostgresOption {
	return func(o *postgresOptions) {
		o.marshaller = marshaller
	}
}

func NewPostgresStore[TState any](conn PgxConn, opts ...PostgresOption) *PostgresStore[TState] {
	if conn == nil {
		panic("conn should not be nil")
	}

	options := postgresOptions{
		marshaller: utils.NewJsonMarshaller(),
		table:      defaultTable,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &PostgresStore[TState]{
		conn:       conn,
		marshaller: options.marshaller,
		table:      pgx.Identifier{options.table}.Sanitize(),
	}
}

// Migrate creates the state table if it does not exist.
func (p *PostgresStore[TState]) Migrate(ctx context.Context) error {
	_, err := p.conn.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	version    BIGINT NOT NULL,
	expires_at TIMESTAMPTZ
)`, p.table))
	return err
}

func (p *PostgresStore[TState]) Get(ctx context.Context, keys ...string) ([]StateEntry[TState], error) {
	if len(keys) == 0 {
		return []StateEntry[TState]{}, nil
	}

	rows, err := p.conn.Query(ctx, fmt.Sprintf(`
SELECT key, value, version FROM %s
WHERE key = ANY($1) AND (expires_at IS NULL OR expires_at > now())`, p.table), keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]StateEntry[TState], len(keys))
	for rows.Next() {
		var (
			key     string
			payload []byte
			version int64
		)
		if err := rows.Scan(&key, &payload, &version); err != nil {
			return nil, err
		}

		state := new(TState)
		if err := p.marshaller.Deserialize(payload, state); err != nil {
			return nil, err
		}
		found[key] = StateEntry[TState]{Key: key, State: state, Timestamp: utils.ToPtr(version)}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Keep the order of the requested keys
	results := make([]StateEntry[TState], 0, len(found))
	for _, key := range keys {
		if entry, ok := found[key]; ok {
			results = append(results, entry)
			delete(found, key)
		}
	}
	return results, nil
}

func (p *PostgresStore[TState]) Set(ctx context.Context, entries ...StateEntry[TState]) (err error) {
	if len(entries) == 0 {
		return nil
	}

	tx, err := p.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) && err == nil {
			err = rollbackErr
		}
	}()

	conflicts := make([]string, 0)

	for _, entry := range entries {
		var applied bool
		if entry.State == nil {
			applied, err = p.delete(ctx, tx, entry)
		} else {
			applied, err = p.upsert(ctx, tx, entry)
		}
		if err != nil {
			return err
		}
		if !applied {
			conflicts = append(conflicts, entry.Key)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}

	return conflictOrNil(conflicts)
}

func (p *PostgresStore[TState]) upsert(ctx context.Context, tx pgx.Tx, entry StateEntry[TState]) (bool, error) {
	payload, err := p.marshaller.Serialize(entry.State)
	if err != nil {
		return false, err
	}

	var expiresAt *time.Time
	if entry.Expiry != nil {
		expiresAt = utils.ToPtr(time.Now().Add(*entry.Expiry))
	}

	// An expired row counts as absent; otherwise the stored version must match the one read.
	tag, err := tx.Exec(ctx, fmt.Sprintf(`
INSERT INTO %s AS t (key, value, version, expires_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value, version = GREATEST(EXCLUDED.version, t.version + 1), expires_at = EXCLUDED.expires_at
WHERE (t.expires_at IS NOT NULL AND t.expires_at <= now()) OR t.version = $5`, p.table),
		entry.Key, payload, time.Now().UnixNano(), expiresAt, entry.Timestamp,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresStore[TState]) delete(ctx context.Context, tx pgx.Tx, entry StateEntry[TState]) (bool, error) {
	tag, err := tx.Exec(ctx, fmt.Sprintf(`
DELETE FROM %s
WHERE key = $1 AND ((expires_at IS NOT NULL AND expires_at <= now()) OR version = $2)`, p.table),
		entry.Key, entry.Timestamp,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	// Nothing deleted: fine if the key is absent, a conflict if a live row holds a different version
	var exists bool
	err = tx.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE key = $1)`, p.table), entry.Key).Scan(&exists)
	if err != nil {
		return false, err
	}
	return !exists, nil
}
