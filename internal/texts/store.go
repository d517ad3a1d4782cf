package texts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/tarcisioribeiro/unipost-admin-sub000/internal/log"
)

// Querier is the database surface the store needs. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so the same code runs inside and outside a
// transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store manages text and statistics persistence.
//
// Store is safe for concurrent use. Counter updates are single-statement
// SQL increments executed in the same transaction as the state change
// they account for, so concurrent approvals cannot lose increments.
type Store struct {
	q      Querier
	pool   *pgxpool.Pool // nil in tests; operations then skip transactions
	logger log.Logger
}

// New creates a Store. pool may be nil for tests with a mock querier.
func New(q Querier, pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{q: q, pool: pool, logger: logger}
}

// withTx runs fn inside a transaction when a pool is available, and
// directly against the querier otherwise.
func (s *Store) withTx(ctx context.Context, fn func(q Querier) error) error {
	if s.pool == nil {
		return fn(s.q)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const textColumns = `id, topic, content, platform, tone, creativity,
	provider, model, word_count, target_words, within_tolerance, status,
	created_at, updated_at`

func scanText(row pgx.Row) (*Text, error) {
	var t Text
	err := row.Scan(
		&t.ID, &t.Topic, &t.Content, &t.Platform, &t.Tone, &t.Creativity,
		&t.Provider, &t.Model, &t.WordCount, &t.TargetWords,
		&t.WithinTolerance, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning text: %w", err)
	}
	return &t, nil
}

// CreateParams describe a freshly generated text.
type CreateParams struct {
	Topic           string
	Content         string
	Platform        string
	Tone            string
	Creativity      string
	Provider        string
	Model           string
	WordCount       int
	TargetWords     int
	WithinTolerance bool
}

// Create persists a new text in pending state and increments the
// generated counter. Both writes commit together.
func (s *Store) Create(ctx context.Context, params CreateParams) (*Text, error) {
	id := uuid.New()
	var created *Text

	err := s.withTx(ctx, func(q Querier) error {
		row := q.QueryRow(ctx, `
			INSERT INTO texts (id, topic, content, platform, tone, creativity,
				provider, model, word_count, target_words, within_tolerance, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING `+textColumns,
			id, params.Topic, params.Content, params.Platform, params.Tone,
			params.Creativity, params.Provider, params.Model, params.WordCount,
			params.TargetWords, params.WithinTolerance, StatusPending,
		)
		t, err := scanText(row)
		if err != nil {
			return err
		}
		created = t

		_, err = q.Exec(ctx, `
			UPDATE statistics
			SET generated_count = generated_count + 1, updated_at = now()
			WHERE id = 1`)
		if err != nil {
			return fmt.Errorf("incrementing generated count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("created text", "id", created.ID, "topic", created.Topic,
		"words", created.WordCount)
	return created, nil
}

// Get retrieves a text by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Text, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+textColumns+` FROM texts WHERE id = $1`, id)
	return scanText(row)
}

// ListParams filter and page a text listing.
type ListParams struct {
	Status Status // empty = all statuses
	Limit  int
	Offset int
}

// List returns texts ordered by newest first.
func (s *Store) List(ctx context.Context, params ListParams) ([]Text, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	var (
		rows pgx.Rows
		err  error
	)
	if params.Status != "" {
		rows, err = s.q.Query(ctx, `
			SELECT `+textColumns+` FROM texts
			WHERE status = $1
			ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			params.Status, limit, params.Offset)
	} else {
		rows, err = s.q.Query(ctx, `
			SELECT `+textColumns+` FROM texts
			ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, params.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("listing texts: %w", err)
	}
	defer rows.Close()

	var list []Text
	for rows.Next() {
		t, err := scanText(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing texts: %w", err)
	}
	return list, nil
}

// SetStatus transitions a text to the given status and bumps the matching
// counter. Re-submitting the current status is a no-op: no counter moves
// and changed is false. The gating UPDATE and the counter increment
// commit in the same transaction.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status Status) (text *Text, changed bool, err error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, false, err
	}

	err = s.withTx(ctx, func(q Querier) error {
		row := q.QueryRow(ctx, `
			UPDATE texts
			SET status = $2, updated_at = now()
			WHERE id = $1 AND status <> $2
			RETURNING `+textColumns,
			id, status,
		)
		t, scanErr := scanText(row)
		if errors.Is(scanErr, ErrNotFound) {
			// Either the text does not exist or it already holds this
			// status. Distinguish the two.
			current, getErr := s.getFrom(ctx, q, id)
			if getErr != nil {
				return getErr
			}
			text = current
			return nil
		}
		if scanErr != nil {
			return scanErr
		}

		text = t
		changed = true
		return s.bumpStatusCounter(ctx, q, status)
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		s.logger.Info("text status changed", "id", id, "status", status)
	}
	return text, changed, nil
}

func (s *Store) getFrom(ctx context.Context, q Querier, id uuid.UUID) (*Text, error) {
	row := q.QueryRow(ctx, `SELECT `+textColumns+` FROM texts WHERE id = $1`, id)
	return scanText(row)
}

func (s *Store) bumpStatusCounter(ctx context.Context, q Querier, status Status) error {
	var column string
	switch status {
	case StatusApproved:
		column = "approved_count"
	case StatusDenied:
		column = "denied_count"
	default:
		return nil // returning to pending does not move a counter
	}

	_, err := q.Exec(ctx, `
		UPDATE statistics
		SET `+column+` = `+column+` + 1, updated_at = now()
		WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("incrementing %s: %w", column, err)
	}
	return nil
}

// GetStatistics reads the aggregate counters.
func (s *Store) GetStatistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	err := s.q.QueryRow(ctx, `
		SELECT generated_count, approved_count, denied_count, updated_at
		FROM statistics WHERE id = 1`).
		Scan(&stats.Generated, &stats.Approved, &stats.Denied, &stats.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("reading statistics: %w", err)
	}
	return &stats, nil
}

// SaveEmbedding stores the embedding of a text, replacing any previous
// one. Embeddings are written when a text is approved so similar topics
// can reuse it as a reference.
func (s *Store) SaveEmbedding(ctx context.Context, textID uuid.UUID, vec []float32) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO text_embeddings (text_id, embedding)
		VALUES ($1, $2)
		ON CONFLICT (text_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
		textID, pgvector.NewVector(vec))
	if err != nil {
		return fmt.Errorf("saving embedding for %s: %w", textID, err)
	}
	return nil
}
