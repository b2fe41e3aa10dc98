// Package postgres provides PostgreSQL storage for answers.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/EuPathDB/WSF/pkg/answer"
)

const (
	defaultListCapacity = 50
	maxListCapacity     = 1000
)

// psq is the PostgreSQL statement builder with dollar placeholders.
var psq = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// answerColumns lists columns returned by answer SELECT queries.
var answerColumns = []string{
	"id", "checksum", "question_name", "params", "result_size", "created_at",
}

// Store implements answer.Factory using PostgreSQL.
type Store struct {
	db            *sql.DB
	retentionDays int
	cancel        context.CancelFunc
	done          chan struct{}
}

// Config configures the PostgreSQL answer store.
type Config struct {
	// RetentionDays is how long answers are kept. Zero keeps them forever.
	RetentionDays int
}

// New creates a new PostgreSQL answer store.
func New(db *sql.DB, cfg Config) *Store {
	return &Store{
		db:            db,
		retentionDays: cfg.RetentionDays,
	}
}

// GetAnswer retrieves an answer by checksum. Returns nil, nil if not found.
func (s *Store) GetAnswer(ctx context.Context, checksum string) (*answer.Answer, error) {
	query, args, err := psq.Select(answerColumns...).
		From("answers").
		Where(sq.Eq{"checksum": checksum}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building answer query: %w", err)
	}

	a, err := scanAnswer(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // Factory interface specifies nil,nil for not-found
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// SaveAnswerValue persists the answer of av. An answer already saved under
// the same checksum wins and is returned.
func (s *Store) SaveAnswerValue(ctx context.Context, av *answer.AnswerValue) (*answer.Answer, error) {
	a, err := answer.NewAnswer(ctx, av)
	if err != nil {
		return nil, err
	}
	return s.Save(ctx, a)
}

// Save inserts a unless its checksum exists, then reads back the stored row.
func (s *Store) Save(ctx context.Context, a *answer.Answer) (*answer.Answer, error) {
	params, err := json.Marshal(a.Params)
	if err != nil {
		return nil, fmt.Errorf("marshaling answer params: %w", err)
	}

	query := `
		INSERT INTO answers (id, checksum, question_name, params, result_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (checksum) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		a.ID, a.Checksum, a.QuestionName, params, a.ResultSize, a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting answer: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		slog.Debug("answer already saved", "checksum", a.Checksum, "question", a.QuestionName)
	}

	stored, err := s.GetAnswer(ctx, a.Checksum)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("reading saved answer %s: %w", a.Checksum, sql.ErrNoRows)
	}
	return stored, nil
}

// ListAnswers returns saved answers matching filter, newest first.
func (s *Store) ListAnswers(ctx context.Context, filter answer.ListFilter) ([]*answer.Answer, error) {
	qb := psq.Select(answerColumns...).From("answers")
	if filter.QuestionName != "" {
		qb = qb.Where(sq.Eq{"question_name": filter.QuestionName})
	}
	qb = qb.OrderBy("created_at DESC", "checksum")
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		qb = qb.Offset(uint64(filter.Offset))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building answer list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing answers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	allocCap := defaultListCapacity
	if filter.Limit > 0 && filter.Limit <= maxListCapacity {
		allocCap = filter.Limit
	}
	answers := make([]*answer.Answer, 0, allocCap)
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating answer rows: %w", err)
	}
	return answers, nil
}

// Cleanup removes answers older than the retention period. It does nothing
// when retention is disabled.
func (s *Store) Cleanup(ctx context.Context) error {
	if s.retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	query := `DELETE FROM answers WHERE created_at < $1`
	res, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return fmt.Errorf("cleaning up answers: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		slog.Info("expired answers removed", "count", n, "retention_days", s.retentionDays)
	}
	return nil
}

// StartCleanupRoutine starts a background goroutine that periodically
// deletes expired answers. The goroutine is stopped when Close is called.
func (s *Store) StartCleanupRoutine(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Cleanup(ctx); err != nil {
					slog.Warn("answer cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Close stops the cleanup goroutine and waits for it to exit.
// It is safe to call Close even if StartCleanupRoutine was never called.
func (s *Store) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnswer(row rowScanner) (*answer.Answer, error) {
	var a answer.Answer
	var params []byte

	err := row.Scan(&a.ID, &a.Checksum, &a.QuestionName, &params, &a.ResultSize, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning answer: %w", err)
	}

	a.Params = make(map[string]string)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &a.Params); err != nil {
			return nil, fmt.Errorf("decoding answer params: %w", err)
		}
	}
	return &a, nil
}

// Verify interface compliance.
var (
	_ answer.Factory = (*Store)(nil)
	_ answer.Lister  = (*Store)(nil)
)
