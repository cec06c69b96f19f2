// internal/estimate/postgres.go
package estimate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"tour-estimate-workers/internal/common/database"
	"tour-estimate-workers/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const estimateColumns = `id, share_token, session_id, status, items, revision_history,
	generation_metadata, valid_until, created_at, updated_at`

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*models.QuoteSession, error) {
	const query = `
		SELECT id, user_id, status, is_completed, estimate_id, contact, survey, created_at
		FROM quote_sessions
		WHERE id = $1`

	var (
		sess            models.QuoteSession
		userID, estID   sql.NullString
		contact, survey []byte
	)
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&sess.ID, &userID, &sess.Status, &sess.IsCompleted, &estID, &contact, &survey, &sess.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if userID.Valid {
		sess.UserID = &userID.String
	}
	if estID.Valid {
		sess.EstimateID = &estID.String
	}
	if err := unmarshalOptional(contact, &sess.Contact); err != nil {
		return nil, fmt.Errorf("decode contact: %w", err)
	}
	if err := unmarshalOptional(survey, &sess.Survey); err != nil {
		return nil, fmt.Errorf("decode survey: %w", err)
	}
	return &sess, nil
}

func (s *PostgresStore) GetEstimate(ctx context.Context, estimateID string) (*models.Estimate, error) {
	query := `SELECT ` + estimateColumns + ` FROM estimates WHERE id = $1`
	est, err := scanEstimate(s.db.QueryRowContext(ctx, query, estimateID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEstimateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get estimate: %w", err)
	}
	return est, nil
}

func (s *PostgresStore) CreateForSession(ctx context.Context, est *models.Estimate) error {
	items, history, meta, err := encodeEstimate(est)
	if err != nil {
		return err
	}

	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		const insert = `
			INSERT INTO estimates (` + estimateColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		if _, err := tx.ExecContext(ctx, insert,
			est.ID, est.ShareToken, est.SessionID, est.Status, string(items), string(history), jsonOrNull(meta),
			est.ValidUntil, est.CreatedAt, est.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert estimate: %w", err)
		}

		const attach = `
			UPDATE quote_sessions
			SET estimate_id = $1, status = $2
			WHERE id = $3 AND estimate_id IS NULL`
		res, err := tx.ExecContext(ctx, attach, est.ID, models.SessionEstimateAttached, est.SessionID)
		if err != nil {
			return fmt.Errorf("attach estimate: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("attach estimate: %w", err)
		} else if n == 0 {
			if err := sessionExists(ctx, tx, est.SessionID); err != nil {
				return err
			}
			return ErrAlreadyAttached
		}
		return nil
	})
}

func (s *PostgresStore) MarkSubmitted(ctx context.Context, sessionID string) (bool, error) {
	flipped := false
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		const flip = `
			UPDATE quote_sessions
			SET is_completed = TRUE
			WHERE id = $1 AND is_completed = FALSE
			RETURNING estimate_id`
		var estID sql.NullString
		err := tx.QueryRowContext(ctx, flip, sessionID).Scan(&estID)
		if errors.Is(err, sql.ErrNoRows) {
			return sessionExists(ctx, tx, sessionID)
		}
		if err != nil {
			return fmt.Errorf("flip submitted: %w", err)
		}
		flipped = true

		if !estID.Valid {
			return nil
		}
		const promote = `
			UPDATE estimates
			SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status = $3`
		if _, err := tx.ExecContext(ctx, promote, estID.String, models.StatusPending, models.StatusDraft); err != nil {
			return fmt.Errorf("promote estimate: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return flipped, nil
}

func (s *PostgresStore) TransitionStatus(ctx context.Context, estimateID string, from []models.EstimateStatus, to models.EstimateStatus) (models.EstimateStatus, error) {
	const query = `
		WITH prev AS (SELECT id, status FROM estimates WHERE id = $1 FOR UPDATE)
		UPDATE estimates e
		SET status = $3, updated_at = NOW()
		FROM prev
		WHERE e.id = prev.id AND prev.status = ANY($2)
		RETURNING prev.status`

	var prev models.EstimateStatus
	err := s.db.QueryRowContext(ctx, query, estimateID, pq.Array(statusStrings(from)), to).Scan(&prev)
	if errors.Is(err, sql.ErrNoRows) {
		return "", s.conflictOrMissing(ctx, estimateID)
	}
	if err != nil {
		return "", fmt.Errorf("transition estimate: %w", err)
	}
	return prev, nil
}

func (s *PostgresStore) AppendRevision(ctx context.Context, estimateID string, from []models.EstimateStatus, entry *models.RevisionEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode revision: %w", err)
	}

	const query = `
		WITH prev AS (SELECT id, status FROM estimates WHERE id = $1 FOR UPDATE)
		UPDATE estimates e
		SET status = $3,
			revision_history = e.revision_history
				|| jsonb_build_array($4::jsonb || jsonb_build_object('previousStatus', prev.status)),
			updated_at = NOW()
		FROM prev
		WHERE e.id = prev.id AND prev.status = ANY($2)
		RETURNING prev.status`

	var prev models.EstimateStatus
	err = s.db.QueryRowContext(ctx, query,
		estimateID, pq.Array(statusStrings(from)), models.StatusPending, string(payload),
	).Scan(&prev)
	if errors.Is(err, sql.ErrNoRows) {
		return s.conflictOrMissing(ctx, estimateID)
	}
	if err != nil {
		return fmt.Errorf("append revision: %w", err)
	}
	entry.PreviousStatus = prev
	return nil
}

func (s *PostgresStore) LinkIdentity(ctx context.Context, sessionID, userID string) error {
	const query = `
		UPDATE quote_sessions
		SET user_id = $2
		WHERE id = $1 AND (user_id IS NULL OR user_id = $2)`

	res, err := s.db.ExecContext(ctx, query, sessionID, userID)
	if err != nil {
		return fmt.Errorf("link identity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("link identity: %w", err)
	}
	if n == 0 {
		if err := sessionExists(ctx, s.db, sessionID); err != nil {
			return err
		}
		return ErrIdentityConflict
	}
	return nil
}

func (s *PostgresStore) UpdateItems(ctx context.Context, estimateID string, allowed []models.EstimateStatus, fn func(*models.Estimate) error) (*models.Estimate, error) {
	var out *models.Estimate
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		query := `SELECT ` + estimateColumns + ` FROM estimates WHERE id = $1 FOR UPDATE`
		est, err := scanEstimate(tx.QueryRowContext(ctx, query, estimateID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEstimateNotFound
		}
		if err != nil {
			return fmt.Errorf("lock estimate: %w", err)
		}
		if !contains(allowed, est.Status) {
			return fmt.Errorf("%w: estimate is %s", ErrStateConflict, est.Status)
		}

		if err := fn(est); err != nil {
			return err
		}

		items, err := json.Marshal(est.Items)
		if err != nil {
			return fmt.Errorf("encode items: %w", err)
		}
		const update = `UPDATE estimates SET items = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`
		if err := tx.QueryRowContext(ctx, update, estimateID, string(items)).Scan(&est.UpdatedAt); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		out = est
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) conflictOrMissing(ctx context.Context, estimateID string) error {
	var current models.EstimateStatus
	err := s.db.QueryRowContext(ctx, `SELECT status FROM estimates WHERE id = $1`, estimateID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrEstimateNotFound
	}
	if err != nil {
		return fmt.Errorf("read estimate status: %w", err)
	}
	return fmt.Errorf("%w: estimate is %s", ErrStateConflict, current)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sessionExists returns nil when the session exists and ErrSessionNotFound otherwise.
func sessionExists(ctx context.Context, q queryRower, sessionID string) error {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM quote_sessions WHERE id = $1)`, sessionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return ErrSessionNotFound
	}
	return nil
}

func scanEstimate(row rowScanner) (*models.Estimate, error) {
	var (
		est                  models.Estimate
		items, history, meta []byte
	)
	if err := row.Scan(
		&est.ID, &est.ShareToken, &est.SessionID, &est.Status, &items, &history, &meta,
		&est.ValidUntil, &est.CreatedAt, &est.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalOptional(items, &est.Items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if err := unmarshalOptional(history, &est.RevisionHistory); err != nil {
		return nil, fmt.Errorf("decode revision history: %w", err)
	}
	if len(meta) > 0 && string(meta) != "null" {
		est.Metadata = &models.GenerationMetadata{}
		if err := json.Unmarshal(meta, est.Metadata); err != nil {
			return nil, fmt.Errorf("decode generation metadata: %w", err)
		}
	}
	return &est, nil
}

func encodeEstimate(est *models.Estimate) (items, history, meta []byte, err error) {
	if items, err = json.Marshal(nonNilItems(est.Items)); err != nil {
		return nil, nil, nil, fmt.Errorf("encode items: %w", err)
	}
	revisions := est.RevisionHistory
	if revisions == nil {
		revisions = []models.RevisionEntry{}
	}
	if history, err = json.Marshal(revisions); err != nil {
		return nil, nil, nil, fmt.Errorf("encode revision history: %w", err)
	}
	if est.Metadata != nil {
		if meta, err = json.Marshal(est.Metadata); err != nil {
			return nil, nil, nil, fmt.Errorf("encode generation metadata: %w", err)
		}
	}
	return items, history, meta, nil
}

func nonNilItems(items []models.EstimateItem) []models.EstimateItem {
	if items == nil {
		return []models.EstimateItem{}
	}
	return items
}

// jsonOrNull passes JSON as text so lib/pq does not send it as bytea.
func jsonOrNull(raw []byte) interface{} {
	if raw == nil {
		return nil
	}
	return string(raw)
}

func unmarshalOptional(raw []byte, dest interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func statusStrings(statuses []models.EstimateStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
