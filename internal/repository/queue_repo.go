package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"presale/internal/model"

	"github.com/google/uuid"
)

type EmailQueueRepository interface {
	// ClaimBatch atomically moves up to batchSize pending rows with
	// attempts < maxAttempts to 'sending', incrementing attempts, oldest
	// first. The claim and the increment are one SQL statement so that two
	// overlapping invocations can never double-claim a row.
	ClaimBatch(ctx context.Context, batchSize, maxAttempts int) ([]*model.EmailQueueItem, error)

	// MarkSent finalises a claimed row: status 'sent', sent_at now, error cleared.
	MarkSent(ctx context.Context, id string) error

	// MarkFailed finalises a claimed row with a human-readable reason.
	MarkFailed(ctx context.Context, id string, reason string) error

	// Enqueue inserts a new pending row and returns its id.
	Enqueue(ctx context.Context, item *model.EmailQueueItem) (string, error)

	// PendingCount reports the current backlog, for logging and metrics.
	PendingCount(ctx context.Context) (int, error)
}

type emailQueueRepo struct {
	db *sql.DB
}

func NewEmailQueueRepo(db *sql.DB) EmailQueueRepository {
	return &emailQueueRepo{db: db}
}

// claimQuery selects the batch and flips it to 'sending' in a single
// statement. SKIP LOCKED keeps concurrent claims disjoint without blocking.
const claimQuery = `
WITH claimed AS (
    SELECT id
    FROM email_queue
    WHERE status = 'pending' AND attempts < $2
    ORDER BY created_at
    LIMIT $1
    FOR UPDATE SKIP LOCKED
)
UPDATE email_queue q
SET status = 'sending', attempts = q.attempts + 1
FROM claimed
WHERE q.id = claimed.id
RETURNING q.id, q.template_type, q.lang, q.to_email, q.to_name, q.payload,
          q.status, q.attempts, q.last_error, q.sent_at, q.created_at`

func (r *emailQueueRepo) ClaimBatch(ctx context.Context, batchSize, maxAttempts int) ([]*model.EmailQueueItem, error) {
	rows, err := r.db.QueryContext(ctx, claimQuery, batchSize, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("claim batch failed: %w", err)
	}
	defer rows.Close()

	var items []*model.EmailQueueItem
	for rows.Next() {
		var it model.EmailQueueItem
		var payload []byte
		if err := rows.Scan(
			&it.ID, &it.TemplateType, &it.Lang, &it.ToEmail, &it.ToName,
			&payload, &it.Status, &it.Attempts, &it.LastError, &it.SentAt, &it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("claim batch scan failed: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &it.Payload); err != nil {
				// A malformed payload must not poison the batch; the row is
				// still claimed and will be marked failed by the dispatcher.
				it.Payload = nil
			}
		}
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim batch rows error: %w", err)
	}
	return items, nil
}

func (r *emailQueueRepo) MarkSent(ctx context.Context, id string) error {
	query := `UPDATE email_queue
              SET status = 'sent', sent_at = NOW(), last_error = NULL
              WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark sent failed: %w", err)
	}
	return nil
}

func (r *emailQueueRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	query := `UPDATE email_queue
              SET status = 'failed', last_error = $2
              WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, reason); err != nil {
		return fmt.Errorf("mark failed failed: %w", err)
	}
	return nil
}

func (r *emailQueueRepo) Enqueue(ctx context.Context, item *model.EmailQueueItem) (string, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	payload, err := json.Marshal(item.Payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	query := `INSERT INTO email_queue
              (id, template_type, lang, to_email, to_name, payload, status, attempts, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, 'pending', 0, $7)
              RETURNING id`
	if err := r.db.QueryRowContext(ctx, query,
		item.ID, item.TemplateType, item.Lang, item.ToEmail, item.ToName,
		payload, time.Now().UTC(),
	).Scan(&item.ID); err != nil {
		return "", fmt.Errorf("enqueue failed: %w", err)
	}
	return item.ID, nil
}

func (r *emailQueueRepo) PendingCount(ctx context.Context) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM email_queue WHERE status = 'pending'`
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("pending count failed: %w", err)
	}
	return n, nil
}
