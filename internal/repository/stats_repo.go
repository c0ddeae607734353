package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"presale/internal/model"
)

// ErrBatchNotFound means presale_batch_detail() returned no row for the id.
var ErrBatchNotFound = errors.New("batch not found")

// StatsRepository is the read-only boundary of the public API. Every method
// maps to exactly one named Postgres function; the aggregation logic lives
// in the database, not here.
type StatsRepository interface {
	Metrics(ctx context.Context) (*model.PresaleMetrics, error)
	DailyStats(ctx context.Context, days int) ([]model.DailyStat, error)
	DailyStatsExtended(ctx context.Context, days int) ([]model.DailyStat, error)
	WalletStats(ctx context.Context) ([]model.WalletStat, error)
	ListBatches(ctx context.Context, limit int) ([]model.Batch, error)
	BatchDetail(ctx context.Context, id int) (*model.BatchDetail, error)
	Changelog(ctx context.Context, limit int) ([]model.ChangelogEntry, error)
}

type statsRepo struct {
	db *sql.DB
}

func NewStatsRepo(db *sql.DB) StatsRepository {
	return &statsRepo{db: db}
}

func (r *statsRepo) Metrics(ctx context.Context) (*model.PresaleMetrics, error) {
	var m model.PresaleMetrics
	query := `SELECT total_raised_usd, tokens_sold, participants, current_batch,
                     current_price_usd, batch_progress_pct
              FROM presale_public_metrics()`
	row := r.db.QueryRowContext(ctx, query)
	if err := row.Scan(
		&m.TotalRaisedUSD, &m.TokensSold, &m.Participants,
		&m.CurrentBatch, &m.CurrentPriceUSD, &m.BatchProgressPct,
	); err != nil {
		return nil, fmt.Errorf("presale_public_metrics: %w", err)
	}
	return &m, nil
}

func (r *statsRepo) DailyStats(ctx context.Context, days int) ([]model.DailyStat, error) {
	return r.dailyStats(ctx, "presale_daily_stats", days)
}

func (r *statsRepo) DailyStatsExtended(ctx context.Context, days int) ([]model.DailyStat, error) {
	return r.dailyStats(ctx, "presale_daily_stats_extended", days)
}

func (r *statsRepo) dailyStats(ctx context.Context, fn string, days int) ([]model.DailyStat, error) {
	query := fmt.Sprintf(`SELECT day, amount_usd, tx_count FROM %s($1)`, fn)
	rows, err := r.db.QueryContext(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	defer rows.Close()

	var stats []model.DailyStat
	for rows.Next() {
		var s model.DailyStat
		if err := rows.Scan(&s.Day, &s.AmountUSD, &s.TxCount); err != nil {
			return nil, fmt.Errorf("%s scan: %w", fn, err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *statsRepo) WalletStats(ctx context.Context) ([]model.WalletStat, error) {
	query := `SELECT currency, address, received, tx_count FROM presale_wallet_stats()`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("presale_wallet_stats: %w", err)
	}
	defer rows.Close()

	var stats []model.WalletStat
	for rows.Next() {
		var s model.WalletStat
		if err := rows.Scan(&s.Currency, &s.Address, &s.Received, &s.TxCount); err != nil {
			return nil, fmt.Errorf("presale_wallet_stats scan: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *statsRepo) ListBatches(ctx context.Context, limit int) ([]model.Batch, error) {
	query := `SELECT batch_no, price_usd, token_cap, sold, status
              FROM presale_list_batches($1)`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("presale_list_batches: %w", err)
	}
	defer rows.Close()

	var batches []model.Batch
	for rows.Next() {
		var b model.Batch
		if err := rows.Scan(&b.BatchNo, &b.PriceUSD, &b.TokenCap, &b.Sold, &b.Status); err != nil {
			return nil, fmt.Errorf("presale_list_batches scan: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (r *statsRepo) BatchDetail(ctx context.Context, id int) (*model.BatchDetail, error) {
	var d model.BatchDetail
	query := `SELECT batch_no, price_usd, token_cap, sold, status,
                     started_at, closed_at, breakdown
              FROM presale_batch_detail($1)`
	row := r.db.QueryRowContext(ctx, query, id)
	if err := row.Scan(
		&d.BatchNo, &d.PriceUSD, &d.TokenCap, &d.Sold, &d.Status,
		&d.StartedAt, &d.ClosedAt, &d.Breakdown,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrBatchNotFound, id)
		}
		return nil, fmt.Errorf("presale_batch_detail: %w", err)
	}
	return &d, nil
}

func (r *statsRepo) Changelog(ctx context.Context, limit int) ([]model.ChangelogEntry, error) {
	query := `SELECT version, title, description, published_at
              FROM presale_changelog($1)`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("presale_changelog: %w", err)
	}
	defer rows.Close()

	var entries []model.ChangelogEntry
	for rows.Next() {
		var e model.ChangelogEntry
		if err := rows.Scan(&e.Version, &e.Title, &e.Description, &e.PublishedAt); err != nil {
			return nil, fmt.Errorf("presale_changelog scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
