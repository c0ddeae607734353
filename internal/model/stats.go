package model

import (
	"encoding/json"
	"time"
)

// PresaleMetrics is the aggregate snapshot returned by presale_public_metrics().
// The function owns the aggregation; the row shape is fixed here.
type PresaleMetrics struct {
	TotalRaisedUSD   float64 `db:"total_raised_usd" json:"total_raised_usd"`
	TokensSold       float64 `db:"tokens_sold" json:"tokens_sold"`
	Participants     int     `db:"participants" json:"participants"`
	CurrentBatch     int     `db:"current_batch" json:"current_batch"`
	CurrentPriceUSD  float64 `db:"current_price_usd" json:"current_price_usd"`
	BatchProgressPct float64 `db:"batch_progress_pct" json:"batch_progress_pct"`
}

// DailyStat is one day of aggregated contribution activity.
type DailyStat struct {
	Day       time.Time `db:"day" json:"day"`
	AmountUSD float64   `db:"amount_usd" json:"amount_usd"`
	TxCount   int       `db:"tx_count" json:"tx_count"`
}

// WalletStat summarises accepted payment wallets.
type WalletStat struct {
	Currency string  `db:"currency" json:"currency"`
	Address  string  `db:"address" json:"address"`
	Received float64 `db:"received" json:"received"`
	TxCount  int     `db:"tx_count" json:"tx_count"`
}

// Batch is one presale stage in the list view.
type Batch struct {
	BatchNo  int     `db:"batch_no" json:"batch_no"`
	PriceUSD float64 `db:"price_usd" json:"price_usd"`
	TokenCap float64 `db:"token_cap" json:"token_cap"`
	Sold     float64 `db:"sold" json:"sold"`
	Status   string  `db:"status" json:"status"`
}

// BatchDetail is the v2 single-batch drill-down row. Breakdown is an opaque
// JSON document produced by presale_batch_detail().
type BatchDetail struct {
	Batch
	StartedAt *time.Time      `db:"started_at" json:"started_at,omitempty"`
	ClosedAt  *time.Time      `db:"closed_at" json:"closed_at,omitempty"`
	Breakdown json.RawMessage `db:"breakdown" json:"breakdown,omitempty"`
}

// ChangelogEntry is one public release note.
type ChangelogEntry struct {
	Version     string    `db:"version" json:"version"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
}
