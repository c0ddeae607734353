package service

import (
	"context"

	"presale/internal/model"
	"presale/internal/repository"
)

// StatsService exposes the public read operations. It is a thin pass-through:
// parameter clamping happens at the HTTP edge and aggregation happens in the
// database functions, so there is no business logic to hold here.
type StatsService interface {
	Metrics(ctx context.Context) (*model.PresaleMetrics, error)
	DailyStats(ctx context.Context, days int, extended bool) ([]model.DailyStat, error)
	WalletStats(ctx context.Context) ([]model.WalletStat, error)
	ListBatches(ctx context.Context, limit int) ([]model.Batch, error)
	BatchDetail(ctx context.Context, id int) (*model.BatchDetail, error)
	Changelog(ctx context.Context, limit int) ([]model.ChangelogEntry, error)
}

type statsService struct {
	repo repository.StatsRepository
}

func NewStatsService(repo repository.StatsRepository) StatsService {
	return &statsService{repo: repo}
}

func (s *statsService) Metrics(ctx context.Context) (*model.PresaleMetrics, error) {
	return s.repo.Metrics(ctx)
}

func (s *statsService) DailyStats(ctx context.Context, days int, extended bool) ([]model.DailyStat, error) {
	if extended {
		return s.repo.DailyStatsExtended(ctx, days)
	}
	return s.repo.DailyStats(ctx, days)
}

func (s *statsService) WalletStats(ctx context.Context) ([]model.WalletStat, error) {
	return s.repo.WalletStats(ctx)
}

func (s *statsService) ListBatches(ctx context.Context, limit int) ([]model.Batch, error) {
	return s.repo.ListBatches(ctx, limit)
}

func (s *statsService) BatchDetail(ctx context.Context, id int) (*model.BatchDetail, error) {
	return s.repo.BatchDetail(ctx, id)
}

func (s *statsService) Changelog(ctx context.Context, limit int) ([]model.ChangelogEntry, error) {
	return s.repo.Changelog(ctx, limit)
}
