package service

import (
	"context"
	"fmt"
	"time"

	"presale/internal/mailer"
	"presale/internal/metrics"
	"presale/internal/model"
	"presale/internal/repository"
	"presale/internal/template"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DispatchResult is the aggregate outcome of one worker invocation.
type DispatchResult struct {
	Claimed int `json:"claimed"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// DispatchConfig carries the worker knobs from configuration.
type DispatchConfig struct {
	BatchSize   int
	MaxAttempts int
	SendTimeout time.Duration
	From        string
	FromName    string
	AppBaseURL  string
}

type DispatchService interface {
	// RunOnce claims one batch, renders and sends each row, and records the
	// outcome. Per-row failures never abort the invocation; only a failed
	// claim does.
	RunOnce(ctx context.Context) (DispatchResult, error)

	// Enqueue inserts one pending queue row for later delivery.
	Enqueue(ctx context.Context, item *model.EmailQueueItem) (string, error)
}

// markRetryDelay spaces the single reattempt of a lost status write.
const markRetryDelay = 250 * time.Millisecond

type dispatchService struct {
	queueRepo      repository.EmailQueueRepository
	templateRepo   repository.TemplateRepository
	mailer         mailer.Mailer
	sendLimiter    *rate.Limiter
	cfg            DispatchConfig
	logger         zerolog.Logger
	markRetryDelay time.Duration
}

func NewDispatchService(
	queueRepo repository.EmailQueueRepository,
	templateRepo repository.TemplateRepository,
	m mailer.Mailer,
	sendLimiter *rate.Limiter,
	cfg DispatchConfig,
	logger zerolog.Logger,
) DispatchService {
	return &dispatchService{
		queueRepo:      queueRepo,
		templateRepo:   templateRepo,
		mailer:         m,
		sendLimiter:    sendLimiter,
		cfg:            cfg,
		logger:         logger.With().Str("service", "DispatchService").Logger(),
		markRetryDelay: markRetryDelay,
	}
}

func (s *dispatchService) RunOnce(ctx context.Context) (DispatchResult, error) {
	var res DispatchResult

	items, err := s.queueRepo.ClaimBatch(ctx, s.cfg.BatchSize, s.cfg.MaxAttempts)
	if err != nil {
		// Claim failure is the only fatal outcome for an invocation.
		return res, fmt.Errorf("claiming email batch: %w", err)
	}
	res.Claimed = len(items)
	metrics.QueueClaimed.Add(float64(len(items)))

	for _, item := range items {
		if err := s.processItem(ctx, item); err != nil {
			res.Failed++
			metrics.EmailsFailed.Inc()
			reason := err.Error()
			if markErr := s.markStatus(ctx, func() error {
				return s.queueRepo.MarkFailed(ctx, item.ID, reason)
			}); markErr != nil {
				s.logger.Error().Err(markErr).Str("item_id", item.ID).Msg("Failed to mark queue row failed")
			}
			s.logger.Warn().
				Str("item_id", item.ID).
				Str("template", item.TemplateType).
				Int("attempts", item.Attempts).
				Str("reason", reason).
				Msg("Email delivery failed")
			continue
		}

		res.Sent++
		metrics.EmailsSent.Inc()
		if markErr := s.markStatus(ctx, func() error {
			return s.queueRepo.MarkSent(ctx, item.ID)
		}); markErr != nil {
			s.logger.Error().Err(markErr).Str("item_id", item.ID).Msg("Failed to mark queue row sent")
		}
		s.logger.Info().
			Str("item_id", item.ID).
			Str("template", item.TemplateType).
			Msg("Email sent")
	}

	if pending, err := s.queueRepo.PendingCount(ctx); err == nil {
		s.logger.Info().
			Int("claimed", res.Claimed).
			Int("sent", res.Sent).
			Int("failed", res.Failed).
			Int("backlog", pending).
			Msg("Queue run complete")
	}
	return res, nil
}

// markStatus writes a terminal row status, reattempting once after a short
// delay. A row whose mark write is lost stays in 'sending' until a
// database-side sweep reclaims it, so the write gets a second chance here.
func (s *dispatchService) markStatus(ctx context.Context, write func() error) error {
	err := write()
	if err == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return err
	case <-time.After(s.markRetryDelay):
	}
	return write()
}

// processItem renders and sends a single claimed row. Any returned error is
// recorded as the row's failure reason; nothing here may panic or abort the
// surrounding batch.
func (s *dispatchService) processItem(ctx context.Context, item *model.EmailQueueItem) error {
	tmpl, err := s.templateRepo.Get(ctx, item.TemplateType, item.Lang)
	if err != nil {
		return fmt.Errorf("template lookup: %w", err)
	}

	vars := make(map[string]string, len(item.Payload)+2)
	vars["app_url"] = s.cfg.AppBaseURL
	vars["to_name"] = item.ToName
	for k, v := range item.Payload {
		vars[k] = v
	}

	subject, text, html := template.RenderAll(tmpl.Subject, tmpl.BodyText, tmpl.BodyHTML, vars)

	if s.sendLimiter != nil {
		if err := s.sendLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("send throttle: %w", err)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	if err := s.mailer.Send(sendCtx, mailer.Message{
		From:     s.cfg.From,
		FromName: s.cfg.FromName,
		To:       item.ToEmail,
		ToName:   item.ToName,
		Subject:  subject,
		HTML:     html,
		Text:     text,
	}); err != nil {
		return fmt.Errorf("provider send: %w", err)
	}
	return nil
}

func (s *dispatchService) Enqueue(ctx context.Context, item *model.EmailQueueItem) (string, error) {
	item.Status = model.StatusPending
	id, err := s.queueRepo.Enqueue(ctx, item)
	if err != nil {
		return "", fmt.Errorf("enqueue email: %w", err)
	}
	s.logger.Info().Str("item_id", id).Str("template", item.TemplateType).Msg("Email enqueued")
	return id, nil
}
