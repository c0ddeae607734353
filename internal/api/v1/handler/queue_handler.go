package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"presale/internal/api/v1/dto"
	"presale/internal/model"
	"presale/internal/service"
)

// QueueHandler exposes the email queue to the scheduler and to internal
// callers. Both routes sit behind the cron-secret middleware.
type QueueHandler struct {
	dispatch service.DispatchService
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewQueueHandler(dispatch service.DispatchService, logger zerolog.Logger) *QueueHandler {
	return &QueueHandler{
		dispatch: dispatch,
		validate: validator.New(),
		logger:   logger,
	}
}

// Run drains one batch of pending emails. The scheduler calls this on a
// fixed cadence; a run that sends nothing is still a 200. Any method
// triggers a run, since hosted cron services differ on the verb they emit.
func (h *QueueHandler) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.dispatch.RunOnce(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Email queue run failed")
		writeError(w, http.StatusInternalServerError, "queue run failed")
		return
	}
	writeJSON(w, http.StatusOK, dto.QueueRunResponse{
		OK:      true,
		Claimed: result.Claimed,
		Sent:    result.Sent,
		Failed:  result.Failed,
	})
}

// Enqueue inserts a pending email row for later delivery.
func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.EnqueueEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item := &model.EmailQueueItem{
		TemplateType: req.TemplateType,
		Lang:         req.Lang,
		ToEmail:      req.ToEmail,
		ToName:       req.ToName,
		Payload:      req.Payload,
	}
	id, err := h.dispatch.Enqueue(r.Context(), item)
	if err != nil {
		h.logger.Error().Err(err).Str("template_type", req.TemplateType).Msg("Enqueue failed")
		writeError(w, http.StatusInternalServerError, "enqueue failed")
		return
	}
	writeJSON(w, http.StatusCreated, dto.EnqueueEmailResponse{OK: true, ID: id})
}
