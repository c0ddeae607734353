package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"presale/internal/api/v1/dto"
	"presale/internal/metrics"
	"presale/internal/ratelimit"
	"presale/internal/repository"
	"presale/internal/service"
)

const (
	defaultVersion = "v1"
	cacheControl   = "public, max-age=15, s-maxage=30"
)

// PublicHandler serves the read-only presale stats gateway under /public/.
// Every response, including errors and 429s, is JSON with an ok flag.
type PublicHandler struct {
	stats          service.StatsService
	limiter        ratelimit.Limiter
	allowedOrigins []string
	logger         zerolog.Logger
	now            func() time.Time
}

func NewPublicHandler(stats service.StatsService, limiter ratelimit.Limiter, allowedOrigins []string, logger zerolog.Logger) *PublicHandler {
	return &PublicHandler{
		stats:          stats,
		limiter:        limiter,
		allowedOrigins: allowedOrigins,
		logger:         logger,
		now:            time.Now,
	}
}

func (h *PublicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-API-Default-Version", defaultVersion)

	origin := r.Header.Get("Origin")
	allowed, allowHeader := h.resolveOrigin(origin)
	w.Header().Set("Access-Control-Allow-Origin", allowHeader)
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Add("Vary", "Origin")
	if !allowed {
		writeError(w, http.StatusForbidden, "origin not allowed")
		return
	}

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	res, err := h.limiter.Allow(r.Context(), clientIP(r))
	if err != nil {
		// A limiter backend outage must not take the read API down.
		h.logger.Error().Err(err).Msg("Rate limiter unavailable, allowing request")
		res = ratelimit.Result{OK: true}
	}
	if res.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	}
	if !res.OK {
		metrics.RateLimited.Inc()
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	version, op, legacy := splitRoute(r.URL.Path)
	if legacy {
		w.Header().Set("X-API-Deprecated", "use /public/v1 instead")
	}
	h.dispatch(w, r, version, op, legacy)
}

// resolveOrigin decides whether the request origin may read the API and
// which Access-Control-Allow-Origin value to send. An empty allow-list
// leaves the API open to any origin.
func (h *PublicHandler) resolveOrigin(origin string) (bool, string) {
	if len(h.allowedOrigins) == 0 {
		return true, "*"
	}
	if origin == "" {
		return true, h.allowedOrigins[0]
	}
	for _, o := range h.allowedOrigins {
		if strings.EqualFold(o, origin) {
			return true, origin
		}
	}
	return false, h.allowedOrigins[0]
}

// clientIP prefers the Cloudflare header, then the first hop of
// X-Forwarded-For, and keys unknown callers under a shared bucket.
func clientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("Cf-Connecting-Ip")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return "unknown"
}

// splitRoute maps /public/v1/daily, /public/v2/daily and the legacy
// /public/daily to a (version, op) pair. Legacy routes run v1 semantics.
func splitRoute(path string) (version, op string, legacy bool) {
	rest := strings.Trim(strings.TrimPrefix(path, "/public"), "/")
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 2 && (parts[0] == "v1" || parts[0] == "v2"):
		return parts[0], parts[1], false
	case len(parts) == 1:
		return "v1", parts[0], true
	default:
		return "", "", false
	}
}

func (h *PublicHandler) dispatch(w http.ResponseWriter, r *http.Request, version, op string, legacy bool) {
	ctx := r.Context()
	meta := dto.Meta{GeneratedAt: h.now().UTC().Format(time.RFC3339), Endpoint: op}

	var data interface{}
	var err error
	switch op {
	case "metrics":
		if version != "v1" {
			h.notFound(w)
			return
		}
		data, err = h.stats.Metrics(ctx)
	case "daily":
		def := 30
		if version == "v2" {
			def = 90
		}
		days := clampQuery(r, "days", def, 1, 365)
		meta.Days = &days
		data, err = h.stats.DailyStats(ctx, days, version == "v2")
	case "wallets":
		if version != "v1" {
			h.notFound(w)
			return
		}
		data, err = h.stats.WalletStats(ctx)
	case "batches":
		if id := r.URL.Query().Get("id"); version == "v2" && id != "" {
			batchID, convErr := strconv.Atoi(id)
			if convErr != nil {
				writeError(w, http.StatusBadRequest, "invalid batch id")
				return
			}
			meta.BatchID = &batchID
			data, err = h.stats.BatchDetail(ctx, batchID)
			if errors.Is(err, repository.ErrBatchNotFound) {
				writeError(w, http.StatusNotFound, "batch not found")
				return
			}
		} else {
			limit := clampQuery(r, "limit", 10, 1, 50)
			meta.Limit = &limit
			data, err = h.stats.ListBatches(ctx, limit)
		}
	case "changelog":
		if version != "v1" {
			h.notFound(w)
			return
		}
		limit := clampQuery(r, "limit", 20, 1, 100)
		meta.Limit = &limit
		data, err = h.stats.Changelog(ctx, limit)
	default:
		h.notFound(w)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("endpoint", op).Msg("Stats query failed")
		writeError(w, http.StatusInternalServerError, "upstream query failed")
		return
	}

	label := version
	if legacy {
		label = "legacy"
	}
	metrics.PublicRequests.WithLabelValues(op, label).Inc()

	w.Header().Set("Cache-Control", cacheControl)
	if legacy {
		writeJSON(w, http.StatusOK, dto.LegacyEnvelope{
			OK:      true,
			Days:    meta.Days,
			Limit:   meta.Limit,
			BatchID: meta.BatchID,
			Data:    data,
		})
		return
	}
	writeJSON(w, http.StatusOK, dto.Envelope{OK: true, Version: version, Meta: meta, Data: data})
}

func (h *PublicHandler) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}

// clampQuery parses an integer query parameter, falling back to def on a
// missing or non-numeric value and clamping the result into [min, max].
func clampQuery(r *http.Request, key string, def, min, max int) int {
	raw := r.URL.Query().Get(key)
	n, err := strconv.Atoi(raw)
	if raw == "" || err != nil {
		n = def
	}
	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.ErrorResponse{OK: false, Error: msg})
}
