package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kova98/liveticker.api/data"
	"github.com/kova98/liveticker.api/enums"
	"github.com/kova98/liveticker.api/limiter"
	"github.com/kova98/liveticker.api/metrics"
	"github.com/kova98/liveticker.api/models"
	"github.com/kova98/liveticker.api/nonce"
	"github.com/kova98/liveticker.api/render"
)

const (
	NonceHeader = "X-Liveticker-Nonce"
	NonceParam  = "_ajax_nonce"
)

// PollHandler answers the client timer with ticks created since its last poll.
type PollHandler struct {
	ticks   TickFinder
	options OptionsStore
	nonces  NonceIssuer
	limiter limiter.RateLimiter
	metrics *metrics.Metrics
	loc     *time.Location
	now     func() time.Time
}

func NewPollHandler(ticks TickFinder, options OptionsStore, nonces NonceIssuer, rl limiter.RateLimiter,
	m *metrics.Metrics, loc *time.Location) *PollHandler {
	return &PollHandler{
		ticks:   ticks,
		options: options,
		nonces:  nonces,
		limiter: rl,
		metrics: m,
		loc:     loc,
		now:     time.Now,
	}
}

func (h *PollHandler) UpdateTicks(w http.ResponseWriter, r *http.Request) Result {
	start := time.Now()
	defer func() {
		h.metrics.PollDuration.Observe(time.Since(start).Seconds())
	}()

	opts, err := h.options.GetOptions(r.Context())
	if err != nil {
		h.metrics.PollRequests.WithLabelValues("error").Inc()
		return InternalError(err, "update ticks: get options")
	}
	if !opts.EnableAjax {
		h.metrics.PollRequests.WithLabelValues("disabled").Inc()
		return NotFound("Live updates are disabled.")
	}

	token := r.Header.Get(NonceHeader)
	if token == "" {
		token = r.URL.Query().Get(NonceParam)
	}
	if !h.nonces.Verify(token, nonce.ActionUpdateTicks) {
		h.metrics.PollRequests.WithLabelValues("forbidden").Inc()
		return Forbidden("Invalid or missing nonce.")
	}

	allowed, err := h.limiter.Allow(r.Context(), clientIP(r))
	if err != nil {
		slog.Warn("rate limiter unavailable, allowing poll", "error", err)
		allowed = true
	}
	if !allowed {
		h.metrics.PollRequests.WithLabelValues("limited").Inc()
		return TooManyRequests("Too many poll requests.")
	}

	var batch []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.metrics.PollRequests.WithLabelValues("bad_request").Inc()
		return BadRequest("Invalid request.")
	}

	res := make([]models.PollResponseItem, 0, len(batch))
	for _, raw := range batch {
		var req models.PollRequestItem
		if err := json.Unmarshal(raw, &req); err != nil || !req.Valid() {
			h.metrics.PollItems.WithLabelValues("skipped").Inc()
			continue
		}

		item, err := h.pollItem(r.Context(), req)
		if err != nil {
			h.metrics.PollRequests.WithLabelValues("error").Inc()
			return InternalError(err, "update ticks: poll item")
		}
		res = append(res, item)
	}

	h.metrics.PollRequests.WithLabelValues("ok").Inc()
	return Ok(res)
}

func (h *PollHandler) pollItem(ctx context.Context, req models.PollRequestItem) (models.PollResponseItem, error) {
	var (
		slug    string
		variant = enums.VariantStandalone
		kind    = "ticker"
	)
	if req.Ticker != nil {
		slug = strings.TrimSpace(*req.Ticker)
	} else {
		slug = strings.TrimSpace(*req.Widget)
		variant = enums.VariantWidget
		kind = "widget"
	}
	h.metrics.PollItems.WithLabelValues(kind).Inc()

	limit := -1
	if req.Limit != nil {
		limit = int(*req.Limit)
	}
	var since int64
	if req.Since != nil {
		since = int64(*req.Since)
	}

	// Taken before the query so ticks stored while it runs are picked up by the next poll.
	// The returned time is the next poll's since, so it never moves backwards.
	current := h.now()
	now := current.Unix()
	if now < since {
		now = since
	}

	after := time.Unix(since, 0)
	ticks, err := h.ticks.FindTicks(ctx, data.TickQuery{Ticker: slug, Limit: limit, After: &after, Before: &current})
	if err != nil {
		return models.PollResponseItem{}, err
	}

	// Widget updates are never highlighted.
	fragments, err := renderTicks(ticks, variant, h.loc, nil)
	if err != nil {
		return models.PollResponseItem{}, err
	}
	h.metrics.TicksRendered.WithLabelValues(string(variant)).Add(float64(len(fragments)))

	item := models.PollResponseItem{
		HTML: string(render.Join(fragments)),
		Time: now,
	}
	if variant == enums.VariantWidget {
		item.Widget = &slug
	} else {
		item.Ticker = &slug
	}

	return item, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
