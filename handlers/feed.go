package handlers

import (
	"net/http"
	"time"

	"github.com/kova98/liveticker.api/data"
	"github.com/kova98/liveticker.api/metrics"
	"github.com/kova98/liveticker.api/syndication"
)

type FeedHandler struct {
	ticks   TickFinder
	tickers TickerReader
	feeds   *syndication.Builder
	metrics *metrics.Metrics
	limit   int
	now     func() time.Time
}

func NewFeedHandler(ticks TickFinder, tickers TickerReader, feeds *syndication.Builder, m *metrics.Metrics, limit int) *FeedHandler {
	return &FeedHandler{
		ticks:   ticks,
		tickers: tickers,
		feeds:   feeds,
		metrics: m,
		limit:   limit,
		now:     time.Now,
	}
}

// GetFeed serves the RSS feed of the ticker named by the "ticker" query parameter.
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) Result {
	slug := normalizeSlug(r.URL.Query().Get("ticker"))
	if slug == "" {
		return BadRequest("Ticker is required.")
	}

	ticker, err := h.tickers.GetTickerBySlug(r.Context(), slug)
	if err != nil {
		return InternalError(err, "get feed: get ticker")
	}
	if ticker == nil {
		return NotFound("Ticker not found.")
	}

	now := h.now()
	ticks, err := h.ticks.FindTicks(r.Context(), data.TickQuery{Ticker: slug, Limit: h.limit, Before: &now})
	if err != nil {
		return InternalError(err, "get feed: find ticks")
	}

	out, err := h.feeds.RSS(*ticker, ticks)
	if err != nil {
		return InternalError(err, "get feed")
	}

	h.metrics.EmbedRenders.WithLabelValues("feed").Inc()
	return XML(out)
}
