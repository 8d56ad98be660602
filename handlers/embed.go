package handlers

import (
	"context"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/kova98/liveticker.api/config"
	"github.com/kova98/liveticker.api/data"
	"github.com/kova98/liveticker.api/enums"
	"github.com/kova98/liveticker.api/metrics"
	"github.com/kova98/liveticker.api/nonce"
	"github.com/kova98/liveticker.api/render"
	"github.com/kova98/liveticker.api/syndication"
)

// EmbedHandler serves the initial renders: the ticker list, the widget list and a full page.
type EmbedHandler struct {
	ticks   TickFinder
	tickers TickerReader
	options OptionsStore
	nonces  NonceIssuer
	feeds   *syndication.Builder
	metrics *metrics.Metrics
	baseURL string
	loc     *time.Location
	now     func() time.Time
}

func NewEmbedHandler(ticks TickFinder, tickers TickerReader, options OptionsStore, nonces NonceIssuer,
	feeds *syndication.Builder, m *metrics.Metrics, baseURL string, loc *time.Location) *EmbedHandler {
	return &EmbedHandler{
		ticks:   ticks,
		tickers: tickers,
		options: options,
		nonces:  nonces,
		feeds:   feeds,
		metrics: m,
		baseURL: strings.TrimRight(baseURL, "/"),
		loc:     loc,
		now:     time.Now,
	}
}

// Ticker renders the shortcode list. Query: limit (default -1), feed (true/1 shows the feed link).
func (h *EmbedHandler) Ticker(w http.ResponseWriter, r *http.Request) Result {
	opts, err := h.options.GetOptions(r.Context())
	if err != nil {
		return InternalError(err, "render ticker: get options")
	}

	showFeed := opts.ShowFeed
	if r.URL.Query().Has("feed") {
		showFeed = isTruthy(r.URL.Query().Get("feed"))
	}

	html, err := h.renderTicker(r.Context(), opts, normalizeSlug(r.PathValue("slug")), queryInt(r, "limit", -1), showFeed)
	if err != nil {
		return InternalError(err, "render ticker")
	}

	h.metrics.EmbedRenders.WithLabelValues("ticker").Inc()
	return HTML(string(html))
}

// Widget renders the widget list. Query: limit (default -1), highlight, highlight_time (seconds).
func (h *EmbedHandler) Widget(w http.ResponseWriter, r *http.Request) Result {
	opts, err := h.options.GetOptions(r.Context())
	if err != nil {
		return InternalError(err, "render widget: get options")
	}

	slug := normalizeSlug(r.PathValue("slug"))
	if slug == "" {
		return HTML("")
	}
	limit := queryInt(r, "limit", -1)

	now := h.now()
	ticks, err := h.ticks.FindTicks(r.Context(), data.TickQuery{Ticker: slug, Limit: limit, Before: &now})
	if err != nil {
		return InternalError(err, "render widget: find ticks")
	}

	var highlight func(data.Tick) bool
	if isTruthy(r.URL.Query().Get("highlight")) {
		window := time.Duration(queryInt(r, "highlight_time", 0)) * time.Second
		highlight = func(t data.Tick) bool {
			return now.Sub(t.CreatedAt) < window
		}
	}

	items, err := renderTicks(ticks, enums.VariantWidget, h.loc, highlight)
	if err != nil {
		return InternalError(err, "render widget: ticks")
	}
	h.metrics.TicksRendered.WithLabelValues(string(enums.VariantWidget)).Add(float64(len(items)))

	html, err := render.Widget(render.List{
		Slug:     slug,
		Limit:    limit,
		LastPoll: now.Unix(),
		Ajax:     opts.EnableAjax,
		Items:    items,
	})
	if err != nil {
		return InternalError(err, "render widget")
	}

	h.metrics.EmbedRenders.WithLabelValues("widget").Inc()
	return HTML(string(html))
}

// Page renders a standalone page around the ticker list, with styles and the client timer as configured.
func (h *EmbedHandler) Page(w http.ResponseWriter, r *http.Request) Result {
	slug := normalizeSlug(r.PathValue("slug"))
	ticker, err := h.tickers.GetTickerBySlug(r.Context(), slug)
	if err != nil {
		return InternalError(err, "render page: get ticker")
	}
	if ticker == nil {
		return NotFound("Ticker not found.")
	}

	opts, err := h.options.GetOptions(r.Context())
	if err != nil {
		return InternalError(err, "render page: get options")
	}

	body, err := h.renderTicker(r.Context(), opts, slug, queryInt(r, "limit", -1), opts.ShowFeed)
	if err != nil {
		return InternalError(err, "render page: ticker")
	}

	page := render.Page{
		Title: ticker.Name,
		Body:  body,
	}
	if opts.EnableCSS {
		page.StylesheetURL = h.baseURL + "/static/liveticker.css"
	}
	if opts.EnableAjax {
		cfg, err := h.clientConfig(opts)
		if err != nil {
			return InternalError(err, "render page: client config")
		}
		page.ScriptURL = h.baseURL + "/static/liveticker.js"
		page.ClientConfig = cfg
	}

	html, err := render.RenderPage(page)
	if err != nil {
		return InternalError(err, "render page")
	}

	h.metrics.EmbedRenders.WithLabelValues("page").Inc()
	return HTML(string(html))
}

// ClientConfig returns the values the client timer needs: endpoint, nonce and interval in milliseconds.
func (h *EmbedHandler) ClientConfig(w http.ResponseWriter, r *http.Request) Result {
	opts, err := h.options.GetOptions(r.Context())
	if err != nil {
		return InternalError(err, "client config: get options")
	}
	if !opts.EnableAjax {
		return NotFound("Live updates are disabled.")
	}

	cfg, err := h.clientConfig(opts)
	if err != nil {
		return InternalError(err, "client config")
	}
	return Ok(cfg)
}

func (h *EmbedHandler) clientConfig(opts config.Options) (render.ClientConfig, error) {
	token, err := h.nonces.Create(nonce.ActionUpdateTicks)
	if err != nil {
		return render.ClientConfig{}, err
	}
	return render.ClientConfig{
		AjaxURL:      h.baseURL + "/ticks/update",
		Nonce:        token,
		PollInterval: opts.PollIntervalMs(),
	}, nil
}

func (h *EmbedHandler) renderTicker(ctx context.Context, opts config.Options, slug string, limit int, showFeed bool) (template.HTML, error) {
	if slug == "" {
		return "", nil
	}

	// Taken before the query so the first poll picks up ticks stored while it runs.
	now := h.now()
	ticks, err := h.ticks.FindTicks(ctx, data.TickQuery{Ticker: slug, Limit: limit, Before: &now})
	if err != nil {
		return "", err
	}

	items, err := renderTicks(ticks, enums.VariantStandalone, h.loc, nil)
	if err != nil {
		return "", err
	}
	h.metrics.TicksRendered.WithLabelValues(string(enums.VariantStandalone)).Add(float64(len(items)))

	list := render.List{
		Slug:     slug,
		Limit:    limit,
		LastPoll: now.Unix(),
		Ajax:     opts.EnableAjax,
		Items:    items,
	}
	if showFeed {
		list.FeedURL = h.feeds.FeedURL(slug)
	}

	return render.Ticker(list)
}
