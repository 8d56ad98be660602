package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/kova98/liveticker.api/data"
	"github.com/kova98/liveticker.api/data/repos"
	"github.com/kova98/liveticker.api/models"
	"github.com/kova98/liveticker.api/syndication"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type TickerHandler struct {
	repo  TickerStore
	feeds *syndication.Builder
}

func NewTickerHandler(repo TickerStore, feeds *syndication.Builder) *TickerHandler {
	return &TickerHandler{repo: repo, feeds: feeds}
}

func (h *TickerHandler) CreateTicker(w http.ResponseWriter, r *http.Request) Result {
	var req models.CreateTickerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return BadRequest("Invalid request.")
	}

	slug := normalizeSlug(req.Slug)
	if !slugPattern.MatchString(slug) || len(slug) > 64 {
		return BadRequest("Slug must be 1-64 lowercase letters, digits or dashes.")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = slug
	}

	ticker := data.Ticker{
		Slug:        slug,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
	}

	id, err := h.repo.CreateTicker(r.Context(), ticker, normalizeSlug(req.Parent))
	if errors.Is(err, repos.ErrDuplicateSlug) {
		return Conflict("Ticker already exists.")
	}
	if errors.Is(err, repos.ErrUnknownTicker) {
		return BadRequest("Unknown parent ticker.")
	}
	if err != nil {
		return InternalError(err, "create ticker: ")
	}

	return Created(id)
}

func (h *TickerHandler) GetTickers(w http.ResponseWriter, r *http.Request) Result {
	tickers, err := h.repo.GetTickers(r.Context())
	if err != nil {
		return InternalError(err, "get tickers: ")
	}

	res := models.GetTickersResponse{Tickers: make([]models.Ticker, 0, len(tickers))}
	for _, t := range tickers {
		res.Tickers = append(res.Tickers, h.toTickerModel(t))
	}

	return Ok(res)
}

func (h *TickerHandler) GetTicker(w http.ResponseWriter, r *http.Request) Result {
	ticker, err := h.repo.GetTickerBySlug(r.Context(), normalizeSlug(r.PathValue("slug")))
	if err != nil {
		return InternalError(err, "get ticker: ")
	}
	if ticker == nil {
		return NotFound("Ticker not found.")
	}

	return Ok(h.toTickerModel(*ticker))
}

func (h *TickerHandler) DeleteTicker(w http.ResponseWriter, r *http.Request) Result {
	err := h.repo.DeleteTicker(r.Context(), normalizeSlug(r.PathValue("slug")))
	if errors.Is(err, repos.ErrNotFound) {
		return NotFound("Ticker not found.")
	}
	if err != nil {
		return InternalError(err, "delete ticker: ")
	}

	return Ok(nil)
}

// GetDashboard reports the tick and ticker counts shown on the editor dashboard.
func (h *TickerHandler) GetDashboard(w http.ResponseWriter, r *http.Request) Result {
	counts, err := h.repo.GetCounts(r.Context())
	if err != nil {
		return InternalError(err, "get dashboard: ")
	}

	return Ok(models.Dashboard{
		PublishedTicks: counts.Published,
		DraftTicks:     counts.Drafts,
		Tickers:        counts.Tickers,
	})
}

func (h *TickerHandler) toTickerModel(t data.Ticker) models.Ticker {
	return models.Ticker{
		ID:          t.ID,
		Slug:        t.Slug,
		Name:        t.Name,
		Description: t.Description,
		ParentID:    t.ParentID,
		FeedURL:     h.feeds.FeedURL(t.Slug),
		CreatedAt:   t.CreatedAt,
	}
}
