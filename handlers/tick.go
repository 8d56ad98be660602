package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kova98/liveticker.api/data"
	"github.com/kova98/liveticker.api/data/repos"
	"github.com/kova98/liveticker.api/enums"
	"github.com/kova98/liveticker.api/models"
	"github.com/microcosm-cc/bluemonday"
)

type TickHandler struct {
	repo      TickStore
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

func NewTickHandler(repo TickStore) *TickHandler {
	return &TickHandler{
		repo:      repo,
		sanitizer: bluemonday.UGCPolicy(),
		now:       time.Now,
	}
}

func (h *TickHandler) CreateTick(w http.ResponseWriter, r *http.Request) Result {
	user, _ := userFromContext(r)

	var req models.CreateTickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return BadRequest("Invalid request.")
	}

	tick, res, ok := h.tickFromRequest(req)
	if !ok {
		return res
	}
	if user.ID != uuid.Nil {
		tick.AuthorID = &user.ID
	}

	id, err := h.repo.CreateTick(r.Context(), tick)
	if errors.Is(err, repos.ErrUnknownTicker) {
		return BadRequest("Unknown ticker.")
	}
	if err != nil {
		return InternalError(err, "create tick: ")
	}

	return Created(id)
}

func (h *TickHandler) GetTicks(w http.ResponseWriter, r *http.Request) Result {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := 20
	offset := (page - 1) * perPage

	ticks, total, err := h.repo.ListTicks(r.Context(), normalizeSlug(r.URL.Query().Get("ticker")), perPage, offset)
	if err != nil {
		return InternalError(err, "get ticks")
	}

	res := models.GetTicksResponse{
		Ticks:   make([]models.Tick, 0, len(ticks)),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}
	for _, t := range ticks {
		res.Ticks = append(res.Ticks, toTickModel(t))
	}

	return Ok(res)
}

func (h *TickHandler) GetTick(w http.ResponseWriter, r *http.Request) Result {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return BadRequest("Invalid tick ID.")
	}

	tick, err := h.repo.GetTick(r.Context(), id)
	if err != nil {
		return InternalError(err, "get tick: ")
	}
	if tick == nil {
		return NotFound("Tick not found.")
	}

	return Ok(toTickModel(*tick))
}

func (h *TickHandler) UpdateTick(w http.ResponseWriter, r *http.Request) Result {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return BadRequest("Invalid tick ID.")
	}

	var req models.UpdateTickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return BadRequest("Invalid request.")
	}

	tick, res, ok := h.tickFromRequest(req)
	if !ok {
		return res
	}
	tick.ID = id

	err = h.repo.UpdateTick(r.Context(), tick)
	if errors.Is(err, repos.ErrNotFound) {
		return NotFound("Tick not found.")
	}
	if errors.Is(err, repos.ErrUnknownTicker) {
		return BadRequest("Unknown ticker.")
	}
	if err != nil {
		return InternalError(err, "update tick: ")
	}

	return Ok(nil)
}

func (h *TickHandler) DeleteTick(w http.ResponseWriter, r *http.Request) Result {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return BadRequest("Invalid tick ID.")
	}

	err = h.repo.DeleteTick(r.Context(), id)
	if errors.Is(err, repos.ErrNotFound) {
		return NotFound("Tick not found.")
	}
	if err != nil {
		return InternalError(err, "delete tick: ")
	}

	return Ok(nil)
}

// tickFromRequest validates req and returns the tick to store, with its content sanitized.
func (h *TickHandler) tickFromRequest(req models.CreateTickRequest) (data.Tick, Result, bool) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return data.Tick{}, BadRequest("Title is required."), false
	}

	status := enums.ParseTickStatus(req.Status)
	if status == enums.TickStatusInvalid {
		return data.Tick{}, BadRequest("Status must be draft or publish."), false
	}

	tickers := make([]string, 0, len(req.Tickers))
	seen := make(map[string]bool, len(req.Tickers))
	for _, t := range req.Tickers {
		slug := normalizeSlug(t)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		tickers = append(tickers, slug)
	}
	if len(tickers) == 0 {
		return data.Tick{}, BadRequest("At least one ticker is required."), false
	}

	createdAt := h.now()
	if req.CreatedAt != nil {
		createdAt = *req.CreatedAt
	}
	// Poll timestamps have second resolution.
	createdAt = createdAt.Truncate(time.Second)

	return data.Tick{
		Title:     title,
		Content:   h.sanitizer.Sanitize(req.Content),
		Status:    status,
		CreatedAt: createdAt,
		Tickers:   tickers,
	}, Result{}, true
}

func toTickModel(t data.Tick) models.Tick {
	author := ""
	if t.AuthorName != nil {
		author = *t.AuthorName
	}
	tickers := t.Tickers
	if tickers == nil {
		tickers = []string{}
	}
	return models.Tick{
		ID:        t.ID,
		Title:     t.Title,
		Content:   t.Content,
		Status:    string(t.Status),
		AuthorID:  t.AuthorID,
		Author:    author,
		Tickers:   tickers,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
