package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kova98/liveticker.api/config"
	"github.com/kova98/liveticker.api/models"
)

type OptionsHandler struct {
	repo OptionsStore
}

func NewOptionsHandler(repo OptionsStore) *OptionsHandler {
	return &OptionsHandler{repo}
}

func (h *OptionsHandler) GetOptions(w http.ResponseWriter, r *http.Request) Result {
	opts, err := h.repo.GetOptions(r.Context())
	if err != nil {
		return InternalError(err, "get options: ")
	}

	return Ok(opts)
}

func (h *OptionsHandler) UpdateOptions(w http.ResponseWriter, r *http.Request) Result {
	var req models.UpdateOptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return BadRequest("Invalid request.")
	}

	opts := config.DefaultOptions()
	if !req.ResetSettings {
		current, err := h.repo.GetOptions(r.Context())
		if err != nil {
			return InternalError(err, "update options: get options")
		}
		opts = current

		if req.EnableAjax != nil {
			opts.EnableAjax = *req.EnableAjax
		}
		if req.PollInterval != nil {
			opts.PollInterval = *req.PollInterval
		}
		if req.EnableCSS != nil {
			opts.EnableCSS = *req.EnableCSS
		}
		if req.ShowFeed != nil {
			opts.ShowFeed = *req.ShowFeed
		}
	}

	if err := opts.Validate(); err != nil {
		return BadRequest("Poll interval must be at least 1 second.")
	}

	if err := h.repo.SaveOptions(r.Context(), opts); err != nil {
		return InternalError(err, "update options: save options")
	}

	return Ok(opts)
}
