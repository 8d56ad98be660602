package handlers

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kova98/liveticker.api/data"
	"github.com/kova98/liveticker.api/enums"
	"github.com/kova98/liveticker.api/render"
)

// renderTicks renders ticks in order. highlight may be nil.
func renderTicks(ticks []data.Tick, variant enums.Variant, loc *time.Location, highlight func(data.Tick) bool) ([]template.HTML, error) {
	out := make([]template.HTML, 0, len(ticks))
	for _, tick := range ticks {
		hl := highlight != nil && highlight(tick)
		// Content was sanitized when it was stored.
		fragment, err := render.Tick(render.FormatTime(tick.CreatedAt, loc), tick.Title, template.HTML(tick.Content), variant, hl)
		if err != nil {
			return nil, err
		}
		out = append(out, fragment)
	}
	return out, nil
}

func userFromContext(r *http.Request) (data.User, bool) {
	user, ok := r.Context().Value("user").(data.User)
	return user, ok
}

func normalizeSlug(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// queryInt reads an integer query parameter, falling back to def when it is absent or invalid.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func isTruthy(s string) bool {
	return strings.EqualFold(s, "true") || s == "1"
}
