// Package render turns ticks into the HTML fragments consumed by embeds and the client timer.
//
// Time and title are always escaped. Tick content is typed as template.HTML and is written
// verbatim: it is trusted because the store sanitizes it on every write.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/kova98/liveticker.api/enums"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("render").ParseFS(templateFS, "templates/*.html"))

// TimeLayout is the tick time format, day.month.year hour.minute.
const TimeLayout = "02.01.2006 15.04"

func FormatTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimeLayout)
}

type tickData struct {
	Time      string
	Title     string
	Content   template.HTML
	Highlight bool
}

// Tick renders one list item. The widget variant drops content.
func Tick(when, title string, content template.HTML, variant enums.Variant, highlight bool) (template.HTML, error) {
	name := "tick"
	if variant == enums.VariantWidget {
		name = "widget_tick"
		content = ""
	}

	return execute(name, tickData{
		Time:      when,
		Title:     title,
		Content:   content,
		Highlight: highlight,
	})
}

// List is the initial render of a ticker or widget embed.
type List struct {
	Slug     string
	Limit    int
	LastPoll int64
	// Ajax adds the data attributes the client timer looks for.
	Ajax  bool
	Items []template.HTML
	// FeedURL, when set, appends a feed link. Ignored for widgets.
	FeedURL string
}

type listData struct {
	List
	Items template.HTML
}

func Ticker(list List) (template.HTML, error) {
	return execute("ticker", listData{List: list, Items: Join(list.Items)})
}

func Widget(list List) (template.HTML, error) {
	list.FeedURL = ""
	return execute("widget", listData{List: list, Items: Join(list.Items)})
}

// ClientConfig is what the client timer reads from the page.
type ClientConfig struct {
	AjaxURL      string `json:"ajax_url"`
	Nonce        string `json:"nonce"`
	PollInterval int    `json:"poll_interval"`
}

type Page struct {
	Title         string
	Body          template.HTML
	StylesheetURL string
	// ScriptURL empty leaves the client timer out of the page.
	ScriptURL    string
	ClientConfig ClientConfig
}

func RenderPage(page Page) (template.HTML, error) {
	return execute("page", page)
}

// Join concatenates fragments in order.
func Join(items []template.HTML) template.HTML {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(string(item))
	}
	return template.HTML(sb.String())
}

func execute(name string, data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
