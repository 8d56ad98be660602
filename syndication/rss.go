// Package syndication publishes a ticker's ticks as an RSS 2.0 feed.
package syndication

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/kova98/liveticker.api/data"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pemistahl/lingua-go"
	"github.com/pkg/errors"
)

var detectableLanguages = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
	lingua.Dutch,
	lingua.Portuguese,
	lingua.Polish,
}

type Builder struct {
	baseURL  string
	detector lingua.LanguageDetector
	strip    *bluemonday.Policy
	now      func() time.Time
}

func NewBuilder(baseURL string) *Builder {
	return &Builder{
		baseURL:  strings.TrimRight(baseURL, "/"),
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(detectableLanguages...).Build(),
		strip:    bluemonday.StrictPolicy(),
		now:      time.Now,
	}
}

// FeedURL is where the feed of slug is served.
func (b *Builder) FeedURL(slug string) string {
	return b.baseURL + "/ticks/feed?ticker=" + url.QueryEscape(slug)
}

func (b *Builder) tickerURL(slug string) string {
	return b.baseURL + "/tickers/" + url.PathEscape(slug)
}

// RSS renders ticks, newest first, as the feed of ticker.
func (b *Builder) RSS(ticker data.Ticker, ticks []data.Tick) (string, error) {
	title := ticker.Name
	if title == "" {
		title = ticker.Slug
	}

	created := b.now()
	if len(ticks) > 0 {
		created = ticks[0].CreatedAt
	}

	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: b.tickerURL(ticker.Slug)},
		Description: ticker.Description,
		Created:     created,
	}

	var text strings.Builder
	for _, tick := range ticks {
		link := fmt.Sprintf("%s#tick-%d", b.tickerURL(ticker.Slug), tick.ID)
		item := &feeds.Item{
			Id:          link,
			Title:       tick.Title,
			Link:        &feeds.Link{Href: link},
			Description: tick.Content,
			Created:     tick.CreatedAt,
		}
		if tick.AuthorName != nil {
			item.Author = &feeds.Author{Name: *tick.AuthorName}
		}
		feed.Items = append(feed.Items, item)

		text.WriteString(tick.Title)
		text.WriteString(". ")
		text.WriteString(b.strip.Sanitize(tick.Content))
		text.WriteString(" ")
	}

	rss := (&feeds.Rss{Feed: feed}).RssFeed()
	rss.Language = b.DetectLanguage(text.String())

	out, err := feeds.ToXML(rss)
	if err != nil {
		return "", errors.Wrap(err, "render rss")
	}
	return out, nil
}

// DetectLanguage returns the ISO 639-1 code of text, or "" when it cannot tell.
func (b *Builder) DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	lang, ok := b.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
