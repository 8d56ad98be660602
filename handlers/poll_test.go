package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kova98/liveticker.api/data"
	"github.com/kova98/liveticker.api/metrics"
	"github.com/kova98/liveticker.api/models"
)

type pollFixture struct {
	handler *PollHandler
	ticks   *fakeTicks
	options *fakeOptions
	limiter *fakeLimiter
	metrics *metrics.Metrics
}

func newPollFixture() *pollFixture {
	f := &pollFixture{
		ticks: &fakeTicks{ticks: []data.Tick{
			publishedTick(1, "First", 900, "match"),
			publishedTick(2, "Second", 1100, "match"),
			publishedTick(3, "Third", 1200, "match"),
			publishedTick(4, "Elsewhere", 1300, "other"),
		}},
		options: newFakeOptions(),
		limiter: &fakeLimiter{allow: true},
		metrics: metrics.NewMetrics(),
	}
	f.handler = NewPollHandler(f.ticks, f.options, fakeNonces{}, f.limiter, f.metrics, time.UTC)
	f.handler.now = func() time.Time { return time.Unix(2000, 0) }
	return f
}

func (f *pollFixture) poll(t *testing.T, body string) Result {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ticks/update", strings.NewReader(body))
	req.Header.Set(NonceHeader, validNonce)
	return f.handler.UpdateTicks(httptest.NewRecorder(), req)
}

func pollItems(t *testing.T, res Result) []models.PollResponseItem {
	t.Helper()
	require.Equal(t, http.StatusOK, res.Code)
	items, ok := res.Body.([]models.PollResponseItem)
	require.True(t, ok)
	return items
}

func TestUpdateTicks_ReturnsTicksAfterSinceNewestFirst(t *testing.T) {
	f := newPollFixture()

	items := pollItems(t, f.poll(t, `[{"s":"match","l":2,"t":1000}]`))

	require.Len(t, items, 1)
	require.NotNil(t, items[0].Ticker)
	assert.Equal(t, "match", *items[0].Ticker)
	assert.Nil(t, items[0].Widget)
	assert.Equal(t, int64(2000), items[0].Time)

	html := items[0].HTML
	assert.Contains(t, html, "Third")
	assert.Contains(t, html, "Second")
	assert.NotContains(t, html, "First")
	assert.NotContains(t, html, "Elsewhere")
	assert.Less(t, strings.Index(html, "Third"), strings.Index(html, "Second"))
	assert.Contains(t, html, "Third body")
}

func TestUpdateTicks_SinceIsExclusive(t *testing.T) {
	f := newPollFixture()

	items := pollItems(t, f.poll(t, `[{"s":"match","t":1100}]`))

	require.Len(t, items, 1)
	assert.Contains(t, items[0].HTML, "Third")
	assert.NotContains(t, items[0].HTML, "Second")
}

func TestUpdateTicks_WidgetOmitsBody(t *testing.T) {
	f := newPollFixture()

	items := pollItems(t, f.poll(t, `[{"w":"match","l":-1,"t":0}]`))

	require.Len(t, items, 1)
	require.NotNil(t, items[0].Widget)
	assert.Equal(t, "match", *items[0].Widget)
	assert.Nil(t, items[0].Ticker)
	assert.Contains(t, items[0].HTML, "First")
	assert.NotContains(t, items[0].HTML, "body")
	assert.NotContains(t, items[0].HTML, "wplt2-widget-new")
}

func TestUpdateTicks_SkipsMalformedItems(t *testing.T) {
	f := newPollFixture()

	items := pollItems(t, f.poll(t, `[{"l":1,"t":0}, 5, "match", null, {"s":"match","t":1150}]`))

	require.Len(t, items, 1)
	assert.Equal(t, "match", *items[0].Ticker)
	assert.Equal(t, 4.0, testutil.ToFloat64(f.metrics.PollItems.WithLabelValues("skipped")))
}

func TestUpdateTicks_KeepsRequestOrder(t *testing.T) {
	f := newPollFixture()

	items := pollItems(t, f.poll(t, `[{"w":"other","t":0},{"s":"match","t":1150}]`))

	require.Len(t, items, 2)
	assert.Equal(t, "other", *items[0].Widget)
	assert.Equal(t, "match", *items[1].Ticker)
}

func TestUpdateTicks_TickerWinsOverWidget(t *testing.T) {
	f := newPollFixture()

	items := pollItems(t, f.poll(t, `[{"s":"match","w":"other","t":0}]`))

	require.Len(t, items, 1)
	require.NotNil(t, items[0].Ticker)
	assert.Nil(t, items[0].Widget)
	assert.Contains(t, items[0].HTML, "Third body")
}

func TestUpdateTicks_AcceptsStringNumbers(t *testing.T) {
	f := newPollFixture()

	items := pollItems(t, f.poll(t, `[{"s":"match","l":"1","t":"1000"}]`))

	require.Len(t, items, 1)
	assert.Contains(t, items[0].HTML, "Third")
	assert.NotContains(t, items[0].HTML, "Second")
}

func TestUpdateTicks_MissingLimitIsUnlimited(t *testing.T) {
	f := newPollFixture()

	items := pollItems(t, f.poll(t, `[{"s":"match"}]`))

	require.Len(t, items, 1)
	for _, title := range []string{"First", "Second", "Third"} {
		assert.Contains(t, items[0].HTML, title)
	}
	require.Len(t, f.ticks.queries, 1)
	assert.Equal(t, -1, f.ticks.queries[0].Limit)
}

func TestUpdateTicks_ZeroLimitReturnsEmptyFragment(t *testing.T) {
	f := newPollFixture()

	items := pollItems(t, f.poll(t, `[{"s":"match","l":0,"t":0}]`))

	require.Len(t, items, 1)
	assert.Empty(t, items[0].HTML)
	assert.Equal(t, int64(2000), items[0].Time)
}

func TestUpdateTicks_TimeNeverBeforeSince(t *testing.T) {
	f := newPollFixture()

	items := pollItems(t, f.poll(t, `[{"s":"match","t":5000}]`))

	require.Len(t, items, 1)
	assert.Equal(t, int64(5000), items[0].Time)
	assert.Empty(t, items[0].HTML)
}

func TestUpdateTicks_NextPollFromReturnedTimeSeesNothingOlder(t *testing.T) {
	f := newPollFixture()

	first := pollItems(t, f.poll(t, `[{"s":"match","t":0}]`))
	require.Len(t, first, 1)

	body := `[{"s":"match","t":` + strconv.FormatInt(first[0].Time, 10) + `}]`
	second := pollItems(t, f.poll(t, body))

	require.Len(t, second, 1)
	assert.Empty(t, second[0].HTML)
	assert.GreaterOrEqual(t, second[0].Time, first[0].Time)
}

func TestUpdateTicks_EmptyBatch(t *testing.T) {
	f := newPollFixture()

	items := pollItems(t, f.poll(t, `[]`))

	assert.Empty(t, items)
}

func TestUpdateTicks_MissingNonce(t *testing.T) {
	f := newPollFixture()
	req := httptest.NewRequest(http.MethodPost, "/ticks/update", strings.NewReader(`[{"s":"match"}]`))

	res := f.handler.UpdateTicks(httptest.NewRecorder(), req)

	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Empty(t, f.ticks.queries)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PollRequests.WithLabelValues("forbidden")))
}

func TestUpdateTicks_WrongNonce(t *testing.T) {
	f := newPollFixture()
	req := httptest.NewRequest(http.MethodPost, "/ticks/update", strings.NewReader(`[{"s":"match"}]`))
	req.Header.Set(NonceHeader, "00000000")

	res := f.handler.UpdateTicks(httptest.NewRecorder(), req)

	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestUpdateTicks_NonceFromQuery(t *testing.T) {
	f := newPollFixture()
	req := httptest.NewRequest(http.MethodPost, "/ticks/update?"+NonceParam+"="+validNonce, strings.NewReader(`[{"s":"match"}]`))

	res := f.handler.UpdateTicks(httptest.NewRecorder(), req)

	assert.Equal(t, http.StatusOK, res.Code)
}

func TestUpdateTicks_AjaxDisabled(t *testing.T) {
	f := newPollFixture()
	f.options.opts.EnableAjax = false

	res := f.poll(t, `[{"s":"match"}]`)

	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Empty(t, f.ticks.queries)
}

func TestUpdateTicks_RateLimited(t *testing.T) {
	f := newPollFixture()
	f.limiter.allow = false

	res := f.poll(t, `[{"s":"match"}]`)

	assert.Equal(t, http.StatusTooManyRequests, res.Code)
	assert.Equal(t, []string{"192.0.2.1"}, f.limiter.seen)
	assert.Empty(t, f.ticks.queries)
}

func TestUpdateTicks_LimiterErrorAllows(t *testing.T) {
	f := newPollFixture()
	f.limiter.err = errStore

	res := f.poll(t, `[{"s":"match"}]`)

	assert.Equal(t, http.StatusOK, res.Code)
}

func TestUpdateTicks_BodyNotAnArray(t *testing.T) {
	f := newPollFixture()

	for _, body := range []string{`{"s":"match"}`, `nope`, ``} {
		res := f.poll(t, body)
		assert.Equal(t, http.StatusBadRequest, res.Code, body)
	}
}

func TestUpdateTicks_StoreError(t *testing.T) {
	f := newPollFixture()
	f.ticks.err = errStore

	res := f.poll(t, `[{"s":"match"}]`)

	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.ErrorIs(t, res.Error, errStore)
}

func TestUpdateTicks_OptionsError(t *testing.T) {
	f := newPollFixture()
	f.options.err = errStore

	res := f.poll(t, `[{"s":"match"}]`)

	assert.Equal(t, http.StatusInternalServerError, res.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.RemoteAddr = "no-port"
	assert.Equal(t, "no-port", clientIP(req))
}

func TestUpdateTicks_ScheduledTickWaitsForItsTime(t *testing.T) {
	f := newPollFixture()
	f.ticks.ticks = append(f.ticks.ticks, publishedTick(9, "Scheduled", 5000, "match"))

	first := pollItems(t, f.poll(t, `[{"s":"match","t":1300}]`))
	require.Len(t, first, 1)
	assert.Equal(t, int64(2000), first[0].Time)
	assert.NotContains(t, first[0].HTML, "Scheduled")

	second := pollItems(t, f.poll(t, `[{"s":"match","t":2000}]`))
	require.Len(t, second, 1)
	assert.NotContains(t, second[0].HTML, "Scheduled")

	f.handler.now = func() time.Time { return time.Unix(5000, 0) }
	third := pollItems(t, f.poll(t, `[{"s":"match","t":2000}]`))
	require.Len(t, third, 1)
	assert.Contains(t, third[0].HTML, "Scheduled")

	fourth := pollItems(t, f.poll(t, `[{"s":"match","t":`+strconv.FormatInt(third[0].Time, 10)+`}]`))
	require.Len(t, fourth, 1)
	assert.Empty(t, fourth[0].HTML)
}

func TestUpdateTicks_SkipsOutOfRangeItems(t *testing.T) {
	f := newPollFixture()

	body := `[{"s":"match","t":1e300},{"s":"match","t":"99999999999999999999"},{"s":"match","t":-5},` +
		`{"s":"match","l":1e300},{"w":"match","t":1150}]`
	items := pollItems(t, f.poll(t, body))

	require.Len(t, items, 1)
	assert.Equal(t, "match", *items[0].Widget)
	require.Len(t, f.ticks.queries, 1)
	assert.Equal(t, time.Unix(1150, 0), *f.ticks.queries[0].After)
}

func TestUpdateTicks_DuplicateTargetsAnsweredInOrder(t *testing.T) {
	f := newPollFixture()

	items := pollItems(t, f.poll(t, `[{"s":"match","t":1150},{"s":"match","t":0}]`))

	require.Len(t, items, 2)
	assert.NotContains(t, items[0].HTML, "First")
	assert.Contains(t, items[1].HTML, "First")
}
