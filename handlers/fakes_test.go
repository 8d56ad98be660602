package handlers

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Nerzal/gocloak/v13"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kova98/liveticker.api/config"
	"github.com/kova98/liveticker.api/data"
	"github.com/kova98/liveticker.api/data/repos"
	"github.com/kova98/liveticker.api/enums"
)

type fakeTicks struct {
	ticks   []data.Tick
	nextID  int
	err     error
	queries []data.TickQuery
}

func (f *fakeTicks) FindTicks(_ context.Context, q data.TickQuery) ([]data.Tick, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	if q.Limit == 0 {
		return []data.Tick{}, nil
	}

	var out []data.Tick
	for _, t := range f.ticks {
		if t.Status != enums.TickStatusPublish || !hasTicker(t, q.Ticker) {
			continue
		}
		if q.After != nil && !t.CreatedAt.After(*q.After) {
			continue
		}
		if q.Before != nil && t.CreatedAt.After(*q.Before) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeTicks) GetTick(_ context.Context, id int) (*data.Tick, error) {
	for _, t := range f.ticks {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, nil
}

func (f *fakeTicks) ListTicks(_ context.Context, ticker string, limit, offset int) ([]data.Tick, int, error) {
	var out []data.Tick
	for _, t := range f.ticks {
		if ticker == "" || hasTicker(t, ticker) {
			out = append(out, t)
		}
	}
	total := len(out)
	if offset >= total {
		return []data.Tick{}, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (f *fakeTicks) CreateTick(_ context.Context, tick data.Tick) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	tick.ID = f.nextID
	f.ticks = append(f.ticks, tick)
	return tick.ID, nil
}

func (f *fakeTicks) UpdateTick(_ context.Context, tick data.Tick) error {
	if f.err != nil {
		return f.err
	}
	for i, t := range f.ticks {
		if t.ID == tick.ID {
			f.ticks[i] = tick
			return nil
		}
	}
	return repos.ErrNotFound
}

func (f *fakeTicks) DeleteTick(_ context.Context, id int) error {
	for i, t := range f.ticks {
		if t.ID == id {
			f.ticks = append(f.ticks[:i], f.ticks[i+1:]...)
			return nil
		}
	}
	return repos.ErrNotFound
}

func hasTicker(t data.Tick, slug string) bool {
	for _, s := range t.Tickers {
		if s == slug {
			return true
		}
	}
	return false
}

func publishedTick(id int, title string, unix int64, tickers ...string) data.Tick {
	return data.Tick{
		ID:        id,
		Title:     title,
		Content:   "<p>" + title + " body</p>",
		Status:    enums.TickStatusPublish,
		CreatedAt: time.Unix(unix, 0),
		Tickers:   tickers,
	}
}

type fakeTickers struct {
	tickers []data.Ticker
	err     error
	counts  data.Counts
}

func (f *fakeTickers) GetTickerBySlug(_ context.Context, slug string) (*data.Ticker, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range f.tickers {
		if t.Slug == slug {
			return &t, nil
		}
	}
	return nil, nil
}

func (f *fakeTickers) CreateTicker(_ context.Context, ticker data.Ticker, parentSlug string) (int, error) {
	for _, t := range f.tickers {
		if t.Slug == ticker.Slug {
			return 0, repos.ErrDuplicateSlug
		}
	}
	if parentSlug != "" {
		parent, _ := f.GetTickerBySlug(context.Background(), parentSlug)
		if parent == nil {
			return 0, repos.ErrUnknownTicker
		}
		ticker.ParentID = &parent.ID
	}
	ticker.ID = len(f.tickers) + 1
	f.tickers = append(f.tickers, ticker)
	return ticker.ID, nil
}

func (f *fakeTickers) GetTickers(context.Context) ([]data.Ticker, error) {
	return f.tickers, f.err
}

func (f *fakeTickers) DeleteTicker(_ context.Context, slug string) error {
	for i, t := range f.tickers {
		if t.Slug == slug {
			f.tickers = append(f.tickers[:i], f.tickers[i+1:]...)
			return nil
		}
	}
	return repos.ErrNotFound
}

func (f *fakeTickers) GetCounts(context.Context) (data.Counts, error) {
	return f.counts, f.err
}

type fakeOptions struct {
	opts  config.Options
	err   error
	saved *config.Options
}

func newFakeOptions() *fakeOptions {
	return &fakeOptions{opts: config.DefaultOptions()}
}

func (f *fakeOptions) GetOptions(context.Context) (config.Options, error) {
	return f.opts, f.err
}

func (f *fakeOptions) SaveOptions(_ context.Context, opts config.Options) error {
	if f.err != nil {
		return f.err
	}
	f.opts = opts
	f.saved = &opts
	return nil
}

const validNonce = "12345678"

type fakeNonces struct{}

func (fakeNonces) Create(string) (string, error) {
	return validNonce, nil
}

func (fakeNonces) Verify(token, _ string) bool {
	return token == validNonce
}

type fakeLimiter struct {
	allow bool
	err   error
	seen  []string
}

func (f *fakeLimiter) Allow(_ context.Context, client string) (bool, error) {
	f.seen = append(f.seen, client)
	return f.allow, f.err
}

type fakeUsers struct {
	users   map[uuid.UUID]data.User
	upserts int
	err     error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[uuid.UUID]data.User{}}
}

func (f *fakeUsers) UpsertUser(_ context.Context, user data.User) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.upserts++
	f.users[user.ID] = user
	return user.ID, nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id uuid.UUID) (*data.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

type fakeKeycloak struct {
	decodeErr error
	info      *gocloak.UserInfo
	infoErr   error
}

func (f fakeKeycloak) DecodeAccessToken(context.Context, string, string) (*jwt.Token, *jwt.MapClaims, error) {
	if f.decodeErr != nil {
		return nil, nil, f.decodeErr
	}
	return &jwt.Token{Valid: true}, &jwt.MapClaims{}, nil
}

func (f fakeKeycloak) GetUserInfo(context.Context, string, string) (*gocloak.UserInfo, error) {
	return f.info, f.infoErr
}

var errStore = errors.New("store unavailable")
