package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/kova98/liveticker.api/config"
	"github.com/kova98/liveticker.api/data"
)

type TickFinder interface {
	FindTicks(ctx context.Context, q data.TickQuery) ([]data.Tick, error)
}

type TickStore interface {
	TickFinder
	GetTick(ctx context.Context, id int) (*data.Tick, error)
	ListTicks(ctx context.Context, ticker string, limit, offset int) ([]data.Tick, int, error)
	CreateTick(ctx context.Context, tick data.Tick) (int, error)
	UpdateTick(ctx context.Context, tick data.Tick) error
	DeleteTick(ctx context.Context, id int) error
}

type TickerReader interface {
	GetTickerBySlug(ctx context.Context, slug string) (*data.Ticker, error)
}

type TickerStore interface {
	TickerReader
	CreateTicker(ctx context.Context, ticker data.Ticker, parentSlug string) (int, error)
	GetTickers(ctx context.Context) ([]data.Ticker, error)
	DeleteTicker(ctx context.Context, slug string) error
	GetCounts(ctx context.Context) (data.Counts, error)
}

type OptionsStore interface {
	GetOptions(ctx context.Context) (config.Options, error)
	SaveOptions(ctx context.Context, opts config.Options) error
}

type UserStore interface {
	UpsertUser(ctx context.Context, user data.User) (uuid.UUID, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*data.User, error)
}

type NonceIssuer interface {
	Create(action string) (string, error)
	Verify(token, action string) bool
}
