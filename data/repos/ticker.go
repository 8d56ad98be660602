package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/kova98/liveticker.api/data"
)

type TickerRepo struct {
	db *sqlx.DB
}

func NewTickerRepo(db *sqlx.DB) *TickerRepo {
	return &TickerRepo{db}
}

// CreateTicker inserts a ticker below the ticker with parentSlug, or at the top level when parentSlug is empty.
func (r *TickerRepo) CreateTicker(ctx context.Context, ticker data.Ticker, parentSlug string) (int, error) {
	if parentSlug != "" {
		parent, err := r.GetTickerBySlug(ctx, parentSlug)
		if err != nil {
			return 0, err
		}
		if parent == nil {
			return 0, ErrUnknownTicker
		}
		ticker.ParentID = &parent.ID
	}

	query := `
		INSERT INTO tickers (slug, name, description, parent_id)
		VALUES (:slug, :name, :description, :parent_id)
		RETURNING id`

	rows, err := r.db.NamedQueryContext(ctx, query, ticker)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateSlug
		}
		return 0, fmt.Errorf("create ticker: %w", err)
	}
	defer rows.Close()

	var id int
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("scan returned id: %w", err)
		}
	}

	return id, nil
}

func (r *TickerRepo) GetTickers(ctx context.Context) ([]data.Ticker, error) {
	var tickers []data.Ticker
	query := `
		SELECT id, slug, name, description, parent_id, created_at
		FROM tickers
		ORDER BY slug`

	if err := r.db.SelectContext(ctx, &tickers, query); err != nil {
		return nil, fmt.Errorf("get tickers: %w", err)
	}

	return tickers, nil
}

func (r *TickerRepo) GetTickerBySlug(ctx context.Context, slug string) (*data.Ticker, error) {
	var ticker data.Ticker
	query := "SELECT id, slug, name, description, parent_id, created_at FROM tickers WHERE slug = $1"

	err := r.db.GetContext(ctx, &ticker, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ticker by slug: %w", err)
	}

	return &ticker, nil
}

func (r *TickerRepo) DeleteTicker(ctx context.Context, slug string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tickers WHERE slug = $1", slug)
	if err != nil {
		return fmt.Errorf("delete ticker: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *TickerRepo) GetCounts(ctx context.Context) (data.Counts, error) {
	var counts data.Counts
	query := `
		SELECT
			(SELECT count(*) FROM ticks WHERE status = 'publish') AS published,
			(SELECT count(*) FROM ticks WHERE status = 'draft') AS drafts,
			(SELECT count(*) FROM tickers) AS tickers`

	if err := r.db.GetContext(ctx, &counts, query); err != nil {
		return data.Counts{}, fmt.Errorf("get counts: %w", err)
	}

	return counts, nil
}
