package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/kova98/liveticker.api/data"
)

type TickRepo struct {
	db *sqlx.DB
}

func NewTickRepo(db *sqlx.DB) *TickRepo {
	return &TickRepo{db}
}

const tickColumns = `k.id, k.title, k.content, k.author_id, k.status, k.created_at, k.updated_at,
		NULLIF(u.display_name, '') AS author_name`

// FindTicks returns published ticks of q.Ticker and all its descendant tickers, newest first.
func (r *TickRepo) FindTicks(ctx context.Context, q data.TickQuery) ([]data.Tick, error) {
	if q.Limit == 0 {
		return []data.Tick{}, nil
	}

	query, args := buildFindTicksQuery(q)

	var ticks []data.Tick
	if err := r.db.SelectContext(ctx, &ticks, query, args...); err != nil {
		return nil, fmt.Errorf("find ticks: %w", err)
	}

	return ticks, nil
}

func buildFindTicksQuery(q data.TickQuery) (string, []interface{}) {
	query := `
		WITH RECURSIVE tree AS (
			SELECT id FROM tickers WHERE slug = $1
			UNION
			SELECT t.id FROM tickers t JOIN tree ON t.parent_id = tree.id
		)
		SELECT ` + tickColumns + `
		FROM ticks k
		LEFT JOIN users u ON u.id = k.author_id
		WHERE k.status = 'publish'
		  AND k.id IN (SELECT tick_id FROM tick_tickers WHERE ticker_id IN (SELECT id FROM tree))`
	args := []interface{}{q.Ticker}

	if q.After != nil {
		args = append(args, *q.After)
		query += fmt.Sprintf("\n\t\t  AND k.created_at > $%d", len(args))
	}

	if q.Before != nil {
		args = append(args, *q.Before)
		query += fmt.Sprintf("\n\t\t  AND k.created_at <= $%d", len(args))
	}

	query += "\n\t\tORDER BY k.created_at DESC, k.id DESC"

	if q.Limit >= 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf("\n\t\tLIMIT $%d", len(args))
	}

	return query, args
}

func (r *TickRepo) GetTick(ctx context.Context, id int) (*data.Tick, error) {
	var tick data.Tick
	query := `
		SELECT ` + tickColumns + `
		FROM ticks k
		LEFT JOIN users u ON u.id = k.author_id
		WHERE k.id = $1`

	err := r.db.GetContext(ctx, &tick, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tick: %w", err)
	}

	ticks := []data.Tick{tick}
	if err := r.attachTickers(ctx, ticks); err != nil {
		return nil, err
	}

	return &ticks[0], nil
}

// ListTicks pages through all ticks, drafts included. An empty ticker lists every tick.
func (r *TickRepo) ListTicks(ctx context.Context, ticker string, limit, offset int) ([]data.Tick, int, error) {
	filter := ""
	args := []interface{}{}
	if ticker != "" {
		filter = `WHERE k.id IN (
			SELECT tt.tick_id FROM tick_tickers tt JOIN tickers t ON t.id = tt.ticker_id WHERE t.slug = $1)`
		args = append(args, ticker)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT count(*) FROM ticks k "+filter, args...); err != nil {
		return nil, 0, fmt.Errorf("count ticks: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM ticks k
		LEFT JOIN users u ON u.id = k.author_id
		%s
		ORDER BY k.created_at DESC, k.id DESC
		LIMIT $%d OFFSET $%d`, tickColumns, filter, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	var ticks []data.Tick
	if err := r.db.SelectContext(ctx, &ticks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list ticks: %w", err)
	}

	if err := r.attachTickers(ctx, ticks); err != nil {
		return nil, 0, err
	}

	return ticks, total, nil
}

func (r *TickRepo) CreateTick(ctx context.Context, tick data.Tick) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("create tick: begin: %w", err)
	}
	defer tx.Rollback()

	ids, err := resolveTickerIDs(ctx, tx, tick.Tickers)
	if err != nil {
		return 0, err
	}

	query := `
		INSERT INTO ticks (title, content, author_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id`

	var id int
	err = tx.GetContext(ctx, &id, query, tick.Title, tick.Content, tick.AuthorID, tick.Status, tick.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("create tick: %w", err)
	}

	if err := linkTickers(ctx, tx, id, ids); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("create tick: commit: %w", err)
	}

	return id, nil
}

func (r *TickRepo) UpdateTick(ctx context.Context, tick data.Tick) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update tick: begin: %w", err)
	}
	defer tx.Rollback()

	ids, err := resolveTickerIDs(ctx, tx, tick.Tickers)
	if err != nil {
		return err
	}

	query := `
		UPDATE ticks
		SET title = $1, content = $2, status = $3, created_at = $4, updated_at = now()
		WHERE id = $5`

	res, err := tx.ExecContext(ctx, query, tick.Title, tick.Content, tick.Status, tick.CreatedAt, tick.ID)
	if err != nil {
		return fmt.Errorf("update tick: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM tick_tickers WHERE tick_id = $1", tick.ID); err != nil {
		return fmt.Errorf("update tick: clear tickers: %w", err)
	}
	if err := linkTickers(ctx, tx, tick.ID, ids); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update tick: commit: %w", err)
	}

	return nil
}

func (r *TickRepo) DeleteTick(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM ticks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete tick: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *TickRepo) attachTickers(ctx context.Context, ticks []data.Tick) error {
	if len(ticks) == 0 {
		return nil
	}

	ids := make([]int, 0, len(ticks))
	for _, tick := range ticks {
		ids = append(ids, tick.ID)
	}

	query, args, err := sqlx.In(`
		SELECT tt.tick_id, t.slug
		FROM tick_tickers tt
		JOIN tickers t ON t.id = tt.ticker_id
		WHERE tt.tick_id IN (?)
		ORDER BY t.slug`, ids)
	if err != nil {
		return fmt.Errorf("build tick tickers: %w", err)
	}
	query = r.db.Rebind(query)

	var rows []struct {
		TickID int    `db:"tick_id"`
		Slug   string `db:"slug"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("get tick tickers: %w", err)
	}

	slugs := make(map[int][]string, len(ticks))
	for _, row := range rows {
		slugs[row.TickID] = append(slugs[row.TickID], row.Slug)
	}
	for i := range ticks {
		ticks[i].Tickers = slugs[ticks[i].ID]
		if ticks[i].Tickers == nil {
			ticks[i].Tickers = []string{}
		}
	}

	return nil
}

func resolveTickerIDs(ctx context.Context, tx *sqlx.Tx, slugs []string) ([]int, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In("SELECT id FROM tickers WHERE slug IN (?)", slugs)
	if err != nil {
		return nil, fmt.Errorf("build resolve tickers: %w", err)
	}
	query = tx.Rebind(query)

	var ids []int
	if err := tx.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("resolve tickers: %w", err)
	}
	if len(ids) != len(slugs) {
		return nil, ErrUnknownTicker
	}

	return ids, nil
}

func linkTickers(ctx context.Context, tx *sqlx.Tx, tickID int, tickerIDs []int) error {
	for _, tickerID := range tickerIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO tick_tickers (tick_id, ticker_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			tickID, tickerID)
		if err != nil {
			return fmt.Errorf("link ticker %d: %w", tickerID, err)
		}
	}
	return nil
}
