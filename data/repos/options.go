package repos

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/kova98/liveticker.api/config"
)

type OptionsRepo struct {
	db *sqlx.DB
}

func NewOptionsRepo(db *sqlx.DB) *OptionsRepo {
	return &OptionsRepo{db}
}

// GetOptions returns the stored options merged over the defaults.
func (r *OptionsRepo) GetOptions(ctx context.Context) (config.Options, error) {
	var raw []byte
	err := r.db.GetContext(ctx, &raw, "SELECT value FROM options WHERE name = $1", config.OptionsName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return config.DefaultOptions(), nil
		}
		return config.DefaultOptions(), fmt.Errorf("get options: %w", err)
	}

	return config.ParseOptions(raw)
}

func (r *OptionsRepo) SaveOptions(ctx context.Context, opts config.Options) error {
	raw, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	query := `
		INSERT INTO options (name, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query, config.OptionsName, raw); err != nil {
		return fmt.Errorf("save options: %w", err)
	}

	return nil
}
