package data

import (
	"time"

	"github.com/google/uuid"
	"github.com/kova98/liveticker.api/enums"
)

type User struct {
	ID          uuid.UUID `db:"id"`
	Name        string    `db:"name"`
	DisplayName string    `db:"display_name"`
	Email       string    `db:"email"`
	Avatar      string    `db:"avatar"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type Ticker struct {
	ID          int       `db:"id"`
	Slug        string    `db:"slug"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	ParentID    *int      `db:"parent_id"`
	CreatedAt   time.Time `db:"created_at"`
}

type Tick struct {
	ID        int              `db:"id"`
	Title     string           `db:"title"`
	Content   string           `db:"content"`
	AuthorID  *uuid.UUID       `db:"author_id"`
	Status    enums.TickStatus `db:"status"`
	CreatedAt time.Time        `db:"created_at"`
	UpdatedAt time.Time        `db:"updated_at"`

	// Filled by queries that join users.
	AuthorName *string `db:"author_name"`
	// Tickers holds the slugs the tick is tagged with. Not a column.
	Tickers []string `db:"-"`
}
