package models

import (
	"time"

	"github.com/google/uuid"
)

type CreateTickRequest struct {
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Status    string     `json:"status"`
	Tickers   []string   `json:"tickers"`
	CreatedAt *time.Time `json:"createdAt"`
}

type UpdateTickRequest = CreateTickRequest

type Tick struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Status    string     `json:"status"`
	AuthorID  *uuid.UUID `json:"authorId"`
	Author    string     `json:"author"`
	Tickers   []string   `json:"tickers"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type GetTicksResponse struct {
	Ticks   []Tick `json:"ticks"`
	Total   int    `json:"total"`
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
}
