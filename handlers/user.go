package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/kova98/liveticker.api/data"
	"github.com/kova98/liveticker.api/models"
)

type UserHandler struct {
	userRepo UserStore
	// known holds the IDs already stored by this process.
	known sync.Map
}

func NewUserHandler(repo UserStore) *UserHandler {
	return &UserHandler{
		userRepo: repo,
	}
}

// EnsureUser stores user once per process so ticks can reference their author.
func (h *UserHandler) EnsureUser(ctx context.Context, user data.User) error {
	if _, ok := h.known.Load(user.ID); ok {
		return nil
	}
	if _, err := h.userRepo.UpsertUser(ctx, user); err != nil {
		return err
	}
	h.known.Store(user.ID, struct{}{})
	return nil
}

// InitializeUser stores the calling editor so ticks can name their author.
func (h *UserHandler) InitializeUser(w http.ResponseWriter, r *http.Request) Result {
	user, ok := userFromContext(r)
	if !ok {
		return Unauthorized("Missing user")
	}

	exists, err := h.userRepo.GetUserByID(r.Context(), user.ID)
	if err != nil {
		return InternalError(err, "initialize user: get user")
	}

	id, err := h.userRepo.UpsertUser(r.Context(), user)
	if err != nil {
		return InternalError(err, "initialize user: upsert user")
	}

	h.known.Store(id, struct{}{})

	if exists != nil {
		return Ok(models.UserModel{
			ID:          id,
			Name:        user.Name,
			DisplayName: user.DisplayName,
			Email:       user.Email,
			Avatar:      user.Avatar,
		})
	}
	return Created(id)
}
