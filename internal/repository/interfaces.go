package repository

import (
	"context"

	"weibosim/internal/model"
)

// PostRepository stores microblog posts. Listing methods return newest first.
type PostRepository interface {
	GetByID(ctx context.Context, postID int64) (*model.Post, error)
	// Create assigns the post an id and writes it back into post.ID.
	Create(ctx context.Context, post *model.Post) error
	// Put upserts by id.
	Put(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, postID int64) error
	ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error)
	ListExcludingAuthor(ctx context.Context, authorID string) ([]model.Post, error)
	CountByAuthor(ctx context.Context, authorID string) (int, error)
	// Latest returns the post with the greatest timestamp, or ErrPostNotFound.
	Latest(ctx context.Context) (*model.Post, error)
	LatestByAuthor(ctx context.Context, authorID string) (*model.Post, error)
}

// CharacterRepository stores chat partners with their embedded DM threads.
type CharacterRepository interface {
	GetByID(ctx context.Context, id string) (*model.Character, error)
	Put(ctx context.Context, c *model.Character) error
	List(ctx context.Context) ([]model.Character, error)
	Delete(ctx context.Context, id string) error
}

// SettingsRepository stores the singleton user settings record.
type SettingsRepository interface {
	// Get returns defaults when nothing has been saved yet.
	Get(ctx context.Context) (*model.UserSettings, error)
	Put(ctx context.Context, s *model.UserSettings) error
}
