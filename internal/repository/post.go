package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"weibosim/internal/database"
	"weibosim/internal/model"
)

var postColumns = []string{
	"id", "author_id", "author_type", "author_nickname", "author_avatar",
	"content", "image_url", "image_description", "hidden_content", "post_type",
	"timestamp", "likes", "comments", "base_likes_count", "base_comments_count",
}

// postRow mirrors weibo_posts; embedded sequences are JSON text.
type postRow struct {
	ID                int64  `db:"id"`
	AuthorID          string `db:"author_id"`
	AuthorType        string `db:"author_type"`
	AuthorNickname    string `db:"author_nickname"`
	AuthorAvatar      string `db:"author_avatar"`
	Content           string `db:"content"`
	ImageURL          string `db:"image_url"`
	ImageDescription  string `db:"image_description"`
	HiddenContent     string `db:"hidden_content"`
	PostType          string `db:"post_type"`
	Timestamp         int64  `db:"timestamp"`
	Likes             string `db:"likes"`
	Comments          string `db:"comments"`
	BaseLikesCount    int    `db:"base_likes_count"`
	BaseCommentsCount int    `db:"base_comments_count"`
}

func (r postRow) toModel() (model.Post, error) {
	p := model.Post{
		ID:                r.ID,
		AuthorID:          r.AuthorID,
		AuthorType:        model.AuthorType(r.AuthorType),
		AuthorNickname:    r.AuthorNickname,
		AuthorAvatar:      r.AuthorAvatar,
		Content:           r.Content,
		ImageURL:          r.ImageURL,
		ImageDescription:  r.ImageDescription,
		HiddenContent:     r.HiddenContent,
		PostType:          model.PostType(r.PostType),
		Timestamp:         r.Timestamp,
		BaseLikesCount:    r.BaseLikesCount,
		BaseCommentsCount: r.BaseCommentsCount,
	}
	if r.Likes != "" {
		if err := json.Unmarshal([]byte(r.Likes), &p.Likes); err != nil {
			return p, fmt.Errorf("decode likes of post %d: %w", r.ID, err)
		}
	}
	if r.Comments != "" {
		if err := json.Unmarshal([]byte(r.Comments), &p.Comments); err != nil {
			return p, fmt.Errorf("decode comments of post %d: %w", r.ID, err)
		}
	}
	p.Normalize()
	return p, nil
}

// postValues returns column values in postColumns order, without the id.
func postValues(p *model.Post) ([]interface{}, error) {
	p.Normalize()
	likes, err := json.Marshal(p.Likes)
	if err != nil {
		return nil, fmt.Errorf("encode likes: %w", err)
	}
	comments, err := json.Marshal(p.Comments)
	if err != nil {
		return nil, fmt.Errorf("encode comments: %w", err)
	}
	return []interface{}{
		p.AuthorID, string(p.AuthorType), p.AuthorNickname, p.AuthorAvatar,
		p.Content, p.ImageURL, p.ImageDescription, p.HiddenContent, string(p.PostType),
		p.Timestamp, string(likes), string(comments), p.BaseLikesCount, p.BaseCommentsCount,
	}, nil
}

type postRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(database.Placeholder(db)),
	}
}

func (r *postRepository) selectPosts() sq.SelectBuilder {
	return r.sb.Select(postColumns...).From("weibo_posts")
}

func (r *postRepository) getOne(ctx context.Context, q sq.SelectBuilder) (*model.Post, error) {
	query, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row postRow
	err = r.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	post, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) list(ctx context.Context, q sq.SelectBuilder) ([]model.Post, error) {
	query, args, err := q.OrderBy("timestamp DESC", "id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	posts := make([]model.Post, 0, len(rows))
	for _, row := range rows {
		p, err := row.toModel()
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// GetByID retrieves a single post.
func (r *postRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	return r.getOne(ctx, r.selectPosts().Where(sq.Eq{"id": postID}))
}

// Create inserts a new post and sets its id.
func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	if err := post.Validate(); err != nil {
		return err
	}
	values, err := postValues(post)
	if err != nil {
		return err
	}

	query, args, err := r.sb.Insert("weibo_posts").
		Columns(postColumns[1:]...).
		Values(values...).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := r.db.GetContext(ctx, &post.ID, query, args...); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// Put writes the whole record, inserting it when the id is unknown.
func (r *postRepository) Put(ctx context.Context, post *model.Post) error {
	if err := post.Validate(); err != nil {
		return err
	}
	values, err := postValues(post)
	if err != nil {
		return err
	}

	suffix := "ON CONFLICT (id) DO UPDATE SET "
	for i, col := range postColumns[1:] {
		if i > 0 {
			suffix += ", "
		}
		suffix += col + " = excluded." + col
	}

	query, args, err := r.sb.Insert("weibo_posts").
		Columns(postColumns...).
		Values(append([]interface{}{post.ID}, values...)...).
		Suffix(suffix).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert post %d: %w", post.ID, err)
	}
	return nil
}

// Delete removes a post. Deleting a missing post returns ErrPostNotFound.
func (r *postRepository) Delete(ctx context.Context, postID int64) error {
	query, args, err := r.sb.Delete("weibo_posts").Where(sq.Eq{"id": postID}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete post %d: %w", postID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

// ListByAuthor returns the author's posts newest first.
func (r *postRepository) ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	return r.list(ctx, r.selectPosts().Where(sq.Eq{"author_id": authorID}))
}

// ListExcludingAuthor returns everyone else's posts newest first.
func (r *postRepository) ListExcludingAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	return r.list(ctx, r.selectPosts().Where(sq.NotEq{"author_id": authorID}))
}

// CountByAuthor counts posts by an author.
func (r *postRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	query, args, err := r.sb.Select("COUNT(*)").From("weibo_posts").
		Where(sq.Eq{"author_id": authorID}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// Latest returns the most recent post of any author.
func (r *postRepository) Latest(ctx context.Context) (*model.Post, error) {
	return r.getOne(ctx, r.selectPosts().OrderBy("timestamp DESC", "id DESC"))
}

// LatestByAuthor returns the author's most recent post.
func (r *postRepository) LatestByAuthor(ctx context.Context, authorID string) (*model.Post, error) {
	return r.getOne(ctx, r.selectPosts().
		Where(sq.Eq{"author_id": authorID}).
		OrderBy("timestamp DESC", "id DESC"))
}
