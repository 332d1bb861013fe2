package model

import (
	"errors"
	"slices"
)

// PostType discriminates the three publishing modes.
type PostType string

const (
	PostTypeTextOnly  PostType = "text_only"
	PostTypeImage     PostType = "image"
	PostTypeTextImage PostType = "text_image"
)

// Valid reports whether t is one of the known post types.
func (t PostType) Valid() bool {
	switch t {
	case PostTypeTextOnly, PostTypeImage, PostTypeTextImage:
		return true
	}
	return false
}

// AuthorType tells which registry a post's AuthorID points into.
type AuthorType string

const (
	AuthorTypeUser AuthorType = "user"
	AuthorTypeChar AuthorType = "char"
	AuthorTypeNPC  AuthorType = "npc"
)

// Valid reports whether t is one of the known author types.
func (t AuthorType) Valid() bool {
	switch t {
	case AuthorTypeUser, AuthorTypeChar, AuthorTypeNPC:
		return true
	}
	return false
}

// UserAuthorID is the AuthorID carried by posts the human user published.
const UserAuthorID = "user"

// TextImagePlaceholderURL is the card image shown for text-as-image posts.
const TextImagePlaceholderURL = "https://i.postimg.cc/KYr2qRCK/1.jpg"

// Post is a persisted microblog entry.
type Post struct {
	ID                int64      `db:"id" json:"id"`
	AuthorID          string     `db:"author_id" json:"authorId"`
	AuthorType        AuthorType `db:"author_type" json:"authorType"`
	AuthorNickname    string     `db:"author_nickname" json:"authorNickname"`
	AuthorAvatar      string     `db:"author_avatar" json:"authorAvatar"`
	Content           string     `db:"content" json:"content"`
	ImageURL          string     `db:"image_url" json:"imageUrl"`
	ImageDescription  string     `db:"image_description" json:"imageDescription"`
	HiddenContent     string     `db:"hidden_content" json:"hiddenContent"`
	PostType          PostType   `db:"post_type" json:"postType"`
	Timestamp         int64      `db:"timestamp" json:"timestamp"` // unix millis
	Likes             []string   `db:"-" json:"likes"`
	Comments          []Comment  `db:"-" json:"comments"`
	BaseLikesCount    int        `db:"base_likes_count" json:"baseLikesCount"`
	BaseCommentsCount int        `db:"base_comments_count" json:"baseCommentsCount"`
}

// Normalize replaces nil sequences with empty ones.
func (p *Post) Normalize() {
	if p.Likes == nil {
		p.Likes = []string{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
}

// Validate checks the record shape before it reaches the store.
func (p *Post) Validate() error {
	if !p.PostType.Valid() {
		return ErrInvalidPost
	}
	if !p.AuthorType.Valid() || p.AuthorID == "" {
		return ErrInvalidPost
	}
	return nil
}

// IsLikedBy reports whether name is in the like set.
func (p *Post) IsLikedBy(name string) bool {
	return slices.Contains(p.Likes, name)
}

// ToggleLike adds name to the like set or removes it if present.
// Returns true when the post is liked after the call.
func (p *Post) ToggleLike(name string) bool {
	if i := slices.Index(p.Likes, name); i >= 0 {
		p.Likes = slices.Delete(p.Likes, i, i+1)
		return false
	}
	p.Likes = append(p.Likes, name)
	return true
}

// RemoveComment drops the comment with the given id. Returns false when absent.
func (p *Post) RemoveComment(commentID string) bool {
	i := slices.IndexFunc(p.Comments, func(c Comment) bool { return c.CommentID == commentID })
	if i < 0 {
		return false
	}
	p.Comments = slices.Delete(p.Comments, i, i+1)
	return true
}

// PostView is a post shaped for the presenter, with derived counters.
type PostView struct {
	Post
	AuthorAvatarFrame string `json:"authorAvatarFrame,omitempty"`
	LikeCount         int    `json:"likeCount"`
	CommentCount      int    `json:"commentCount"`
	IsLiked           bool   `json:"isLiked"`
}

// NewPostView derives display counters for viewer.
func NewPostView(p Post, viewer string) PostView {
	p.Normalize()
	return PostView{
		Post:         p,
		LikeCount:    p.BaseLikesCount + len(p.Likes),
		CommentCount: len(p.Comments),
		IsLiked:      p.IsLikedBy(viewer),
	}
}

// PublishRequest is the request body for publishing a user post.
type PublishRequest struct {
	Mode             PostType `json:"mode"`
	Content          string   `json:"content"`
	ImageURL         string   `json:"imageUrl"`
	ImageDescription string   `json:"imageDescription"`
	HiddenContent    string   `json:"hiddenContent"`
}

// Post errors
var (
	ErrPostNotFound             = errors.New("post not found")
	ErrInvalidPost              = errors.New("invalid post record")
	ErrEmptyPost                = errors.New("微博内容不能为空哦！")
	ErrImageDescriptionRequired = errors.New("为了让AI能看懂图片，请务必填写图片描述哦！")
	ErrInvalidPostMode          = errors.New("unknown publish mode")
)
