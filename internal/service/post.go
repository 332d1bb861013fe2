package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"weibosim/internal/model"
	"weibosim/internal/numfmt"
	"weibosim/internal/queue"
	"weibosim/internal/realtime"
	"weibosim/internal/repository"
)

// unknownAuthor is shown for posts whose author left no nickname.
const unknownAuthor = "未知用户"

type PostService struct {
	postRepo     repository.PostRepository
	charRepo     repository.CharacterRepository
	settingsRepo repository.SettingsRepository
	notifier     realtime.Notifier
	rand         func() float64
	now          func() time.Time
}

func NewPostService(
	postRepo repository.PostRepository,
	charRepo repository.CharacterRepository,
	settingsRepo repository.SettingsRepository,
	notifier realtime.Notifier,
) *PostService {
	return &PostService{
		postRepo:     postRepo,
		charRepo:     charRepo,
		settingsRepo: settingsRepo,
		notifier:     notifier,
		rand:         defaultRand,
		now:          defaultNow,
	}
}

// Publish creates a post by the user. Base counters are seeded from the
// user's fan count so a new post does not look abandoned.
func (s *PostService) Publish(ctx context.Context, req model.PublishRequest) (*model.PostView, error) {
	content := strings.TrimSpace(req.Content)
	post := &model.Post{
		AuthorID:   model.UserAuthorID,
		AuthorType: model.AuthorTypeUser,
		Content:    content,
		PostType:   model.PostTypeTextOnly,
	}

	switch req.Mode {
	case model.PostTypeImage:
		// Image mode without an uploaded image degrades to plain text.
		if req.ImageURL != "" {
			desc := strings.TrimSpace(req.ImageDescription)
			if desc == "" {
				return nil, model.ErrImageDescriptionRequired
			}
			post.ImageURL = req.ImageURL
			post.ImageDescription = desc
			post.PostType = model.PostTypeImage
		}
	case model.PostTypeTextImage:
		if hidden := strings.TrimSpace(req.HiddenContent); hidden != "" {
			post.HiddenContent = hidden
			post.ImageURL = model.TextImagePlaceholderURL
			post.PostType = model.PostTypeTextImage
		}
	case model.PostTypeTextOnly, "":
	default:
		return nil, model.ErrInvalidPostMode
	}

	if post.Content == "" && post.ImageURL == "" {
		return nil, model.ErrEmptyPost
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	fans := float64(numfmt.ParseChinese(settings.WeiboFansCount))
	post.BaseLikesCount = floorInt(fans * (s.rand()*0.1 + 0.1))
	post.BaseCommentsCount = floorInt(float64(post.BaseLikesCount) * (s.rand()*0.1 + 0.05))
	post.AuthorNickname = settings.DisplayName()
	post.AuthorAvatar = settings.DisplayAvatar()
	post.Timestamp = s.now().UnixMilli()
	post.Likes = []string{}
	post.Comments = []model.Comment{}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	log.Printf("[PostService] Publish OK: post=%d type=%s base_likes=%d", post.ID, post.PostType, post.BaseLikesCount)

	notify(ctx, s.notifier, "PostService", queue.NewPostsChangedEvent(post.ID))

	view := model.NewPostView(*post, settings.LikeName())
	return &view, nil
}

// ToggleLike adds or removes the user's like by nickname.
func (s *PostService) ToggleLike(ctx context.Context, postID int64) (*model.PostView, error) {
	return s.mutate(ctx, postID, func(post *model.Post, settings *model.UserSettings) bool {
		liked := post.ToggleLike(settings.LikeName())
		log.Printf("[PostService] ToggleLike: post=%d liked=%v", postID, liked)
		return true
	})
}

// AddComment appends a comment by the user, optionally as a reply.
func (s *PostService) AddComment(ctx context.Context, postID int64, req model.CreateCommentRequest) (*model.PostView, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, model.ErrContentRequired
	}

	return s.mutate(ctx, postID, func(post *model.Post, settings *model.UserSettings) bool {
		c := model.Comment{
			CommentID:      model.NewCommentID(),
			AuthorID:       model.UserAuthorID,
			AuthorNickname: settings.DisplayName(),
			CommentText:    text,
			Timestamp:      s.now().UnixMilli(),
		}
		if req.ReplyToID != "" {
			c.ReplyToID = req.ReplyToID
			c.ReplyToNickname = req.ReplyToNickname
		}
		post.Comments = append(post.Comments, c)
		return true
	})
}

// DeleteComment removes a comment. A missing comment leaves the post as is.
func (s *PostService) DeleteComment(ctx context.Context, postID int64, commentID string) (*model.PostView, error) {
	return s.mutate(ctx, postID, func(post *model.Post, _ *model.UserSettings) bool {
		return post.RemoveComment(commentID)
	})
}

// DeletePost removes a post and everything embedded in it.
func (s *PostService) DeletePost(ctx context.Context, postID int64) error {
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}
	log.Printf("[PostService] DeletePost OK: post=%d", postID)

	notify(ctx, s.notifier, "PostService", queue.NewPostsChangedEvent(postID))
	return nil
}

// mutate loads a post, applies fn and saves when fn reports a change.
func (s *PostService) mutate(ctx context.Context, postID int64, fn func(*model.Post, *model.UserSettings) bool) (*model.PostView, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	if fn(post, settings) {
		if err := s.postRepo.Put(ctx, post); err != nil {
			return nil, fmt.Errorf("save post: %w", err)
		}
		notify(ctx, s.notifier, "PostService", queue.NewPostsChangedEvent(postID))
	}

	views, err := s.present(ctx, []model.Post{*post}, settings)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// =============================================================================
// FEEDS
// =============================================================================

// MyFeed lists the user's own posts, newest first.
func (s *PostService) MyFeed(ctx context.Context) ([]model.PostView, error) {
	posts, err := s.postRepo.ListByAuthor(ctx, model.UserAuthorID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return s.presentWithSettings(ctx, posts)
}

// FollowingFeed lists posts by everyone but the user, newest first.
func (s *PostService) FollowingFeed(ctx context.Context) ([]model.PostView, error) {
	posts, err := s.postRepo.ListExcludingAuthor(ctx, model.UserAuthorID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return s.presentWithSettings(ctx, posts)
}

// CharacterFeed lists posts by one character, newest first.
func (s *PostService) CharacterFeed(ctx context.Context, charID string) ([]model.PostView, error) {
	if _, err := s.charRepo.GetByID(ctx, charID); err != nil {
		return nil, err
	}
	posts, err := s.postRepo.ListByAuthor(ctx, charID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return s.presentWithSettings(ctx, posts)
}

func (s *PostService) presentWithSettings(ctx context.Context, posts []model.Post) ([]model.PostView, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return s.present(ctx, posts, settings)
}

// present shapes posts for display. Author names and avatars are resolved
// live, so profile edits show on old posts.
func (s *PostService) present(ctx context.Context, posts []model.Post, settings *model.UserSettings) ([]model.PostView, error) {
	chars, err := s.charRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	byID := make(map[string]model.Character, len(chars))
	for _, c := range chars {
		byID[c.ID] = c
	}

	viewer := settings.LikeName()
	views := make([]model.PostView, 0, len(posts))
	for _, p := range posts {
		v := model.NewPostView(p, viewer)
		switch {
		case p.AuthorID == model.UserAuthorID:
			v.AuthorNickname = settings.DisplayName()
			v.AuthorAvatar = settings.DisplayAvatar()
			v.AuthorAvatarFrame = settings.WeiboAvatarFrame
		case p.AuthorType == model.AuthorTypeChar:
			if c, ok := byID[p.AuthorID]; ok {
				v.AuthorNickname = c.DisplayNickname()
				if c.Settings.WeiboAvatar != "" {
					v.AuthorAvatar = c.Settings.WeiboAvatar
				} else if c.Settings.AIAvatar != "" {
					v.AuthorAvatar = c.Settings.AIAvatar
				}
				v.AuthorAvatarFrame = c.Settings.WeiboAvatarFrame
			}
		}
		if v.AuthorNickname == "" {
			v.AuthorNickname = unknownAuthor
		}
		views = append(views, v)
	}
	return views, nil
}
