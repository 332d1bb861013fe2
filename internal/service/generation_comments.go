package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"weibosim/internal/completion"
	"weibosim/internal/model"
	"weibosim/internal/prompt"
	"weibosim/internal/queue"
)

// defaultCommenter names a generated comment line that has no "name:" prefix.
const defaultCommenter = "路人"

var commentLineSeparator = regexp.MustCompile(`[:：]`)

// =============================================================================
// COMMENT BATCHES
// =============================================================================

// GenerateComments asks for a batch of replies under postID and appends the
// valid ones. If the post is deleted while the request is in flight the
// batch is dropped and Post is nil in the result.
func (s *GenerationService) GenerateComments(ctx context.Context, postID int64) (*model.GenerateCommentsResult, error) {
	startTime := time.Now()
	ctx, run := s.startTask(ctx, "comments", attribute.Int64("post.id", postID))

	result, err := s.generateComments(ctx, postID)
	run.end(ctx, err, false)
	if err != nil {
		log.Printf("[GenerationService] GenerateComments FAILED: post=%d err=%v", postID, err)
		return nil, err
	}

	log.Printf("[GenerationService] GenerateComments OK: post=%d added=%d duration=%v",
		postID, result.Added, time.Since(startTime))
	return result, nil
}

func (s *GenerationService) generateComments(ctx context.Context, postID int64) (*model.GenerateCommentsResult, error) {
	if s.provider == nil {
		return nil, model.ErrConfigMissing
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	chars, err := s.charRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}

	pc := prompt.CommentContext{
		Post:         *post,
		UserNickname: settings.DisplayName(),
		AuthorName:   post.AuthorNickname,
		Characters:   chars,
	}
	if post.AuthorID == model.UserAuthorID {
		pc.AuthorName = settings.DisplayName()
		pc.AuthorPersona = settings.WeiboUserPersona
		if pc.AuthorPersona == "" {
			pc.AuthorPersona = model.DefaultWeiboUserPersona
		}
		pc.AuthorProfession = settings.WeiboUserProfession
	} else {
		for _, c := range chars {
			if c.ID == post.AuthorID {
				pc.AuthorPersona = c.Settings.AIPersona
				if pc.AuthorPersona == "" {
					pc.AuthorPersona = "无"
				}
				pc.AuthorProfession = c.Settings.WeiboProfession
				break
			}
		}
	}

	text, err := s.complete(ctx, prompt.Comments(pc), completion.Options{JSONMode: true})
	if err != nil {
		return nil, fmt.Errorf("comments: %w", err)
	}
	decoded, err := completion.DecodeList[model.GeneratedComment](text, "comments")
	if err != nil {
		return nil, fmt.Errorf("comments: %w", err)
	}

	valid := make([]model.GeneratedComment, 0, len(decoded))
	for _, c := range decoded {
		if strings.TrimSpace(c.Author) == "" || strings.TrimSpace(c.Comment) == "" {
			continue
		}
		valid = append(valid, c)
	}
	if len(valid) == 0 {
		return nil, model.ErrNoValidComments
	}

	// Re-read: the post may have changed while the provider was working.
	latest, err := s.postRepo.GetByID(ctx, postID)
	if errors.Is(err, model.ErrPostNotFound) {
		log.Printf("[GenerationService] GenerateComments post vanished before merge: post=%d", postID)
		return &model.GenerateCommentsResult{}, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UnixMilli()
	for _, c := range valid {
		latest.Comments = append(latest.Comments, model.Comment{
			CommentID:       model.NewCommentID(),
			AuthorNickname:  c.Author,
			CommentText:     c.Comment,
			Timestamp:       now,
			ReplyToNickname: c.ReplyTo,
		})
	}
	// The bump counts every entry the provider returned, usable or not.
	latest.BaseLikesCount += floorInt(s.rand()*float64(len(decoded))*3 + 5)

	if err := s.postRepo.Put(ctx, latest); err != nil {
		return nil, fmt.Errorf("save post: %w", err)
	}
	notify(ctx, s.notifier, "GenerationService", queue.NewPostsChangedEvent(postID))

	view := model.NewPostView(*latest, settings.LikeName())
	return &model.GenerateCommentsResult{Post: &view, Added: len(valid)}, nil
}

// =============================================================================
// CHARACTER ACTIONS
// =============================================================================

// actor is the resolved character or NPC behind an ActionRequest.
type actor struct {
	target     prompt.ActionTarget
	avatar     string
	authorType model.AuthorType
}

func (s *GenerationService) resolveActor(ctx context.Context, req model.ActionRequest) (actor, error) {
	if req.IsNPC {
		owner, err := s.charRepo.GetByID(ctx, req.OwnerID)
		if err != nil {
			return actor{}, err
		}
		npc, ok := owner.FindNPC(req.TargetID)
		if !ok {
			return actor{}, model.ErrNPCNotFound
		}
		return actor{
			target: prompt.ActionTarget{
				ID:          npc.ID,
				Name:        npc.Name,
				Persona:     npc.Persona,
				Profession:  owner.Settings.WeiboProfession,
				Instruction: owner.Settings.WeiboInstruction,
			},
			avatar:     npc.Avatar,
			authorType: model.AuthorTypeNPC,
		}, nil
	}

	c, err := s.charRepo.GetByID(ctx, req.TargetID)
	if err != nil {
		return actor{}, err
	}
	persona := c.Settings.AIPersona
	if persona == "" {
		persona = model.DefaultWeiboUserPersona
	}
	return actor{
		target: prompt.ActionTarget{
			ID:          c.ID,
			Name:        c.Name,
			Persona:     persona,
			Profession:  c.Settings.WeiboProfession,
			Instruction: c.Settings.WeiboInstruction,
		},
		avatar:     c.Settings.AIAvatar,
		authorType: model.AuthorTypeChar,
	}, nil
}

// PerformCharacterAction makes a character or NPC post on its own, or comment
// on the newest post (plaza) or the user's newest post. A nil view with no
// error means the post was deleted before the comment could be added.
func (s *GenerationService) PerformCharacterAction(ctx context.Context, req model.ActionRequest) (*model.PostView, error) {
	startTime := time.Now()
	ctx, run := s.startTask(ctx, "action",
		attribute.String("action.type", string(req.Type)),
		attribute.Bool("action.npc", req.IsNPC),
	)

	view, err := s.performAction(ctx, req)
	run.end(ctx, err, false)
	if err != nil {
		log.Printf("[GenerationService] PerformCharacterAction FAILED: type=%s target=%s err=%v", req.Type, req.TargetID, err)
		return nil, err
	}
	if view == nil {
		return nil, nil
	}

	log.Printf("[GenerationService] PerformCharacterAction OK: type=%s target=%s post=%d duration=%v",
		req.Type, req.TargetID, view.ID, time.Since(startTime))
	return view, nil
}

func (s *GenerationService) performAction(ctx context.Context, req model.ActionRequest) (*model.PostView, error) {
	switch req.Type {
	case model.ActionPost, model.ActionCommentPlaza, model.ActionCommentUser:
	default:
		return nil, model.ErrInvalidAction
	}
	if s.provider == nil {
		return nil, model.ErrConfigMissing
	}

	a, err := s.resolveActor(ctx, req)
	if err != nil {
		return nil, err
	}
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	if req.Type == model.ActionPost {
		return s.actionPost(ctx, a, req.Hint, settings.LikeName())
	}
	return s.actionComment(ctx, a, req, settings.LikeName())
}

func (s *GenerationService) actionPost(ctx context.Context, a actor, hint, viewer string) (*model.PostView, error) {
	text, err := s.complete(ctx, prompt.ActAsCharacterPost(a.target, hint), completion.Options{})
	if err != nil {
		return nil, fmt.Errorf("character post: %w", err)
	}
	var generated model.GeneratedCharacterPost
	if err := completion.DecodeJSON(text, &generated); err != nil {
		return nil, fmt.Errorf("character post: %w", err)
	}

	now := s.now().UnixMilli()
	post := &model.Post{
		AuthorID:          a.target.ID,
		AuthorType:        a.authorType,
		AuthorNickname:    a.target.Name,
		AuthorAvatar:      a.avatar,
		Content:           generated.Content,
		PostType:          model.PostTypeTextOnly,
		Timestamp:         now,
		Likes:             []string{},
		Comments:          parseCommentLines(generated.Comments, now),
		BaseLikesCount:    generated.BaseLikesCount,
		BaseCommentsCount: generated.BaseCommentsCount,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	notify(ctx, s.notifier, "GenerationService", queue.NewPostsChangedEvent(post.ID))

	view := model.NewPostView(*post, viewer)
	return &view, nil
}

func (s *GenerationService) actionComment(ctx context.Context, a actor, req model.ActionRequest, viewer string) (*model.PostView, error) {
	var (
		post *model.Post
		err  error
	)
	if req.Type == model.ActionCommentPlaza {
		post, err = s.postRepo.Latest(ctx)
		if errors.Is(err, model.ErrPostNotFound) {
			return nil, model.ErrNoPlazaPost
		}
	} else {
		post, err = s.postRepo.LatestByAuthor(ctx, model.UserAuthorID)
		if errors.Is(err, model.ErrPostNotFound) {
			return nil, model.ErrNoUserPost
		}
	}
	if err != nil {
		return nil, err
	}

	text, err := s.complete(ctx, prompt.ActAsCharacterComment(a.target, req.Hint, *post, req.Type), completion.Options{})
	if err != nil {
		return nil, fmt.Errorf("character comment: %w", err)
	}
	var generated model.GeneratedCharacterComment
	if err := completion.DecodeJSON(text, &generated); err != nil {
		return nil, fmt.Errorf("character comment: %w", err)
	}
	if strings.TrimSpace(generated.CommentText) == "" {
		return nil, model.ErrNoValidContent
	}

	latest, err := s.postRepo.GetByID(ctx, post.ID)
	if errors.Is(err, model.ErrPostNotFound) {
		log.Printf("[GenerationService] PerformCharacterAction post vanished before merge: post=%d", post.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	latest.Comments = append(latest.Comments, model.Comment{
		CommentID:      model.NewCommentID(),
		AuthorID:       a.target.ID,
		AuthorNickname: a.target.Name,
		CommentText:    generated.CommentText,
		Timestamp:      s.now().UnixMilli(),
	})
	if err := s.postRepo.Put(ctx, latest); err != nil {
		return nil, fmt.Errorf("save post: %w", err)
	}
	notify(ctx, s.notifier, "GenerationService", queue.NewPostsChangedEvent(latest.ID))

	view := model.NewPostView(*latest, viewer)
	return &view, nil
}

// parseCommentLines reads "name: text" lines. A line without a separator is
// treated as the name with no text and dropped.
func parseCommentLines(raw string, timestamp int64) []model.Comment {
	comments := []model.Comment{}
	for _, line := range strings.Split(raw, "\n") {
		parts := commentLineSeparator.Split(line, -1)
		name := strings.TrimSpace(parts[0])
		if name == "" {
			name = defaultCommenter
		}
		text := strings.TrimSpace(strings.Join(parts[1:], ":"))
		if text == "" {
			continue
		}
		comments = append(comments, model.Comment{
			CommentID:      model.NewCommentID(),
			AuthorNickname: name,
			CommentText:    text,
			Timestamp:      timestamp,
		})
	}
	return comments
}
