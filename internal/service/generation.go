package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"weibosim/internal/cache"
	"weibosim/internal/completion"
	"weibosim/internal/model"
	"weibosim/internal/prompt"
	"weibosim/internal/queue"
	"weibosim/internal/realtime"
	"weibosim/internal/repository"
)

// GenerationService runs every task that asks the completion provider for
// content: build prompt, call, decode, merge, notify.
type GenerationService struct {
	provider     completion.Provider
	postRepo     repository.PostRepository
	charRepo     repository.CharacterRepository
	settingsRepo repository.SettingsRepository
	feedCache    cache.FeedCache
	notifier     realtime.Notifier

	tracer  trace.Tracer
	metrics *generationMetrics
	rand    func() float64
	now     func() time.Time
}

// NewGenerationService wires the pipeline. provider may be nil when no API is
// configured; every task then fails with model.ErrConfigMissing.
func NewGenerationService(
	provider completion.Provider,
	postRepo repository.PostRepository,
	charRepo repository.CharacterRepository,
	settingsRepo repository.SettingsRepository,
	feedCache cache.FeedCache,
	notifier realtime.Notifier,
	opts ...GenerationOption,
) *GenerationService {
	s := &GenerationService{
		provider:     provider,
		postRepo:     postRepo,
		charRepo:     charRepo,
		settingsRepo: settingsRepo,
		feedCache:    feedCache,
		notifier:     notifier,
		tracer:       defaultTracer(),
		metrics:      defaultMetrics(),
		rand:         defaultRand,
		now:          defaultNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// complete sends one prompt. It fails before any request when unconfigured.
func (s *GenerationService) complete(ctx context.Context, text string, opts completion.Options) (string, error) {
	if s.provider == nil {
		return "", model.ErrConfigMissing
	}
	return s.provider.Complete(ctx, text, opts)
}

// resolveTargets loads the characters a task is conditioned on. The bool
// reports whether the caller picked them by hand.
func (s *GenerationService) resolveTargets(ctx context.Context, targets model.Targets) ([]model.Character, bool, error) {
	chars, err := s.charRepo.List(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("list characters: %w", err)
	}
	if targets.All {
		return chars, false, nil
	}
	if len(targets.IDs) == 0 {
		return nil, false, model.ErrInvalidTargets
	}

	byID := make(map[string]model.Character, len(chars))
	for _, c := range chars {
		byID[c.ID] = c
	}
	// Only single characters can be picked; group chats have no persona of
	// their own.
	picked := make([]model.Character, 0, len(targets.IDs))
	for _, id := range targets.IDs {
		c, ok := byID[id]
		if !ok {
			continue
		}
		if c.IsGroup {
			log.Printf("[GenerationService] resolveTargets skipped group: character=%s", id)
			continue
		}
		picked = append(picked, c)
	}
	if len(picked) == 0 {
		return nil, false, model.ErrInvalidTargets
	}
	return picked, true, nil
}

// =============================================================================
// HOT SEARCH
// =============================================================================

// GenerateHotSearch builds a trending list for targets, caches it, then
// builds a plaza around the new topics. A plaza failure is reported in the
// result and does not discard the list.
func (s *GenerationService) GenerateHotSearch(ctx context.Context, targets model.Targets) (*model.HotSearchResult, error) {
	startTime := time.Now()
	ctx, run := s.startTask(ctx, "hot_search", attribute.Bool("targets.all", targets.All))

	items, chars, explicit, err := s.generateHotSearch(ctx, targets)
	run.end(ctx, err, false)
	if err != nil {
		log.Printf("[GenerationService] GenerateHotSearch FAILED: err=%v", err)
		return nil, err
	}

	s.setHotSearch(ctx, items)
	notify(ctx, s.notifier, "GenerationService", queue.NewViewEvent(queue.EventHotSearchChanged))

	result := &model.HotSearchResult{HotSearches: items, Plaza: []model.FeedPost{}}

	plazaCtx, plazaRun := s.startTask(ctx, "plaza", attribute.Int("hot_topics", len(items)))
	plaza, err := s.generatePlaza(plazaCtx, chars, explicit, items)
	plazaRun.end(plazaCtx, err, false)
	if err != nil {
		log.Printf("[GenerationService] GenerateHotSearch plaza FAILED: err=%v", err)
		result.PlazaError = err.Error()
	} else {
		s.setPlaza(ctx, plaza)
		notify(ctx, s.notifier, "GenerationService", queue.NewViewEvent(queue.EventPlazaChanged))
		result.Plaza = plaza
	}

	log.Printf("[GenerationService] GenerateHotSearch OK: topics=%d plaza=%d duration=%v",
		len(items), len(result.Plaza), time.Since(startTime))
	return result, nil
}

func (s *GenerationService) generateHotSearch(ctx context.Context, targets model.Targets) ([]model.HotSearchItem, []model.Character, bool, error) {
	if s.provider == nil {
		return nil, nil, false, model.ErrConfigMissing
	}
	chars, explicit, err := s.resolveTargets(ctx, targets)
	if err != nil {
		return nil, nil, false, err
	}

	text, err := s.complete(ctx, prompt.HotSearch(chars, explicit), completion.Options{JSONMode: true})
	if err != nil {
		return nil, nil, false, fmt.Errorf("hot search: %w", err)
	}
	decoded, err := completion.DecodeList[model.HotSearchItem](text, "hot_searches", "hotSearches", "topics")
	if err != nil {
		return nil, nil, false, fmt.Errorf("hot search: %w", err)
	}

	items := make([]model.HotSearchItem, 0, len(decoded))
	for _, item := range decoded {
		if strings.TrimSpace(item.Topic) == "" {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, nil, false, model.ErrNoValidContent
	}
	return items, chars, explicit, nil
}

// HotSearch returns the cached trending list, empty when nothing is cached.
func (s *GenerationService) HotSearch(ctx context.Context) ([]model.HotSearchItem, error) {
	items, found, err := s.feedCache.GetHotSearch(ctx)
	if err != nil {
		log.Printf("[GenerationService] HotSearch cache error treated as miss: err=%v", err)
	}
	if !found || err != nil {
		return []model.HotSearchItem{}, nil
	}
	return items, nil
}

// HotTopicFeed returns the posts under topic, generating them on a cache miss.
func (s *GenerationService) HotTopicFeed(ctx context.Context, topic string) ([]model.FeedPost, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, model.ErrTopicRequired
	}

	posts, found, err := s.feedCache.GetTopicFeed(ctx, topic)
	if err != nil {
		log.Printf("[GenerationService] HotTopicFeed cache error treated as miss: topic=%s err=%v", topic, err)
	}
	if found && err == nil {
		_, run := s.startTask(ctx, "topic_feed", attribute.String("topic", topic))
		run.end(ctx, nil, true)
		log.Printf("[GenerationService] HotTopicFeed CACHE_HIT: topic=%s posts=%d", topic, len(posts))
		return posts, nil
	}

	return s.RegenerateHotTopicFeed(ctx, topic)
}

// RegenerateHotTopicFeed always calls the provider and replaces the cached feed.
func (s *GenerationService) RegenerateHotTopicFeed(ctx context.Context, topic string) ([]model.FeedPost, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, model.ErrTopicRequired
	}

	startTime := time.Now()
	ctx, run := s.startTask(ctx, "topic_feed", attribute.String("topic", topic))
	posts, err := s.generateTopicFeed(ctx, topic)
	run.end(ctx, err, false)
	if err != nil {
		log.Printf("[GenerationService] HotTopicFeed FAILED: topic=%s err=%v", topic, err)
		return nil, err
	}

	if err := s.feedCache.SetTopicFeed(ctx, topic, posts); err != nil {
		log.Printf("[GenerationService] Failed to cache topic feed: topic=%s err=%v", topic, err)
	}

	log.Printf("[GenerationService] HotTopicFeed OK: topic=%s posts=%d duration=%v",
		topic, len(posts), time.Since(startTime))
	return posts, nil
}

func (s *GenerationService) generateTopicFeed(ctx context.Context, topic string) ([]model.FeedPost, error) {
	if s.provider == nil {
		return nil, model.ErrConfigMissing
	}
	chars, err := s.charRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}

	text, err := s.complete(ctx, prompt.TopicFeed(topic, chars), completion.Options{JSONMode: true})
	if err != nil {
		return nil, fmt.Errorf("topic feed: %w", err)
	}
	return decodeFeed(text)
}

// =============================================================================
// PLAZA
// =============================================================================

// GeneratePlaza builds the public square for req's targets and caches it.
func (s *GenerationService) GeneratePlaza(ctx context.Context, req model.GenerateRequest) ([]model.FeedPost, error) {
	startTime := time.Now()
	ctx, run := s.startTask(ctx, "plaza",
		attribute.Bool("targets.all", req.Targets.All),
		attribute.Int("hot_topics", len(req.HotTopics)),
	)

	posts, err := func() ([]model.FeedPost, error) {
		if s.provider == nil {
			return nil, model.ErrConfigMissing
		}
		chars, explicit, err := s.resolveTargets(ctx, req.Targets)
		if err != nil {
			return nil, err
		}
		return s.generatePlaza(ctx, chars, explicit, req.HotTopics)
	}()
	run.end(ctx, err, false)
	if err != nil {
		log.Printf("[GenerationService] GeneratePlaza FAILED: err=%v", err)
		return nil, err
	}

	s.setPlaza(ctx, posts)
	notify(ctx, s.notifier, "GenerationService", queue.NewViewEvent(queue.EventPlazaChanged))

	log.Printf("[GenerationService] GeneratePlaza OK: posts=%d duration=%v", len(posts), time.Since(startTime))
	return posts, nil
}

func (s *GenerationService) generatePlaza(ctx context.Context, chars []model.Character, explicit bool, hotTopics []model.HotSearchItem) ([]model.FeedPost, error) {
	text, err := s.complete(ctx, prompt.Plaza(chars, explicit, hotTopics), completion.Options{JSONMode: true})
	if err != nil {
		return nil, fmt.Errorf("plaza: %w", err)
	}
	return decodeFeed(text)
}

// Plaza returns the cached public square, empty when nothing is cached.
func (s *GenerationService) Plaza(ctx context.Context) ([]model.FeedPost, error) {
	posts, found, err := s.feedCache.GetPlaza(ctx)
	if err != nil {
		log.Printf("[GenerationService] Plaza cache error treated as miss: err=%v", err)
	}
	if !found || err != nil {
		return []model.FeedPost{}, nil
	}
	return posts, nil
}

func (s *GenerationService) setHotSearch(ctx context.Context, items []model.HotSearchItem) {
	if err := s.feedCache.SetHotSearch(ctx, items); err != nil {
		log.Printf("[GenerationService] Failed to cache hot search: err=%v", err)
	}
}

func (s *GenerationService) setPlaza(ctx context.Context, posts []model.FeedPost) {
	if err := s.feedCache.SetPlaza(ctx, posts); err != nil {
		log.Printf("[GenerationService] Failed to cache plaza: err=%v", err)
	}
}

// decodeFeed keeps posts with content and comments with text.
func decodeFeed(text string) ([]model.FeedPost, error) {
	decoded, err := completion.DecodeList[model.FeedPost](text, "posts", "feed", "weibos")
	if err != nil {
		return nil, err
	}

	posts := make([]model.FeedPost, 0, len(decoded))
	for _, p := range decoded {
		if strings.TrimSpace(p.Content) == "" {
			continue
		}
		comments := make([]model.FeedComment, 0, len(p.CommentsList))
		for _, c := range p.CommentsList {
			if strings.TrimSpace(c.Text) == "" {
				continue
			}
			comments = append(comments, c)
		}
		p.CommentsList = comments
		posts = append(posts, p)
	}
	if len(posts) == 0 {
		return nil, model.ErrNoValidContent
	}
	return posts, nil
}
