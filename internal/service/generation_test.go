package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"weibosim/internal/cache"
	"weibosim/internal/completion"
	"weibosim/internal/model"
	"weibosim/internal/queue"
)

type generationFixture struct {
	provider *mockProvider
	posts    *mockPostRepository
	chars    *mockCharacterRepository
	settings *mockSettingsRepository
	cache    cache.FeedCache
	notifier *mockNotifier
	svc      *GenerationService
}

func newGenerationFixture(t *testing.T, responses ...string) *generationFixture {
	t.Helper()
	f := &generationFixture{
		provider: &mockProvider{responses: responses},
		posts:    newMockPostRepository(),
		chars: newMockCharacterRepository(
			model.Character{ID: "c1", Name: "阿梨", Settings: model.CharacterSettings{AIPersona: "温柔的画家", AIAvatar: "ai.png"},
				NPCLibrary: []model.NPC{{ID: "n1", Name: "小跟班", Persona: "话多", Avatar: "npc.png"}}},
			model.Character{ID: "c2", Name: "老陈"},
		),
		settings: newMockSettingsRepository(nil),
		cache:    cache.NewMemoryFeedCache(16, time.Hour),
		notifier: &mockNotifier{},
	}
	f.svc = NewGenerationService(f.provider, f.posts, f.chars, f.settings, f.cache, f.notifier,
		WithRand(fixedRand(0.5)),
		WithClock(func() time.Time { return time.UnixMilli(5000) }),
	)
	return f
}

const feedJSON = `{"posts":[
	{"author":"路人甲","content":"第一条","likes":10,"comments":2,"comments_list":[{"author":"乙","text":"好"},{"author":"丙","text":""}]},
	{"author":"路人乙","content":"   "}
]}`

// =============================================================================
// CONFIGURATION TESTS
// =============================================================================

func TestGenerationService_ConfigMissing(t *testing.T) {
	// ARRANGE: no provider configured
	posts := newMockPostRepository()
	id := seedUserPost(t, posts, 0)
	svc := NewGenerationService(nil, posts, newMockCharacterRepository(), newMockSettingsRepository(nil),
		cache.NewMemoryFeedCache(16, time.Hour), &mockNotifier{})
	ctx := context.Background()

	// ACT + ASSERT: every task stops before any request
	if _, err := svc.GenerateComments(ctx, id); !errors.Is(err, model.ErrConfigMissing) {
		t.Errorf("GenerateComments error = %v, want ErrConfigMissing", err)
	}
	if _, err := svc.GenerateHotSearch(ctx, model.AllTargets()); !errors.Is(err, model.ErrConfigMissing) {
		t.Errorf("GenerateHotSearch error = %v, want ErrConfigMissing", err)
	}
	if _, err := svc.HotTopicFeed(ctx, "topic"); !errors.Is(err, model.ErrConfigMissing) {
		t.Errorf("HotTopicFeed error = %v, want ErrConfigMissing", err)
	}
	if _, err := svc.GenerateUserDms(ctx, model.GenerateUserDmsRequest{}); !errors.Is(err, model.ErrConfigMissing) {
		t.Errorf("GenerateUserDms error = %v, want ErrConfigMissing", err)
	}
	if posts.putCalls != 0 {
		t.Errorf("Put called %d times, want 0", posts.putCalls)
	}
}

func TestGenerationService_ConfigMissing_CacheHitStillServes(t *testing.T) {
	feedCache := cache.NewMemoryFeedCache(16, time.Hour)
	want := []model.FeedPost{{Author: "甲", Content: "缓存里的"}}
	if err := feedCache.SetTopicFeed(context.Background(), "猫", want); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	svc := NewGenerationService(nil, newMockPostRepository(), newMockCharacterRepository(), newMockSettingsRepository(nil),
		feedCache, &mockNotifier{})

	got, err := svc.HotTopicFeed(context.Background(), "猫")

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(got) != 1 || got[0].Content != "缓存里的" {
		t.Errorf("feed = %+v, want cached feed", got)
	}
}

// =============================================================================
// HOT SEARCH, TOPIC FEED AND PLAZA TESTS
// =============================================================================

func TestGenerationService_HotTopicFeed_CacheHitSkipsProvider(t *testing.T) {
	f := newGenerationFixture(t, feedJSON)
	ctx := context.Background()

	first, err := f.svc.HotTopicFeed(ctx, "猫")
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := f.svc.HotTopicFeed(ctx, "猫")
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if f.provider.callCount() != 1 {
		t.Errorf("provider called %d times, want 1", f.provider.callCount())
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("feeds = %d/%d posts, want 1/1 after dropping empty content", len(first), len(second))
	}
	if len(first[0].CommentsList) != 1 {
		t.Errorf("comments = %+v, want the empty comment dropped", first[0].CommentsList)
	}

	if _, err := f.svc.RegenerateHotTopicFeed(ctx, "猫"); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if f.provider.callCount() != 2 {
		t.Errorf("provider called %d times after regenerate, want 2", f.provider.callCount())
	}
}

func TestGenerationService_HotTopicFeed_TopicRequired(t *testing.T) {
	f := newGenerationFixture(t, feedJSON)

	_, err := f.svc.HotTopicFeed(context.Background(), "  ")

	if !errors.Is(err, model.ErrTopicRequired) {
		t.Errorf("error = %v, want ErrTopicRequired", err)
	}
	if f.provider.callCount() != 0 {
		t.Errorf("provider called %d times, want 0", f.provider.callCount())
	}
}

func TestGenerationService_GenerateHotSearch(t *testing.T) {
	// ARRANGE: trending list first, then the plaza built on it
	f := newGenerationFixture(t,
		`{"hot_searches":[{"topic":"新剧开播","heat":"300万","tag":"热"},{"topic":" ","heat":"1"}]}`,
		feedJSON,
	)
	ctx := context.Background()

	// ACT
	result, err := f.svc.GenerateHotSearch(ctx, model.AllTargets())

	// ASSERT
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(result.HotSearches) != 1 || result.HotSearches[0].Topic != "新剧开播" {
		t.Errorf("hot searches = %+v, want the one named topic", result.HotSearches)
	}
	if len(result.Plaza) != 1 || result.PlazaError != "" {
		t.Errorf("plaza = %+v err=%q, want one post and no error", result.Plaza, result.PlazaError)
	}

	cached, _ := f.svc.HotSearch(ctx)
	if len(cached) != 1 {
		t.Errorf("cached hot search = %+v, want 1 item", cached)
	}
	plaza, _ := f.svc.Plaza(ctx)
	if len(plaza) != 1 {
		t.Errorf("cached plaza = %+v, want 1 post", plaza)
	}

	got := f.notifier.types()
	if len(got) != 2 || got[0] != queue.EventHotSearchChanged || got[1] != queue.EventPlazaChanged {
		t.Errorf("events = %v, want hot search then plaza", got)
	}
}

func TestGenerationService_GenerateHotSearch_PlazaFailureKeepsList(t *testing.T) {
	f := newGenerationFixture(t,
		`[{"topic":"新剧开播","heat":"300万","tag":"热"}]`,
		`not json at all`,
	)
	ctx := context.Background()

	result, err := f.svc.GenerateHotSearch(ctx, model.AllTargets())

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.PlazaError == "" {
		t.Error("expected plaza error to be reported")
	}
	if len(result.Plaza) != 0 {
		t.Errorf("plaza = %+v, want empty", result.Plaza)
	}
	cached, _ := f.svc.HotSearch(ctx)
	if len(cached) != 1 {
		t.Errorf("cached hot search = %+v, want the list to survive", cached)
	}
}

func TestGenerationService_EmptyCachesReturnEmptyLists(t *testing.T) {
	f := newGenerationFixture(t)
	ctx := context.Background()

	items, err := f.svc.HotSearch(ctx)
	if err != nil || items == nil || len(items) != 0 {
		t.Errorf("hot search = %v err=%v, want empty non-nil list", items, err)
	}
	posts, err := f.svc.Plaza(ctx)
	if err != nil || posts == nil || len(posts) != 0 {
		t.Errorf("plaza = %v err=%v, want empty non-nil list", posts, err)
	}
}

func TestGenerationService_GeneratePlaza_Targets(t *testing.T) {
	tests := []struct {
		name    string
		targets model.Targets
		wantErr error
	}{
		{name: "all", targets: model.AllTargets()},
		{name: "picked", targets: model.Targets{IDs: []string{"c1", "unknown"}}},
		{name: "none", targets: model.Targets{}, wantErr: model.ErrInvalidTargets},
		{name: "unknown only", targets: model.Targets{IDs: []string{"unknown"}}, wantErr: model.ErrInvalidTargets},
		{name: "group only", targets: model.Targets{IDs: []string{"g1"}}, wantErr: model.ErrInvalidTargets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGenerationFixture(t, feedJSON)
			seedGroup(t, f)

			posts, err := f.svc.GeneratePlaza(context.Background(), model.GenerateRequest{Targets: tt.targets})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				if f.provider.callCount() != 0 {
					t.Errorf("provider called %d times, want 0", f.provider.callCount())
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if len(posts) != 1 {
				t.Errorf("posts = %+v, want 1", posts)
			}
		})
	}
}

func seedGroup(t *testing.T, f *generationFixture) {
	t.Helper()
	g := &model.Character{ID: "g1", Name: "相亲相爱一家人", IsGroup: true}
	if err := f.chars.Put(context.Background(), g); err != nil {
		t.Fatalf("seed group: %v", err)
	}
}

func TestGenerationService_GeneratePlaza_PickedGroupIsSkipped(t *testing.T) {
	f := newGenerationFixture(t, feedJSON)
	seedGroup(t, f)

	_, err := f.svc.GeneratePlaza(context.Background(), model.GenerateRequest{
		Targets: model.Targets{IDs: []string{"g1", "c1"}},
	})

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	p := f.provider.calls[0].Prompt
	if !strings.Contains(p, "阿梨") {
		t.Error("prompt should feature the picked character")
	}
	if strings.Contains(p, "相亲相爱一家人") {
		t.Error("prompt should not feature the picked group")
	}
}

func TestGenerationService_GeneratePlaza_NothingUsable(t *testing.T) {
	f := newGenerationFixture(t, `{"posts":[{"author":"甲","content":""}]}`)

	_, err := f.svc.GeneratePlaza(context.Background(), model.GenerateRequest{Targets: model.AllTargets()})

	if !errors.Is(err, model.ErrNoValidContent) {
		t.Errorf("error = %v, want ErrNoValidContent", err)
	}
	plaza, _ := f.svc.Plaza(context.Background())
	if len(plaza) != 0 {
		t.Errorf("plaza cached %d posts, want nothing on failure", len(plaza))
	}
}

// =============================================================================
// COMMENT BATCH TESTS
// =============================================================================

func TestGenerationService_GenerateComments_Merges(t *testing.T) {
	// ARRANGE
	f := newGenerationFixture(t, "```json\n"+`[
		{"author":"路人甲","comment":"沙发"},
		{"author":"路人乙","comment":"楼上说得对","replyTo":"路人甲"},
		{"author":"","comment":"没有名字"},
		{"author":"路人丙","comment":"   "}
	]`+"\n```")
	id := seedUserPost(t, f.posts, 10)

	// ACT
	result, err := f.svc.GenerateComments(context.Background(), id)

	// ASSERT
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Added != 2 {
		t.Errorf("added = %d, want 2", result.Added)
	}
	stored, _ := f.posts.GetByID(context.Background(), id)
	if len(stored.Comments) != 2 {
		t.Fatalf("stored %d comments, want 2", len(stored.Comments))
	}
	if stored.Comments[1].ReplyToNickname != "路人甲" {
		t.Errorf("reply to = %q, want 路人甲", stored.Comments[1].ReplyToNickname)
	}
	// four entries returned, two usable: floor(0.5*4*3 + 5) = 11
	if stored.BaseLikesCount != 21 {
		t.Errorf("base likes = %d, want 21", stored.BaseLikesCount)
	}
	if !f.provider.calls[0].Opts.JSONMode {
		t.Error("expected JSON mode for comment batches")
	}
	if got := f.notifier.types(); len(got) != 1 || got[0] != queue.EventPostsChanged {
		t.Errorf("events = %v, want one posts_changed", got)
	}
}

func TestGenerationService_GenerateComments_HTTPErrorLeavesStore(t *testing.T) {
	f := newGenerationFixture(t)
	f.provider.err = &completion.HTTPError{StatusCode: 500, Body: "boom"}
	id := seedUserPost(t, f.posts, 10)

	_, err := f.svc.GenerateComments(context.Background(), id)

	var httpErr *completion.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 500 {
		t.Fatalf("error = %v, want HTTPError 500", err)
	}
	if f.posts.putCalls != 0 {
		t.Errorf("Put called %d times, want 0", f.posts.putCalls)
	}
	stored, _ := f.posts.GetByID(context.Background(), id)
	if len(stored.Comments) != 0 || stored.BaseLikesCount != 10 {
		t.Errorf("post changed: comments=%d base=%d", len(stored.Comments), stored.BaseLikesCount)
	}
	if len(f.notifier.events) != 0 {
		t.Errorf("events = %v, want none", f.notifier.types())
	}
}

func TestGenerationService_GenerateComments_NoValidComments(t *testing.T) {
	f := newGenerationFixture(t, `[{"author":"","comment":""}]`)
	id := seedUserPost(t, f.posts, 0)

	_, err := f.svc.GenerateComments(context.Background(), id)

	if !errors.Is(err, model.ErrNoValidComments) {
		t.Errorf("error = %v, want ErrNoValidComments", err)
	}
	if f.posts.putCalls != 0 {
		t.Errorf("Put called %d times, want 0", f.posts.putCalls)
	}
}

func TestGenerationService_GenerateComments_PostVanished(t *testing.T) {
	// ARRANGE: the post disappears between the first read and the merge
	f := newGenerationFixture(t, `[{"author":"甲","comment":"在吗"}]`)
	id := seedUserPost(t, f.posts, 0)
	reads := 0
	f.posts.getByIDFn = func(ctx context.Context, postID int64) (*model.Post, error) {
		reads++
		if reads > 1 {
			return nil, model.ErrPostNotFound
		}
		return f.posts.get(postID)
	}

	// ACT
	result, err := f.svc.GenerateComments(context.Background(), id)

	// ASSERT
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if result.Post != nil || result.Added != 0 {
		t.Errorf("result = %+v, want empty result", result)
	}
	if f.posts.putCalls != 0 {
		t.Errorf("Put called %d times, want 0", f.posts.putCalls)
	}
}

// =============================================================================
// CHARACTER ACTION TESTS
// =============================================================================

func TestGenerationService_Action_Post(t *testing.T) {
	f := newGenerationFixture(t, `{"content":"今天画了一幅画","baseLikesCount":120,"baseCommentsCount":8,`+
		`"comments":"甲: 好看\n：匿名夸夸\n乙\n丙: 比例:完美"}`)

	view, err := f.svc.PerformCharacterAction(context.Background(), model.ActionRequest{
		Type:     model.ActionPost,
		TargetID: "c1",
	})

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if view.AuthorID != "c1" || view.AuthorType != model.AuthorTypeChar || view.AuthorAvatar != "ai.png" {
		t.Errorf("author = %s/%s/%s, want c1/char/ai.png", view.AuthorID, view.AuthorType, view.AuthorAvatar)
	}
	if view.BaseLikesCount != 120 || view.BaseCommentsCount != 8 {
		t.Errorf("base counters = %d/%d, want 120/8", view.BaseLikesCount, view.BaseCommentsCount)
	}

	want := []struct{ name, text string }{
		{"甲", "好看"},
		{defaultCommenter, "匿名夸夸"},
		{"丙", "比例:完美"},
	}
	if len(view.Comments) != len(want) {
		t.Fatalf("comments = %+v, want %d", view.Comments, len(want))
	}
	for i, w := range want {
		if view.Comments[i].AuthorNickname != w.name || view.Comments[i].CommentText != w.text {
			t.Errorf("comment[%d] = %s/%s, want %s/%s", i,
				view.Comments[i].AuthorNickname, view.Comments[i].CommentText, w.name, w.text)
		}
	}
	if f.provider.calls[0].Opts.JSONMode {
		t.Error("character actions should not request JSON mode")
	}
}

func TestGenerationService_Action_NPCComment(t *testing.T) {
	f := newGenerationFixture(t, `{"commentText":"我来啦"}`)
	id := seedUserPost(t, f.posts, 0)

	view, err := f.svc.PerformCharacterAction(context.Background(), model.ActionRequest{
		Type:     model.ActionCommentUser,
		TargetID: "n1",
		IsNPC:    true,
		OwnerID:  "c1",
	})

	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if view.ID != id {
		t.Errorf("commented on post %d, want %d", view.ID, id)
	}
	if len(view.Comments) != 1 || view.Comments[0].AuthorNickname != "小跟班" || view.Comments[0].AuthorID != "n1" {
		t.Errorf("comments = %+v, want one by 小跟班", view.Comments)
	}
}

func TestGenerationService_Action_CommentPostDeletedDuringGeneration(t *testing.T) {
	// ARRANGE
	f := newGenerationFixture(t, `{"commentText":"我来啦"}`)
	id := seedUserPost(t, f.posts, 0)
	ctx := context.Background()
	f.provider.during = func() {
		if err := f.posts.Delete(ctx, id); err != nil {
			t.Errorf("delete: %v", err)
		}
	}

	// ACT
	view, err := f.svc.PerformCharacterAction(ctx, model.ActionRequest{Type: model.ActionCommentUser, TargetID: "c1"})

	// ASSERT
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if view != nil {
		t.Errorf("view = %+v, want nil", view)
	}
	if _, err := f.posts.GetByID(ctx, id); !errors.Is(err, model.ErrPostNotFound) {
		t.Errorf("GetByID error = %v, want the post to stay deleted", err)
	}
	if len(f.notifier.events) != 0 {
		t.Errorf("events = %v, want none", f.notifier.types())
	}
}

func TestGenerationService_Action_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     model.ActionRequest
		wantErr error
	}{
		{name: "unknown type", req: model.ActionRequest{Type: "dance", TargetID: "c1"}, wantErr: model.ErrInvalidAction},
		{name: "unknown character", req: model.ActionRequest{Type: model.ActionPost, TargetID: "nobody"}, wantErr: model.ErrCharacterNotFound},
		{name: "unknown npc", req: model.ActionRequest{Type: model.ActionPost, TargetID: "x", IsNPC: true, OwnerID: "c1"}, wantErr: model.ErrNPCNotFound},
		{name: "no user post", req: model.ActionRequest{Type: model.ActionCommentUser, TargetID: "c1"}, wantErr: model.ErrNoUserPost},
		{name: "empty plaza", req: model.ActionRequest{Type: model.ActionCommentPlaza, TargetID: "c1"}, wantErr: model.ErrNoPlazaPost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGenerationFixture(t, `{"commentText":"hi"}`)

			_, err := f.svc.PerformCharacterAction(context.Background(), tt.req)

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if f.provider.callCount() != 0 {
				t.Errorf("provider called %d times, want 0", f.provider.callCount())
			}
		})
	}
}

func TestGenerationService_Action_EmptyComment(t *testing.T) {
	f := newGenerationFixture(t, `{"commentText":"  "}`)
	seedUserPost(t, f.posts, 0)

	_, err := f.svc.PerformCharacterAction(context.Background(), model.ActionRequest{
		Type:     model.ActionCommentPlaza,
		TargetID: "c2",
	})

	if !errors.Is(err, model.ErrNoValidContent) {
		t.Errorf("error = %v, want ErrNoValidContent", err)
	}
	if f.posts.putCalls != 0 {
		t.Errorf("Put called %d times, want 0", f.posts.putCalls)
	}
}

func TestParseCommentLines(t *testing.T) {
	got := parseCommentLines("甲：你好\n\n乙:a:b\n无冒号", 7)

	if len(got) != 2 {
		t.Fatalf("parsed %d comments, want 2: %+v", len(got), got)
	}
	if got[0].AuthorNickname != "甲" || got[0].CommentText != "你好" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].AuthorNickname != "乙" || got[1].CommentText != "a:b" {
		t.Errorf("second = %+v", got[1])
	}
	if got[0].Timestamp != 7 || got[0].CommentID == got[1].CommentID {
		t.Errorf("timestamps and ids not set: %+v", got)
	}
}
