package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"weibosim/internal/completion"
	"weibosim/internal/model"
	"weibosim/internal/queue"
)

// =============================================================================
// IN-MEMORY REPOSITORIES
// =============================================================================
//
// The fakes keep state so a test can check what was persisted. Every read
// returns a deep copy, the same as a real store, so a service that forgets
// to Put cannot pass by mutating shared memory.

// clone deep-copies v through JSON.
func clone[T any](v T) T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return out
}

type mockPostRepository struct {
	mu     sync.Mutex
	posts  map[int64]*model.Post
	nextID int64

	// Optional overrides
	getByIDFn func(ctx context.Context, postID int64) (*model.Post, error)
	putFn     func(ctx context.Context, post *model.Post) error

	putCalls int
}

func newMockPostRepository(posts ...*model.Post) *mockPostRepository {
	m := &mockPostRepository{posts: map[int64]*model.Post{}}
	for _, p := range posts {
		if err := m.Create(context.Background(), p); err != nil {
			panic(err)
		}
	}
	return m
}

func (m *mockPostRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, postID)
	}
	return m.get(postID)
}

func (m *mockPostRepository) get(postID int64) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	c := clone(*p)
	c.Normalize()
	return &c, nil
}

func (m *mockPostRepository) Create(ctx context.Context, post *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	post.ID = m.nextID
	c := clone(*post)
	m.posts[post.ID] = &c
	return nil
}

func (m *mockPostRepository) Put(ctx context.Context, post *model.Post) error {
	m.mu.Lock()
	m.putCalls++
	m.mu.Unlock()
	if m.putFn != nil {
		return m.putFn(ctx, post)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := clone(*post)
	m.posts[post.ID] = &c
	return nil
}

func (m *mockPostRepository) Delete(ctx context.Context, postID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[postID]; !ok {
		return model.ErrPostNotFound
	}
	delete(m.posts, postID)
	return nil
}

func (m *mockPostRepository) list(keep func(model.Post) bool) []model.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Post{}
	for _, p := range m.posts {
		if keep(*p) {
			c := clone(*p)
			c.Normalize()
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

func (m *mockPostRepository) ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	return m.list(func(p model.Post) bool { return p.AuthorID == authorID }), nil
}

func (m *mockPostRepository) ListExcludingAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	return m.list(func(p model.Post) bool { return p.AuthorID != authorID }), nil
}

func (m *mockPostRepository) CountByAuthor(ctx context.Context, authorID string) (int, error) {
	posts, _ := m.ListByAuthor(ctx, authorID)
	return len(posts), nil
}

func (m *mockPostRepository) Latest(ctx context.Context) (*model.Post, error) {
	posts := m.list(func(model.Post) bool { return true })
	if len(posts) == 0 {
		return nil, model.ErrPostNotFound
	}
	return &posts[0], nil
}

func (m *mockPostRepository) LatestByAuthor(ctx context.Context, authorID string) (*model.Post, error) {
	posts, _ := m.ListByAuthor(ctx, authorID)
	if len(posts) == 0 {
		return nil, model.ErrPostNotFound
	}
	return &posts[0], nil
}

type mockCharacterRepository struct {
	mu    sync.Mutex
	chars map[string]*model.Character
	order []string

	putCalls int
}

func newMockCharacterRepository(chars ...model.Character) *mockCharacterRepository {
	m := &mockCharacterRepository{chars: map[string]*model.Character{}}
	for i := range chars {
		if err := m.Put(context.Background(), &chars[i]); err != nil {
			panic(err)
		}
	}
	m.putCalls = 0
	return m
}

func (m *mockCharacterRepository) GetByID(ctx context.Context, id string) (*model.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.chars[id]
	if !ok {
		return nil, model.ErrCharacterNotFound
	}
	out := clone(*c)
	out.Normalize()
	return &out, nil
}

func (m *mockCharacterRepository) Put(ctx context.Context, c *model.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if _, ok := m.chars[c.ID]; !ok {
		m.order = append(m.order, c.ID)
	}
	stored := clone(*c)
	m.chars[c.ID] = &stored
	return nil
}

func (m *mockCharacterRepository) List(ctx context.Context) ([]model.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Character, 0, len(m.order))
	for _, id := range m.order {
		if c, ok := m.chars[id]; ok {
			cp := clone(*c)
			cp.Normalize()
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *mockCharacterRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chars[id]; !ok {
		return model.ErrCharacterNotFound
	}
	delete(m.chars, id)
	return nil
}

type mockSettingsRepository struct {
	mu       sync.Mutex
	settings *model.UserSettings

	putCalls int
}

func newMockSettingsRepository(s *model.UserSettings) *mockSettingsRepository {
	return &mockSettingsRepository{settings: s}
}

func (m *mockSettingsRepository) Get(ctx context.Context) (*model.UserSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		d := model.DefaultUserSettings()
		return &d, nil
	}
	s := clone(*m.settings)
	s.Normalize()
	return &s, nil
}

func (m *mockSettingsRepository) Put(ctx context.Context, s *model.UserSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	stored := clone(*s)
	m.settings = &stored
	return nil
}

// =============================================================================
// PROVIDER, CACHE AND NOTIFIER
// =============================================================================

type providerCall struct {
	Prompt string
	Opts   completion.Options
}

// mockProvider replays responses in order; the last one repeats. When set,
// during runs after the call is recorded and before the response returns.
type mockProvider struct {
	mu        sync.Mutex
	responses []string
	err       error
	calls     []providerCall
	during    func()
}

func (m *mockProvider) Complete(ctx context.Context, prompt string, opts completion.Options) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, providerCall{Prompt: prompt, Opts: opts})
	n := len(m.calls)
	during, err, responses := m.during, m.err, m.responses
	m.mu.Unlock()

	if during != nil {
		during()
	}
	if err != nil {
		return "", err
	}
	if len(responses) == 0 {
		return "", completion.ErrEmptyResponse
	}
	i := n - 1
	if i >= len(responses) {
		i = len(responses) - 1
	}
	return responses[i], nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockNotifier struct {
	mu     sync.Mutex
	events []queue.ViewEvent
}

func (m *mockNotifier) Notify(ctx context.Context, event queue.ViewEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockNotifier) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

// fixedRand returns a random source that always yields v.
func fixedRand(v float64) func() float64 {
	return func() float64 { return v }
}
