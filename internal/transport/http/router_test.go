package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weibosim/internal/cache"
	"weibosim/internal/completion"
	"weibosim/internal/database"
	"weibosim/internal/handler"
	"weibosim/internal/httputil"
	"weibosim/internal/realtime"
	"weibosim/internal/repository"
	"weibosim/internal/service"
)

// stubProvider answers every prompt with text, or fails with err.
type stubProvider struct {
	text  string
	err   error
	calls int
}

func (p *stubProvider) Complete(ctx context.Context, prompt string, opts completion.Options) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.text, nil
}

// newTestRouter wires the real services over an in-memory SQLite store.
// A nil provider leaves generation unconfigured.
func newTestRouter(t *testing.T, provider completion.Provider, secret string) http.Handler {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := realtime.NewHub()
	go hub.Run(ctx)

	postRepo := repository.NewPostRepository(db)
	charRepo := repository.NewCharacterRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	feedCache := cache.NewMemoryFeedCache(16, time.Hour)

	generationService := service.NewGenerationService(provider, postRepo, charRepo, settingsRepo, feedCache, hub)
	postService := service.NewPostService(postRepo, charRepo, settingsRepo, hub)
	profileService := service.NewProfileService(postRepo, charRepo, settingsRepo, hub)
	dmService := service.NewDmService(charRepo, settingsRepo, hub)

	return NewRouter(RouterConfig{
		PostHandler:      handler.NewPostHandler(postService, generationService),
		FeedHandler:      handler.NewFeedHandler(generationService),
		CharacterHandler: handler.NewCharacterHandler(profileService, postService, dmService, generationService),
		UserHandler:      handler.NewUserHandler(profileService, dmService, generationService),
		Websocket:        hub,
		JWTSecret:        secret,
	})
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[httputil.ErrorResponse](t, rec).Error.Code
}

type postBody struct {
	ID        int64 `json:"id"`
	LikeCount int   `json:"likeCount"`
	IsLiked   bool  `json:"isLiked"`
}

// =============================================================================
// POSTS
// =============================================================================

func TestRouter_Health(t *testing.T) {
	rec := do(t, newTestRouter(t, nil, ""), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_PublishLikeAndFeed(t *testing.T) {
	r := newTestRouter(t, nil, "")

	rec := do(t, r, http.MethodPost, "/posts", map[string]string{"mode": "text_only", "content": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode[postBody](t, rec)
	require.NotZero(t, post.ID)

	rec = do(t, r, http.MethodPost, "/posts/"+strconv.FormatInt(post.ID, 10)+"/like", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	liked := decode[postBody](t, rec)
	assert.True(t, liked.IsLiked)
	assert.Equal(t, post.LikeCount+1, liked.LikeCount)

	rec = do(t, r, http.MethodGet, "/feed/mine", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	feed := decode[struct {
		Posts []postBody `json:"posts"`
	}](t, rec)
	require.Len(t, feed.Posts, 1)
	assert.True(t, feed.Posts[0].IsLiked)

	rec = do(t, r, http.MethodGet, "/feed/following", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	following := decode[struct {
		Posts []postBody `json:"posts"`
	}](t, rec)
	assert.Empty(t, following.Posts)
}

func TestRouter_PostErrors(t *testing.T) {
	r := newTestRouter(t, nil, "")

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"empty post", http.MethodPost, "/posts", map[string]string{"content": "  "}, http.StatusBadRequest, httputil.ErrCodeBadRequest},
		{"missing post", http.MethodPost, "/posts/999/like", nil, http.StatusNotFound, httputil.ErrCodeNotFound},
		{"bad id", http.MethodPost, "/posts/abc/like", nil, http.StatusBadRequest, httputil.ErrCodeBadRequest},
		{"unconfigured generation", http.MethodPost, "/plaza", nil, http.StatusServiceUnavailable, httputil.ErrCodeConfigMissing},
		{"missing topic", http.MethodGet, "/hot-search/feed", nil, http.StatusBadRequest, httputil.ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
		})
	}
}

// =============================================================================
// GENERATION
// =============================================================================

func TestRouter_GenerationFailuresMapToGatewayErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
		wantCode string
	}{
		{"http error", &stubProvider{err: &completion.HTTPError{StatusCode: 429, Body: "slow down"}}, httputil.ErrCodeUpstream},
		{"empty response", &stubProvider{err: completion.ErrEmptyResponse}, httputil.ErrCodeEmptyResponse},
		{"unparsable", &stubProvider{text: "not json"}, httputil.ErrCodeParse},
		{"nothing usable", &stubProvider{text: `{"posts":[]}`}, httputil.ErrCodeParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, tt.provider, "")

			rec := do(t, r, http.MethodPost, "/plaza", map[string]interface{}{"targets": "all"})

			assert.Equal(t, http.StatusBadGateway, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, errorCode(t, rec))
			assert.Equal(t, 1, tt.provider.calls)
		})
	}
}

func TestRouter_PlazaRoundTrip(t *testing.T) {
	provider := &stubProvider{text: `{"posts":[{"author":"路人","content":"广场第一帖","likes":3,"comments":0,"comments_list":[]}]}`}
	r := newTestRouter(t, provider, "")

	rec := do(t, r, http.MethodGet, "/plaza", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[struct {
		Posts []json.RawMessage `json:"posts"`
	}](t, rec)
	assert.Empty(t, empty.Posts)

	rec = do(t, r, http.MethodPost, "/plaza", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/plaza", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cached := decode[struct {
		Posts []json.RawMessage `json:"posts"`
	}](t, rec)
	assert.Len(t, cached.Posts, 1)
	assert.Equal(t, 1, provider.calls)
}

func TestRouter_UserDmsOverwriteConflict(t *testing.T) {
	provider := &stubProvider{text: `[{"fanName":"小粉丝","messages":[{"sender":"fan","text":"你好"}]}]`}
	r := newTestRouter(t, provider, "")

	rec := do(t, r, http.MethodPost, "/me/dms/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/me/dms/generate", map[string]bool{"addMore": false})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httputil.ErrCodeConflict, errorCode(t, rec))

	rec = do(t, r, http.MethodPost, "/me/dms/generate", map[string]bool{"confirmOverwrite": true})
	assert.Equal(t, http.StatusOK, rec.Code)
}

// =============================================================================
// CHARACTERS
// =============================================================================

func TestRouter_CharacterProfile(t *testing.T) {
	r := newTestRouter(t, nil, "")

	rec := do(t, r, http.MethodPut, "/characters/c1", map[string]interface{}{
		"id":       "ignored",
		"name":     "阿梨",
		"settings": map[string]string{"aiPersona": "画家"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPatch, "/characters/c1/profile", map[string]string{"weiboFansCount": "3.5万"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodGet, "/characters/c1/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[struct {
		ID        string `json:"id"`
		Nickname  string `json:"nickname"`
		FansCount string `json:"fansCount"`
	}](t, rec)
	assert.Equal(t, "c1", profile.ID)
	assert.Equal(t, "阿梨", profile.Nickname)
	assert.Equal(t, "3.5万", profile.FansCount)

	rec = do(t, r, http.MethodGet, "/characters/nobody/profile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// AUTH
// =============================================================================

func TestRouter_AuthEnabled(t *testing.T) {
	r := newTestRouter(t, nil, "secret")

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/health", nil).Code)

	rec := do(t, r, http.MethodGet, "/plaza", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := service.NewAuthService("secret", time.Hour).IssueToken("presenter")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/plaza", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
