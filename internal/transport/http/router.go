package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"weibosim/internal/handler"
	"weibosim/internal/httputil"
	authmw "weibosim/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	PostHandler      *handler.PostHandler
	FeedHandler      *handler.FeedHandler
	CharacterHandler *handler.CharacterHandler
	UserHandler      *handler.UserHandler
	// Websocket is served at /ws for view-change pushes.
	Websocket http.Handler
	// Empty disables authentication.
	JWTSecret string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if cfg.JWTSecret != "" {
			r.Use(authmw.AuthMiddleware(cfg.JWTSecret))
		}

		if cfg.Websocket != nil {
			r.Handle("/ws", cfg.Websocket)
		}

		r.Get("/feed/mine", cfg.PostHandler.MyFeed)
		r.Get("/feed/following", cfg.PostHandler.FollowingFeed)

		r.Route("/posts", func(r chi.Router) {
			r.Post("/", cfg.PostHandler.Publish)
			r.Delete("/{id}", cfg.PostHandler.Delete)
			r.Post("/{id}/like", cfg.PostHandler.ToggleLike)
			r.Post("/{id}/comments", cfg.PostHandler.AddComment)
			r.Post("/{id}/comments/generate", cfg.PostHandler.GenerateComments)
			r.Delete("/{id}/comments/{commentId}", cfg.PostHandler.DeleteComment)
		})

		r.Route("/characters", func(r chi.Router) {
			r.Get("/", cfg.CharacterHandler.List)
			r.Put("/{id}", cfg.CharacterHandler.Upsert)
			r.Delete("/{id}", cfg.CharacterHandler.Delete)
			r.Get("/{id}/profile", cfg.CharacterHandler.Profile)
			r.Patch("/{id}/profile", cfg.CharacterHandler.UpdateProfile)
			r.Get("/{id}/posts", cfg.CharacterHandler.Posts)
			r.Get("/{id}/dms", cfg.CharacterHandler.Dms)
			r.Post("/{id}/dms/more", cfg.CharacterHandler.MoreDms)
			r.Delete("/{id}/dms", cfg.CharacterHandler.ClearDms)
			r.Delete("/{id}/dms/{fan}/messages/{msg}", cfg.CharacterHandler.DeleteDmMessage)
		})

		r.Post("/actions", cfg.FeedHandler.Action)

		r.Route("/hot-search", func(r chi.Router) {
			r.Get("/", cfg.FeedHandler.HotSearch)
			r.Post("/", cfg.FeedHandler.GenerateHotSearch)
			r.Get("/feed", cfg.FeedHandler.TopicFeed)
			r.Post("/feed/regenerate", cfg.FeedHandler.RegenerateTopicFeed)
		})

		r.Get("/plaza", cfg.FeedHandler.Plaza)
		r.Post("/plaza", cfg.FeedHandler.GeneratePlaza)

		r.Route("/me", func(r chi.Router) {
			r.Get("/", cfg.UserHandler.Me)
			r.Patch("/settings", cfg.UserHandler.UpdateSettings)
			r.Post("/presets", cfg.UserHandler.SavePreset)
			r.Delete("/presets/{index}", cfg.UserHandler.DeletePreset)
			r.Get("/following", cfg.UserHandler.Following)

			r.Get("/dms", cfg.UserHandler.Dms)
			r.Post("/dms/generate", cfg.UserHandler.GenerateDms)
			r.Delete("/dms", cfg.UserHandler.ClearDms)
			r.Post("/dms/{fan}/messages", cfg.UserHandler.SendDm)
			r.Post("/dms/{fan}/reply", cfg.UserHandler.Reply)
			r.Post("/dms/{fan}/reroll", cfg.UserHandler.Reroll)
			r.Delete("/dms/{fan}", cfg.UserHandler.DeleteConversation)
			r.Delete("/dms/{fan}/messages/{msg}", cfg.UserHandler.DeleteMessage)
		})
	})

	return r
}
