package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"weibosim/internal/httputil"
	"weibosim/internal/model"
	"weibosim/internal/service"
)

type PostHandler struct {
	postService       *service.PostService
	generationService *service.GenerationService
}

func NewPostHandler(postService *service.PostService, generationService *service.GenerationService) *PostHandler {
	return &PostHandler{
		postService:       postService,
		generationService: generationService,
	}
}

// MyFeed handles GET /feed/mine
func (h *PostHandler) MyFeed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.MyFeed(r.Context())
	if err != nil {
		writeServiceError(w, "get my feed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// FollowingFeed handles GET /feed/following
func (h *PostHandler) FollowingFeed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.FollowingFeed(r.Context())
	if err != nil {
		writeServiceError(w, "get following feed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// Publish handles POST /posts
func (h *PostHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req model.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	post, err := h.postService.Publish(r.Context(), req)
	if err != nil {
		writeServiceError(w, "publish post", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, post)
}

// Delete handles DELETE /posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDParam(r)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	if err := h.postService.DeletePost(r.Context(), postID); err != nil {
		writeServiceError(w, "delete post", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Post deleted successfully",
	})
}

// ToggleLike handles POST /posts/{id}/like
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDParam(r)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	post, err := h.postService.ToggleLike(r.Context(), postID)
	if err != nil {
		writeServiceError(w, "toggle like", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

// AddComment handles POST /posts/{id}/comments
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDParam(r)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	var req model.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	post, err := h.postService.AddComment(r.Context(), postID, req)
	if err != nil {
		writeServiceError(w, "add comment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, post)
}

// DeleteComment handles DELETE /posts/{id}/comments/{commentId}
func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDParam(r)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	post, err := h.postService.DeleteComment(r.Context(), postID, chi.URLParam(r, "commentId"))
	if err != nil {
		writeServiceError(w, "delete comment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

// GenerateComments handles POST /posts/{id}/comments/generate
// Asks the provider for a batch of replies under the post.
func (h *PostHandler) GenerateComments(w http.ResponseWriter, r *http.Request) {
	postID, err := postIDParam(r)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid post ID")
		return
	}

	result, err := h.generationService.GenerateComments(r.Context(), postID)
	if err != nil {
		writeServiceError(w, "generate comments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
