package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"weibosim/internal/httputil"
	"weibosim/internal/model"
	"weibosim/internal/service"
)

// FeedHandler serves the generated, non-persisted views: hot search, topic
// feeds and the plaza. Character actions live here too since they are
// generation requests.
type FeedHandler struct {
	generationService *service.GenerationService
}

func NewFeedHandler(generationService *service.GenerationService) *FeedHandler {
	return &FeedHandler{
		generationService: generationService,
	}
}

// decodeGenerateRequest reads an optional body. A missing body targets
// every character.
func decodeGenerateRequest(r *http.Request) (model.GenerateRequest, error) {
	req := model.GenerateRequest{Targets: model.AllTargets()}
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		return model.GenerateRequest{Targets: model.AllTargets()}, nil
	}
	return req, err
}

// HotSearch handles GET /hot-search
func (h *FeedHandler) HotSearch(w http.ResponseWriter, r *http.Request) {
	items, err := h.generationService.HotSearch(r.Context())
	if err != nil {
		writeServiceError(w, "get hot search", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"hotSearches": items})
}

// GenerateHotSearch handles POST /hot-search
func (h *FeedHandler) GenerateHotSearch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeGenerateRequest(r)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	result, err := h.generationService.GenerateHotSearch(r.Context(), req.Targets)
	if err != nil {
		writeServiceError(w, "generate hot search", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// TopicFeed handles GET /hot-search/feed?topic=
func (h *FeedHandler) TopicFeed(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	posts, err := h.generationService.HotTopicFeed(r.Context(), topic)
	if err != nil {
		writeServiceError(w, "get topic feed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"topic": topic, "posts": posts})
}

// RegenerateTopicFeed handles POST /hot-search/feed/regenerate?topic=
func (h *FeedHandler) RegenerateTopicFeed(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	posts, err := h.generationService.RegenerateHotTopicFeed(r.Context(), topic)
	if err != nil {
		writeServiceError(w, "regenerate topic feed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"topic": topic, "posts": posts})
}

// Plaza handles GET /plaza
func (h *FeedHandler) Plaza(w http.ResponseWriter, r *http.Request) {
	posts, err := h.generationService.Plaza(r.Context())
	if err != nil {
		writeServiceError(w, "get plaza", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// GeneratePlaza handles POST /plaza
func (h *FeedHandler) GeneratePlaza(w http.ResponseWriter, r *http.Request) {
	req, err := decodeGenerateRequest(r)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	posts, err := h.generationService.GeneratePlaza(r.Context(), req)
	if err != nil {
		writeServiceError(w, "generate plaza", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// Action handles POST /actions
// Makes a character or NPC post, or comment on the newest post.
func (h *FeedHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req model.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	post, err := h.generationService.PerformCharacterAction(r.Context(), req)
	if err != nil {
		writeServiceError(w, "perform character action", err)
		return
	}
	if post == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}
