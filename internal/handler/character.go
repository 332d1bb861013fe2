package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"weibosim/internal/httputil"
	"weibosim/internal/model"
	"weibosim/internal/service"
)

// CharacterHandler serves chat partners: their profile, posts and inbox.
type CharacterHandler struct {
	profileService    *service.ProfileService
	postService       *service.PostService
	dmService         *service.DmService
	generationService *service.GenerationService
}

func NewCharacterHandler(
	profileService *service.ProfileService,
	postService *service.PostService,
	dmService *service.DmService,
	generationService *service.GenerationService,
) *CharacterHandler {
	return &CharacterHandler{
		profileService:    profileService,
		postService:       postService,
		dmService:         dmService,
		generationService: generationService,
	}
}

// List handles GET /characters
func (h *CharacterHandler) List(w http.ResponseWriter, r *http.Request) {
	chars, err := h.profileService.ListCharacters(r.Context())
	if err != nil {
		writeServiceError(w, "list characters", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"characters": chars})
}

// Upsert handles PUT /characters/{id}
// The host pushes chat partners here; the path id wins over the body.
func (h *CharacterHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var c model.Character
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	c.ID = chi.URLParam(r, "id")

	saved, err := h.profileService.UpsertCharacter(r.Context(), c)
	if err != nil {
		writeServiceError(w, "upsert character", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, saved)
}

// Delete handles DELETE /characters/{id}
func (h *CharacterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.profileService.DeleteCharacter(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "delete character", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Character deleted successfully",
	})
}

// Profile handles GET /characters/{id}/profile
func (h *CharacterHandler) Profile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.CharacterProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "get character profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PATCH /characters/{id}/profile
func (h *CharacterHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req model.CharacterProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	profile, err := h.profileService.UpdateCharacterProfile(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, "update character profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// Posts handles GET /characters/{id}/posts
func (h *CharacterHandler) Posts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.postService.CharacterFeed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "get character posts", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
}

// Dms handles GET /characters/{id}/dms
// Generates the inbox on first visit.
func (h *CharacterHandler) Dms(w http.ResponseWriter, r *http.Request) {
	h.dms(w, r, false)
}

// MoreDms handles POST /characters/{id}/dms/more
func (h *CharacterHandler) MoreDms(w http.ResponseWriter, r *http.Request) {
	h.dms(w, r, true)
}

func (h *CharacterHandler) dms(w http.ResponseWriter, r *http.Request, addMore bool) {
	dms, err := h.generationService.CharacterDms(r.Context(), chi.URLParam(r, "id"), addMore)
	if err != nil {
		writeServiceError(w, "get character dms", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"dms": dms})
}

// ClearDms handles DELETE /characters/{id}/dms
func (h *CharacterHandler) ClearDms(w http.ResponseWriter, r *http.Request) {
	if err := h.dmService.ClearCharacterDms(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "clear character dms", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"dms": []model.DmConversation{}})
}

// DeleteDmMessage handles DELETE /characters/{id}/dms/{fan}/messages/{msg}
func (h *CharacterHandler) DeleteDmMessage(w http.ResponseWriter, r *http.Request) {
	fan, err := intParam(r, "fan")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid conversation index")
		return
	}
	msg, err := intParam(r, "msg")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid message index")
		return
	}

	dms, err := h.dmService.DeleteCharacterDmMessage(r.Context(), chi.URLParam(r, "id"), fan, msg)
	if err != nil {
		writeServiceError(w, "delete character dm message", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"dms": dms})
}
