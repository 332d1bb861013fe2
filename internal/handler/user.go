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

// UserHandler serves the human user's own page, settings and inbox.
type UserHandler struct {
	profileService    *service.ProfileService
	dmService         *service.DmService
	generationService *service.GenerationService
}

func NewUserHandler(
	profileService *service.ProfileService,
	dmService *service.DmService,
	generationService *service.GenerationService,
) *UserHandler {
	return &UserHandler{
		profileService:    profileService,
		dmService:         dmService,
		generationService: generationService,
	}
}

// Me handles GET /me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.UserProfile(r.Context())
	if err != nil {
		writeServiceError(w, "get profile", err)
		return
	}
	settings, err := h.profileService.Settings(r.Context())
	if err != nil {
		writeServiceError(w, "get settings", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"profile":  profile,
		"settings": settings,
	})
}

// UpdateSettings handles PATCH /me/settings
func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	profile, err := h.profileService.UpdateUserSettings(r.Context(), req)
	if err != nil {
		writeServiceError(w, "update settings", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// SavePreset handles POST /me/presets
func (h *UserHandler) SavePreset(w http.ResponseWriter, r *http.Request) {
	var req model.PersonaPreset
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	presets, err := h.profileService.SavePreset(r.Context(), req)
	if err != nil {
		writeServiceError(w, "save preset", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]interface{}{"presets": presets})
}

// DeletePreset handles DELETE /me/presets/{index}
func (h *UserHandler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	index, err := intParam(r, "index")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid preset index")
		return
	}

	presets, err := h.profileService.DeletePreset(r.Context(), index)
	if err != nil {
		writeServiceError(w, "delete preset", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"presets": presets})
}

// Following handles GET /me/following
func (h *UserHandler) Following(w http.ResponseWriter, r *http.Request) {
	entries, err := h.profileService.FollowingList(r.Context())
	if err != nil {
		writeServiceError(w, "get following", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"following": entries})
}

// =============================================================================
// INBOX
// =============================================================================

// Dms handles GET /me/dms
func (h *UserHandler) Dms(w http.ResponseWriter, r *http.Request) {
	dms, err := h.dmService.UserDms(r.Context())
	if err != nil {
		writeServiceError(w, "get dms", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"dms": dms})
}

// GenerateDms handles POST /me/dms/generate
func (h *UserHandler) GenerateDms(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateUserDmsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	dms, err := h.generationService.GenerateUserDms(r.Context(), req)
	if err != nil {
		writeServiceError(w, "generate dms", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"dms": dms})
}

// ClearDms handles DELETE /me/dms
func (h *UserHandler) ClearDms(w http.ResponseWriter, r *http.Request) {
	if err := h.dmService.ClearUserDms(r.Context()); err != nil {
		writeServiceError(w, "clear dms", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"dms": []model.DmConversation{}})
}

// SendDm handles POST /me/dms/{fan}/messages
func (h *UserHandler) SendDm(w http.ResponseWriter, r *http.Request) {
	fan, err := intParam(r, "fan")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid conversation index")
		return
	}

	var req model.SendDmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	conv, err := h.dmService.SendUserDm(r.Context(), fan, req.Text)
	if err != nil {
		writeServiceError(w, "send dm", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, conv)
}

// Reply handles POST /me/dms/{fan}/reply
// Asks the fan to answer.
func (h *UserHandler) Reply(w http.ResponseWriter, r *http.Request) {
	fan, err := intParam(r, "fan")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid conversation index")
		return
	}

	conv, err := h.generationService.TriggerUserDmReply(r.Context(), fan)
	if err != nil {
		writeServiceError(w, "trigger dm reply", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, conv)
}

// Reroll handles POST /me/dms/{fan}/reroll
func (h *UserHandler) Reroll(w http.ResponseWriter, r *http.Request) {
	fan, err := intParam(r, "fan")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid conversation index")
		return
	}

	conv, err := h.generationService.RerollUserDm(r.Context(), fan)
	if err != nil {
		writeServiceError(w, "reroll dm", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, conv)
}

// DeleteConversation handles DELETE /me/dms/{fan}
func (h *UserHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	fan, err := intParam(r, "fan")
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid conversation index")
		return
	}

	dms, err := h.dmService.DeleteUserDmConversation(r.Context(), fan)
	if err != nil {
		writeServiceError(w, "delete dm conversation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"dms": dms})
}

// DeleteMessage handles DELETE /me/dms/{fan}/messages/{msg}
func (h *UserHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
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

	dms, err := h.dmService.DeleteUserDmMessage(r.Context(), fan, msg)
	if err != nil {
		writeServiceError(w, "delete dm message", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"dms": dms})
}
