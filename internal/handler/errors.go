package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"weibosim/internal/completion"
	"weibosim/internal/httputil"
	"weibosim/internal/model"
)

var notFoundErrors = []error{
	model.ErrPostNotFound,
	model.ErrCharacterNotFound,
	model.ErrNPCNotFound,
	model.ErrConversationNotFound,
	model.ErrMessageNotFound,
	model.ErrPresetNotFound,
}

var badRequestErrors = []error{
	model.ErrEmptyPost,
	model.ErrImageDescriptionRequired,
	model.ErrInvalidPostMode,
	model.ErrContentRequired,
	model.ErrInvalidTargets,
	model.ErrInvalidAction,
	model.ErrTopicRequired,
	model.ErrNoPlazaPost,
	model.ErrNoUserPost,
	model.ErrPresetNameRequired,
	model.ErrInvalidCharacter,
	model.ErrRerollUnavailable,
}

var unparsableErrors = []error{
	model.ErrNoValidComments,
	model.ErrNoValidContent,
	model.ErrInvalidDmArray,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// writeServiceError maps a service error to the JSON error body. op names
// the failing operation in the log line.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var httpErr *completion.HTTPError
	var parseErr *completion.ParseError

	switch {
	case isAny(err, notFoundErrors):
		httputil.WriteNotFound(w, err.Error())
	case isAny(err, badRequestErrors):
		httputil.WriteBadRequest(w, err.Error())
	case errors.Is(err, model.ErrOverwriteNotConfirmed):
		httputil.WriteConflict(w, err.Error())
	case errors.Is(err, model.ErrConfigMissing):
		httputil.WriteError(w, http.StatusServiceUnavailable, httputil.ErrCodeConfigMissing, model.ErrConfigMissing.Error())
	case errors.As(err, &httpErr):
		log.Printf("[ERROR] %s: upstream status=%d", op, httpErr.StatusCode)
		httputil.WriteUpstreamError(w, httputil.ErrCodeUpstream, httpErr.Error())
	case errors.Is(err, completion.ErrEmptyResponse):
		httputil.WriteUpstreamError(w, httputil.ErrCodeEmptyResponse, completion.ErrEmptyResponse.Error())
	case errors.As(err, &parseErr), isAny(err, unparsableErrors):
		log.Printf("[ERROR] %s: unusable completion err=%v", op, err)
		httputil.WriteUpstreamError(w, httputil.ErrCodeParse, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		log.Printf("[ERROR] %s: timed out", op)
		httputil.WriteError(w, http.StatusGatewayTimeout, httputil.ErrCodeUpstream, "API请求超时")
	default:
		log.Printf("[ERROR] %s: err=%v", op, err)
		httputil.WriteInternalError(w, "Failed to "+op)
	}
}

// intParam reads a numeric chi URL parameter.
func intParam(r *http.Request, name string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, name))
}

func postIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
