package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mnemo-ai/mnemo/internal/domain"
	"github.com/mnemo-ai/mnemo/internal/provider"
	"github.com/mnemo-ai/mnemo/internal/retry"
	"github.com/mnemo-ai/mnemo/internal/service"
	"github.com/mnemo-ai/mnemo/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

var validationErrors = []error{
	domain.ErrEmptyContext,
	domain.ErrEmptyContextField,
	domain.ErrEmptySummary,
	domain.ErrEmptyTag,
	domain.ErrDuplicateTag,
	domain.ErrTagNotFound,
	domain.ErrCredenceNotFinite,
	domain.ErrCredenceOutOfRange,
	domain.ErrDeadMemory,
	domain.ErrInvalidLimit,
	domain.ErrEmptyQueryVector,
	domain.ErrInvalidSignalFilter,
	domain.ErrInvalidDateRange,
	service.ErrEmptyRawContent,
	service.ErrNoFieldsToUpdate,
	store.ErrVectorRequired,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isProviderError(err error) bool {
	var (
		transport  *provider.TransportError
		invalid    *provider.InvalidResponseError
		deser      *provider.DeserializationError
		capability *provider.UnsupportedCapabilityError
		timeout    *retry.TimeoutError
	)
	switch {
	case errors.As(err, &transport),
		errors.As(err, &invalid),
		errors.As(err, &deser),
		errors.As(err, &capability),
		errors.As(err, &timeout),
		errors.Is(err, provider.ErrEmptyResponse):
		return true
	}
	return false
}

// writeServiceError maps a service failure onto an HTTP status. Client
// mistakes keep their message; upstream and internal failures get the
// fallback so provider payloads never reach callers.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case isProviderError(err):
		writeError(w, http.StatusBadGateway, fallback)
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
