package analytics

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/classpulse/classpulse/internal/authz"
	"github.com/classpulse/classpulse/internal/platform/httpx"
)

// Handler exposes the analytics endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers analytics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/overview", h.overview)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	out, err := h.service.Overview(r.Context(), p)
	if err != nil {
		var denial *authz.DenialError
		if errors.As(err, &denial) {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", string(denial.Reason))
			return
		}
		h.logger.Error("analytics request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
