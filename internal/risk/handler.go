package risk

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/qarzbook/qarzbook/internal/platform/httpx"
	"github.com/qarzbook/qarzbook/internal/shared"
)

// Handler exposes customer scoring endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	locale  language.Tag
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, locale language.Tag) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, locale: locale}
}

// MountRoutes registers scoring routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/customers/{id}/credit-score", h.creditScore)
	r.Get("/customers/{id}/prediction", h.prediction)
	r.Get("/customers/{id}/risk", h.risk)
}

func (h *Handler) creditScore(w http.ResponseWriter, r *http.Request) {
	score, err := h.service.CalculateCreditScore(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, score)
}

func (h *Handler) prediction(w http.ResponseWriter, r *http.Request) {
	prediction, err := h.service.PredictPayment(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, prediction)
}

func (h *Handler) risk(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.service.AnalyzeDebtRisk(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, analysis.Localize(h.lang(r)))
}

func (h *Handler) lang(r *http.Request) language.Tag {
	return shared.MatchLanguage(r.Header.Get("Accept-Language"), h.locale)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	detail := shared.UserSafeMessage(h.lang(r), err)
	switch {
	case errors.Is(err, ErrCustomerNotFound):
		httpx.RespondError(w, httpx.ErrNotFound, detail)
	case errors.Is(err, ErrInsufficientHistory):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient History", detail)
	default:
		h.logger.Error("risk request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err, detail)
	}
}
