package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"

	"github.com/qarzbook/qarzbook/internal/platform/httpx"
	"github.com/qarzbook/qarzbook/internal/shared"
)

// Handler exposes ledger mutations and lookups over JSON.
type Handler struct {
	logger   *slog.Logger
	ledger   *Ledger
	validate *validator.Validate
	locale   language.Tag
	idem     *shared.IdempotencyStore
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, ledger *Ledger, locale language.Tag) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, ledger: ledger, validate: NewValidator(), locale: locale}
}

// WithIdempotency makes POST requests honour the Idempotency-Key header.
func (h *Handler) WithIdempotency(s *shared.IdempotencyStore) *Handler {
	h.idem = s
	return h
}

// NewValidator returns a validator reporting fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/debts", h.createDebt)
	r.Get("/debts/{id}", h.getDebt)
	r.Post("/payments", h.createPayment)
	r.Get("/payments/{id}", h.getPayment)
	r.Get("/customers/{id}", h.getCustomer)
}

func (h *Handler) createDebt(w http.ResponseWriter, r *http.Request) {
	var in DebtInput
	if !h.decode(w, r, &in) {
		return
	}
	var debt Debt
	id, replayed, ok := h.once(w, r, "debts", func() (string, error) {
		var err error
		debt, err = h.ledger.AddDebt(r.Context(), in)
		return debt.ID, err
	})
	if !ok {
		return
	}
	if replayed {
		h.writeDebt(w, r, id, http.StatusOK)
		return
	}
	httpx.JSON(w, http.StatusCreated, debt)
}

func (h *Handler) getDebt(w http.ResponseWriter, r *http.Request) {
	h.writeDebt(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *Handler) writeDebt(w http.ResponseWriter, r *http.Request, id string, status int) {
	debt, err := h.ledger.Debt(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, status, debt)
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var in PaymentInput
	if !h.decode(w, r, &in) {
		return
	}
	var payment Payment
	id, replayed, ok := h.once(w, r, "payments", func() (string, error) {
		var err error
		payment, err = h.ledger.AddPayment(r.Context(), in)
		return payment.ID, err
	})
	if !ok {
		return
	}
	if replayed {
		h.writePayment(w, r, id, http.StatusOK)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	h.writePayment(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *Handler) writePayment(w http.ResponseWriter, r *http.Request, id string, status int) {
	payment, err := h.ledger.Payment(id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, status, payment)
}

// once runs create, deduplicated by the Idempotency-Key header when one is
// sent. ok is false when an error response has been written.
func (h *Handler) once(w http.ResponseWriter, r *http.Request, module string, create func() (string, error)) (id string, replayed, ok bool) {
	key := r.Header.Get(shared.IdempotencyHeader)
	if key == "" || h.idem == nil {
		id, err := create()
		if err != nil {
			h.respondError(w, r, err)
			return "", false, false
		}
		return id, false, true
	}
	id, replayed, err := h.idem.Do(r.Context(), module, key, create)
	switch {
	case errors.Is(err, shared.ErrIdempotencyKeyInvalid):
		tag := shared.MatchLanguage(r.Header.Get("Accept-Language"), h.locale)
		httpx.ValidationProblem(w, shared.Translate(tag, shared.MsgIdempotencyKey), map[string]string{shared.IdempotencyHeader: "max"})
		return "", false, false
	case err != nil && id != "":
		// Created, but the key could not be recorded.
		h.logger.Warn("idempotency key not recorded", slog.String("key", key), slog.Any("error", err))
		return id, false, true
	case err != nil:
		h.respondError(w, r, err)
		return "", false, false
	}
	return id, replayed, true
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.ledger.Customer(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	tag := shared.MatchLanguage(r.Header.Get("Accept-Language"), h.locale)
	if err := httpx.DecodeJSON(r, dest); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", shared.Translate(tag, shared.MsgInvalidRequest))
		return false
	}
	if err := h.validate.Struct(dest); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", shared.Translate(tag, shared.MsgInvalidRequest))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		httpx.ValidationProblem(w, shared.Translate(tag, shared.MsgInvalidRequest), fields)
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	tag := shared.MatchLanguage(r.Header.Get("Accept-Language"), h.locale)
	detail := shared.UserSafeMessage(tag, err)
	switch {
	case errors.Is(err, ErrDebtNotFound), errors.Is(err, ErrPaymentNotFound), errors.Is(err, ErrCustomerNotFound):
		httpx.RespondError(w, httpx.ErrNotFound, detail)
	case errors.Is(err, ErrPaymentExceedsBalance):
		httpx.RespondError(w, httpx.ErrConflict, detail)
	case IsValidation(err):
		httpx.RespondError(w, httpx.ErrValidation, detail)
	default:
		h.logger.Error("ledger request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err, detail)
	}
}
