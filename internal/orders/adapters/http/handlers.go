package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/dejobratic/storefront/internal/httpserver"
	"github.com/dejobratic/storefront/internal/identity"
	"github.com/dejobratic/storefront/internal/orders/app"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	"github.com/go-chi/chi/v5"
)

const idempotencyHeader = "Idempotency-Key"

// Handler exposes HTTP endpoints for order operations.
type Handler struct {
	service *app.Service
	auth    func(http.Handler) http.Handler
	logger  *slog.Logger
}

// NewHandler constructs a Handler. auth must put the caller on the request context.
func NewHandler(service *app.Service, auth func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{service: service, auth: auth, logger: logger}
}

// Register mounts the order routes. Every route requires authentication.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/orders", func(r chi.Router) {
		r.Use(h.auth)

		r.Post("/", h.placeOrder)
		r.Get("/mine", h.listMine)
		r.Post("/payment", h.completePayment)
		r.Get("/{id}", h.getOrder)

		r.Group(func(r chi.Router) {
			r.Use(identity.RequireAdmin)
			r.Get("/", h.listAll)
			r.Put("/{id}/status", h.updateStatus)
		})
	})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, _ := identity.FromContext(ctx)

	// Keys are scoped per caller so one user can never replay another's response.
	var idemKey string
	if raw := strings.TrimSpace(r.Header.Get(idempotencyHeader)); raw != "" {
		idemKey = "order:" + caller.UserID + ":" + raw

		stored, err := h.service.GetIdempotentResponse(ctx, idemKey)
		if err != nil {
			h.fail(w, r, apperrors.Classify(err))
			return
		}
		if stored != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(stored.StatusCode)
			_, _ = w.Write(stored.Body)
			return
		}
	}

	var payload app.PlaceOrderInput
	if err := httpserver.DecodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}

	order, err := h.service.PlaceOrder(ctx, caller, payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	body, err := json.Marshal(map[string]any{"order": order})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if idemKey != "" {
		stored := ports.StoredResponse{
			StatusCode: http.StatusCreated,
			Body:       body,
			OrderID:    order.ID,
		}
		if err := h.service.SaveIdempotentResponse(ctx, idemKey, stored); err != nil {
			// The order exists; failing the request now would invite a duplicate retry.
			h.logger.WarnContext(ctx, "failed to store idempotent response", "error", err, "order_id", order.ID)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/v1/orders/"+order.ID)
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	caller, _ := identity.FromContext(r.Context())

	order, err := h.service.GetOrder(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	caller, _ := identity.FromContext(r.Context())

	filter, err := parseListFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	orders, err := h.service.ListOrdersForUser(r.Context(), caller, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	caller, _ := identity.FromContext(r.Context())

	filter, err := parseListFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	orders, err := h.service.ListAllOrders(r.Context(), caller, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

type statusUpdate struct {
	Status string `json:"status"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := identity.FromContext(r.Context())

	var payload statusUpdate
	if err := httpserver.DecodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), caller, chi.URLParam(r, "id"), payload.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{"order": order})
}

type paymentConfirmation struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
}

func (h *Handler) completePayment(w http.ResponseWriter, r *http.Request) {
	caller, _ := identity.FromContext(r.Context())

	var payload paymentConfirmation
	if err := httpserver.DecodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}

	order, err := h.service.CompletePayment(r.Context(), caller, payload.OrderID, payload.TransactionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"order":   order,
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpserver.WriteError(w, r, h.logger, err)
}

func parseListFilter(r *http.Request) (ports.ListFilter, error) {
	filter := ports.ListFilter{}
	query := r.URL.Query()

	if statusParam := query.Get("status"); statusParam != "" {
		status, err := domain.ParseOrderStatus(statusParam)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}

	for name, dst := range map[string]*int{"page": &filter.Page, "page_size": &filter.PageSize} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return filter, apperrors.Validation(name + " must be an integer")
		}
		*dst = value
	}

	return filter, nil
}
