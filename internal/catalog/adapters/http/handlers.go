package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dejobratic/storefront/internal/apperrors"
	"github.com/dejobratic/storefront/internal/catalog/app"
	"github.com/dejobratic/storefront/internal/catalog/domain"
	"github.com/dejobratic/storefront/internal/catalog/ports"
	"github.com/dejobratic/storefront/internal/httpserver"
	"github.com/dejobratic/storefront/internal/identity"
	"github.com/go-chi/chi/v5"
)

// Handler exposes HTTP endpoints for the product catalog.
type Handler struct {
	service *app.Service
	auth    func(http.Handler) http.Handler
	logger  *slog.Logger
}

// NewHandler constructs a Handler. auth authenticates the admin routes.
func NewHandler(service *app.Service, auth func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{service: service, auth: auth, logger: logger}
}

// Register mounts the catalog routes. Reads are public, writes require an administrator.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/{id}", h.getProduct)

		r.Group(func(r chi.Router) {
			r.Use(h.auth, identity.RequireAdmin)
			r.Post("/", h.createProduct)
			r.Put("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
			r.Post("/{id}/stock", h.adjustStock)
		})
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filter := ports.ListFilter{Category: r.URL.Query().Get("category")}

	var err error
	if filter.Page, err = intParam(r, "page"); err != nil {
		h.fail(w, r, err)
		return
	}
	if filter.PageSize, err = intParam(r, "page_size"); err != nil {
		h.fail(w, r, err)
		return
	}

	products, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	httpserver.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var payload app.CreateProductInput
	if err := httpserver.DecodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusCreated, map[string]any{"product": product})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProductPatch
	if err := httpserver.DecodeJSON(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type stockAdjustment struct {
	Delta int `json:"delta"`
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var payload stockAdjustment
	if err := httpserver.DecodeJSON(r, &payload); err != nil {
		h.fail(w, r, err)
		return
	}

	product, err := h.service.AdjustStock(r.Context(), chi.URLParam(r, "id"), payload.Delta)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpserver.WriteJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpserver.WriteError(w, r, h.logger, err)
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, apperrors.Validation(name + " must be a non-negative integer")
	}
	return value, nil
}
