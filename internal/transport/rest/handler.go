// Package rest provides HTTP handlers for store ledger operations.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/storeledger/storeledger/internal/ledger"
	"github.com/storeledger/storeledger/internal/service"
	"github.com/storeledger/storeledger/pkg/web"
)

type Handler struct {
	service  service.StoreLedgerService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of the store ledger API with the provided service.
func NewHandler(service service.StoreLedgerService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),

		logger: logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the store ledger service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(web.AuthMiddleware)
		r.Route("/api/v1/stores", func(r chi.Router) {
			r.Post("/", h.Initialize)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", h.GetStore)
				r.Put("/", h.UpdateMetadata)
				r.Delete("/", h.Teardown)
				r.Post("/grow", h.Grow)
				r.Post("/products", h.AddProduct)
				r.Delete("/products/{product}", h.DeleteProduct)
				r.Post("/purchases", h.Purchase)
				r.Post("/receipts/{id}/delivered", h.MarkDelivered)
			})
		})
	})
	r.Get("/healthz", h.HealthCheck)
}

// Initialize creates a new store owned by the caller.
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	caller, ok := web.GetCallerID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.StoreCreateDto
	if !h.decodeAndValidate(w, r, mLogger, &dto) {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to initialize store", "name", dto.Name)
	created, err := h.service.Initialize(r.Context(), caller, dto.Name)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, dto.Name)
		return
	}
	mLogger.InfoContext(r.Context(), "Store initialized successfully", slog.String("name", created.Name))
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

// GetStore retrieves the full store record by name. Public, no caller gate.
func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := chi.URLParam(r, "name")

	mLogger.DebugContext(r.Context(), "Received request to get store", "name", name)
	found, err := h.service.GetStore(r.Context(), name)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, name)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// UpdateMetadata updates the owner-mutable metadata fields.
func (h *Handler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := chi.URLParam(r, "name")
	caller, ok := web.GetCallerID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.MetadataUpdateDto
	if !h.decodeAndValidate(w, r, mLogger, &dto) {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to update store metadata", "name", name)
	updated, err := h.service.UpdateMetadata(r.Context(), caller, name, dto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, name)
		return
	}
	mLogger.InfoContext(r.Context(), "Store metadata updated successfully", slog.String("name", name))
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// AddProduct appends a product to the store catalog.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := chi.URLParam(r, "name")
	caller, ok := web.GetCallerID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.ProductCreateDto
	if !h.decodeAndValidate(w, r, mLogger, &dto) {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to add product", "name", name, "product", dto.Name)
	updated, err := h.service.AddProduct(r.Context(), caller, name, dto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, name)
		return
	}
	mLogger.InfoContext(r.Context(), "Product added successfully", slog.String("name", name), slog.String("product", dto.Name))
	web.RespondJSON(w, mLogger, http.StatusCreated, updated)
}

// DeleteProduct removes a product from the store catalog.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := chi.URLParam(r, "name")
	product := chi.URLParam(r, "product")
	caller, ok := web.GetCallerID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to delete product", "name", name, "product", product)
	if err := h.service.DeleteProduct(r.Context(), caller, name, product); err != nil {
		h.respondServiceError(w, r, mLogger, err, name)
		return
	}
	mLogger.InfoContext(r.Context(), "Product deleted successfully", slog.String("name", name), slog.String("product", product))
	w.WriteHeader(http.StatusNoContent)
}

// Purchase runs the purchase transaction and returns the assigned receipt id.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := chi.URLParam(r, "name")
	buyer, ok := web.GetCallerID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.PurchaseDto
	if !h.decodeAndValidate(w, r, mLogger, &dto) {
		return
	}

	mLogger.DebugContext(r.Context(), "Received purchase request", "name", name, "product", dto.ProductName)
	receiptID, err := h.service.Purchase(r.Context(), buyer, name, dto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, name)
		return
	}
	mLogger.InfoContext(r.Context(), "Purchase completed successfully", slog.String("name", name), slog.Uint64("receipt_id", receiptID))
	web.RespondJSON(w, mLogger, http.StatusCreated, map[string]uint64{"receipt_id": receiptID})
}

// MarkDelivered flags a receipt as delivered. A receipt id that already aged
// out of the journal still yields 204.
func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := chi.URLParam(r, "name")
	receiptID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		mLogger.WarnContext(r.Context(), "Invalid receipt id", "id", chi.URLParam(r, "id"))
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid receipt id")
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to mark receipt delivered", "name", name, "receipt_id", receiptID)
	if err := h.service.MarkDelivered(r.Context(), name, receiptID); err != nil {
		h.respondServiceError(w, r, mLogger, err, name)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Grow tops up the storage deposit to the full schema size.
func (h *Handler) Grow(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := chi.URLParam(r, "name")
	caller, ok := web.GetCallerID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to grow store", "name", name)
	if err := h.service.Grow(r.Context(), caller, name); err != nil {
		h.respondServiceError(w, r, mLogger, err, name)
		return
	}
	mLogger.InfoContext(r.Context(), "Store grown successfully", slog.String("name", name))
	w.WriteHeader(http.StatusNoContent)
}

// Teardown refunds the deposit and removes the store permanently.
func (h *Handler) Teardown(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	name := chi.URLParam(r, "name")
	caller, ok := web.GetCallerID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to tear down store", "name", name)
	if err := h.service.Teardown(r.Context(), caller, name); err != nil {
		h.respondServiceError(w, r, mLogger, err, name)
		return
	}
	mLogger.InfoContext(r.Context(), "Store torn down successfully", slog.String("name", name))
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decodeAndValidate decodes the request body into dto and runs struct
// validation, responding with 400 on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, dto any) bool {
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(dto); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondServiceError maps service errors to HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error, name string) {
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		mLogger.WarnContext(r.Context(), "Caller is not the store owner", "name", name)
		web.RespondError(w, mLogger, http.StatusForbidden, "Caller is not the store owner")
	case errors.Is(err, ledger.ErrStoreNotFound):
		mLogger.WarnContext(r.Context(), "Store not found", "name", name)
		web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Store %q not found", name))
	case errors.Is(err, ledger.ErrProductNotFound):
		mLogger.WarnContext(r.Context(), "Product not found", "name", name)
		web.RespondError(w, mLogger, http.StatusNotFound, "Product not found")
	case errors.Is(err, ledger.ErrStoreExists):
		web.RespondError(w, mLogger, http.StatusConflict, fmt.Sprintf("Store %q already exists", name))
	case errors.Is(err, ledger.ErrDuplicateName):
		web.RespondError(w, mLogger, http.StatusConflict, "Product name already taken")
	case errors.Is(err, ledger.ErrCapacityExceeded):
		web.RespondError(w, mLogger, http.StatusConflict, "Catalog capacity exceeded")
	case errors.Is(err, ledger.ErrNameEmpty),
		errors.Is(err, ledger.ErrNameTooLong),
		errors.Is(err, ledger.ErrStringTooLong),
		errors.Is(err, ledger.ErrInvalidName),
		errors.Is(err, ledger.ErrAssetMismatch):
		web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunding),
		errors.Is(err, ledger.ErrPaymentFailed):
		mLogger.WarnContext(r.Context(), "Payment failed", "name", name, "error", err)
		web.RespondError(w, mLogger, http.StatusPaymentRequired, "Payment failed")
	default:
		mLogger.ErrorContext(r.Context(), "Unexpected service error", "name", name, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Internal server error")
	}
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
