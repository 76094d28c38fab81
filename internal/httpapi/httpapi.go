package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"atlaspos/backend/internal/domain"
	"atlaspos/backend/internal/service"
	"atlaspos/backend/internal/store"
)

type Handler struct {
	svc           *service.Service
	auth          *AuthManager
	allowedOrigin string
	logger        zerolog.Logger
}

func NewHandler(svc *service.Service, auth *AuthManager, allowedOrigin string, logger zerolog.Logger) http.Handler {
	h := &Handler{
		svc:           svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		logger:        logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(h.corsMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", metricsHandler())
	r.Post("/api/v1/auth/login", h.handleLogin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.handleListCustomers)
			r.Post("/", h.handleCreateCustomer)
			r.Get("/{id}", h.handleGetCustomer)
			r.Patch("/{id}", h.handleUpdateCustomer)
			r.Delete("/{id}", h.handleDeleteCustomer)
			r.Get("/{id}/settlements", h.handleListEntitySettlements)
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", h.handleListSuppliers)
			r.Post("/", h.handleCreateSupplier)
			r.Get("/{id}", h.handleGetSupplier)
			r.Patch("/{id}", h.handleUpdateSupplier)
			r.Delete("/{id}", h.handleDeleteSupplier)
			r.Get("/{id}/settlements", h.handleListEntitySettlements)
		})

		r.Route("/settlements", func(r chi.Router) {
			r.Get("/", h.handleListSettlements)
			r.Post("/", h.handleRecordSettlement)
			r.Patch("/{id}", h.handleEditSettlement)
			r.Delete("/{id}", h.handleRemoveSettlement)
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.handleListSales)
			r.Post("/", h.handlePostSale)
			r.Get("/{id}", h.handleGetSale)
			r.Patch("/{id}", h.handleEditSale)
			r.Delete("/{id}", h.handleRemoveSale)
			r.Post("/{id}/settle", h.handleSettleSale)
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", h.handleListPurchases)
			r.Post("/", h.handlePostPurchase)
			r.Patch("/{id}", h.handleEditPurchase)
			r.Delete("/{id}", h.handleRemovePurchase)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.handleListProducts)
			r.Post("/", h.handleCreateProduct)
		})
		r.Get("/stock-movements", h.handleListStockMovements)

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.handleListExpenses)
			r.Post("/", h.handleAddExpense)
			r.Delete("/{id}", h.handleRemoveExpense)
		})

		r.Get("/ledger/summary", h.handleLedgerSummary)
		r.Get("/audit-logs", h.handleListAuditLogs)
	})

	return r
}

// --- Middleware ---

func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", h.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		actor, err := h.auth.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

func actorFrom(r *http.Request) domain.Actor {
	actor, _ := service.ActorFromContext(r.Context())
	return actor
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeServiceError translates the store's sentinel errors into HTTP status
// codes; anything unrecognized is logged and reported as a store failure.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid amount")
	case errors.Is(err, store.ErrInvalid):
		writeError(w, http.StatusBadRequest, "invalid request")
	case errors.Is(err, store.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, "sale already paid")
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, "duplicate settlement")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "store failure")
	}
}

// --- Health / auth ---

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	resp, err := h.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Settlements ---

func (h *Handler) handleRecordSettlement(w http.ResponseWriter, r *http.Request) {
	var req domain.SettlementCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	resp, err := h.svc.RecordSettlement(r.Context(), actorFrom(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if resp.Duplicate {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	settlementsRecorded.WithLabelValues(resp.Settlement.Type).Inc()
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleEditSettlement(w http.ResponseWriter, r *http.Request) {
	var req domain.SettlementUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	updated, err := h.svc.EditSettlement(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SettlementResponse{Settlement: *updated})
}

func (h *Handler) handleRemoveSettlement(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.svc.RemoveSettlement(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SettlementResponse{Settlement: *deleted})
}

func (h *Handler) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	settlements, err := h.svc.ListSettlements(r.Context(), actorFrom(r), r.URL.Query().Get("entity_id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SettlementListResponse{Settlements: settlements})
}

func (h *Handler) handleListEntitySettlements(w http.ResponseWriter, r *http.Request) {
	settlements, err := h.svc.ListSettlements(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SettlementListResponse{Settlements: settlements})
}

// --- Sales ---

func (h *Handler) handlePostSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	sale, err := h.svc.PostSale(r.Context(), actorFrom(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.SaleResponse{Sale: *sale})
}

func (h *Handler) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.svc.GetSale(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SaleResponse{Sale: *sale})
}

func (h *Handler) handleEditSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	sale, err := h.svc.EditSale(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SaleResponse{Sale: *sale})
}

func (h *Handler) handleRemoveSale(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveSale(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSettleSale(w http.ResponseWriter, r *http.Request) {
	settlement, err := h.svc.MarkSaleSettled(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	settlementsRecorded.WithLabelValues(settlement.Type).Inc()
	writeJSON(w, http.StatusCreated, domain.SettlementResponse{Settlement: *settlement})
}

func (h *Handler) handleListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.svc.ListSales(r.Context(), actorFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SaleListResponse{Sales: sales})
}

// --- Purchases ---

func (h *Handler) handlePostPurchase(w http.ResponseWriter, r *http.Request) {
	var req domain.PurchaseCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	purchase, err := h.svc.PostPurchase(r.Context(), actorFrom(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.PurchaseResponse{Purchase: *purchase})
}

func (h *Handler) handleEditPurchase(w http.ResponseWriter, r *http.Request) {
	var req domain.PurchaseUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	purchase, err := h.svc.EditPurchase(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.PurchaseResponse{Purchase: *purchase})
}

func (h *Handler) handleRemovePurchase(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemovePurchase(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListPurchases(w http.ResponseWriter, r *http.Request) {
	purchases, err := h.svc.ListPurchases(r.Context(), actorFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.PurchaseListResponse{Purchases: purchases})
}

// --- Customers ---

func (h *Handler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	customer, err := h.svc.CreateCustomer(r.Context(), actorFrom(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	customer, err := h.svc.GetCustomer(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	customer, err := h.svc.UpdateCustomer(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCustomer(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.svc.ListCustomers(r.Context(), actorFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Customer{"customers": customers})
}

// --- Suppliers ---

func (h *Handler) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req domain.SupplierCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	supplier, err := h.svc.CreateSupplier(r.Context(), actorFrom(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, supplier)
}

func (h *Handler) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, err := h.svc.GetSupplier(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, supplier)
}

func (h *Handler) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	var req domain.SupplierUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	supplier, err := h.svc.UpdateSupplier(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, supplier)
}

func (h *Handler) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSupplier(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.svc.ListSuppliers(r.Context(), actorFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Supplier{"suppliers": suppliers})
}

// --- Catalog ---

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p domain.Product
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	created, err := h.svc.CreateProduct(r.Context(), actorFrom(r), p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.ListProducts(r.Context(), actorFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Product{"products": products})
}

func (h *Handler) handleListStockMovements(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.svc.ListStockMovements(r.Context(), actorFrom(r), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.StockMovement{"movements": movements})
}

// --- Expenses ---

func (h *Handler) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req domain.ExpenseCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	expense, err := h.svc.AddExpense(r.Context(), actorFrom(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (h *Handler) handleRemoveExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveExpense(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.svc.ListExpenses(r.Context(), actorFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Expense{"expenses": expenses})
}

// --- Reporting ---

func (h *Handler) handleLedgerSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.LedgerSummary(r.Context(), actorFrom(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var from, to time.Time
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date")
			return
		}
		from = parsed
	}
	if raw := q.Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date")
			return
		}
		to = parsed.Add(24*time.Hour - time.Second)
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	logs, err := h.svc.ListAuditLogs(r.Context(), actorFrom(r), from, to, limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.AuditLog{"audit_logs": logs})
}
