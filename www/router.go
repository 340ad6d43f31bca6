// Package www is the HTTP boundary of the terminal: a JSON API consumed by
// the operator UI. All domain logic stays in the service packages.
package www

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cremeria/auth"
	"cremeria/credit"
	"cremeria/sales"
	"cremeria/scale"
	"cremeria/store"
	"cremeria/syncer"
)

type ctxKey int

const userKey ctxKey = iota

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db       *store.DB
	auth     *auth.Manager
	sales    *sales.Processor
	credits  *credit.Engine
	sync     *syncer.Engine
	sessions *sessionStore
	now      func() time.Time

	// One scan buffer per session token, for chunked scanner input. Idle
	// entries are reaped on access so expired sessions do not accumulate.
	mu      sync.Mutex
	buffers map[string]*scanBuffer
}

// scanBuffer pairs a session's chunk buffer with its last use.
type scanBuffer struct {
	buf      *scale.Buffer
	lastUsed time.Time
}

// bufferTTL bounds how long an untouched scan buffer is kept. A held scale
// frame is only meaningful within one input cycle, so an hour is generous.
const bufferTTL = time.Hour

// Deps wires the router.
type Deps struct {
	DB            *store.DB
	Auth          *auth.Manager
	Sales         *sales.Processor
	Credits       *credit.Engine
	Sync          *syncer.Engine
	SessionSecret string
	Now           func() time.Time
}

// NewRouter creates the chi router.
func NewRouter(deps Deps) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	h := &Handlers{
		db:       deps.DB,
		auth:     deps.Auth,
		sales:    deps.Sales,
		credits:  deps.Credits,
		sync:     deps.Sync,
		sessions: newSessionStore(deps.SessionSecret),
		now:      deps.Now,
		buffers:  make(map[string]*scanBuffer),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authMiddleware)

		r.Get("/me", h.apiMe)

		// Catalog
		r.Get("/products", h.apiListProducts)
		r.Post("/products", h.apiCreateProduct)
		r.Get("/products/low-stock", h.apiListLowStock)
		r.Get("/products/{code}", h.apiGetProduct)
		r.Put("/products/{code}", h.apiUpdateProduct)
		r.Delete("/products/{code}", h.apiDeleteProduct)
		r.Get("/barcode-mappings", h.apiListMappings)
		r.Post("/barcode-mappings", h.apiSetMapping)
		r.Delete("/barcode-mappings/{code}", h.apiDeleteMapping)

		// Scanning and sales
		r.Post("/scan", h.apiScan)
		r.Post("/scan/chunk", h.apiScanChunk)
		r.Post("/sales", h.apiFinalizeSale)
		r.Get("/sales/ticket/{timestamp}", h.apiGetTicket)
		r.Get("/sales/day/{date}", h.apiListDaySales)
		r.Get("/sales/day/{date}/totals", h.apiDayTotals)

		// Credits and alerts
		r.Get("/credits", h.apiListCredits)
		r.Get("/credits/overdue", h.apiOverdueCredits)
		r.Get("/credits/due-soon", h.apiDueSoonCredits)
		r.Get("/credits/alerts", h.apiUnseenAlerts)
		r.Post("/credits/{id}/pay", h.apiMarkCreditPaid)
		r.Post("/credits/{id}/snooze", h.apiMarkCreditAlerted)

		// Finance
		r.Get("/expenses", h.apiListExpenses)
		r.Post("/expenses", h.apiCreateExpense)
		r.Delete("/expenses/{id}", h.apiDeleteExpense)
		r.Get("/passive-income", h.apiListPassiveIncome)
		r.Post("/passive-income", h.apiCreatePassiveIncome)
		r.Delete("/passive-income/{id}", h.apiDeletePassiveIncome)

		// Replenishment
		r.Get("/purchase-orders", h.apiListPurchaseOrders)
		r.Post("/purchase-orders", h.apiCreatePurchaseOrder)
		r.Get("/purchase-orders/{id}", h.apiGetPurchaseOrder)
		r.Post("/purchase-orders/{id}/pay", h.apiPayPurchaseOrder)

		// Sync
		r.Get("/sync/status", h.apiSyncStatus)
		r.Post("/sync/push", h.apiSyncPush)
		r.Post("/sync/pull", h.apiSyncPull)

		// Admin-only
		r.Group(func(r chi.Router) {
			r.Use(h.adminMiddleware)
			r.Get("/users", h.apiListUsers)
			r.Post("/users", h.apiCreateUser)
			r.Post("/users/{username}/active", h.apiSetUserActive)
			r.Post("/users/{username}/password", h.apiSetUserPassword)
		})
	})

	return r
}

func (h *Handlers) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.auth.Validate(h.sessions.token(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func (h *Handlers) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		if user == nil || user.Role != store.RoleAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) *store.User {
	user, _ := r.Context().Value(userKey).(*store.User)
	return user
}

func (h *Handlers) buffer(token string) *scale.Buffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	for tok, b := range h.buffers {
		if now.Sub(b.lastUsed) > bufferTTL {
			delete(h.buffers, tok)
		}
	}
	b, ok := h.buffers[token]
	if !ok {
		b = &scanBuffer{buf: &scale.Buffer{}}
		h.buffers[token] = b
	}
	b.lastUsed = now
	return b.buf
}
