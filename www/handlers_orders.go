package www

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"cremeria/pricing"
	"cremeria/store"
)

func (h *Handlers) apiListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.db.ListPurchaseOrders(r.URL.Query().Get("status"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, orders)
}

func (h *Handlers) apiCreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var o store.PurchaseOrder
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(o.Items) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "order needs at least one item")
		return
	}
	for _, item := range o.Items {
		if item.ProductCode == "" || item.Quantity <= 0 {
			writeError(w, http.StatusUnprocessableEntity, "order items need a product code and positive quantity")
			return
		}
	}
	if o.Reference == "" {
		o.Reference = uuid.NewString()
	}
	if o.Total == 0 {
		for _, item := range o.Items {
			o.Total += item.Quantity * item.UnitCost
		}
		o.Total = pricing.Round2(o.Total)
	}
	if err := h.db.CreatePurchaseOrder(&o); err != nil {
		writeDomainError(w, err)
		return
	}
	if h.sync != nil {
		h.sync.PushPurchaseOrder(o.ID)
	}
	writeJSON(w, o)
}

func (h *Handlers) apiGetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.db.GetPurchaseOrder(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, o)
}

func (h *Handlers) apiPayPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	paidAt := h.now().Format(store.TimeLayout)
	if err := h.db.MarkPurchaseOrderPaid(id, paidAt); err != nil {
		writeDomainError(w, err)
		return
	}
	if h.sync != nil {
		h.sync.PushPurchaseOrder(id)
	}
	writeJSON(w, map[string]string{"status": store.OrderPaid, "paid_at": paidAt})
}
