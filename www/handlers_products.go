package www

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cremeria/store"
)

func (h *Handlers) apiListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.db.ListProducts()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, products)
}

func (h *Handlers) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.db.GetProduct(chi.URLParam(r, "code"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, p)
}

func (h *Handlers) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var p store.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.Code == "" || p.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "code and name are required")
		return
	}
	if err := h.db.CreateProduct(&p); err != nil {
		writeDomainError(w, err)
		return
	}
	if h.sync != nil {
		h.sync.PushProduct(p.Code)
	}
	writeJSON(w, p)
}

func (h *Handlers) apiUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var p store.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p.Code = chi.URLParam(r, "code")
	if err := h.db.UpdateProduct(&p); err != nil {
		writeDomainError(w, err)
		return
	}
	if h.sync != nil {
		h.sync.PushProduct(p.Code)
	}
	writeJSON(w, p)
}

func (h *Handlers) apiDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteProduct(chi.URLParam(r, "code")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (h *Handlers) apiListLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.db.ListLowStock()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, products)
}

func (h *Handlers) apiListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.db.ListBarcodeMappings()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, mappings)
}

func (h *Handlers) apiSetMapping(w http.ResponseWriter, r *http.Request) {
	var m store.BarcodeMapping
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if m.ScaleCode == "" || m.ProductCode == "" {
		writeError(w, http.StatusUnprocessableEntity, "scale_code and product_code are required")
		return
	}
	if err := h.db.SetBarcodeMapping(m.ScaleCode, m.ProductCode); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, m)
}

func (h *Handlers) apiDeleteMapping(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteBarcodeMapping(chi.URLParam(r, "code")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
