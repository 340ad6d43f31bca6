package www

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"cremeria/pricing"
	"cremeria/sales"
	"cremeria/scale"
	"cremeria/store"
)

type scanRequest struct {
	Scan string `json:"scan"`
	Tier string `json:"tier"`
}

type scanResponse struct {
	Lines      []sales.CartLine `json:"lines"`
	Unresolved []string         `json:"unresolved,omitempty"`
}

// apiScan resolves a complete scan into cart lines. Multi-frame tickets are
// split and each frame looked up; duplicate frames for the same product keep
// the first occurrence only, since the scale repeats frames on reprints.
func (h *Handlers) apiScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := h.resolveScan(strings.TrimSpace(req.Scan), req.Tier)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, resp)
}

// apiScanChunk feeds one scanner input cycle through the per-session buffer.
// Responds with ready=false while the buffer is still accumulating.
func (h *Handlers) apiScanChunk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Chunk string `json:"chunk"`
		Tier  string `json:"tier"`
		Flush bool   `json:"flush"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	buf := h.buffer(h.sessions.token(r))
	var scan string
	var ready bool
	if req.Flush {
		scan, ready = buf.Flush()
	} else {
		scan, ready = buf.Offer(strings.TrimSpace(req.Chunk))
	}
	if !ready {
		writeJSON(w, map[string]any{"ready": false})
		return
	}
	resp, err := h.resolveScan(scan, req.Tier)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ready": true, "scan": scan, "result": resp})
}

func (h *Handlers) resolveScan(scan, tier string) (*scanResponse, error) {
	if scale.IsTicket(scan) {
		return h.resolveTicket(scan, tier)
	}

	prod, err := h.db.FindByScanCode(scan)
	if err != nil {
		return nil, err
	}
	line := sales.CartLine{
		Code:      prod.Code,
		Name:      prod.Name,
		SaleMode:  prod.SaleMode,
		UnitPrice: pricing.Resolve(prod, tier),
	}
	if prod.SaleMode == store.SaleModeUnit {
		// A bare code carries no quantity; default to one.
		line.Quantity = 1
		line.Total = line.UnitPrice
	}
	// By-weight products need the weight typed in; total stays zero.
	return &scanResponse{Lines: []sales.CartLine{line}}, nil
}

func (h *Handlers) resolveTicket(scan, tier string) (*scanResponse, error) {
	frames, err := scale.SplitTicket(scan)
	if err != nil {
		return nil, err
	}

	resp := &scanResponse{}
	seen := make(map[string]bool, len(frames))
	for _, f := range frames {
		prod, err := h.db.FindByScanCode(f.Code)
		if err != nil {
			resp.Unresolved = append(resp.Unresolved, f.Code)
			continue
		}
		if seen[prod.Code] {
			continue
		}
		seen[prod.Code] = true

		line := sales.CartLine{
			Code:      prod.Code,
			Name:      prod.Name,
			SaleMode:  prod.SaleMode,
			UnitPrice: pricing.Resolve(prod, tier),
		}
		if prod.SaleMode == store.SaleModeKg {
			line.WeightKg = scale.WeightKg(f.Magnitude)
			line.Total = pricing.Round2(line.UnitPrice * line.WeightKg)
		} else {
			line.Quantity = scale.UnitCount(f.Magnitude, prod.StockUnits)
			line.Total = pricing.Round2(line.UnitPrice * float64(line.Quantity))
		}
		resp.Lines = append(resp.Lines, line)
	}
	return resp, nil
}

func (h *Handlers) apiFinalizeSale(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cart    []sales.CartLine  `json:"cart"`
		Tier    string            `json:"tier"`
		Tenders sales.Tenders     `json:"tenders"`
		Credit  *sales.CreditInfo `json:"credit,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	timestamp, err := h.sales.Finalize(req.Cart, req.Tier, req.Tenders, req.Credit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]string{"ticket": timestamp})
}

func (h *Handlers) apiGetTicket(w http.ResponseWriter, r *http.Request) {
	lines, err := h.db.ListTicket(chi.URLParam(r, "timestamp"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if len(lines) == 0 {
		writeError(w, http.StatusNotFound, "ticket not found")
		return
	}
	writeJSON(w, lines)
}

func (h *Handlers) apiListDaySales(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.ListSalesByDate(chi.URLParam(r, "date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, rows)
}

func (h *Handlers) apiDayTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.db.DailyTenderTotals(chi.URLParam(r, "date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, totals)
}
