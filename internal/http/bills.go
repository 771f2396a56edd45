package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/middleware"
	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/service"
)

// BillHandler serves the bill endpoints.
type BillHandler struct {
	svc *service.BillService
}

// NewBillHandler creates a BillHandler.
func NewBillHandler(svc *service.BillService) *BillHandler {
	return &BillHandler{svc: svc}
}

// Routes mounts the bill endpoints on r.
func (h *BillHandler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/edits", h.edit)
	r.Post("/{id}/payments", h.recordPayment)
	r.Post("/{id}/finalize", h.finalize)
	r.Post("/{id}/cancel", h.cancel)
}

type moneyInput struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// toMoney fills in the bill currency when the client omits it.
func (m moneyInput) toMoney(currency string) money.Money {
	if m.Currency != "" {
		currency = m.Currency
	}
	return money.New(m.Amount, currency)
}

type itemInput struct {
	Name      string     `json:"name"`
	UnitPrice moneyInput `json:"unit_price"`
	Quantity  int64      `json:"quantity"`
	SharedBy  []string   `json:"shared_by"`
	TaxExempt bool       `json:"tax_exempt,omitempty"`
}

type participantInput struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	PercentBP int64       `json:"percent_bp,omitempty"`
	Share     *moneyInput `json:"share,omitempty"`
}

type createBillRequest struct {
	Title        string             `json:"title"`
	Category     string             `json:"category,omitempty"`
	GroupID      string             `json:"group_id,omitempty"`
	Currency     string             `json:"currency"`
	SplitMethod  models.SplitMethod `json:"split_method"`
	Subtotal     moneyInput         `json:"subtotal,omitempty"`
	Tax          moneyInput         `json:"tax,omitempty"`
	Tip          moneyInput         `json:"tip,omitempty"`
	Discount     moneyInput         `json:"discount,omitempty"`
	Items        []itemInput        `json:"items,omitempty"`
	Participants []participantInput `json:"participants"`
}

func (h *BillHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bill := &models.Bill{
		Title:       req.Title,
		Category:    req.Category,
		GroupID:     req.GroupID,
		Currency:    req.Currency,
		SplitMethod: req.SplitMethod,
		Subtotal:    req.Subtotal.toMoney(req.Currency),
		Tax:         req.Tax.toMoney(req.Currency),
		Tip:         req.Tip.toMoney(req.Currency),
		Discount:    req.Discount.toMoney(req.Currency),
		CreatedBy:   middleware.GetUserID(r.Context()),
	}
	for _, item := range req.Items {
		quantity := item.Quantity
		if quantity == 0 {
			quantity = 1
		}
		bill.Items = append(bill.Items, models.Item{
			Name:      item.Name,
			UnitPrice: item.UnitPrice.toMoney(req.Currency),
			Quantity:  quantity,
			SharedBy:  item.SharedBy,
			TaxExempt: item.TaxExempt,
		})
	}
	for _, p := range req.Participants {
		participant := models.Participant{
			ID:        p.ID,
			Name:      p.Name,
			PercentBP: p.PercentBP,
		}
		if p.Share != nil {
			participant.Share = p.Share.toMoney(req.Currency)
		}
		bill.Participants = append(bill.Participants, participant)
	}

	created, err := h.svc.CreateBill(r.Context(), bill)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *BillHandler) get(w http.ResponseWriter, r *http.Request) {
	bill, err := h.svc.GetBill(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bill)
}

type editBillRequest struct {
	ExpectedVersion int64       `json:"expected_version"`
	Edit            ledger.Edit `json:"edit"`
}

func (h *BillHandler) edit(w http.ResponseWriter, r *http.Request) {
	var req editBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bill, err := h.svc.EditBill(r.Context(), chi.URLParam(r, "id"), req.ExpectedVersion, req.Edit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bill)
}

type recordPaymentRequest struct {
	ExpectedVersion int64      `json:"expected_version"`
	EventID         string     `json:"event_id,omitempty"`
	ParticipantID   string     `json:"participant_id"`
	Amount          moneyInput `json:"amount"`
	Method          string     `json:"method,omitempty"`
	Reference       string     `json:"reference,omitempty"`
}

func (h *BillHandler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Clients may supply their own event ID to make retries idempotent.
	eventID := req.EventID
	if eventID == "" {
		eventID = uuid.New().String()
	}

	bill, err := h.svc.RecordPayment(r.Context(), chi.URLParam(r, "id"), req.ExpectedVersion, models.PaymentEvent{
		ID:            eventID,
		ParticipantID: req.ParticipantID,
		Amount:        req.Amount.toMoney(""),
		Method:        req.Method,
		Reference:     req.Reference,
		CreatedAt:     time.Now().Unix(),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bill)
}

type versionRequest struct {
	ExpectedVersion int64 `json:"expected_version"`
}

func (h *BillHandler) finalize(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bill, err := h.svc.FinalizeBill(r.Context(), chi.URLParam(r, "id"), req.ExpectedVersion)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bill)
}

func (h *BillHandler) cancel(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bill, err := h.svc.CancelBill(r.Context(), chi.URLParam(r, "id"), req.ExpectedVersion)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bill)
}
