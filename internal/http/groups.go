package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/service"
)

// GroupHandler serves the group endpoints.
type GroupHandler struct {
	svc *service.GroupService
}

// NewGroupHandler creates a GroupHandler.
func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

// Routes mounts the group endpoints on r.
func (h *GroupHandler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/members", h.addMembers)
	r.Get("/{id}/bills", h.listBills)
	r.Get("/{id}/balances", h.balances)
}

type createGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members,omitempty"`
}

func (h *GroupHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	grp, err := h.svc.CreateGroup(r.Context(), &models.Group{
		Name:    req.Name,
		Members: req.Members,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, grp)
}

func (h *GroupHandler) get(w http.ResponseWriter, r *http.Request) {
	grp, err := h.svc.GetGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, grp)
}

type addMembersRequest struct {
	Members []string `json:"members"`
}

func (h *GroupHandler) addMembers(w http.ResponseWriter, r *http.Request) {
	var req addMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	grp, err := h.svc.AddMembers(r.Context(), chi.URLParam(r, "id"), req.Members)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, grp)
}

func (h *GroupHandler) listBills(w http.ResponseWriter, r *http.Request) {
	bills, err := h.svc.ListBills(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	if bills == nil {
		bills = []*models.Bill{}
	}
	respondJSON(w, http.StatusOK, bills)
}

func (h *GroupHandler) balances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.svc.Balances(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, balances)
}
