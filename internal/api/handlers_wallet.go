/**
 * @description
 * This file contains the HTTP handlers for the wallet, ledger and escrow
 * endpoints, including the complaint flow and the admin settlement endpoints.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: For URL parameter extraction.
 * - internal/app, internal/domain: For service logic and models.
 */

package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/workhive/booking-service/internal/app"
	"github.com/workhive/booking-service/internal/domain"
)

// WalletHandlers holds the application service that wallet handlers use.
type WalletHandlers struct {
	service *app.WalletService
}

// NewWalletHandlers creates a new instance of WalletHandlers.
func NewWalletHandlers(service *app.WalletService) *WalletHandlers {
	return &WalletHandlers{service: service}
}

// GetWalletHandler returns the requester's wallet summary, creating the wallet
// on first touch.
func (h *WalletHandlers) GetWalletHandler(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	summary, err := h.service.GetWalletSummary(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetTransactionsHandler lists the requester's ledger entries.
func (h *WalletHandlers) GetTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	q := r.URL.Query()
	filters := domain.TransactionFilters{
		Page:  parseIntParam(q.Get("page"), 1),
		Limit: parseIntParam(q.Get("limit"), 20),
	}
	for _, t := range splitParam(q.Get("type")) {
		filters.Type = append(filters.Type, domain.TransactionType(t))
	}
	for _, s := range splitParam(q.Get("status")) {
		filters.Status = append(filters.Status, domain.TransactionStatus(s))
	}
	if from := q.Get("date_from"); from != "" {
		if parsed, err := time.Parse(time.RFC3339, from); err == nil {
			filters.DateFrom = &parsed
		}
	}
	if to := q.Get("date_to"); to != "" {
		if parsed, err := time.Parse(time.RFC3339, to); err == nil {
			filters.DateTo = &parsed
		}
	}

	transactions, total, err := h.service.GetTransactions(r.Context(), userID, role, filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, listResponse{Data: transactions, Total: total, Page: filters.Page, Limit: filters.Limit})
}

// GetEscrowsHandler lists escrow holds visible to the requester.
func (h *WalletHandlers) GetEscrowsHandler(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	q := r.URL.Query()
	filters := domain.EscrowFilters{
		Page:  parseIntParam(q.Get("page"), 1),
		Limit: parseIntParam(q.Get("limit"), 20),
	}
	for _, s := range splitParam(q.Get("status")) {
		filters.Status = append(filters.Status, domain.EscrowStatus(s))
	}
	if raw := strings.TrimSpace(q.Get("has_complaint")); raw != "" {
		hasComplaint := raw == "true" || raw == "1"
		filters.HasComplaint = &hasComplaint
	}

	escrows, total, err := h.service.GetEscrows(r.Context(), userID, role, filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if escrows == nil {
		escrows = []domain.EscrowHold{}
	}
	writeJSON(w, http.StatusOK, listResponse{Data: escrows, Total: total, Page: filters.Page, Limit: filters.Limit})
}

// GetEscrowHandler returns a single escrow hold.
func (h *WalletHandlers) GetEscrowHandler(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	escrowID, err := uuid.Parse(chi.URLParam(r, "escrowID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid escrow ID")
		return
	}

	escrow, err := h.service.GetEscrow(r.Context(), userID, role, escrowID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, escrow)
}

type fileComplaintRequest struct {
	Description string `json:"description"`
}

// FileComplaintHandler files a dispute against a held escrow.
func (h *WalletHandlers) FileComplaintHandler(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	escrowID, err := uuid.Parse(chi.URLParam(r, "escrowID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid escrow ID")
		return
	}

	var req fileComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		writeError(w, http.StatusBadRequest, "Complaint description is required")
		return
	}

	escrow, err := h.service.FileComplaint(r.Context(), userID, domain.ComplaintRequest{
		EscrowID:    escrowID,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, escrow)
}

type resolveComplaintRequest struct {
	Action          domain.ResolutionAction `json:"action"`
	WorkerAmount    *domain.Cents           `json:"worker_amount,omitempty"`
	ClientRefund    *domain.Cents           `json:"client_refund,omitempty"`
	ResolutionNotes *string                 `json:"resolution_notes,omitempty"`
}

// ResolveComplaintHandler is the admin settling a disputed escrow.
func (h *WalletHandlers) ResolveComplaintHandler(w http.ResponseWriter, r *http.Request) {
	adminID, _, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	escrowID, err := uuid.Parse(chi.URLParam(r, "escrowID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid escrow ID")
		return
	}

	var req resolveComplaintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	escrow, err := h.service.ResolveComplaint(r.Context(), adminID, domain.ComplaintResolution{
		EscrowID:        escrowID,
		Action:          req.Action,
		WorkerAmount:    req.WorkerAmount,
		ClientRefund:    req.ClientRefund,
		ResolutionNotes: req.ResolutionNotes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, escrow)
}

type adminSettlementRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// AdminReleaseEscrowHandler force-releases a held escrow to the worker before
// its cooling period elapses.
func (h *WalletHandlers) AdminReleaseEscrowHandler(w http.ResponseWriter, r *http.Request) {
	h.adminSettle(w, r, domain.EscrowReleased)
}

// AdminRefundEscrowHandler force-refunds a held escrow back to the client.
func (h *WalletHandlers) AdminRefundEscrowHandler(w http.ResponseWriter, r *http.Request) {
	h.adminSettle(w, r, domain.EscrowRefunded)
}

func (h *WalletHandlers) adminSettle(w http.ResponseWriter, r *http.Request, direction domain.EscrowStatus) {
	adminID, _, ok := GetAuthUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	escrowID, err := uuid.Parse(chi.URLParam(r, "escrowID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid escrow ID")
		return
	}

	var req adminSettlementRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	held := []domain.EscrowStatus{domain.EscrowHeld}
	var tx *domain.Transaction
	if direction == domain.EscrowReleased {
		tx, err = h.service.ReleaseEscrow(r.Context(), escrowID, held, &adminID, req.Notes)
	} else {
		tx, err = h.service.RefundEscrow(r.Context(), escrowID, held, &adminID, req.Notes)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
