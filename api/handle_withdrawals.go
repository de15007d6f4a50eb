package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lightlink-network/ll-withdrawer/database"
	"github.com/lightlink-network/ll-withdrawer/database/models"
	"github.com/lightlink-network/ll-withdrawer/types"
	"github.com/lightlink-network/ll-withdrawer/withdrawal"
)

// maxPageSize caps the pageSize query parameter.
const maxPageSize = 100

type PaginatedWithdrawals struct {
	Withdrawals []*models.Withdrawal `json:"withdrawals"`
	Total       int64                `json:"total"`
	Page        int64                `json:"page"`
	PageSize    int64                `json:"page_size"`
}

type WithdrawalSteps struct {
	WithdrawalHash string               `json:"withdrawal_hash"`
	Status         types.WithdrawStatus `json:"status"`
	Steps          []withdrawal.Step    `json:"steps"`
}

func (s *Server) handleWithdrawalsGet(w http.ResponseWriter, r *http.Request) {
	// Get query parameters
	page, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.ParseInt(r.URL.Query().Get("pageSize"), 10, 64)
	if err != nil || pageSize < 1 {
		pageSize = 10
	}
	pageSize = min(pageSize, maxPageSize)

	// Build filter from query parameters
	filter := models.Filter{
		Address: r.URL.Query().Get("address"),
		Status:  types.WithdrawStatus(r.URL.Query().Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		ERROR(w, http.StatusBadRequest, fmt.Errorf("unknown status %q", filter.Status))
		return
	}

	withdrawals, err := s.store.Query(r.Context(), filter)
	if err != nil {
		ERROR(w, http.StatusInternalServerError, err)
		return
	}

	total := int64(len(withdrawals))
	// page is clamped before multiplying so a huge page cannot overflow.
	start := min(min(page-1, total)*pageSize, total)
	end := min(start+pageSize, total)

	JSON(w, http.StatusOK, PaginatedWithdrawals{
		Withdrawals: withdrawals[start:end],
		Total:       total,
		Page:        page,
		PageSize:    pageSize,
	})
}

func (s *Server) handleWithdrawalGet(w http.ResponseWriter, r *http.Request) {
	record, ok := s.getWithdrawal(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, record)
}

func (s *Server) handleWithdrawalStepsGet(w http.ResponseWriter, r *http.Request) {
	record, ok := s.getWithdrawal(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, WithdrawalSteps{
		WithdrawalHash: record.WithdrawalHash,
		Status:         record.Status,
		Steps:          withdrawal.StepsOf(record, false, s.opts.Explorers),
	})
}

func (s *Server) getWithdrawal(w http.ResponseWriter, r *http.Request) (*models.Withdrawal, bool) {
	record, err := s.store.Get(r.Context(), chi.URLParam(r, "hash"))
	if errors.Is(err, database.ErrNotFound) {
		ERROR(w, http.StatusNotFound, err)
		return nil, false
	}
	if err != nil {
		ERROR(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return record, true
}
