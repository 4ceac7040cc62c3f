package server

import (
	"errors"
	"net/http"

	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/storage"
)

func (s *Server) handleListFees(w http.ResponseWriter, r *http.Request) {
	fees, err := s.store.ListFees(r.Context())
	if err != nil {
		s.internalError(w, "Failed to list fees", err)
		return
	}
	writeJSON(w, http.StatusOK, fees)
}

func (s *Server) handleCreateFee(w http.ResponseWriter, r *http.Request) {
	var req models.FeeCreate
	if !s.decode(w, r, &req, false) {
		return
	}

	fee := &models.AdminFee{
		Title:                  req.Title,
		Description:            req.Description,
		Type:                   req.Type,
		Amount:                 req.Amount,
		Deadline:               req.Deadline,
		Semester:               req.Semester,
		AcademicYear:           req.AcademicYear,
		IsInstallmentAvailable: req.IsInstallmentAvailable,
		InstallmentCount:       req.InstallmentCount,
		InstallmentAmount:      req.InstallmentAmount,
	}
	if !checkInstallments(w, fee) {
		return
	}

	if err := s.store.CreateFee(r.Context(), fee); err != nil {
		s.internalError(w, "Failed to create fee", err)
		return
	}
	s.logger.Info("Fee created", "fee_id", fee.ID, "type", fee.Type, "amount", fee.Amount)
	writeJSON(w, http.StatusCreated, fee)
}

func (s *Server) handleUpdateFee(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("fee_id")

	fee, err := s.store.GetFee(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Fee not found")
		return
	}
	if err != nil {
		s.internalError(w, "Failed to get fee", err, "fee_id", id)
		return
	}

	var req models.FeeUpdate
	if !s.decode(w, r, &req, false) {
		return
	}
	req.Apply(fee)
	if !checkInstallments(w, fee) {
		return
	}

	if err := s.store.UpdateFee(r.Context(), fee); err != nil {
		s.internalError(w, "Failed to update fee", err, "fee_id", id)
		return
	}
	s.logger.Info("Fee updated", "fee_id", id)
	writeJSON(w, http.StatusOK, fee)
}

func (s *Server) handleDeleteFee(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("fee_id")

	err := s.store.DeleteFee(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Fee not found")
		return
	}
	if err != nil {
		s.internalError(w, "Failed to delete fee", err, "fee_id", id)
		return
	}
	s.logger.Info("Fee deleted", "fee_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAssignFee(w http.ResponseWriter, r *http.Request) {
	feeID := r.PathValue("fee_id")
	studentID := r.PathValue("student_id")

	var req models.AssignFeeRequest
	if !s.decode(w, r, &req, true) {
		return
	}

	sf := &models.StudentFee{StudentID: studentID, FeeID: feeID}
	if req.AmountDue != nil {
		sf.AmountDue = *req.AmountDue
	}

	err := s.store.AssignFee(r.Context(), sf)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Fee or student not found")
		return
	case errors.Is(err, storage.ErrAlreadyAssigned):
		writeError(w, http.StatusBadRequest, "Fee already assigned to this student")
		return
	case err != nil:
		s.internalError(w, "Failed to assign fee", err, "fee_id", feeID, "student_id", studentID)
		return
	}

	s.logger.Info("Fee assigned",
		"student_fee_id", sf.ID,
		"fee_id", feeID,
		"student_id", studentID,
		"amount_due", sf.AmountDue,
	)
	writeJSON(w, http.StatusCreated, sf)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Statistics(r.Context(), s.today())
	if err != nil {
		s.internalError(w, "Failed to compute statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// checkInstallments requires a count whenever installments are offered.
func checkInstallments(w http.ResponseWriter, fee *models.AdminFee) bool {
	if fee.IsInstallmentAvailable && fee.InstallmentCount == nil {
		writeFieldErrors(w, []fieldError{{
			Loc:  []string{"body", "installment_count"},
			Msg:  "installment_count is required when installments are available",
			Type: "missing",
		}})
		return false
	}
	return true
}
