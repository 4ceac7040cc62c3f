package server

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mmynk/deptportal/internal/gateway"
	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/storage"
)

// handleMyFees lists the caller's fees. Administrators have no assignments of
// their own and get every definition, each reported as pending.
func (s *Server) handleMyFees(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())

	if claims.Role == models.RoleAdmin {
		defs, err := s.store.ListFees(r.Context())
		if err != nil {
			s.internalError(w, "Failed to list fees", err)
			return
		}
		fees := make([]models.Fee, 0, len(defs))
		for _, def := range defs {
			fees = append(fees, def.ToFee())
		}
		writeJSON(w, http.StatusOK, fees)
		return
	}

	fees, err := s.store.ListStudentFees(r.Context(), claims.UserID, s.today())
	if err != nil {
		s.internalError(w, "Failed to list student fees", err, "user_id", claims.UserID)
		return
	}
	writeJSON(w, http.StatusOK, fees)
}

// handleHistory lists the caller's payments; administrators see everyone's.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())

	userID := claims.UserID
	if claims.Role == models.RoleAdmin {
		userID = ""
	}
	history, err := s.store.ListPayments(r.Context(), userID)
	if err != nil {
		s.internalError(w, "Failed to list payments", err, "user_id", claims.UserID)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())

	var req models.CreateIntentRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	sf, err := s.store.GetStudentFee(r.Context(), req.StudentFeeID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Fee not found")
		return
	}
	if err != nil {
		s.internalError(w, "Failed to get student fee", err, "student_fee_id", req.StudentFeeID)
		return
	}
	if sf.StudentID != claims.UserID {
		s.logger.Warn("Intent for another student's fee",
			"user_id", claims.UserID,
			"student_fee_id", sf.ID,
		)
		writeError(w, http.StatusForbidden, "Not authorized to pay this fee")
		return
	}
	if sf.Status == models.StatusPaid {
		writeError(w, http.StatusBadRequest, "Fee already paid")
		return
	}
	if !decimal.NewFromFloat(req.Amount).Round(2).Equal(decimal.NewFromFloat(sf.AmountDue).Round(2)) {
		writeError(w, http.StatusBadRequest, "Amount does not match the amount due")
		return
	}

	intent, err := s.gateway.CreateIntent(r.Context(), req.Amount, req.Currency)
	if errors.Is(err, gateway.ErrUnsupportedCurrency) || errors.Is(err, gateway.ErrInvalidAmount) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, "Failed to create payment intent", err, "student_fee_id", sf.ID)
		return
	}

	stored := &storage.Intent{
		ID:           intent.ID,
		StudentFeeID: sf.ID,
		UserID:       claims.UserID,
		Amount:       intent.Amount,
		Currency:     intent.Currency,
		Status:       intent.Status,
		ClientSecret: intent.ClientSecret,
	}
	if err := s.store.CreateIntent(r.Context(), stored); err != nil {
		s.internalError(w, "Failed to store payment intent", err, "intent_id", intent.ID)
		return
	}

	s.logger.Info("Payment intent created",
		"intent_id", intent.ID,
		"student_fee_id", sf.ID,
		"amount", intent.Amount,
	)
	writeJSON(w, http.StatusOK, models.PaymentIntent{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())

	var req models.ConfirmRequest
	if !s.decode(w, r, &req, false) {
		return
	}

	intent, err := s.store.GetIntent(r.Context(), req.PaymentIntentID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Payment intent not found")
		return
	}
	if err != nil {
		s.internalError(w, "Failed to get payment intent", err, "intent_id", req.PaymentIntentID)
		return
	}
	if intent.UserID != claims.UserID {
		writeError(w, http.StatusForbidden, "Not authorized to confirm this payment")
		return
	}
	if intent.Status == gateway.StatusSucceeded {
		writeError(w, http.StatusBadRequest, "Payment already confirmed")
		return
	}

	charge, err := s.gateway.Confirm(r.Context(), intent.ID, req.PaymentMethodID)
	if errors.Is(err, gateway.ErrInvalidPaymentMethod) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.internalError(w, "Failed to confirm payment", err, "intent_id", intent.ID)
		return
	}

	if !charge.Succeeded() {
		if err := s.store.MarkIntent(r.Context(), intent.ID, charge.Status); err != nil {
			s.internalError(w, "Failed to update payment intent", err, "intent_id", intent.ID)
			return
		}
		writeJSON(w, http.StatusOK, models.ConfirmResult{
			Success: false,
			Message: "Payment not successful",
			Status:  charge.Status,
		})
		return
	}

	payment := &storage.Payment{
		StudentFeeID:    intent.StudentFeeID,
		UserID:          claims.UserID,
		IntentID:        intent.ID,
		PaymentMethodID: req.PaymentMethodID,
		Method:          models.MethodStripe,
		AmountPaid:      intent.Amount,
		TransactionID:   charge.TransactionID,
		PaidAt:          s.now(),
	}
	err = s.store.RecordPayment(r.Context(), payment)
	if errors.Is(err, storage.ErrAlreadyPaid) {
		writeError(w, http.StatusBadRequest, "Fee already paid")
		return
	}
	if err != nil {
		s.internalError(w, "Failed to record payment", err, "intent_id", intent.ID)
		return
	}
	s.metrics.ObservePaymentRecorded()

	s.logger.Info("Payment recorded",
		"payment_id", payment.ID,
		"student_fee_id", payment.StudentFeeID,
		"transaction_id", payment.TransactionID,
	)
	writeJSON(w, http.StatusOK, models.ConfirmResult{
		Success:       true,
		PaymentID:     payment.ID,
		TransactionID: payment.TransactionID,
		Message:       "Payment successful",
		Status:        charge.Status,
	})
}
