package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/model"
	"ecommerce-loyalty-platform/internal/usecase"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInvalidStateTransition),
		errors.Is(err, domain.ErrInvalidSubscriptionState),
		errors.Is(err, domain.ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrGatewayUnavailable),
		errors.Is(err, domain.ErrGatewayRejected):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// ===== Orders =====

type orderCreateRequest struct {
	UserID      string `json:"user_id"`
	PointsToUse int    `json:"points_to_use"`
	Items       []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

func orderCreateHandler(orderUC usecase.OrderUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req orderCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		lines := make([]usecase.OrderLine, 0, len(req.Items))
		for _, it := range req.Items {
			lines = append(lines, usecase.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		o, err := orderUC.Create(r.Context(), req.UserID, lines, req.PointsToUse)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, o)
	}
}

func orderGetHandler(orderUC usecase.OrderUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := orderUC.Get(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

func userOrdersHandler(orderUC usecase.OrderUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := orderUC.ListByUser(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

func orderSettlePointsHandler(orderUC usecase.OrderUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		o, err := orderUC.SettlePointOnly(r.Context(), chi.URLParam(r, "orderID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}

type reconcileRequest struct {
	TransactionID string `json:"transaction_id"`
}

func paymentReconcileHandler(orderUC usecase.OrderUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reconcileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionID == "" {
			http.Error(w, "transaction_id is required", http.StatusBadRequest)
			return
		}
		p, err := orderUC.Reconcile(r.Context(), req.TransactionID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// ===== Refunds =====

type refundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func orderCancelHandler(refundUC usecase.RefundUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refundRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		rf, err := refundUC.CancelOrder(r.Context(), chi.URLParam(r, "orderID"), req.Reason)
		if err != nil {
			if pe, ok := domain.AsPartialReconciliation(err); ok {
				// Money moved; local reversal needs operator attention.
				writeJSON(w, http.StatusAccepted, map[string]interface{}{
					"refund":       rf,
					"failed_steps": pe.FailedSteps,
				})
				return
			}
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rf)
	}
}

func orderRefundHandler(refundUC usecase.RefundUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		rf, err := refundUC.RefundPartial(r.Context(), chi.URLParam(r, "orderID"), req.Amount, req.Reason)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rf)
	}
}

func refundPartialListHandler(refundUC usecase.RefundUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs, err := refundUC.ListAwaitingReconciliation(r.Context(), 100)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rs)
	}
}

// ===== Points / membership =====

func pointBalanceHandler(pointUC usecase.PointUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		balance, err := pointUC.Balance(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"balance": balance})
	}
}

func pointHistoryHandler(pointUC usecase.PointUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := pointUC.History(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, history)
	}
}

type pointChargeRequest struct {
	Points      int    `json:"points"`
	Description string `json:"description"`
}

func pointChargeHandler(pointUC usecase.PointUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pointChargeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := pointUC.Charge(r.Context(), chi.URLParam(r, "userID"), req.Points, req.Description); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func membershipGetHandler(memberUC usecase.MembershipUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, lvl, err := memberUC.Get(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"membership": m, "level": lvl})
	}
}

// ===== Plans =====

type planCreateRequest struct {
	Name            string `json:"name"`
	Price           int64  `json:"price"`
	BillingInterval string `json:"billing_interval"`
	TrialPeriodDays int    `json:"trial_period_days"`
}

func plansCreateHandler(planUC usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req planCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		plan, err := planUC.Create(r.Context(), req.Name, req.Price, model.BillingInterval(req.BillingInterval), req.TrialPeriodDays)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, plan)
	}
}

func plansListHandler(planUC usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans, err := planUC.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plans)
	}
}

func plansDeactivateHandler(planUC usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := planUC.Deactivate(r.Context(), chi.URLParam(r, "planID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ===== Payment methods =====

type paymentMethodRegisterRequest struct {
	UserID      string `json:"user_id"`
	CardToken   string `json:"card_token"`
	MakeDefault bool   `json:"make_default"`
}

func paymentMethodRegisterHandler(pmUC usecase.PaymentMethodUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req paymentMethodRegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		pm, err := pmUC.Register(r.Context(), req.UserID, req.CardToken, req.MakeDefault)
		if err != nil {
			writeError(w, err)
			return
		}
		// Never echo the stored billing key.
		pm.BillingKey = ""
		writeJSON(w, http.StatusCreated, pm)
	}
}

func paymentMethodListHandler(pmUC usecase.PaymentMethodUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pms, err := pmUC.List(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, err)
			return
		}
		for _, pm := range pms {
			pm.BillingKey = ""
		}
		writeJSON(w, http.StatusOK, pms)
	}
}

func paymentMethodDeleteHandler(pmUC usecase.PaymentMethodUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pmUC.Delete(r.Context(), chi.URLParam(r, "methodID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ===== Subscriptions =====

type subscriptionCreateRequest struct {
	UserID          string  `json:"user_id"`
	PlanID          string  `json:"plan_id"`
	PaymentMethodID *string `json:"payment_method_id"`
}

func subscriptionCreateHandler(subUC usecase.SubscriptionUseCase, submitSchedule func(subID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subscriptionCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		s, err := subUC.Create(r.Context(), req.UserID, req.PlanID, req.PaymentMethodID)
		if err != nil {
			writeError(w, err)
			return
		}
		if s.ScheduleState == model.SchedulePending && submitSchedule != nil {
			submitSchedule(s.ID)
		}
		writeJSON(w, http.StatusCreated, s)
	}
}

func subscriptionGetHandler(subUC usecase.SubscriptionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := subUC.Get(r.Context(), chi.URLParam(r, "subID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func subscriptionListHandler(subUC usecase.SubscriptionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := subUC.ListByUser(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, subs)
	}
}

func subscriptionCancelHandler(subUC usecase.SubscriptionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := subUC.Cancel(r.Context(), chi.URLParam(r, "subID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func subscriptionInvoicesHandler(subUC usecase.SubscriptionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		invoices, err := subUC.Invoices(r.Context(), chi.URLParam(r, "subID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, invoices)
	}
}

type invoiceRefundRequest struct {
	Reason string `json:"reason"`
}

func invoiceRefundHandler(subUC usecase.SubscriptionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req invoiceRefundRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if err := subUC.RefundInvoice(r.Context(), chi.URLParam(r, "invoiceID"), req.Reason); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
