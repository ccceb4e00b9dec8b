package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ecommerce-loyalty-platform/internal/config"
	"ecommerce-loyalty-platform/internal/infra/logging"
	"ecommerce-loyalty-platform/internal/infra/worker"
	"ecommerce-loyalty-platform/internal/usecase"
)

type Server struct {
	orderUC  usecase.OrderUseCase
	pointUC  usecase.PointUseCase
	memberUC usecase.MembershipUseCase
	refundUC usecase.RefundUseCase
	planUC   usecase.PlanUseCase
	subUC    usecase.SubscriptionUseCase
	pmUC     usecase.PaymentMethodUseCase
	pool     *worker.Pool
	auth     *AuthManager
	admin    config.AdminConfig
	log      *zerolog.Logger
}

func NewServer(
	orderUC usecase.OrderUseCase,
	pointUC usecase.PointUseCase,
	memberUC usecase.MembershipUseCase,
	refundUC usecase.RefundUseCase,
	planUC usecase.PlanUseCase,
	subUC usecase.SubscriptionUseCase,
	pmUC usecase.PaymentMethodUseCase,
	pool *worker.Pool,
	auth *AuthManager,
	admin config.AdminConfig,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		orderUC:  orderUC,
		pointUC:  pointUC,
		memberUC: memberUC,
		refundUC: refundUC,
		planUC:   planUC,
		subUC:    subUC,
		pmUC:     pmUC,
		pool:     pool,
		auth:     auth,
		admin:    admin,
		log:      logger,
	}
}

// Routes builds the service router. Admin-only operations live under
// /api/v1/admin behind the JWT session middleware.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/orders", orderCreateHandler(s.orderUC))
		r.Get("/orders/{orderID}", orderGetHandler(s.orderUC))
		r.Post("/orders/{orderID}/settle-points", orderSettlePointsHandler(s.orderUC))

		// Gateway completion callback / manual reconcile trigger.
		r.Post("/payments/reconcile", paymentReconcileHandler(s.orderUC))

		r.Get("/users/{userID}/orders", userOrdersHandler(s.orderUC))
		r.Get("/users/{userID}/points", pointBalanceHandler(s.pointUC))
		r.Get("/users/{userID}/points/history", pointHistoryHandler(s.pointUC))
		r.Get("/users/{userID}/membership", membershipGetHandler(s.memberUC))
		r.Get("/users/{userID}/payment-methods", paymentMethodListHandler(s.pmUC))
		r.Get("/users/{userID}/subscriptions", subscriptionListHandler(s.subUC))

		r.Get("/plans", plansListHandler(s.planUC))

		r.Post("/payment-methods", paymentMethodRegisterHandler(s.pmUC))
		r.Delete("/payment-methods/{methodID}", paymentMethodDeleteHandler(s.pmUC))

		r.Post("/subscriptions", subscriptionCreateHandler(s.subUC, s.submitSchedule))
		r.Get("/subscriptions/{subID}", subscriptionGetHandler(s.subUC))
		r.Post("/subscriptions/{subID}/cancel", subscriptionCancelHandler(s.subUC))
		r.Get("/subscriptions/{subID}/invoices", subscriptionInvoicesHandler(s.subUC))

		r.Post("/admin/login", s.loginHandler())
		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Post("/admin/orders/{orderID}/cancel", orderCancelHandler(s.refundUC))
			r.Post("/admin/orders/{orderID}/refund", orderRefundHandler(s.refundUC))
			r.Get("/admin/refunds/partial", refundPartialListHandler(s.refundUC))
			r.Post("/admin/users/{userID}/points/charge", pointChargeHandler(s.pointUC))
			r.Post("/admin/plans", plansCreateHandler(s.planUC))
			r.Delete("/admin/plans/{planID}", plansDeactivateHandler(s.planUC))
			r.Post("/admin/invoices/{invoiceID}/refund", invoiceRefundHandler(s.subUC))
		})
	})
	return r
}

// submitSchedule pushes remote schedule creation onto the background pool
// so subscription creation never blocks on the gateway. The periodic
// reconciler re-drives anything the pool drops.
func (s *Server) submitSchedule(subID string) {
	if s.pool == nil {
		return
	}
	if err := s.pool.Submit(func(ctx context.Context) error {
		return s.subUC.EnsureSchedule(ctx, subID)
	}); err != nil {
		s.log.Warn().Err(err).Str("subscription_id", subID).Msg("schedule task not queued")
	}
}

// traceMiddleware stamps each request with a trace id carried through the
// context logger fields.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) loginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.admin.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.admin.Password)) == 1
		if s.admin.Username == "" || !userOK || !passOK {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		token, err := s.auth.Mint(w)
		if err != nil {
			http.Error(w, "Failed to mint session", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}
