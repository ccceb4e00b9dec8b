//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/model"
	"ecommerce-loyalty-platform/internal/domain/ports/adapter"
	"ecommerce-loyalty-platform/internal/domain/ports/repository"
)

// =============================
// Repositories
// =============================

// ---- Mock OrderRepository ----

type MockOrderRepo struct {
	mu   sync.Mutex
	data map[string]*model.Order

	SaveFunc              func(ctx context.Context, tx repository.Tx, o *model.Order) error
	FindByIDFunc          func(ctx context.Context, tx repository.Tx, orderID string) (*model.Order, error)
	CompleteIfPendingFunc func(ctx context.Context, tx repository.Tx, orderID string) (bool, error)
	UpdateStatusFunc      func(ctx context.Context, tx repository.Tx, orderID string, status model.OrderStatus) error
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func NewMockOrderRepo() *MockOrderRepo {
	return &MockOrderRepo{data: map[string]*model.Order{}}
}

func (r *MockOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, o)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.data[o.OrderID] = &cp
	return nil
}

func (r *MockOrderRepo) FindByID(ctx context.Context, tx repository.Tx, orderID string) (*model.Order, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, orderID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.data[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MockOrderRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Order
	for _, o := range r.data {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockOrderRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, orderID string) (bool, error) {
	if r.CompleteIfPendingFunc != nil {
		return r.CompleteIfPendingFunc(ctx, tx, orderID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.data[orderID]
	if !ok {
		return false, nil
	}
	if o.Status != model.OrderStatusPendingPayment {
		return false, nil
	}
	o.Status = model.OrderStatusCompleted
	return true, nil
}

func (r *MockOrderRepo) UpdateStatus(ctx context.Context, tx repository.Tx, orderID string, status model.OrderStatus) error {
	if r.UpdateStatusFunc != nil {
		return r.UpdateStatusFunc(ctx, tx, orderID, status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.data[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = status
	return nil
}

func (r *MockOrderRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Order
	for _, o := range r.data {
		if o.Status == model.OrderStatusPendingPayment && o.CreatedAt.Before(olderThan) {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- Mock ProductRepository ----

type MockProductRepo struct {
	mu   sync.Mutex
	data map[string]*model.Product
}

var _ repository.ProductRepository = (*MockProductRepo)(nil)

func NewMockProductRepo() *MockProductRepo {
	return &MockProductRepo{data: map[string]*model.Product{}}
}

func (r *MockProductRepo) Save(ctx context.Context, tx repository.Tx, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockProductRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockProductRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Product
	for _, id := range ids {
		if p, ok := r.data[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock PaymentRepository ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.Payment // by id

	SaveFunc          func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FindByOrderIDFunc func(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error)
	UpdateStatusFunc  func(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus) error
	SumPaidByUserFunc func(ctx context.Context, tx repository.Tx, userID string) (int64, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPaymentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.TransactionID != nil && *p.TransactionID == transactionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Payment, error) {
	if r.FindByOrderIDFunc != nil {
		return r.FindByOrderIDFunc(ctx, tx, orderID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.data {
		if p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus) error {
	if r.UpdateStatusFunc != nil {
		return r.UpdateStatusFunc(ctx, tx, id, status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	return nil
}

func (r *MockPaymentRepo) SumPaidByUser(ctx context.Context, tx repository.Tx, userID string) (int64, error) {
	if r.SumPaidByUserFunc != nil {
		return r.SumPaidByUserFunc(ctx, tx, userID)
	}
	return 0, nil
}

// ---- Mock RefundRepository ----

type MockRefundRepo struct {
	mu   sync.Mutex
	data []*model.Refund

	SaveFunc func(ctx context.Context, tx repository.Tx, rf *model.Refund) error
}

var _ repository.RefundRepository = (*MockRefundRepo)(nil)

func NewMockRefundRepo() *MockRefundRepo {
	return &MockRefundRepo{}
}

func (r *MockRefundRepo) Save(ctx context.Context, tx repository.Tx, rf *model.Refund) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, rf)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rf
	r.data = append(r.data, &cp)
	return nil
}

func (r *MockRefundRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Refund
	for _, rf := range r.data {
		if rf.PaymentID == paymentID {
			cp := *rf
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockRefundRepo) SumCompletedByPayment(ctx context.Context, tx repository.Tx, paymentID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, rf := range r.data {
		if rf.PaymentID == paymentID && rf.Status == model.RefundStatusCompleted {
			sum += rf.Amount
		}
	}
	return sum, nil
}

func (r *MockRefundRepo) ListPartial(ctx context.Context, tx repository.Tx, limit int) ([]*model.Refund, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Refund
	for _, rf := range r.data {
		if rf.ReconcileNote != "" {
			cp := *rf
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- Mock PointTransactionRepository ----

type MockPointRepo struct {
	mu      sync.Mutex
	entries []*model.PointTransaction

	SaveFunc func(ctx context.Context, tx repository.Tx, t *model.PointTransaction) error
}

var _ repository.PointTransactionRepository = (*MockPointRepo)(nil)

func NewMockPointRepo() *MockPointRepo {
	return &MockPointRepo{}
}

func (r *MockPointRepo) Save(ctx context.Context, tx repository.Tx, t *model.PointTransaction) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *MockPointRepo) SumByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := 0
	for _, e := range r.entries {
		if e.UserID == userID {
			sum += e.Points
		}
	}
	return sum, nil
}

func (r *MockPointRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PointTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PointTransaction
	for _, e := range r.entries {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockPointRepo) ListByOrder(ctx context.Context, tx repository.Tx, orderID string) ([]*model.PointTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PointTransaction
	for _, e := range r.entries {
		if e.OrderID != nil && *e.OrderID == orderID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Mock MembershipRepository / MembershipLevelRepository ----

type MockMembershipRepo struct {
	mu     sync.Mutex
	byUser map[string]*model.Membership

	UpsertFunc func(ctx context.Context, tx repository.Tx, m *model.Membership) error
}

var _ repository.MembershipRepository = (*MockMembershipRepo)(nil)

func NewMockMembershipRepo() *MockMembershipRepo {
	return &MockMembershipRepo{byUser: map[string]*model.Membership{}}
}

func (r *MockMembershipRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MockMembershipRepo) Upsert(ctx context.Context, tx repository.Tx, m *model.Membership) error {
	if r.UpsertFunc != nil {
		return r.UpsertFunc(ctx, tx, m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.byUser[m.UserID] = &cp
	return nil
}

type MockLevelRepo struct {
	mu   sync.Mutex
	data map[string]*model.MembershipLevel // by id
}

var _ repository.MembershipLevelRepository = (*MockLevelRepo)(nil)

func NewMockLevelRepo() *MockLevelRepo {
	return &MockLevelRepo{data: map[string]*model.MembershipLevel{}}
}

func (r *MockLevelRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.MembershipLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *MockLevelRepo) FindByName(ctx context.Context, tx repository.Tx, name string) (*model.MembershipLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.data {
		if l.Name == name {
			cp := *l
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockLevelRepo) Save(ctx context.Context, tx repository.Tx, l *model.MembershipLevel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	cp := *l
	r.data[l.ID] = &cp
	return nil
}

// ---- Mock PlanRepository ----

type MockPlanRepo struct {
	mu   sync.Mutex
	data map[string]*model.Plan
}

var _ repository.PlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo() *MockPlanRepo {
	return &MockPlanRepo{data: map[string]*model.Plan{}}
}

func (r *MockPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPlanRepo) List(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Plan
	for _, p := range r.data {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---- Mock SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription

	SaveFunc        func(ctx context.Context, tx repository.Tx, s *model.Subscription) error
	SetScheduleFunc func(ctx context.Context, tx repository.Tx, id string, scheduleID *string, state model.ScheduleState) error
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, s)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	cp := *s
	r.data[s.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MockSubscriptionRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) ListDue(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if s.Billable() && !s.CurrentPeriodEnd.After(before) {
			cp := *s
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockSubscriptionRepo) ListTrialEnded(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusTrialing && s.TrialEnd != nil && !s.TrialEnd.After(before) {
			cp := *s
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockSubscriptionRepo) ListSchedulePending(ctx context.Context, tx repository.Tx, limit int) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if s.ScheduleState == model.SchedulePending {
			cp := *s
			out = append(out, &cp)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockSubscriptionRepo) SetSchedule(ctx context.Context, tx repository.Tx, id string, scheduleID *string, state model.ScheduleState) error {
	if r.SetScheduleFunc != nil {
		return r.SetScheduleFunc(ctx, tx, id, scheduleID, state)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.ScheduleID = scheduleID
	s.ScheduleState = state
	return nil
}

// ---- Mock SubscriptionInvoiceRepository ----

type MockInvoiceRepo struct {
	mu   sync.Mutex
	data map[string]*model.SubscriptionInvoice

	SaveFunc              func(ctx context.Context, tx repository.Tx, inv *model.SubscriptionInvoice) error
	MarkPaidIfPendingFunc func(ctx context.Context, tx repository.Tx, id, transactionID string, paidAt time.Time) (bool, error)
}

var _ repository.SubscriptionInvoiceRepository = (*MockInvoiceRepo)(nil)

func NewMockInvoiceRepo() *MockInvoiceRepo {
	return &MockInvoiceRepo{data: map[string]*model.SubscriptionInvoice{}}
}

func (r *MockInvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.SubscriptionInvoice) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, inv)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	cp := *inv
	r.data[inv.ID] = &cp
	return nil
}

func (r *MockInvoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *MockInvoiceRepo) ListBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) ([]*model.SubscriptionInvoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SubscriptionInvoice
	for _, inv := range r.data {
		if inv.SubscriptionID == subscriptionID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MockInvoiceRepo) HasPendingDueBefore(ctx context.Context, tx repository.Tx, subscriptionID string, before time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.data {
		if inv.SubscriptionID == subscriptionID && inv.Status == model.InvoiceStatusPending && inv.DueDate.Before(before) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MockInvoiceRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id, transactionID string, paidAt time.Time) (bool, error) {
	if r.MarkPaidIfPendingFunc != nil {
		return r.MarkPaidIfPendingFunc(ctx, tx, id, transactionID, paidAt)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.data[id]
	if !ok || inv.Status != model.InvoiceStatusPending {
		return false, nil
	}
	inv.Status = model.InvoiceStatusPaid
	inv.TransactionID = &transactionID
	inv.PaidAt = &paidAt
	inv.AttemptCount++
	return true, nil
}

func (r *MockInvoiceRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id, errorMessage string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.data[id]
	if !ok || inv.Status != model.InvoiceStatusPending {
		return false, nil
	}
	inv.Status = model.InvoiceStatusFailed
	inv.ErrorMessage = errorMessage
	inv.AttemptCount++
	return true, nil
}

func (r *MockInvoiceRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.InvoiceStatus, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.Status = status
	inv.ErrorMessage = errorMessage
	return nil
}

func (r *MockInvoiceRepo) CancelNonTerminal(ctx context.Context, tx repository.Tx, subscriptionID, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.data {
		if inv.SubscriptionID != subscriptionID {
			continue
		}
		if inv.Status == model.InvoiceStatusPending || inv.Status == model.InvoiceStatusFailed {
			inv.Status = model.InvoiceStatusCanceled
			inv.ErrorMessage = errorMessage
		}
	}
	return nil
}

// ---- Mock PaymentMethodRepository ----

type MockPaymentMethodRepo struct {
	mu   sync.Mutex
	data map[string]*model.PaymentMethod

	DeleteFunc func(ctx context.Context, tx repository.Tx, id string) error
}

var _ repository.PaymentMethodRepository = (*MockPaymentMethodRepo)(nil)

func NewMockPaymentMethodRepo() *MockPaymentMethodRepo {
	return &MockPaymentMethodRepo{data: map[string]*model.PaymentMethod{}}
}

func (r *MockPaymentMethodRepo) Save(ctx context.Context, tx repository.Tx, pm *model.PaymentMethod) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pm.ID == "" {
		pm.ID = uuid.NewString()
	}
	cp := *pm
	r.data[pm.ID] = &cp
	return nil
}

func (r *MockPaymentMethodRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pm, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *pm
	return &cp, nil
}

func (r *MockPaymentMethodRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PaymentMethod, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PaymentMethod
	for _, pm := range r.data {
		if pm.UserID == userID {
			cp := *pm
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockPaymentMethodRepo) ClearDefault(ctx context.Context, tx repository.Tx, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pm := range r.data {
		if pm.UserID == userID {
			pm.IsDefault = false
		}
	}
	return nil
}

func (r *MockPaymentMethodRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	if r.DeleteFunc != nil {
		return r.DeleteFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	mu sync.Mutex

	GetPaymentDetailsFunc func(ctx context.Context, transactionID string) (*adapter.PaymentDetails, error)
	CancelPaymentFunc     func(ctx context.Context, transactionID string, amount int64, reason string) (*adapter.CancelResult, error)
	IssueBillingKeyFunc   func(ctx context.Context, customerRef, cardToken string) (*adapter.BillingKeyInfo, error)
	GetBillingKeyFunc     func(ctx context.Context, billingKey string) (*adapter.BillingKeyInfo, error)
	DeleteBillingKeyFunc  func(ctx context.Context, billingKey string) error
	ExecuteBillingFunc    func(ctx context.Context, billingKey string, req adapter.BillingRequest) (*adapter.BillingResult, error)
	CreateScheduleFunc    func(ctx context.Context, billingKey string, req adapter.ScheduleRequest) (*adapter.ScheduleInfo, error)
	ListSchedulesFunc     func(ctx context.Context, customerRef string) ([]*adapter.ScheduleInfo, error)
	DeleteScheduleFunc    func(ctx context.Context, scheduleID string) error

	// tracing of invocations
	Calls struct {
		Cancel   []int64
		Billing  []adapter.BillingRequest
		Schedule []adapter.ScheduleRequest
	}
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) GetPaymentDetails(ctx context.Context, transactionID string) (*adapter.PaymentDetails, error) {
	if m.GetPaymentDetailsFunc != nil {
		return m.GetPaymentDetailsFunc(ctx, transactionID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentGateway) CancelPayment(ctx context.Context, transactionID string, amount int64, reason string) (*adapter.CancelResult, error) {
	m.mu.Lock()
	m.Calls.Cancel = append(m.Calls.Cancel, amount)
	m.mu.Unlock()
	if m.CancelPaymentFunc != nil {
		return m.CancelPaymentFunc(ctx, transactionID, amount, reason)
	}
	return &adapter.CancelResult{CancelledAmount: amount}, nil
}

func (m *MockPaymentGateway) IssueBillingKey(ctx context.Context, customerRef, cardToken string) (*adapter.BillingKeyInfo, error) {
	if m.IssueBillingKeyFunc != nil {
		return m.IssueBillingKeyFunc(ctx, customerRef, cardToken)
	}
	return &adapter.BillingKeyInfo{BillingKey: "bk_" + cardToken, CustomerRef: customerRef, CardName: "Test Card", IssuedAt: time.Now()}, nil
}

func (m *MockPaymentGateway) GetBillingKey(ctx context.Context, billingKey string) (*adapter.BillingKeyInfo, error) {
	if m.GetBillingKeyFunc != nil {
		return m.GetBillingKeyFunc(ctx, billingKey)
	}
	return &adapter.BillingKeyInfo{BillingKey: billingKey}, nil
}

func (m *MockPaymentGateway) DeleteBillingKey(ctx context.Context, billingKey string) error {
	if m.DeleteBillingKeyFunc != nil {
		return m.DeleteBillingKeyFunc(ctx, billingKey)
	}
	return nil
}

func (m *MockPaymentGateway) ExecuteBilling(ctx context.Context, billingKey string, req adapter.BillingRequest) (*adapter.BillingResult, error) {
	m.mu.Lock()
	m.Calls.Billing = append(m.Calls.Billing, req)
	m.mu.Unlock()
	if m.ExecuteBillingFunc != nil {
		return m.ExecuteBillingFunc(ctx, billingKey, req)
	}
	return &adapter.BillingResult{TransactionID: "txn_" + req.PaymentID, Amount: req.Amount, PaidAt: time.Now()}, nil
}

func (m *MockPaymentGateway) CreateSchedule(ctx context.Context, billingKey string, req adapter.ScheduleRequest) (*adapter.ScheduleInfo, error) {
	m.mu.Lock()
	m.Calls.Schedule = append(m.Calls.Schedule, req)
	m.mu.Unlock()
	if m.CreateScheduleFunc != nil {
		return m.CreateScheduleFunc(ctx, billingKey, req)
	}
	return &adapter.ScheduleInfo{ID: "sched_" + req.PaymentID, PaymentID: req.PaymentID, TimeToPay: req.TimeToPay, Metadata: req.Metadata}, nil
}

func (m *MockPaymentGateway) ListSchedules(ctx context.Context, customerRef string) ([]*adapter.ScheduleInfo, error) {
	if m.ListSchedulesFunc != nil {
		return m.ListSchedulesFunc(ctx, customerRef)
	}
	return nil, nil
}

func (m *MockPaymentGateway) DeleteSchedule(ctx context.Context, scheduleID string) error {
	if m.DeleteScheduleFunc != nil {
		return m.DeleteScheduleFunc(ctx, scheduleID)
	}
	return nil
}

// =============================
// Infrastructure stubs
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

// WithTx runs the function immediately without a real transaction. Assign
// WithTxFunc to exercise rollback behavior.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// stubEncryptor is a reversible placeholder for the AES service.
type stubEncryptor struct{}

func (stubEncryptor) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (stubEncryptor) Decrypt(ciphertext string) (string, error) {
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
