package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ecommerce-loyalty-platform/internal/config"
	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.PaymentGateway = (*PortOneGateway)(nil)

// PortOneGateway implements adapter.PaymentGateway against the PortOne V2
// REST API using direct HTTP calls.
//
// Error classification:
//   - transport failures map to domain.ErrGatewayUnavailable
//   - HTTP 404 maps to domain.ErrNotFound (ErrScheduleNotFound for schedules)
//   - other non-2xx responses map to domain.ErrGatewayRejected
type PortOneGateway struct {
	baseURL   string
	apiSecret string
	storeID   string
	client    *http.Client
}

func NewPortOneGateway(cfg config.GatewayConfig) *PortOneGateway {
	return &PortOneGateway{
		baseURL:   cfg.BaseURL,
		apiSecret: cfg.APISecret,
		storeID:   cfg.StoreID,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *PortOneGateway) Name() string { return "portone" }

type portOnePaymentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount struct {
		Total int64 `json:"total"`
	} `json:"amount"`
	OrderName string `json:"orderName"`
	Method    struct {
		Type string `json:"type"`
	} `json:"method"`
	PaidAt     *time.Time        `json:"paidAt"`
	CustomData string            `json:"customData"`
	Customer   struct {
		ID string `json:"id"`
	} `json:"customer"`
	MerchantUID       string `json:"merchantUid"`
	MerchantPaymentID string `json:"merchantPaymentId"`
	OrderID           string `json:"orderId"`
}

func (g *PortOneGateway) GetPaymentDetails(ctx context.Context, transactionID string) (*adapter.PaymentDetails, error) {
	var resp portOnePaymentResponse
	if err := g.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(transactionID), nil, &resp); err != nil {
		return nil, err
	}

	// customData arrives as a JSON string; a broken payload is treated as
	// absent rather than fatal.
	custom := map[string]string{}
	if resp.CustomData != "" {
		_ = json.Unmarshal([]byte(resp.CustomData), &custom)
	}
	return &adapter.PaymentDetails{
		ID:                resp.ID,
		Status:            resp.Status,
		Amount:            resp.Amount.Total,
		OrderName:         resp.OrderName,
		PayMethod:         resp.Method.Type,
		PaidAt:            resp.PaidAt,
		CustomData:        custom,
		MerchantUID:       resp.MerchantUID,
		MerchantPaymentID: resp.MerchantPaymentID,
		OrderID:           resp.OrderID,
		CustomerID:        resp.Customer.ID,
	}, nil
}

func (g *PortOneGateway) CancelPayment(ctx context.Context, transactionID string, amount int64, reason string) (*adapter.CancelResult, error) {
	body := map[string]interface{}{
		"amount": amount,
		"reason": reason,
	}
	var resp struct {
		Cancellation struct {
			CancelledAmount int64 `json:"cancelledAmount"`
		} `json:"cancellation"`
	}
	if err := g.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(transactionID)+"/cancel", body, &resp); err != nil {
		return nil, err
	}
	cancelled := resp.Cancellation.CancelledAmount
	if cancelled == 0 {
		cancelled = amount
	}
	return &adapter.CancelResult{CancelledAmount: cancelled}, nil
}

type portOneBillingKeyResponse struct {
	BillingKey string `json:"billingKey"`
	Customer   struct {
		ID string `json:"id"`
	} `json:"customer"`
	Card struct {
		Name string `json:"name"`
	} `json:"card"`
	IssuedAt time.Time `json:"issuedAt"`
}

func (g *PortOneGateway) IssueBillingKey(ctx context.Context, customerRef, cardToken string) (*adapter.BillingKeyInfo, error) {
	body := map[string]interface{}{
		"storeId":  g.storeID,
		"customer": map[string]string{"id": customerRef},
		"method":   map[string]interface{}{"card": map[string]string{"token": cardToken}},
	}
	var resp portOneBillingKeyResponse
	if err := g.do(ctx, http.MethodPost, "/billing-keys", body, &resp); err != nil {
		return nil, err
	}
	return &adapter.BillingKeyInfo{
		BillingKey:  resp.BillingKey,
		CustomerRef: resp.Customer.ID,
		CardName:    resp.Card.Name,
		IssuedAt:    resp.IssuedAt,
	}, nil
}

func (g *PortOneGateway) GetBillingKey(ctx context.Context, billingKey string) (*adapter.BillingKeyInfo, error) {
	var resp portOneBillingKeyResponse
	if err := g.do(ctx, http.MethodGet, "/billing-keys/"+url.PathEscape(billingKey), nil, &resp); err != nil {
		return nil, err
	}
	return &adapter.BillingKeyInfo{
		BillingKey:  resp.BillingKey,
		CustomerRef: resp.Customer.ID,
		CardName:    resp.Card.Name,
		IssuedAt:    resp.IssuedAt,
	}, nil
}

func (g *PortOneGateway) DeleteBillingKey(ctx context.Context, billingKey string) error {
	return g.do(ctx, http.MethodDelete, "/billing-keys/"+url.PathEscape(billingKey), nil, nil)
}

func (g *PortOneGateway) ExecuteBilling(ctx context.Context, billingKey string, req adapter.BillingRequest) (*adapter.BillingResult, error) {
	body := map[string]interface{}{
		"storeId":    g.storeID,
		"billingKey": billingKey,
		"orderName":  req.OrderName,
		"customer":   map[string]string{"id": req.CustomerRef},
		"amount":     map[string]int64{"total": req.Amount},
		"currency":   req.Currency,
	}
	var resp struct {
		Payment struct {
			ID     string     `json:"id"`
			PaidAt *time.Time `json:"paidAt"`
			Amount struct {
				Total int64 `json:"total"`
			} `json:"amount"`
		} `json:"payment"`
	}
	if err := g.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(req.PaymentID)+"/billing-key", body, &resp); err != nil {
		return nil, err
	}
	paidAt := time.Now()
	if resp.Payment.PaidAt != nil {
		paidAt = *resp.Payment.PaidAt
	}
	id := resp.Payment.ID
	if id == "" {
		id = req.PaymentID
	}
	return &adapter.BillingResult{TransactionID: id, Amount: req.Amount, PaidAt: paidAt}, nil
}

type portOneScheduleResponse struct {
	ID        string            `json:"id"`
	PaymentID string            `json:"paymentId"`
	TimeToPay time.Time         `json:"timeToPay"`
	Metadata  map[string]string `json:"metadata"`
}

func (g *PortOneGateway) CreateSchedule(ctx context.Context, billingKey string, req adapter.ScheduleRequest) (*adapter.ScheduleInfo, error) {
	body := map[string]interface{}{
		"payment": map[string]interface{}{
			"billingKey": billingKey,
			"orderName":  req.OrderName,
			"customer":   map[string]string{"id": req.CustomerRef},
			"amount":     map[string]int64{"total": req.Amount},
			"currency":   req.Currency,
			"metadata":   req.Metadata,
		},
		"timeToPay": req.TimeToPay.Format(time.RFC3339),
	}
	var resp struct {
		Schedule portOneScheduleResponse `json:"schedule"`
	}
	if err := g.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(req.PaymentID)+"/schedule", body, &resp); err != nil {
		return nil, err
	}
	info := scheduleInfo(resp.Schedule)
	if info.PaymentID == "" {
		info.PaymentID = req.PaymentID
	}
	return info, nil
}

func (g *PortOneGateway) ListSchedules(ctx context.Context, customerRef string) ([]*adapter.ScheduleInfo, error) {
	var resp struct {
		Items []portOneScheduleResponse `json:"items"`
	}
	path := "/payment-schedules?customerId=" + url.QueryEscape(customerRef)
	if err := g.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]*adapter.ScheduleInfo, 0, len(resp.Items))
	for _, it := range resp.Items {
		out = append(out, scheduleInfo(it))
	}
	return out, nil
}

func (g *PortOneGateway) DeleteSchedule(ctx context.Context, scheduleID string) error {
	err := g.do(ctx, http.MethodDelete, "/payment-schedules/"+url.PathEscape(scheduleID), nil, nil)
	if err == domain.ErrNotFound {
		return domain.ErrScheduleNotFound
	}
	return err
}

func scheduleInfo(r portOneScheduleResponse) *adapter.ScheduleInfo {
	return &adapter.ScheduleInfo{
		ID:        r.ID,
		PaymentID: r.PaymentID,
		TimeToPay: r.TimeToPay,
		Metadata:  r.Metadata,
	}
}

func (g *PortOneGateway) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "PortOne "+g.apiSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(respBody, &apiErr)
		return fmt.Errorf("%w: %s %s (http %d): %s %s", domain.ErrGatewayRejected, method, path, resp.StatusCode, apiErr.Type, apiErr.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(respBody))
	}
	return nil
}
