//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/usecase"
)

func TestPaymentMethodUseCase_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("should issue a billing key and store it encrypted", func(t *testing.T) {
		// --- Arrange ---
		methods := NewMockPaymentMethodRepo()
		gateway := &MockPaymentGateway{}
		uc := usecase.NewPaymentMethodUseCase(methods, gateway, stubEncryptor{}, newTestLogger())

		// --- Act ---
		pm, err := uc.Register(ctx, "user-1", "card-token", true)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if pm.CustomerRef != "cust_user-1" {
			t.Errorf("expected customer ref cust_user-1, got %q", pm.CustomerRef)
		}
		if !strings.HasPrefix(pm.BillingKey, "enc:") {
			t.Errorf("billing key must be stored encrypted, got %q", pm.BillingKey)
		}
		if !pm.IsDefault {
			t.Error("expected the method to be default")
		}
	})

	t.Run("should demote the previous default", func(t *testing.T) {
		// --- Arrange ---
		methods := NewMockPaymentMethodRepo()
		gateway := &MockPaymentGateway{}
		uc := usecase.NewPaymentMethodUseCase(methods, gateway, stubEncryptor{}, newTestLogger())
		if _, err := uc.Register(ctx, "user-1", "card-a", true); err != nil {
			t.Fatalf("first register: %v", err)
		}

		// --- Act ---
		if _, err := uc.Register(ctx, "user-1", "card-b", true); err != nil {
			t.Fatalf("second register: %v", err)
		}

		// --- Assert ---
		pms, _ := uc.List(ctx, "user-1")
		defaults := 0
		for _, pm := range pms {
			if pm.IsDefault {
				defaults++
			}
		}
		if defaults != 1 {
			t.Errorf("expected exactly one default method, got %d", defaults)
		}
	})

	t.Run("should reject empty input", func(t *testing.T) {
		uc := usecase.NewPaymentMethodUseCase(NewMockPaymentMethodRepo(), &MockPaymentGateway{}, stubEncryptor{}, newTestLogger())
		if _, err := uc.Register(ctx, "", "card", false); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got: %v", err)
		}
	})
}

func TestPaymentMethodUseCase_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("should delete the remote billing key before the row", func(t *testing.T) {
		// --- Arrange ---
		methods := NewMockPaymentMethodRepo()
		gateway := &MockPaymentGateway{}
		var deletedKey string
		gateway.DeleteBillingKeyFunc = func(ctx context.Context, billingKey string) error {
			deletedKey = billingKey
			return nil
		}
		uc := usecase.NewPaymentMethodUseCase(methods, gateway, stubEncryptor{}, newTestLogger())
		pm, err := uc.Register(ctx, "user-1", "card-token", false)
		if err != nil {
			t.Fatalf("register: %v", err)
		}

		// --- Act ---
		if err := uc.Delete(ctx, pm.ID); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		// --- Assert ---
		if deletedKey != "bk_card-token" {
			t.Errorf("expected the decrypted key at the gateway, got %q", deletedKey)
		}
		pms, _ := uc.List(ctx, "user-1")
		if len(pms) != 0 {
			t.Errorf("expected no methods left, got %d", len(pms))
		}
	})

	t.Run("should tolerate a billing key the gateway no longer knows", func(t *testing.T) {
		// --- Arrange ---
		methods := NewMockPaymentMethodRepo()
		gateway := &MockPaymentGateway{}
		gateway.DeleteBillingKeyFunc = func(ctx context.Context, billingKey string) error {
			return domain.ErrNotFound
		}
		uc := usecase.NewPaymentMethodUseCase(methods, gateway, stubEncryptor{}, newTestLogger())
		pm, err := uc.Register(ctx, "user-1", "card-token", false)
		if err != nil {
			t.Fatalf("register: %v", err)
		}

		// --- Act / Assert ---
		if err := uc.Delete(ctx, pm.ID); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
	})

	t.Run("should surface other gateway failures", func(t *testing.T) {
		methods := NewMockPaymentMethodRepo()
		gateway := &MockPaymentGateway{}
		gateway.DeleteBillingKeyFunc = func(ctx context.Context, billingKey string) error {
			return domain.ErrGatewayUnavailable
		}
		uc := usecase.NewPaymentMethodUseCase(methods, gateway, stubEncryptor{}, newTestLogger())
		pm, err := uc.Register(ctx, "user-1", "card-token", false)
		if err != nil {
			t.Fatalf("register: %v", err)
		}

		if err := uc.Delete(ctx, pm.ID); !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("expected ErrGatewayUnavailable, got: %v", err)
		}
		pms, _ := uc.List(ctx, "user-1")
		if len(pms) != 1 {
			t.Errorf("the row must survive a failed remote delete, got %d methods", len(pms))
		}
	})
}
