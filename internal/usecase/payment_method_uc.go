// File: internal/usecase/payment_method_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ecommerce-loyalty-platform/internal/domain"
	"ecommerce-loyalty-platform/internal/domain/model"
	"ecommerce-loyalty-platform/internal/domain/ports/adapter"
	"ecommerce-loyalty-platform/internal/domain/ports/repository"
	"ecommerce-loyalty-platform/internal/infra/logging"
)

// Compile-time check
var _ PaymentMethodUseCase = (*paymentMethodUC)(nil)

// PaymentMethodUseCase registers gateway billing keys for recurring charges.
// Billing keys never leave this package unencrypted.
type PaymentMethodUseCase interface {
	Register(ctx context.Context, userID, cardToken string, makeDefault bool) (*model.PaymentMethod, error)
	List(ctx context.Context, userID string) ([]*model.PaymentMethod, error)
	Delete(ctx context.Context, paymentMethodID string) error
}

type paymentMethodUC struct {
	methods repository.PaymentMethodRepository
	gateway adapter.PaymentGateway
	crypto  Encryptor
	log     *zerolog.Logger
}

func NewPaymentMethodUseCase(
	methods repository.PaymentMethodRepository,
	gateway adapter.PaymentGateway,
	crypto Encryptor,
	logger *zerolog.Logger,
) *paymentMethodUC {
	return &paymentMethodUC{methods: methods, gateway: gateway, crypto: crypto, log: logger}
}

func (u *paymentMethodUC) Register(ctx context.Context, userID, cardToken string, makeDefault bool) (*model.PaymentMethod, error) {
	defer logging.TraceDuration(u.log, "PaymentMethodUC.Register")()

	if userID == "" || cardToken == "" {
		return nil, fmt.Errorf("%w: user id and card token are required", domain.ErrInvalidArgument)
	}
	customerRef := "cust_" + userID
	info, err := u.gateway.IssueBillingKey(ctx, customerRef, cardToken)
	if err != nil {
		return nil, err
	}
	encrypted, err := u.crypto.Encrypt(info.BillingKey)
	if err != nil {
		return nil, err
	}
	if makeDefault {
		if err := u.methods.ClearDefault(ctx, nil, userID); err != nil {
			return nil, err
		}
	}
	pm := &model.PaymentMethod{
		ID:          uuid.NewString(),
		UserID:      userID,
		CustomerRef: customerRef,
		BillingKey:  encrypted,
		Label:       info.CardName,
		IsDefault:   makeDefault,
		CreatedAt:   time.Now(),
	}
	if err := u.methods.Save(ctx, nil, pm); err != nil {
		return nil, err
	}
	u.log.Info().Str("user_id", userID).Str("payment_method_id", pm.ID).Msg("billing key registered")
	return pm, nil
}

func (u *paymentMethodUC) List(ctx context.Context, userID string) ([]*model.PaymentMethod, error) {
	return u.methods.FindByUser(ctx, nil, userID)
}

func (u *paymentMethodUC) Delete(ctx context.Context, paymentMethodID string) error {
	defer logging.TraceDuration(u.log, "PaymentMethodUC.Delete")()

	pm, err := u.methods.FindByID(ctx, nil, paymentMethodID)
	if err != nil {
		return err
	}
	key, err := u.crypto.Decrypt(pm.BillingKey)
	if err != nil {
		return err
	}
	if err := u.gateway.DeleteBillingKey(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return u.methods.Delete(ctx, nil, paymentMethodID)
}
