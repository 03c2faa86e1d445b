package migration

import (
	"context"
	"errors"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	coreport "github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/persistence"
)

// Seed wallets for development environments: user id -> starting balance
var seedWallets = map[uint64]string{
	1: "1000.00",
	2: "500.00",
	3: "250.00",
}

const seedCurrency = "EUR"

// CreateSeedWallets provisions development wallets with starting balances.
// Existing wallets are left untouched.
func CreateSeedWallets(
	ctx context.Context,
	walletRepo persistence.WalletRepository,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) error {
	for userID, balance := range seedWallets {
		_, err := walletRepo.GetByUserAndCurrency(ctx, userID, seedCurrency)
		if err == nil {
			continue
		}
		if !errors.Is(err, errs.ErrUserNotFound) {
			return err
		}

		wallet, err := entity.NewWallet(userID, seedCurrency, timeProvider)
		if err != nil {
			return err
		}
		cents, err := entity.ValidateAndConvertAmount(balance)
		if err != nil {
			return err
		}
		wallet.BalanceCents = cents

		if err := walletRepo.Create(ctx, wallet); err != nil {
			return err
		}
		logger.Info("Seed wallet created", map[string]any{
			"user_id": userID,
			"balance": balance,
		})
	}

	return nil
}
