package gateway

import (
	"fmt"
	"strings"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/usecase"
)

// Field length limits from the provider integration contract
const (
	MaxReferenceLen = 32
	MaxGameIDLen    = 32
	MaxGameDescLen  = 64
)

// Debit subtypes
const (
	SubtypeCancel = "cancel"
	SubtypeDebit  = "debit"
)

// Credit subtypes
const (
	SubtypeCredit    = "credit"
	SubtypePromotion = "promotion"
)

// RequestValidator checks provider request fields against the integration
// contract before any wallet work happens
type RequestValidator struct{}

// NewRequestValidator creates a new RequestValidator
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{}
}

// ValidateDebit validates all fields of a debit request
func (v *RequestValidator) ValidateDebit(req usecase.DebitRequest) error {
	if err := v.validateReference(req.Reference); err != nil {
		return err
	}
	if req.UserID == 0 {
		return errs.NewValidationError("userid", "user ID must be positive")
	}
	if req.Currency == "" {
		return errs.NewValidationError("currency", "currency cannot be empty")
	}
	if req.Subtype != "" && req.Subtype != SubtypeCancel && req.Subtype != SubtypeDebit {
		return errs.NewValidationError("subtype", fmt.Sprintf("invalid debit subtype %s", req.Subtype))
	}
	if err := v.validateGameContext(req.Game); err != nil {
		return err
	}
	return v.validateAmount(req.Amount)
}

// ValidateCredit validates all fields of a credit request. Promotion-subtype
// credits arrive without game context; every other subtype requires one.
func (v *RequestValidator) ValidateCredit(req usecase.CreditRequest) error {
	if err := v.validateReference(req.Reference); err != nil {
		return err
	}
	if req.UserID == 0 {
		return errs.NewValidationError("userid", "user ID must be positive")
	}
	if req.Currency == "" {
		return errs.NewValidationError("currency", "currency cannot be empty")
	}

	switch req.Subtype {
	case "", SubtypeCredit, SubtypeCancel:
		if req.Game == nil {
			return errs.NewValidationError("i_gameid", "game context is required for non-promotion credits")
		}
		if err := v.validateGameContext(*req.Game); err != nil {
			return err
		}
	case SubtypePromotion:
		// Game context is optional but validated when present
		if req.Game != nil {
			if err := v.validateGameContext(*req.Game); err != nil {
				return err
			}
		}
	default:
		return errs.NewValidationError("subtype", fmt.Sprintf("invalid credit subtype %s", req.Subtype))
	}

	return v.validateAmount(req.Amount)
}

// ValidateRollback validates the selections of a rollback request
func (v *RequestValidator) ValidateRollback(selections []usecase.RollbackSelection) error {
	if len(selections) == 0 {
		return errs.NewValidationError("selections", "rollback requires at least one selection")
	}
	for _, sel := range selections {
		if err := v.validateReference(sel.BetID); err != nil {
			return err
		}
	}
	return nil
}

// validateReference checks the provider transaction id
func (v *RequestValidator) validateReference(reference string) error {
	if reference == "" {
		return errs.ErrInvalidReference
	}
	if len(reference) > MaxReferenceLen {
		return fmt.Errorf("%w: exceeds %d characters", errs.ErrInvalidReference, MaxReferenceLen)
	}
	return nil
}

// validateGameContext checks game id, game desc, and action id constraints.
// Game desc must follow the "{systemId}:{gameType}" form.
func (v *RequestValidator) validateGameContext(game usecase.GameContext) error {
	if game.GameID == "" {
		return errs.NewValidationError("i_gameid", "game ID cannot be empty")
	}
	if len(game.GameID) > MaxGameIDLen {
		return errs.NewValidationError("i_gameid", fmt.Sprintf("exceeds %d characters", MaxGameIDLen))
	}
	if game.GameDesc == "" {
		return errs.NewValidationError("i_gamedesc", "game description cannot be empty")
	}
	if len(game.GameDesc) > MaxGameDescLen {
		return errs.NewValidationError("i_gamedesc", fmt.Sprintf("exceeds %d characters", MaxGameDescLen))
	}
	parts := strings.Split(game.GameDesc, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return errs.NewValidationError("i_gamedesc", "must match {systemId}:{gameType}")
	}
	if game.ActionID == "" {
		return errs.NewValidationError("i_actionid", "action ID cannot be empty")
	}
	return nil
}

// validateAmount checks the amount is a positive decimal with at most two
// fractional digits
func (v *RequestValidator) validateAmount(amount string) error {
	cents, err := entity.ValidateAndConvertAmount(amount)
	if err != nil {
		return err
	}
	if cents == 0 {
		return fmt.Errorf("%w: amount must be greater than zero", errs.ErrInvalidAmount)
	}
	return nil
}
