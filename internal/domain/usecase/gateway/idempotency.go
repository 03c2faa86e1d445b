package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/persistence"
)

// ReplayDetector resolves provider retries of an already settled reference to
// the original response. FAILED audit rows do not consume a reference, so a
// genuine retry after a rejected debit is processed as a fresh attempt.
type ReplayDetector struct {
	ledgerRepo persistence.LedgerRepository
}

// NewReplayDetector creates a new ReplayDetector
func NewReplayDetector(ledgerRepo persistence.LedgerRepository) *ReplayDetector {
	return &ReplayDetector{ledgerRepo: ledgerRepo}
}

// CheckReplay looks up a settled entry for the reference. Returns the entry
// and true when the reference was already settled (COMPLETED or REVERSED), so
// the caller can return the original success payload without touching the
// wallet again.
func (d *ReplayDetector) CheckReplay(ctx context.Context, reference string) (*entity.LedgerEntry, bool, error) {
	entry, err := d.ledgerRepo.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, errs.ErrUnknownTransaction) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to check for replay: %w", err)
	}
	return entry, true, nil
}
