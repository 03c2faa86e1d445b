package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/messaging"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/persistence"
	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/usecase"
)

// nopLogger discards everything
type nopLogger struct {
	level core.LogLevel
}

func (l *nopLogger) SetLevel(level core.LogLevel)     { l.level = level }
func (l *nopLogger) GetLevel() core.LogLevel          { return l.level }
func (l *nopLogger) Debug(_ string, _ map[string]any) {}
func (l *nopLogger) Info(_ string, _ map[string]any)  {}
func (l *nopLogger) Warn(_ string, _ map[string]any)  {}
func (l *nopLogger) Error(_ string, _ map[string]any) {}
func (l *nopLogger) Flush() error                     { return nil }

// testClock returns a fixed instant
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Since(t time.Time) core.Duration {
	return core.Duration(c.now.Sub(t))
}

func (c *testClock) WithTimeout(ctx context.Context, timeout core.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout.Std())
}

// memStore is an in-memory stand-in for the persistence layer that keeps the
// store-side guarantees the service relies on: the conditional balance update
// and the unique constraint on settled references.
type memStore struct {
	mu           sync.Mutex
	nextWalletID uint64
	nextEntryID  uint64
	wallets      map[uint64]*entity.Wallet
	entries      []*entity.LedgerEntry
	rounds       map[string]*entity.RoundInfo

	// createHook, when set, intercepts the next ledger insert
	createHook func(entry *entity.LedgerEntry) error
}

func newMemStore() *memStore {
	return &memStore{
		wallets: make(map[uint64]*entity.Wallet),
		rounds:  make(map[string]*entity.RoundInfo),
	}
}

func (s *memStore) addWallet(userID uint64, currency string, balanceCents int64, status entity.WalletStatus) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextWalletID++
	s.wallets[s.nextWalletID] = &entity.Wallet{
		ID:           s.nextWalletID,
		UserID:       userID,
		Currency:     currency,
		BalanceCents: balanceCents,
		Status:       status,
	}
	return s.nextWalletID
}

func (s *memStore) walletBalance(id uint64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[id].BalanceCents
}

func (s *memStore) entriesFor(reference string) []*entity.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.LedgerEntry
	for _, e := range s.entries {
		if e.Reference == reference {
			out = append(out, copyEntry(e))
		}
	}
	return out
}

func (s *memStore) settledFor(reference string) *entity.LedgerEntry {
	for _, e := range s.entriesFor(reference) {
		if e.Status != entity.EntryFailed {
			return e
		}
	}
	return nil
}

func copyWallet(w *entity.Wallet) *entity.Wallet {
	cw := *w
	if w.LastTransactionAt != nil {
		t := *w.LastTransactionAt
		cw.LastTransactionAt = &t
	}
	return &cw
}

func copyEntry(e *entity.LedgerEntry) *entity.LedgerEntry {
	ce := *e
	if e.ReversedAt != nil {
		t := *e.ReversedAt
		ce.ReversedAt = &t
	}
	return &ce
}

// memUoW snapshots the store on Begin and restores it on Rollback, mirroring
// the all-or-nothing commit behavior the service expects. A transaction mutex
// held from Begin until Commit or Rollback serializes overlapping
// transactions the way the store's row locks would.
type memUoW struct {
	store *memStore
	txMu  sync.Mutex

	savedWallets map[uint64]*entity.Wallet
	savedEntries []*entity.LedgerEntry
	inTx         bool

	beginErr   error
	commitErr  error
	onRollback func()
}

func newMemUoW(store *memStore) *memUoW {
	return &memUoW{store: store}
}

func (u *memUoW) Begin(ctx context.Context) (context.Context, error) {
	if u.beginErr != nil {
		return nil, u.beginErr
	}
	u.txMu.Lock()
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	u.savedWallets = make(map[uint64]*entity.Wallet, len(u.store.wallets))
	for id, w := range u.store.wallets {
		u.savedWallets[id] = copyWallet(w)
	}
	u.savedEntries = make([]*entity.LedgerEntry, 0, len(u.store.entries))
	for _, e := range u.store.entries {
		u.savedEntries = append(u.savedEntries, copyEntry(e))
	}
	u.inTx = true
	return ctx, nil
}

func (u *memUoW) Commit(_ context.Context) error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.inTx = false
	u.savedWallets = nil
	u.savedEntries = nil
	u.txMu.Unlock()
	return nil
}

func (u *memUoW) Rollback(_ context.Context) error {
	if u.inTx {
		u.store.mu.Lock()
		u.store.wallets = u.savedWallets
		u.store.entries = u.savedEntries
		u.store.mu.Unlock()
		u.inTx = false
		u.txMu.Unlock()
	}
	if u.onRollback != nil {
		hook := u.onRollback
		u.onRollback = nil
		hook()
	}
	return nil
}

func (u *memUoW) GetWalletRepository(_ context.Context) persistence.WalletRepository {
	return &memWalletRepo{store: u.store}
}

func (u *memUoW) GetLedgerRepository(_ context.Context) persistence.LedgerRepository {
	return &memLedgerRepo{store: u.store}
}

func (u *memUoW) GetRoundRepository(_ context.Context) persistence.RoundRepository {
	return &memRoundRepo{store: u.store}
}

type memWalletRepo struct {
	store *memStore
}

func (r *memWalletRepo) GetByID(_ context.Context, id uint64) (*entity.Wallet, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w, ok := r.store.wallets[id]
	if !ok {
		return nil, errs.ErrWalletNotFound
	}
	return copyWallet(w), nil
}

func (r *memWalletRepo) GetByUserAndCurrency(_ context.Context, userID uint64, currency string) (*entity.Wallet, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, w := range r.store.wallets {
		if w.UserID == userID && w.Currency == currency {
			return copyWallet(w), nil
		}
	}
	return nil, errs.ErrUserNotFound
}

func (r *memWalletRepo) Create(_ context.Context, wallet *entity.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, w := range r.store.wallets {
		if w.UserID == wallet.UserID && w.Currency == wallet.Currency {
			return errs.ErrDuplicateTransaction
		}
	}
	r.store.nextWalletID++
	wallet.ID = r.store.nextWalletID
	r.store.wallets[wallet.ID] = copyWallet(wallet)
	return nil
}

func (r *memWalletRepo) Debit(_ context.Context, walletID uint64, amountCents int64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w, ok := r.store.wallets[walletID]
	if !ok {
		return 0, errs.ErrWalletNotFound
	}
	if w.Status != entity.WalletActive {
		return 0, errs.ErrWalletSuspended
	}
	if w.BalanceCents < amountCents {
		return 0, errs.ErrInsufficientFunds
	}
	w.BalanceCents -= amountCents
	return w.BalanceCents, nil
}

func (r *memWalletRepo) Credit(_ context.Context, walletID uint64, amountCents int64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w, ok := r.store.wallets[walletID]
	if !ok {
		return 0, errs.ErrWalletNotFound
	}
	if w.Status != entity.WalletActive {
		return 0, errs.ErrWalletSuspended
	}
	w.BalanceCents += amountCents
	return w.BalanceCents, nil
}

type memLedgerRepo struct {
	store *memStore
}

func (r *memLedgerRepo) Create(_ context.Context, entry *entity.LedgerEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.createHook != nil {
		hook := r.store.createHook
		r.store.createHook = nil
		if err := hook(entry); err != nil {
			return err
		}
	}
	// FAILED rows are outside the unique constraint
	if entry.Status != entity.EntryFailed {
		for _, e := range r.store.entries {
			if e.Reference == entry.Reference && e.Status != entity.EntryFailed {
				return errs.ErrDuplicateTransaction
			}
		}
	}
	r.store.nextEntryID++
	entry.ID = r.store.nextEntryID
	r.store.entries = append(r.store.entries, copyEntry(entry))
	return nil
}

func (r *memLedgerRepo) GetByReference(_ context.Context, reference string) (*entity.LedgerEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.entries {
		if e.Reference == reference && e.Status != entity.EntryFailed {
			return copyEntry(e), nil
		}
	}
	return nil, errs.ErrUnknownTransaction
}

func (r *memLedgerRepo) MarkReversed(_ context.Context, entry *entity.LedgerEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.entries {
		if e.Reference == entry.Reference && e.Status == entity.EntryCompleted {
			e.Status = entity.EntryReversed
			if entry.ReversedAt != nil {
				t := *entry.ReversedAt
				e.ReversedAt = &t
			}
			e.Metadata.ReversalID = entry.Metadata.ReversalID
			return nil
		}
	}
	return errs.ErrUnknownTransaction
}

func (r *memLedgerRepo) SettledNetForRound(_ context.Context, roundID string, walletID uint64) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var net int64
	for _, e := range r.store.entries {
		if e.Metadata.RoundID == roundID && e.WalletID == walletID && e.Status == entity.EntryCompleted {
			net += e.SignedCents()
		}
	}
	return net, nil
}

type memRoundRepo struct {
	store *memStore
}

func roundKey(gameRoundID string, userID uint64) string {
	return fmt.Sprintf("%s|%d", gameRoundID, userID)
}

func (r *memRoundRepo) GetByRoundAndUser(_ context.Context, gameRoundID string, userID uint64) (*entity.RoundInfo, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	round, ok := r.store.rounds[roundKey(gameRoundID, userID)]
	if !ok {
		return nil, errs.ErrRoundNotFound
	}
	cr := *round
	return &cr, nil
}

func (r *memRoundRepo) Create(_ context.Context, round *entity.RoundInfo) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := roundKey(round.GameRoundID, round.UserID)
	if _, ok := r.store.rounds[key]; ok {
		return errs.ErrDuplicateTransaction
	}
	cr := *round
	r.store.rounds[key] = &cr
	return nil
}

func (r *memRoundRepo) Update(_ context.Context, round *entity.RoundInfo) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := roundKey(round.GameRoundID, round.UserID)
	if _, ok := r.store.rounds[key]; !ok {
		return errs.ErrRoundNotFound
	}
	cr := *round
	r.store.rounds[key] = &cr
	return nil
}

func (r *memRoundRepo) RegisterRetry(_ context.Context, round *entity.RoundInfo, expectedRetryCount int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := roundKey(round.GameRoundID, round.UserID)
	existing, ok := r.store.rounds[key]
	if !ok || existing.RetryCount != expectedRetryCount {
		return errs.ErrRoundNotFound
	}
	cr := *round
	r.store.rounds[key] = &cr
	return nil
}

func (r *memRoundRepo) ListUnprocessed(_ context.Context, limit int) ([]*entity.RoundInfo, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.RoundInfo
	for _, round := range r.store.rounds {
		if round.Processed || round.NeedsReview {
			continue
		}
		cr := *round
		out = append(out, &cr)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// fakeTracker records the round reports it receives
type fakeTracker struct {
	reports []usecase.RoundReport
	err     error
}

func (f *fakeTracker) Record(_ context.Context, report usecase.RoundReport) error {
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, report)
	return nil
}

func (f *fakeTracker) Reconcile(_ context.Context, _ string, _ uint64) (usecase.ReconcileOutcome, error) {
	return usecase.ReconcileSkipped, nil
}

// fakePublisher collects ledger events
type fakePublisher struct {
	events []messaging.LedgerEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, event messaging.LedgerEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) Close() error { return nil }
