package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/bnema/prometheus-orchestrator/internal/domain"
	"github.com/bnema/prometheus-orchestrator/internal/ports"
)

// DefaultOverageFactor bounds how far an actual cost may exceed its authorized
// estimate before the commit is refused.
const DefaultOverageFactor = 1.2

type LedgerConfig struct {
	OverageFactor float64
}

func (c LedgerConfig) overageFactor() float64 {
	if c.OverageFactor <= 1 {
		return DefaultOverageFactor
	}
	return c.OverageFactor
}

// LedgerService authorizes, commits, releases and credits token movements.
// All operations on one account serialize around its lock so that concurrent
// authorize calls can never jointly overdraw the balance.
type LedgerService struct {
	accounts ports.AccountRepository
	entries  ports.LedgerRepository
	clock    ports.Clock
	config   LedgerConfig

	mu           sync.Mutex
	accountLocks map[domain.AccountID]*sync.Mutex
	reservations map[domain.ReservationID]domain.Reservation
	outstanding  map[domain.AccountID]int64
}

func NewLedgerService(accounts ports.AccountRepository, entries ports.LedgerRepository, clock ports.Clock, config LedgerConfig) *LedgerService {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &LedgerService{
		accounts:     accounts,
		entries:      entries,
		clock:        clock,
		config:       config,
		accountLocks: map[domain.AccountID]*sync.Mutex{},
		reservations: map[domain.ReservationID]domain.Reservation{},
		outstanding:  map[domain.AccountID]int64{},
	}
}

// Authorize reserves estimate tokens against the account's available balance.
// Available balance is the materialized balance minus every outstanding
// reservation, so two concurrent authorizations cannot both fit into funds
// that only cover one.
func (s *LedgerService) Authorize(ctx context.Context, account domain.AccountID, estimate int64) (domain.Reservation, error) {
	if estimate <= 0 {
		return domain.Reservation{}, fmt.Errorf("estimate must be positive, got %d", estimate)
	}
	if _, err := s.accounts.GetByID(ctx, account); err != nil {
		return domain.Reservation{}, fmt.Errorf("get account by id: %w", err)
	}

	lock := s.lockForAccount(account)
	lock.Lock()
	defer lock.Unlock()

	balance, err := s.balanceLocked(ctx, account)
	if err != nil {
		return domain.Reservation{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if balance-s.outstanding[account] < estimate {
		return domain.Reservation{}, domain.ErrInsufficientBalance
	}

	reservation := domain.Reservation{
		ID:        domain.ReservationID(uuid.NewString()),
		Account:   account,
		Estimate:  estimate,
		CreatedAt: s.clock.Now(),
	}
	s.reservations[reservation.ID] = reservation
	s.outstanding[account] += estimate

	return reservation, nil
}

// Commit converts a reservation into a permanent spend entry at the actual
// cost. Actual may differ from the estimate: shortfall returns to the
// available balance, and overage is honored only up to the configured bound
// and never past a zero balance.
func (s *LedgerService) Commit(ctx context.Context, id domain.ReservationID, actual int64, turn domain.TurnID) (domain.LedgerEntry, error) {
	if actual < 0 {
		return domain.LedgerEntry{}, fmt.Errorf("actual cost must not be negative, got %d", actual)
	}

	s.mu.Lock()
	reservation, ok := s.reservations[id]
	s.mu.Unlock()
	if !ok {
		return domain.LedgerEntry{}, domain.ErrReservationNotFound
	}

	bound := int64(float64(reservation.Estimate) * s.config.overageFactor())
	if actual > bound {
		// Reservation stays alive so the caller can release it explicitly.
		return domain.LedgerEntry{}, fmt.Errorf("actual %d over estimate %d: %w", actual, reservation.Estimate, domain.ErrOverageExceeded)
	}

	lock := s.lockForAccount(reservation.Account)
	lock.Lock()
	defer lock.Unlock()

	balance, err := s.balanceLocked(ctx, reservation.Account)
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	s.mu.Lock()
	otherOutstanding := s.outstanding[reservation.Account] - reservation.Estimate
	s.mu.Unlock()

	// Clamp so that the balance, net of every other reservation, never goes
	// below zero even when actual exceeds the estimate.
	charge := actual
	if allowed := balance - otherOutstanding; charge > allowed {
		charge = allowed
	}

	var entry domain.LedgerEntry
	if charge > 0 {
		entry = domain.LedgerEntry{
			ID:        domain.EntryID(uuid.NewString()),
			Account:   reservation.Account,
			Delta:     -charge,
			Reason:    domain.ReasonSpend,
			Turn:      turn,
			Timestamp: s.clock.Now(),
		}
		if err := entry.Validate(); err != nil {
			return domain.LedgerEntry{}, fmt.Errorf("build spend entry: %w", err)
		}
		if err := s.entries.Append(ctx, entry); err != nil {
			return domain.LedgerEntry{}, fmt.Errorf("append spend entry: %w", err)
		}
	}

	s.mu.Lock()
	delete(s.reservations, id)
	s.outstanding[reservation.Account] -= reservation.Estimate
	s.mu.Unlock()

	return entry, nil
}

// Release voids a reservation without charging. Releasing an unknown or
// already-settled reservation is a no-op.
func (s *LedgerService) Release(ctx context.Context, id domain.ReservationID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return nil
	}

	delete(s.reservations, id)
	s.outstanding[reservation.Account] -= reservation.Estimate

	return nil
}

// Credit appends a positive entry (purchase, earn, grant, refund). Spend and
// stake movements have dedicated operations and are rejected here.
func (s *LedgerService) Credit(ctx context.Context, account domain.AccountID, amount int64, reason domain.EntryReason) (domain.LedgerEntry, error) {
	switch reason {
	case domain.ReasonSpend, domain.ReasonStake, domain.ReasonUnstake:
		return domain.LedgerEntry{}, fmt.Errorf("reason %s is not a credit", reason)
	}
	if _, err := s.accounts.GetByID(ctx, account); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("get account by id: %w", err)
	}

	lock := s.lockForAccount(account)
	lock.Lock()
	defer lock.Unlock()

	entry := domain.LedgerEntry{
		ID:        domain.EntryID(uuid.NewString()),
		Account:   account,
		Delta:     amount,
		Reason:    reason,
		Timestamp: s.clock.Now(),
	}
	if err := entry.Validate(); err != nil {
		return domain.LedgerEntry{}, err
	}

	if err := s.entries.Append(ctx, entry); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("append credit entry: %w", err)
	}

	return entry, nil
}

// Stake moves tokens out of the spendable balance. The debit passes the same
// available-balance check as an authorize, so staking can never cut into
// funds already reserved for in-flight turns.
func (s *LedgerService) Stake(ctx context.Context, account domain.AccountID, amount int64) (domain.LedgerEntry, error) {
	if amount <= 0 {
		return domain.LedgerEntry{}, fmt.Errorf("stake amount must be positive, got %d", amount)
	}
	if _, err := s.accounts.GetByID(ctx, account); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("get account by id: %w", err)
	}

	lock := s.lockForAccount(account)
	lock.Lock()
	defer lock.Unlock()

	balance, err := s.balanceLocked(ctx, account)
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	s.mu.Lock()
	available := balance - s.outstanding[account]
	s.mu.Unlock()

	if available < amount {
		return domain.LedgerEntry{}, domain.ErrInsufficientBalance
	}

	entry := domain.LedgerEntry{
		ID:        domain.EntryID(uuid.NewString()),
		Account:   account,
		Delta:     -amount,
		Reason:    domain.ReasonStake,
		Timestamp: s.clock.Now(),
	}
	if err := entry.Validate(); err != nil {
		return domain.LedgerEntry{}, err
	}
	if err := s.entries.Append(ctx, entry); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("append stake entry: %w", err)
	}

	return entry, nil
}

// Unstake returns staked tokens to the spendable balance, never more than the
// account's net staked amount.
func (s *LedgerService) Unstake(ctx context.Context, account domain.AccountID, amount int64) (domain.LedgerEntry, error) {
	if amount <= 0 {
		return domain.LedgerEntry{}, fmt.Errorf("unstake amount must be positive, got %d", amount)
	}
	if _, err := s.accounts.GetByID(ctx, account); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("get account by id: %w", err)
	}

	lock := s.lockForAccount(account)
	lock.Lock()
	defer lock.Unlock()

	staked, err := s.stakedLocked(ctx, account)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	if staked < amount {
		return domain.LedgerEntry{}, fmt.Errorf("unstake %d exceeds staked balance %d", amount, staked)
	}

	entry := domain.LedgerEntry{
		ID:        domain.EntryID(uuid.NewString()),
		Account:   account,
		Delta:     amount,
		Reason:    domain.ReasonUnstake,
		Timestamp: s.clock.Now(),
	}
	if err := entry.Validate(); err != nil {
		return domain.LedgerEntry{}, err
	}
	if err := s.entries.Append(ctx, entry); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("append unstake entry: %w", err)
	}

	return entry, nil
}

// Staked is the account's net staked amount: stake debits minus unstake
// credits.
func (s *LedgerService) Staked(ctx context.Context, account domain.AccountID) (int64, error) {
	lock := s.lockForAccount(account)
	lock.Lock()
	defer lock.Unlock()

	return s.stakedLocked(ctx, account)
}

// Balance materializes the account balance from its entries.
func (s *LedgerService) Balance(ctx context.Context, account domain.AccountID) (int64, error) {
	lock := s.lockForAccount(account)
	lock.Lock()
	defer lock.Unlock()

	return s.balanceLocked(ctx, account)
}

// Available is the balance minus outstanding reservations.
func (s *LedgerService) Available(ctx context.Context, account domain.AccountID) (int64, error) {
	lock := s.lockForAccount(account)
	lock.Lock()
	defer lock.Unlock()

	balance, err := s.balanceLocked(ctx, account)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return balance - s.outstanding[account], nil
}

func (s *LedgerService) History(ctx context.Context, account domain.AccountID) ([]domain.LedgerEntry, error) {
	entries, err := s.entries.ListByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	return entries, nil
}

func (s *LedgerService) balanceLocked(ctx context.Context, account domain.AccountID) (int64, error) {
	entries, err := s.entries.ListByAccount(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("list ledger entries: %w", err)
	}

	return domain.BalanceOf(entries), nil
}

func (s *LedgerService) stakedLocked(ctx context.Context, account domain.AccountID) (int64, error) {
	entries, err := s.entries.ListByAccount(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("list ledger entries: %w", err)
	}

	var staked int64
	for _, entry := range entries {
		switch entry.Reason {
		case domain.ReasonStake, domain.ReasonUnstake:
			// Stake deltas are negative, unstake positive; the net staked
			// pool is the inverse of their sum.
			staked -= entry.Delta
		}
	}

	return staked, nil
}

func (s *LedgerService) lockForAccount(account domain.AccountID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lock, ok := s.accountLocks[account]; ok {
		return lock
	}

	lock := &sync.Mutex{}
	s.accountLocks[account] = lock
	return lock
}
