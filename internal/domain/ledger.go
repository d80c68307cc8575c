package domain

import (
	"fmt"
	"strings"
	"time"
)

type EntryID string
type ReservationID string

type EntryReason string

const (
	ReasonSpend    EntryReason = "spend"
	ReasonEarn     EntryReason = "earn"
	ReasonPurchase EntryReason = "purchase"
	ReasonStake    EntryReason = "stake"
	ReasonUnstake  EntryReason = "unstake"
	ReasonRefund   EntryReason = "refund"
	ReasonGrant    EntryReason = "grant"
)

func (r EntryReason) Known() bool {
	switch r {
	case ReasonSpend, ReasonEarn, ReasonPurchase, ReasonStake, ReasonUnstake, ReasonRefund, ReasonGrant:
		return true
	default:
		return false
	}
}

// LedgerEntry is one signed balance movement. The account balance is always the
// sum of its entries; it is a materialized view, never the source of truth.
type LedgerEntry struct {
	ID        EntryID
	Account   AccountID
	Delta     int64
	Reason    EntryReason
	Turn      TurnID
	Timestamp time.Time
}

func (e LedgerEntry) Validate() error {
	if strings.TrimSpace(string(e.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(string(e.Account)) == "" {
		return fmt.Errorf("account is required")
	}
	if !e.Reason.Known() {
		return fmt.Errorf("unknown entry reason %q", e.Reason)
	}
	if e.Delta == 0 {
		return fmt.Errorf("delta must not be zero")
	}
	if e.Reason == ReasonSpend || e.Reason == ReasonStake {
		if e.Delta > 0 {
			return fmt.Errorf("%s entries must carry a negative delta", e.Reason)
		}
	} else if e.Delta < 0 {
		return fmt.Errorf("%s entries must carry a positive delta", e.Reason)
	}

	return nil
}

// BalanceOf materializes an account balance from its entries.
func BalanceOf(entries []LedgerEntry) int64 {
	var balance int64
	for _, entry := range entries {
		balance += entry.Delta
	}
	return balance
}

// Reservation holds estimated tokens against an account between authorize and
// commit/release. Reservations are not entries and never persist.
type Reservation struct {
	ID        ReservationID
	Account   AccountID
	Estimate  int64
	CreatedAt time.Time
}
