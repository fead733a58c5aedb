package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType is the classification key of an Account alongside venue+owner.
type AccountType string

const (
	AccountSpot       AccountType = "spot"
	AccountMargin     AccountType = "margin"
	AccountInstrument AccountType = "instrument"
	AccountLiability  AccountType = "liability"
	AccountEquity     AccountType = "equity"
	AccountCommission AccountType = "commission"
)

// AccountOwner identifies who an account belongs to: either a strategy (for
// Instrument/position accounts) or the book itself (for Spot/Margin/Commission).
type AccountOwner struct {
	Strategy *Strategy // nil for venue-level accounts
}

// AccountKey is the tuple (venue, owner, account_type, asset/instrument)
// every Account is addressed by, per spec §4.7.
type AccountKey struct {
	Venue       uuid.UUID
	Owner       string // "" for venue-level, else strategy id string
	Type        AccountType
	AssetOrInst uuid.UUID // Asset.ID for Spot/Margin/Liability/Equity/Commission, Instrument.ID for Instrument
}

// Account holds a running signed balance. Positive is a debit-side balance
// (assets/positions); sign convention follows standard double-entry bookkeeping
// where debits increase asset-like accounts.
type Account struct {
	Key     AccountKey
	Venue   *Venue
	Asset   *Asset      // set for Spot/Margin/Liability/Equity/Commission accounts
	Instrument *Instrument // set for Instrument accounts
	Balance decimal.Decimal
}

// TransferType classifies the economic nature of a Transfer.
type TransferType string

const (
	TransferTrade         TransferType = "trade"
	TransferCommission    TransferType = "commission"
	TransferReconciliation TransferType = "reconciliation"
	TransferFunding       TransferType = "funding"
)

// TransferGroupType classifies the higher-level operation a group of
// transfers implements.
type TransferGroupType string

const (
	TransferGroupTrade          TransferGroupType = "trade"
	TransferGroupReconciliation TransferGroupType = "reconciliation"
)

// Transfer is the atomic double-entry record of spec §4.7. debit.amount must
// equal credit.amount; no transfer creates or destroys amount.
type Transfer struct {
	ID                uuid.UUID
	EventTime         time.Time
	TransferGroupID    uuid.UUID
	TransferGroupType TransferGroupType
	Type              TransferType
	DebitAccount      AccountKey
	CreditAccount     AccountKey
	Amount            decimal.Decimal
	UnitPrice         *decimal.Decimal
}
