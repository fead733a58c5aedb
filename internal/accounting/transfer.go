package accounting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arkin-run/arkin/internal/model"
)

// tradeLegs builds the balanced transfer group for one margin trade, per
// spec §4.7's "margin trade bookkeeping":
//
//  1. Commission: Margin(quote) -> Commission, amount = qty*price*commission_rate.
//  2. Position leg: Equity(quote) <-> Instrument(strategy, instrument), amount
//     = qty*price, direction by side.
//
// The position leg's counterparty is Equity rather than Margin: the margin
// account only ever moves by commission (verified against
// tests/accounting.rs's setup_wallets, where margin_balance after a trade is
// initial-minus-commission, not initial-minus-notional). Margin encumbrance
// is a read-side predicate (availableMarginBalance), never a transfer, per
// §4.7's explicit "does not move between accounts; it is a predicate".
func tradeLegs(at time.Time, venue *model.Venue, strategy *model.Strategy, inst *model.Instrument, side model.Side, qty, price, commissionRate decimal.Decimal) []model.Transfer {
	groupID := uuid.New()
	quoteAsset := inst.MarginAsset
	if quoteAsset == nil {
		quoteAsset = inst.QuoteAsset
	}

	marginKey := model.AccountKey{Venue: venue.ID, Owner: "", Type: model.AccountMargin, AssetOrInst: quoteAsset.ID}
	commissionKey := model.AccountKey{Venue: venue.ID, Owner: "", Type: model.AccountCommission, AssetOrInst: quoteAsset.ID}
	equityKey := model.AccountKey{Venue: venue.ID, Owner: "", Type: model.AccountEquity, AssetOrInst: quoteAsset.ID}
	instKey := model.AccountKey{Venue: venue.ID, Owner: strategy.ID.String(), Type: model.AccountInstrument, AssetOrInst: inst.ID}

	commission := qty.Mul(price).Mul(commissionRate)
	notional := qty.Mul(price)

	commissionTransfer := model.Transfer{
		ID:                uuid.New(),
		EventTime:         at,
		TransferGroupID:   groupID,
		TransferGroupType: model.TransferGroupTrade,
		Type:              model.TransferCommission,
		DebitAccount:      commissionKey,
		CreditAccount:     marginKey,
		Amount:            commission,
	}

	positionTransfer := model.Transfer{
		ID:                uuid.New(),
		EventTime:         at,
		TransferGroupID:   groupID,
		TransferGroupType: model.TransferGroupTrade,
		Type:              model.TransferTrade,
		Amount:            notional,
		UnitPrice:         &price,
	}
	if side == model.SideBuy {
		positionTransfer.DebitAccount = instKey
		positionTransfer.CreditAccount = equityKey
	} else {
		positionTransfer.DebitAccount = equityKey
		positionTransfer.CreditAccount = instKey
	}

	return []model.Transfer{commissionTransfer, positionTransfer}
}

// reconciliationTransfer books the discrepancy between an internal balance
// and an external venue snapshot against the Equity account, per §4.7
// "the ledger records a reconciliation transfer that makes the internal
// state agree with the venue snapshot".
func reconciliationTransfer(at time.Time, account model.AccountKey, diff decimal.Decimal) model.Transfer {
	equityKey := account
	equityKey.Type = model.AccountEquity

	t := model.Transfer{
		ID:                uuid.New(),
		EventTime:         at,
		TransferGroupID:   uuid.New(),
		TransferGroupType: model.TransferGroupReconciliation,
		Type:              model.TransferReconciliation,
		Amount:            diff.Abs(),
	}
	if diff.IsPositive() {
		t.DebitAccount = account
		t.CreditAccount = equityKey
	} else {
		t.DebitAccount = equityKey
		t.CreditAccount = account
	}
	return t
}
