package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocType tags the kind of source document a ledger entry belongs to.
type DocType string

const (
	DocTypeSale           DocType = "sale"
	DocTypePurchase       DocType = "purchase"
	DocTypeSaleReturn     DocType = "sale_return"
	DocTypePurchaseReturn DocType = "purchase_return"
	DocTypePayment        DocType = "payment"
)

// SourceRef identifies the document that produced a ledger entry.
// It replaces a generic foreign key with an explicit tagged pair.
type SourceRef struct {
	DocType DocType `json:"doc_type"`
	DocID   int64   `json:"doc_id"`
}

// TxnType enumerates business transaction types.
type TxnType string

const (
	TxnOpeningBalance  TxnType = "opening_balance"
	TxnSale            TxnType = "sale"
	TxnPurchase        TxnType = "purchase"
	TxnSaleReturn      TxnType = "sale_return"
	TxnPurchaseReturn  TxnType = "purchase_return"
	TxnPaymentReceived TxnType = "payment_received"
	TxnPaymentMade     TxnType = "payment_made"
	TxnRefund          TxnType = "refund"
	TxnWithdraw        TxnType = "withdraw"
	TxnAdjustment      TxnType = "adjustment"
)

// Account names the ledger account a row is posted against. Party rows carry
// the party receivable/payable position; counter rows balance the pair.
type Account string

const (
	AccountParty       Account = "party"
	AccountSales       Account = "sales"
	AccountPurchases   Account = "purchases"
	AccountCash        Account = "cash"
	AccountAdjustments Account = "adjustments"
)

// Side selects which column of a pair the party row occupies.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Entry is one immutable debit-or-credit row. Exactly one of Debit/Credit is
// nonzero; entries are only ever removed in bulk by source document.
type Entry struct {
	ID          int64           `json:"id"`
	CompanyID   int64           `json:"company_id"`
	PartyID     *int64          `json:"party_id,omitempty"`
	Account     Account         `json:"account"`
	Source      *SourceRef      `json:"source,omitempty"`
	Date        time.Time       `json:"date"`
	TxnID       string          `json:"txn_id"`
	TxnType     TxnType         `json:"txn_type"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	CreatedAt   time.Time       `json:"created_at"`
}

// EntryInput carries the fields for posting a single row.
type EntryInput struct {
	CompanyID   int64
	PartyID     *int64
	Account     Account
	Source      *SourceRef
	Date        time.Time
	TxnID       string
	TxnType     TxnType
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// PairInput describes one balanced transaction: a party row on PartySide and
// a counter row of the same amount on the opposite side.
type PairInput struct {
	CompanyID      int64
	PartyID        int64
	Source         *SourceRef
	Date           time.Time
	TxnID          string
	TxnType        TxnType
	Description    string
	Amount         decimal.Decimal
	PartySide      Side
	CounterAccount Account
}

// PartySums aggregates a party's ledger activity in a company.
type PartySums struct {
	Debit      decimal.Decimal
	Credit     decimal.Decimal
	HasOpening bool
}

// ListFilter narrows statement listings.
type ListFilter struct {
	CompanyID int64
	PartyID   int64
	TxnType   TxnType
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
