/*
Package generic provides the core ledger engine shared by every domain package.

PURPOSE:
  This package contains domain-agnostic types and algorithms for keeping
  money balances on an append-only ledger. Whether tracking what a collector
  owes the institution, a shortfall debt, or an accrued remuneration, the same
  engine handles amounts, transaction logging, and balance replay.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A decimal quantity with a currency (e.g., 2 004 900 XAF)
  - Transaction: An immutable ledger entry recording a balance change
  - EntityID/AccountID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified, only reversed
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing entity/account IDs
  4. Auditability: Every transaction has reason, reference, and idempotency key

USAGE:
  amount := generic.NewAmountFromInt(100000, generic.CurrencyXAF)
  tx := generic.Transaction{
      EntityID:  "col-12",
      AccountID: "SERVICE",
      Delta:     amount.Neg(),
      Type:      generic.TxCollection,
  }

SEE ALSO:
  - ledger.go: Transaction persistence interface and balance replay
  - store.go: Persistence contracts
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Decimal quantity with currency
// =============================================================================

type Amount struct {
	Value    decimal.Decimal
	Currency Currency
}

type Currency string

const (
	// CurrencyXAF is the Central African CFA franc (FCFA).
	CurrencyXAF Currency = "XAF"
)

// DefaultCurrency is used when an amount is built without an explicit currency.
const DefaultCurrency = CurrencyXAF

func NewAmount(value decimal.Decimal, currency Currency) Amount {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Amount{Value: value, Currency: currency}
}

func NewAmountFromInt(value int64, currency Currency) Amount {
	return NewAmount(decimal.NewFromInt(value), currency)
}

// ParseAmount parses a decimal string such as "2004900" or "1500.50".
func ParseAmount(s string, currency Currency) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return NewAmount(d, currency), nil
}

// MustAmount is ParseAmount for literals known to be valid. Panics otherwise.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s, DefaultCurrency)
	if err != nil {
		panic(err)
	}
	return a
}

// MustParseDecimal parses a decimal literal known to be valid. Panics otherwise.
func MustParseDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Currency: a.Currency} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Currency: a.currency(b)} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Currency: a.currency(b)} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Currency: a.Currency} }
func (a Amount) Div(s decimal.Decimal) Amount { return Amount{Value: a.Value.Div(s), Currency: a.Currency} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Currency: a.Currency} }
func (a Amount) Abs() Amount                  { return Amount{Value: a.Value.Abs(), Currency: a.Currency} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) Cmp(b Amount) int             { return a.Value.Cmp(b.Value) }
func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}
func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// String formats the amount with two decimals, e.g. "100000.00 XAF".
func (a Amount) String() string {
	return a.Value.StringFixed(2) + " " + string(a.currencyOrDefault())
}

func (a Amount) currency(b Amount) Currency {
	if a.Currency != "" {
		return a.Currency
	}
	return b.Currency
}

func (a Amount) currencyOrDefault() Currency {
	if a.Currency == "" {
		return DefaultCurrency
	}
	return a.Currency
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntityID string
type AccountID string
type TransactionID string

// =============================================================================
// TRANSACTION - Atomic change to an account balance
// =============================================================================

type TransactionType string

const (
	TxCollection TransactionType = "collection" // Cash collected from a client (EPARGNE) or paid out (RETRAIT)
	TxRemittance TransactionType = "remittance" // End-of-day versement closing the SERVICE account
	TxShortfall  TransactionType = "shortfall"  // Cash remitted below what was owed
	TxSurplus    TransactionType = "surplus"    // Cash remitted above what was owed
	TxRepayment  TransactionType = "repayment"  // Collector repays an outstanding shortfall
	TxCommission TransactionType = "commission" // Collector share of a period's commission
)

type Transaction struct {
	ID             TransactionID
	EntityID       EntityID
	AccountID      AccountID
	EffectiveAt    TimePoint
	Delta          Amount
	Type           TransactionType
	ReferenceID    string
	Reason         string
	IdempotencyKey string
	Metadata       map[string]string

	// Audit fields
	CreatedBy     string // Actor who created this transaction
	CreatedByType string // "collecteur", "admin", "system"
	CreatedAt     TimePoint
}
