package suppliers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier is a fuel or goods supplier of a company.
type Supplier struct {
	ID               int64           `json:"id"`
	CompanyID        int64           `json:"company_id"`
	CompanyName      string          `json:"company_name"`
	Name             string          `json:"name"`
	ContactPerson    string          `json:"contact_person"`
	Phone            string          `json:"phone"`
	Email            string          `json:"email"`
	Address          string          `json:"address"`
	PaymentTermsDays int             `json:"payment_terms_days"`
	CreditLimit      decimal.Decimal `json:"credit_limit"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Account is the debt position of the company towards one supplier, with
// the outstanding balance split by invoice age.
type Account struct {
	SupplierID    int64           `json:"supplier_id"`
	SupplierName  string          `json:"supplier_name"`
	CompanyID     int64           `json:"company_id"`
	Balance       decimal.Decimal `json:"balance"`
	CreditLimit   decimal.Decimal `json:"credit_limit"`
	Current       decimal.Decimal `json:"current"`
	Days1To30     decimal.Decimal `json:"days_1_30"`
	Days31To60    decimal.Decimal `json:"days_31_60"`
	Days61To90    decimal.Decimal `json:"days_61_90"`
	Over90        decimal.Decimal `json:"over_90"`
	LastPaymentAt *time.Time      `json:"last_payment_at"`
}

var hundred = decimal.NewFromInt(100)

// CreditUtilisation is the balance as a percentage of the credit limit,
// 0 when no limit is set.
func (a Account) CreditUtilisation() decimal.Decimal {
	if a.CreditLimit.IsZero() {
		return decimal.Zero
	}
	return a.Balance.Div(a.CreditLimit).Mul(hundred).Round(2)
}

// OverLimit reports a balance above a set credit limit.
func (a Account) OverLimit() bool {
	return a.CreditLimit.IsPositive() && a.Balance.GreaterThan(a.CreditLimit)
}

// Overdue is the part of the balance past its first 30 days.
func (a Account) Overdue() decimal.Decimal {
	return a.Days31To60.Add(a.Days61To90).Add(a.Over90)
}

// AccountTotals sums the aging buckets over a set of accounts.
type AccountTotals struct {
	Balance     decimal.Decimal
	CreditLimit decimal.Decimal
	Current     decimal.Decimal
	Days1To30   decimal.Decimal
	Days31To60  decimal.Decimal
	Days61To90  decimal.Decimal
	Over90      decimal.Decimal
}

// CreditUtilisation mirrors Account.CreditUtilisation over the totals.
func (t AccountTotals) CreditUtilisation() decimal.Decimal {
	return Account{Balance: t.Balance, CreditLimit: t.CreditLimit}.CreditUtilisation()
}

func totalsOf(accounts []Account) AccountTotals {
	var t AccountTotals
	for _, a := range accounts {
		t.Balance = t.Balance.Add(a.Balance)
		t.CreditLimit = t.CreditLimit.Add(a.CreditLimit)
		t.Current = t.Current.Add(a.Current)
		t.Days1To30 = t.Days1To30.Add(a.Days1To30)
		t.Days31To60 = t.Days31To60.Add(a.Days31To60)
		t.Days61To90 = t.Days61To90.Add(a.Days61To90)
		t.Over90 = t.Over90.Add(a.Over90)
	}
	return t
}
