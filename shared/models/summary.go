package models

import "github.com/shopspring/decimal"

// TransactionSummary aggregates a set of transactions. ByCategory holds the signed
// net per category: income adds, expense subtracts.
type TransactionSummary struct {
	Income     decimal.Decimal            `json:"income"`
	Expense    decimal.Decimal            `json:"expense"`
	Net        decimal.Decimal            `json:"net"`
	Count      int                        `json:"count"`
	ByCategory map[string]decimal.Decimal `json:"by_category"`
}

func Summarize(records []TransactionRecord) TransactionSummary {
	s := TransactionSummary{
		Income:     decimal.Zero,
		Expense:    decimal.Zero,
		ByCategory: make(map[string]decimal.Decimal),
	}
	for _, r := range records {
		amount := decimal.NewFromFloat(r.Amount)
		switch r.Type {
		case TransactionTypeIncome:
			s.Income = s.Income.Add(amount)
			s.ByCategory[r.Category] = s.ByCategory[r.Category].Add(amount)
		case TransactionTypeExpense:
			s.Expense = s.Expense.Add(amount)
			s.ByCategory[r.Category] = s.ByCategory[r.Category].Sub(amount)
		default:
			continue
		}
		s.Count++
	}
	s.Net = s.Income.Sub(s.Expense)
	return s
}
