package onboarding

import (
	"github.com/shopspring/decimal"
)

// DefaultCategories is the category list a new budget starts with.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Groceries", Amount: decimal.Zero, Color: "#10B981"},
		{Name: "Fuel/Transport", Amount: decimal.Zero, Color: "#3B82F6"},
		{Name: "Bills & Utilities", Amount: decimal.Zero, Color: "#F59E0B"},
		{Name: "Food & Dining", Amount: decimal.Zero, Color: "#EC4899"},
		{Name: "Shopping", Amount: decimal.Zero, Color: "#8B5CF6"},
		{Name: "Entertainment", Amount: decimal.Zero, Color: "#F97316"},
		{Name: "Healthcare", Amount: decimal.Zero, Color: "#EF4444"},
		{Name: "Education", Amount: decimal.Zero, Color: "#6366F1"},
		{Name: "Others", Amount: decimal.Zero, Color: "#9CA3AF"},
	}
}

func (b Budget) Total() decimal.Decimal {
	if !b.TotalBudget.Valid {
		return decimal.Zero
	}
	return b.TotalBudget.Decimal
}

func (b Budget) Allocated() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range b.Categories {
		sum = sum.Add(c.Amount)
	}
	return sum
}

// Remaining is negative when more than the total is allocated.
func (b Budget) Remaining() decimal.Decimal {
	return b.Total().Sub(b.Allocated())
}

// Exceeded returns the overage when the categories add up to more than the total.
func (b Budget) Exceeded() (decimal.Decimal, bool) {
	remaining := b.Remaining()
	if remaining.IsNegative() {
		return remaining.Neg(), true
	}
	return decimal.Zero, false
}

// ConfiguredCategories sums category amounts by name, keeping only positive totals.
func (b Budget) ConfiguredCategories() map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal)
	for _, c := range b.Categories {
		if !c.Amount.IsPositive() {
			continue
		}
		if existing, ok := result[c.Name]; ok {
			result[c.Name] = existing.Add(c.Amount)
		} else {
			result[c.Name] = c.Amount
		}
	}
	return result
}
