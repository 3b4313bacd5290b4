package client

import (
	"sort"

	"github.com/spendlog/spendlog-go/internal/model"
)

// Summary is the dashboard arithmetic over a list of expenses.
type Summary struct {
	Count      int
	Total      model.Amount
	Average    model.Amount // rounded to the nearest cent
	Highest    model.Amount
	ByCategory []CategoryTotal // largest total first
}

// CategoryTotal is the spend within one category.
type CategoryTotal struct {
	Category string
	Total    model.Amount
}

// Summarize totals expenses overall and per category.
func Summarize(expenses []model.Expense) Summary {
	s := Summary{Count: len(expenses)}
	if s.Count == 0 {
		return s
	}

	byCategory := make(map[string]model.Amount)
	for _, e := range expenses {
		s.Total += e.Amount
		if e.Amount > s.Highest {
			s.Highest = e.Amount
		}
		byCategory[e.Category] += e.Amount
	}
	s.Average = (s.Total + model.Amount(s.Count/2)) / model.Amount(s.Count)

	for category, total := range byCategory {
		s.ByCategory = append(s.ByCategory, CategoryTotal{Category: category, Total: total})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if s.ByCategory[i].Total != s.ByCategory[j].Total {
			return s.ByCategory[i].Total > s.ByCategory[j].Total
		}
		return s.ByCategory[i].Category < s.ByCategory[j].Category
	})
	return s
}

// FilterCategory keeps the expenses in category. An empty category or
// "All" keeps everything.
func FilterCategory(expenses []model.Expense, category string) []model.Expense {
	if category == "" || category == "All" {
		return expenses
	}
	out := make([]model.Expense, 0, len(expenses))
	for _, e := range expenses {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}
