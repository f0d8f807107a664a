package core

import "sort"

// DefaultCategories returns the categories seeded into an empty store.
func DefaultCategories() []NewCategory {
	return []NewCategory{
		{Name: "Food & Dining", Color: "#ef4444", Icon: "🍔", Type: Expense},
		{Name: "Transportation", Color: "#f97316", Icon: "🚗", Type: Expense},
		{Name: "Shopping", Color: "#eab308", Icon: "🛍️", Type: Expense},
		{Name: "Entertainment", Color: "#22c55e", Icon: "🎮", Type: Expense},
		{Name: "Bills & Utilities", Color: "#3b82f6", Icon: "📱", Type: Expense},
		{Name: "Health", Color: "#a855f7", Icon: "💊", Type: Expense},
		{Name: "Education", Color: "#ec4899", Icon: "📚", Type: Expense},
		{Name: "Other", Color: "#6b7280", Icon: "📦", Type: Expense},
		{Name: "Salary", Color: "#10b981", Icon: "💰", Type: Income},
		{Name: "Freelance", Color: "#14b8a6", Icon: "💻", Type: Income},
		{Name: "Investments", Color: "#06b6d4", Icon: "📈", Type: Income},
		{Name: "Gifts", Color: "#8b5cf6", Icon: "🎁", Type: Income},
	}
}

// SortCategories orders categories by type, then name, ascending.
func SortCategories(cats []Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		if cats[i].Type != cats[j].Type {
			return cats[i].Type < cats[j].Type
		}
		return cats[i].Name < cats[j].Name
	})
}
