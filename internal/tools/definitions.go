package tools

const (
	ToolAddExpenses     = "add_expenses"
	ToolGetSummary      = "get_summary"
	ToolGetExpenses     = "get_expenses"
	ToolGetCycleHistory = "get_cycle_history"
	ToolCompareCycles   = "compare_cycles"
)

func object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

// Definitions lists every tool the handler serves.
func Definitions(currency string) []Tool {
	return []Tool{
		{
			Name: ToolAddExpenses,
			Description: "Add one or more expenses extracted from a screenshot or user input. Each expense needs " +
				"amount and category id (groceries/dining/fuel/shopping/subscriptions/health/entertainment/" +
				"transport/utilities/other), and optionally a merchant name, note and date.",
			InputSchema: object(map[string]any{
				"expenses": map[string]any{
					"type": "array",
					"items": object(map[string]any{
						"amount":   prop("number", "Amount in "+currency),
						"category": prop("string", "Category id"),
						"merchant": prop("string", "Merchant/store name"),
						"note":     prop("string", "Additional note"),
						"date":     prop("string", "ISO date or timestamp (defaults to now)"),
					}, "amount", "category"),
				},
			}, "expenses"),
		},
		{
			Name: ToolGetSummary,
			Description: "Get the current billing cycle budget summary including spent amount, remaining budget, " +
				"percentage used, and daily budget.",
			InputSchema: object(map[string]any{}),
		},
		{
			Name:        ToolGetExpenses,
			Description: "Get a list of recent expenses, optionally filtered by date range. Defaults to the current billing cycle.",
			InputSchema: object(map[string]any{
				"startDate": prop("string", "Start date (ISO string)"),
				"endDate":   prop("string", "End date (ISO string)"),
				"limit":     prop("number", "Max expenses to return (default 20)"),
			}),
		},
		{
			Name:        ToolGetCycleHistory,
			Description: "Get summaries of the current billing cycle and the most recent past cycles, newest first.",
			InputSchema: object(map[string]any{
				"count": prop("number", "Number of past cycles to include"),
			}),
		},
		{
			Name: ToolCompareCycles,
			Description: "Compare two billing cycles by total, category and daily spending. Defaults to the current " +
				"cycle against the one before it.",
			InputSchema: object(map[string]any{
				"cycleId":     prop("string", "Cycle id (YYYY-MM-DD start date); defaults to the current cycle"),
				"compareWith": prop("string", "Cycle id to compare against; defaults to the preceding cycle"),
			}),
		},
	}
}
