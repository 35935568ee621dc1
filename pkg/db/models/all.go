package models

// All lists every table owned by the service, in dependency order.
func All() []any {
	return []any{
		&Shop{},
		&Order{},
		&SellerBalance{},
		&Settlement{},
		&OrderSettlement{},
		&OrderEarning{},
		&BalanceLedgerEntry{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
