package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a named balance holder. Balances never go below zero.
type Account struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
