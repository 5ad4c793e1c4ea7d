package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Coupon is a read-only discount code. Number is the code the user types.
type Coupon struct {
	bun.BaseModel `bun:"table:codes"`

	Number   string    `bun:"number,pk" json:"number"`
	Percent  float64   `bun:"percent,notnull" json:"percent"`
	Status   string    `bun:"status,notnull" json:"status"`
	ExpireAt time.Time `bun:"expire_at,notnull" json:"expireAt"`
}

const CouponStatusActive = "active"
