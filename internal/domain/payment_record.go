package domain

import "time"

type PaymentOutcome string

const (
	PaymentSucceeded PaymentOutcome = "succeeded"
	PaymentFailed    PaymentOutcome = "failed"
)

// PaymentRecord captures the result of one gateway interaction for a
// reservation. A reservation may accumulate several failed records across
// retries but at most one succeeded record ever exists.
type PaymentRecord struct {
	ID            int64          `gorm:"primaryKey" json:"id"`
	ReservationID int64          `gorm:"index;not null" json:"reservation_id"`
	Amount        float64        `gorm:"not null" json:"amount"`
	Currency      string         `gorm:"type:varchar(8);not null" json:"currency"`
	GatewayTxnID  string         `gorm:"type:varchar(64)" json:"gateway_txn_id"`
	Outcome       PaymentOutcome `gorm:"type:varchar(16);index" json:"outcome"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (PaymentRecord) TableName() string { return "payment_records" }
