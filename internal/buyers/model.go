package buyers

import "time"

// Buyer is a registered customer identified at checkout.
type Buyer struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	PassportData string    `json:"passport_data"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewBuyer carries the caller-supplied fields before the backend assigns
// id and created_at.
type NewBuyer struct {
	Name         string `json:"name"`
	PassportData string `json:"passport_data"`
}
