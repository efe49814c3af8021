// Package record contains the source and reconciled row types passed between
// pipeline stages, plus parsing helpers for the serialized payload fields
// carried on order rows.
package record

import (
	"time"

	"github.com/voicemetrics/callbridge/internal/domain/normalize"
)

// EmailUnknown is the sentinel written when neither source carries an email.
// A reconciled row never has an empty email.
const EmailUnknown = "NA"

// Call represents one phone-call event ingested from the voice-agent platform.
// Rows are upserted by ID on re-fetch and immutable otherwise.
type Call struct {
	ID          string    `json:"id"`
	Email       string    `json:"email,omitempty"`
	ToNumber    string    `json:"to_number"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	DurationSec float64   `json:"duration_sec"`
	Cost        float64   `json:"cost"`
	Title       string    `json:"title,omitempty"`
}

// PhoneKey returns the normalized join key for the call's destination number.
func (c Call) PhoneKey() string {
	return normalize.Phone(c.ToNumber)
}

// Order represents one purchase-order event ingested from the e-commerce
// platform. Rows are upserted by OrderNumber.
type Order struct {
	OrderNumber   string    `json:"order_number"`
	Email         string    `json:"email,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	TotalPrice    float64   `json:"total_price"`
	DiscountCodes string    `json:"discount_codes"` // serialized JSON list of {code,...}
	CustomerName  string    `json:"customer_first_name,omitempty"`
	LineItems     string    `json:"line_items"` // serialized JSON list of {title,...}
	Title         string    `json:"title,omitempty"`
	Phone         string    `json:"phone,omitempty"`
}

// PhoneKey returns the normalized join key for the order's billing phone.
func (o Order) PhoneKey() string {
	return normalize.Phone(o.Phone)
}

// CostBasisEntry maps a product title to its assumed unit cost. The table is
// externally maintained and read-only to the pipeline.
type CostBasisEntry struct {
	ProductTitle string  `json:"product_title"`
	UnitCost     float64 `json:"unit_cost"`
}

// Joined is one row of the linker output: a call and an order sharing a phone
// key, before deduplication.
type Joined struct {
	PhoneKey string
	Call     Call
	Order    Order
	// Title is the resolved product title: order-side when non-empty,
	// else call-side.
	Title string
}

// Reconciled is one row of the final reconciled dataset. After deduplication
// at most one row exists per (PhoneKey, OrderNumber, Title).
type Reconciled struct {
	PhoneKey       string    `json:"phone_key"`
	Email          string    `json:"email"`
	CallStartedAt  time.Time `json:"call_started_at"`
	DurationSec    float64   `json:"duration_sec"`
	CallCost       float64   `json:"call_cost"`
	OrderNumber    string    `json:"order_number"`
	OrderCreatedAt time.Time `json:"order_created_at"`
	TotalPrice     float64   `json:"total_price"`
	DiscountCodes  string    `json:"discount_codes"`
	CustomerName   string    `json:"customer_first_name"`
	Title          string    `json:"title"`
	Cost           float64   `json:"cost"`
}
