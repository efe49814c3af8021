package record

import (
	"encoding/json"
	"strings"
)

// DiscountCode is one entry of an order's serialized discount_codes payload.
// Only the code matters to the pipeline; extra keys are ignored.
type DiscountCode struct {
	Code string `json:"code"`
}

// LineItem is one entry of an order's serialized line_items payload.
type LineItem struct {
	Title string `json:"title"`
}

// ParseDiscountCodes decodes a serialized discount_codes payload. Malformed
// or empty payloads yield an empty slice: a row whose discounts cannot be
// parsed is treated as carrying no coupon, never as an error.
func ParseDiscountCodes(payload string) []DiscountCode {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil
	}
	var codes []DiscountCode
	if err := json.Unmarshal([]byte(payload), &codes); err != nil {
		return nil
	}
	return codes
}

// HasCode reports whether the serialized discount_codes payload contains the
// given promotional code, compared case-insensitively.
func HasCode(payload, code string) bool {
	if code == "" {
		return false
	}
	for _, d := range ParseDiscountCodes(payload) {
		if strings.EqualFold(strings.TrimSpace(d.Code), code) {
			return true
		}
	}
	return false
}

// ParseLineItems decodes a serialized line_items payload. Malformed payloads
// yield an empty slice.
func ParseLineItems(payload string) []LineItem {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil
	}
	var items []LineItem
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil
	}
	return items
}

// FirstTitle returns the title of the first line item in the serialized
// payload, or "" when the payload is empty or unparseable.
func FirstTitle(payload string) string {
	items := ParseLineItems(payload)
	if len(items) == 0 {
		return ""
	}
	return items[0].Title
}
