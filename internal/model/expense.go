package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

var (
	ErrInvalidAmount = errors.New("amount must be a non-negative number")
	ErrInvalidDate   = errors.New("date must be YYYY-MM-DD or an RFC 3339 timestamp")
)

// maxAmount keeps cents well inside int64 and float64 exact range.
const maxAmount Amount = 1_000_000_000_000_00

// Amount is a monetary value in cents. On the wire it is a decimal number
// with two fraction digits.
type Amount int64

// Cents returns the raw value.
func (a Amount) Cents() int64 { return int64(a) }

func (a Amount) String() string {
	return fmt.Sprintf("%d.%02d", a/100, a%100)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string, rounding to the
// nearest cent.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 1 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return ErrInvalidAmount
		}
		data = []byte(s)
	}

	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAmount converts a decimal string to an Amount.
func ParseAmount(s string) (Amount, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f*100 > float64(maxAmount) {
		return 0, ErrInvalidAmount
	}
	return Amount(math.Round(f * 100)), nil
}

// Date is a request-side calendar value. Dates without a time are midnight UTC.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidDate
	}

	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// dateLayouts are tried in order. Layouts without an offset read as UTC.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseDate accepts YYYY-MM-DD, RFC 3339, or a datetime without an offset,
// and returns UTC.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// Expense is a spending record owned by exactly one user.
type Expense struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      Amount    `json:"amount"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	Notes       string    `json:"notes"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateExpenseRequest represents a create payload. Pointer fields tell
// missing values apart from zero values; any owner field is ignored.
type CreateExpenseRequest struct {
	Description *string `json:"description"`
	Amount      *Amount `json:"amount"`
	Category    *string `json:"category"`
	Date        *Date   `json:"date"`
	Notes       *string `json:"notes"`
}

// UpdateExpenseRequest represents a partial update. Omitted and null fields
// are left untouched.
type UpdateExpenseRequest struct {
	Description *string `json:"description"`
	Amount      *Amount `json:"amount"`
	Category    *string `json:"category"`
	Date        *Date   `json:"date"`
	Notes       *string `json:"notes"`
}

// ExpensePatch is the validated set of fields an update applies.
type ExpensePatch struct {
	Description *string
	Amount      *Amount
	Category    *string
	Date        *time.Time
	Notes       *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ExpensePatch) IsEmpty() bool {
	return p.Description == nil && p.Amount == nil && p.Category == nil && p.Date == nil && p.Notes == nil
}

// Apply copies the patched fields onto e.
func (p ExpensePatch) Apply(e *Expense) {
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
}
