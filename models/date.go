package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Date is a calendar date rendered as YYYY-MM-DD. Drivers decode DATE
// columns into time.Time; Scan folds that back to the ISO form.
type Date string

// DateOf returns the calendar date of t in UTC.
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format(time.DateOnly))
}

func (d Date) String() string { return string(d) }

// Value writes the ISO string so text comparisons against YYYY-MM-DD bounds hold.
func (d Date) Value() (driver.Value, error) {
	return string(d), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = Date(v.Format(time.DateOnly))
	case string:
		*d = dateText(v)
	case []byte:
		*d = dateText(string(v))
	default:
		return fmt.Errorf("models: cannot scan %T into Date", src)
	}
	return nil
}

// dateText keeps the date part of "2025-03-22", "2025-03-22 00:00:00" or
// "2025-03-22T00:00:00Z".
func dateText(s string) Date {
	if len(s) > len(time.DateOnly) {
		s = s[:len(time.DateOnly)]
	}
	return Date(s)
}
