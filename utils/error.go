package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrorSequenceExhausted means the counter UPDATE matched no category row:
// the category vanished between lookup and increment.
var ErrorSequenceExhausted = errors.New("part number sequence update affected no rows")

// InsufficientStockError is returned when a usage registration (or a quantity
// increase) would push a part's balance negative.
type InsufficientStockError struct {
	PartNumber string
	Current    int
	Requested  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: have %d, need %d", e.PartNumber, e.Current, e.Requested)
}

// SlotConflictError names the part already occupying a cabinet coordinate.
type SlotConflictError struct {
	Column             string
	Row                int
	OccupantPartNumber string
	OccupantPartName   string
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("cabinet slot %s-%d is already occupied by part %s (%s)",
		e.Column, e.Row, e.OccupantPartNumber, e.OccupantPartName)
}

// InvalidLocationError is returned for cabinet codes outside A..AA / 1..32 or
// not matching the A-1 form.
type InvalidLocationError struct {
	Input string
}

func (e *InvalidLocationError) Error() string {
	return fmt.Sprintf("cabinet location must be A~AA, 1~32 in A-1 form, got: %s", e.Input)
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
