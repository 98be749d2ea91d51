package models_test

import (
	"errors"
	"testing"

	"bitbucket.org/partsadmin/parts_backend/models"
	"bitbucket.org/partsadmin/parts_backend/utils"
)

func TestNormalizeCabinetLocation(t *testing.T) {
	cases := []struct {
		in      string
		col     string
		row     int
		wantErr bool
	}{
		{"A-1", "A", 1, false},
		{"a-1", "A", 1, false},
		{"A2", "A", 2, false},
		{"a2", "A", 2, false},
		{" b-12 ", "B", 12, false},
		{"Z-32", "Z", 32, false},
		{"AA-1", "AA", 1, false},
		{"AA32", "AA", 32, false},
		{"AB-1", "", 0, true},   // only AA is valid among two-letter columns
		{"A-0", "", 0, true},
		{"A-33", "", 0, true},
		{"A-123", "", 0, true},
		{"1-A", "", 0, true},
		{"", "", 0, true},
		{"shelf 3", "", 0, true},
	}

	for _, tc := range cases {
		col, row, err := models.NormalizeCabinetLocation(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("NormalizeCabinetLocation(%q) = %s-%d, want error", tc.in, col, row)
				continue
			}
			var locErr *utils.InvalidLocationError
			if !errors.As(err, &locErr) {
				t.Errorf("NormalizeCabinetLocation(%q) error type = %T, want InvalidLocationError", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeCabinetLocation(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if col != tc.col || row != tc.row {
			t.Errorf("NormalizeCabinetLocation(%q) = %s-%d, want %s-%d", tc.in, col, row, tc.col, tc.row)
		}
	}
}

func TestFormatPartNumber(t *testing.T) {
	cases := []struct {
		code string
		n    int64
		want string
	}{
		{"E", 1, "E-0001"},
		{"E", 42, "E-0042"},
		{"MC", 999, "MC-0999"},
		{"E", 10000, "E-10000"}, // width grows past four digits, no truncation
	}
	for _, tc := range cases {
		if got := models.FormatPartNumber(tc.code, tc.n); got != tc.want {
			t.Errorf("FormatPartNumber(%q, %d) = %q, want %q", tc.code, tc.n, got, tc.want)
		}
	}
}
