package config

import (
	"os"
	"strings"
)

// CabinetAllowDuplicate disables the cabinet-slot occupancy check entirely,
// permitting two lots to share a coordinate without an explicit override.
// Kept for sites that imported legacy data with duplicate coordinates; the
// default is strict conflict checking.
//
// Set via env:
// - CABINET_ALLOW_DUPLICATE=true
func CabinetAllowDuplicate() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("CABINET_ALLOW_DUPLICATE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// SequenceSyncOnStartup runs the category counter reconciliation pass when the
// server boots. On by default; disable when running many replicas and relying
// on cmd/sequence-sync instead.
//
// Set via env:
// - SEQUENCE_SYNC_ON_STARTUP=false
func SequenceSyncOnStartup() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SEQUENCE_SYNC_ON_STARTUP")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
