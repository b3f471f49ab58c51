package store

import (
	"context"
	"errors"
)

// Slot names a fixed persisted location. Values are opaque strings.
type Slot string

const (
	// SlotData holds the current {subjects, profile} envelope.
	SlotData Slot = "attendly_data_v3"
	// SlotLegacyV2 and SlotLegacyX are read once for migration and never written.
	SlotLegacyV2 Slot = "attendly_data_v2"
	SlotLegacyX  Slot = "attendx_data_v2"
	// SlotThemeMode holds "dark" or "light".
	SlotThemeMode Slot = "attendly_theme_mode"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// KV is a string-valued slot store. Get reports ok=false for missing or empty values.
type KV interface {
	Get(ctx context.Context, slot Slot) (string, bool, error)
	Set(ctx context.Context, slot Slot, value string) error
	Healthy(ctx context.Context) bool
	Close() error
}
