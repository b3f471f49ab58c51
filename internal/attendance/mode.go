package attendance

import (
	"context"
	"fmt"
	"sync"

	"attendly/internal/store"
)

// Mode is the dark/light display preference, stored apart from the profile theme.
type Mode string

const (
	ModeDark  Mode = "dark"
	ModeLight Mode = "light"
)

// ParseMode accepts exactly "dark" or "light".
func ParseMode(v string) (Mode, bool) {
	switch Mode(v) {
	case ModeDark, ModeLight:
		return Mode(v), true
	}
	return "", false
}

// Preferences holds the display mode and writes it to its own slot.
type Preferences struct {
	kv store.KV

	mu   sync.Mutex
	mode Mode
}

// NewPreferences resolves the mode: a stored value wins, then the colour-scheme preference.
// A read error is returned together with the fallback mode.
func NewPreferences(ctx context.Context, kv store.KV, prefersDark bool) (*Preferences, error) {
	p := &Preferences{kv: kv, mode: ModeLight}
	if prefersDark {
		p.mode = ModeDark
	}
	raw, ok, err := kv.Get(ctx, store.SlotThemeMode)
	if err != nil {
		return p, fmt.Errorf("read mode: %w", err)
	}
	if ok {
		// any stored value that is not "dark" means light
		p.mode = ModeLight
		if raw == string(ModeDark) {
			p.mode = ModeDark
		}
	}
	return p, nil
}

// Mode returns the current display mode.
func (p *Preferences) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// SetMode stores m.
func (p *Preferences) SetMode(ctx context.Context, m Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.kv.Set(ctx, store.SlotThemeMode, string(m)); err != nil {
		return fmt.Errorf("save mode: %w", err)
	}
	p.mode = m
	return nil
}

// Toggle flips between dark and light and stores the result.
func (p *Preferences) Toggle(ctx context.Context) (Mode, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := ModeDark
	if p.mode == ModeDark {
		next = ModeLight
	}
	if err := p.kv.Set(ctx, store.SlotThemeMode, string(next)); err != nil {
		return p.mode, fmt.Errorf("save mode: %w", err)
	}
	p.mode = next
	return next, nil
}
