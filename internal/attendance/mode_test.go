package attendance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendly/internal/store"
)

func TestNewPreferences(t *testing.T) {
	tests := []struct {
		name        string
		stored      string
		prefersDark bool
		want        Mode
	}{
		{"nothing stored, light scheme", "", false, ModeLight},
		{"nothing stored, dark scheme", "", true, ModeDark},
		{"stored dark wins", "dark", false, ModeDark},
		{"stored light wins", "light", true, ModeLight},
		{"stored junk means light", "sepia", true, ModeLight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := store.NewMemory()
			if tt.stored != "" {
				require.NoError(t, kv.Set(context.Background(), store.SlotThemeMode, tt.stored))
			}
			p, err := NewPreferences(context.Background(), kv, tt.prefersDark)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Mode())
		})
	}
}

func TestPreferences_ToggleAndSet(t *testing.T) {
	kv := store.NewMemory()
	ctx := context.Background()
	p, err := NewPreferences(ctx, kv, false)
	require.NoError(t, err)

	m, err := p.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, ModeDark, m)
	v, _, _ := kv.Get(ctx, store.SlotThemeMode)
	assert.Equal(t, "dark", v)

	require.NoError(t, p.SetMode(ctx, ModeLight))
	v, _, _ = kv.Get(ctx, store.SlotThemeMode)
	assert.Equal(t, "light", v)
	assert.Equal(t, 0, kv.Writes(store.SlotData), "mode never touches the data slot")
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode("dark")
	assert.True(t, ok)
	assert.Equal(t, ModeDark, m)

	_, ok = ParseMode("Dark")
	assert.False(t, ok)
}
