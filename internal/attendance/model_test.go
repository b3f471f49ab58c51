package attendance

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_NextOrder(t *testing.T) {
	assert.Equal(t, StatusAbsent, StatusPresent.Next())
	assert.Equal(t, StatusOD, StatusAbsent.Next())
	assert.Equal(t, StatusHoliday, StatusOD.Next())
	assert.Equal(t, StatusNone, StatusHoliday.Next())
	assert.Equal(t, StatusPresent, StatusNone.Next())
	assert.Equal(t, StatusPresent, Status("LATE").Next())
}

func TestStatus_CycleClosesAfterFive(t *testing.T) {
	for _, start := range cycle {
		s := start
		for i := 0; i < 5; i++ {
			s = s.Next()
			if i < 4 {
				assert.NotEqual(t, start, s, "returned to %s after %d steps", start, i+1)
			}
		}
		assert.Equal(t, start, s)
	}
}

func TestStatus_Persisted(t *testing.T) {
	assert.True(t, StatusOD.Persisted())
	assert.False(t, StatusNone.Persisted())
	assert.False(t, Status("present").Persisted())
	assert.True(t, StatusNone.Valid())
}

func TestNormalizeTheme(t *testing.T) {
	assert.Equal(t, ThemeRetro, NormalizeTheme("retro"))
	assert.Equal(t, ThemeModern, NormalizeTheme("modern"))
	assert.Equal(t, ThemeModern, NormalizeTheme("midnight"))
	assert.Equal(t, ThemeModern, NormalizeTheme(""))
}

func TestSubject_JSONShape(t *testing.T) {
	sub := Subject{
		ID:          "s1",
		Name:        "Math",
		Target:      75,
		History:     map[string]Status{"2024-03-01": StatusPresent},
		LastUpdated: time.UnixMilli(1709251200000),
	}

	blob, err := json.Marshal(sub)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"s1","name":"Math","target":75,"history":{"2024-03-01":"PRESENT"},"lastUpdated":1709251200000}`, string(blob))

	var back Subject
	require.NoError(t, json.Unmarshal(blob, &back))
	assert.Equal(t, sub.History, back.History)
	assert.True(t, sub.LastUpdated.Equal(back.LastUpdated))
}

func TestSubject_NilHistoryMarshalsEmpty(t *testing.T) {
	blob, err := json.Marshal(Subject{ID: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(blob), `"history":{}`)
	assert.Contains(t, string(blob), `"lastUpdated":0`)
}
