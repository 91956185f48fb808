package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTogglePresetAddsAndRemoves(t *testing.T) {
	e := NewEditor()

	e.TogglePreset(time.Monday, PresetMorning)
	slots := e.Slots(time.Monday)
	require.Len(t, slots, 1)
	assert.Equal(t, "06:00", slots[0].Start)
	assert.Equal(t, "09:00", slots[0].End)
	assert.Equal(t, PresetMorning, slots[0].Preset)

	// Toggling the same preset again removes its slot.
	e.TogglePreset(time.Monday, PresetMorning)
	assert.Empty(t, e.Slots(time.Monday))
	assert.False(t, e.DayActive(time.Monday))
}

func TestTogglePresetAllDayExclusive(t *testing.T) {
	e := NewEditor()
	e.TogglePreset(time.Saturday, PresetMorning)
	e.TogglePreset(time.Saturday, PresetEvening)
	require.Len(t, e.Slots(time.Saturday), 2)

	// All-day clears everything else.
	e.TogglePreset(time.Saturday, PresetAllDay)
	slots := e.Slots(time.Saturday)
	require.Len(t, slots, 1)
	assert.Equal(t, PresetAllDay, slots[0].Preset)

	// Any other preset replaces all-day.
	e.TogglePreset(time.Saturday, PresetMidday)
	slots = e.Slots(time.Saturday)
	require.Len(t, slots, 1)
	assert.Equal(t, PresetMidday, slots[0].Preset)
}

func TestTogglePresetIgnoresCustom(t *testing.T) {
	e := NewEditor()
	e.TogglePreset(time.Monday, PresetCustom)
	assert.False(t, e.DayActive(time.Monday))
}

func TestSetTimeMarksCustomKeepsDisplayRank(t *testing.T) {
	e := NewEditor()
	e.TogglePreset(time.Monday, PresetMorning)
	e.TogglePreset(time.Monday, PresetEvening)

	slots := e.Slots(time.Monday)
	require.Len(t, slots, 2)
	morning := slots[0]

	require.NoError(t, e.SetTime(time.Monday, morning.ID, FieldStart, "22:00"))

	slots = e.Slots(time.Monday)
	require.Len(t, slots, 2)
	// Hand-edited morning slot still renders first: order follows the
	// original preset, not the new times.
	assert.Equal(t, morning.ID, slots[0].ID)
	assert.Equal(t, "22:00", slots[0].Start)
	assert.Equal(t, PresetCustom, slots[0].Preset)
	assert.Equal(t, PresetMorning, slots[0].OriginalPreset)
}

func TestSetTimeRejectsInvalid(t *testing.T) {
	e := NewEditor()
	e.TogglePreset(time.Monday, PresetMorning)
	slot := e.Slots(time.Monday)[0]

	assert.Error(t, e.SetTime(time.Monday, slot.ID, FieldStart, "25:00"))
	assert.Error(t, e.SetTime(time.Monday, slot.ID, "middle", "10:00"))
	assert.Error(t, e.SetTime(time.Monday, 9999, FieldStart, "10:00"))

	// Rejected writes leave the slot untouched.
	got := e.Slots(time.Monday)[0]
	assert.Equal(t, "06:00", got.Start)
	assert.Equal(t, PresetMorning, got.Preset)
}

func TestBeginCustomRepairsInvalidBounds(t *testing.T) {
	e := NewEditor()
	e.TogglePreset(time.Monday, PresetMorning)
	slot := e.Slots(time.Monday)[0]

	// Invert the range via hand edits, then begin a custom edit.
	require.NoError(t, e.SetTime(time.Monday, slot.ID, FieldStart, "10:00"))
	require.NoError(t, e.SetTime(time.Monday, slot.ID, FieldEnd, "08:00"))
	e.BeginCustom(time.Monday, slot.ID)

	got := e.Slots(time.Monday)[0]
	assert.Equal(t, "17:00", got.Start)
	assert.Equal(t, "19:00", got.End)
	assert.Equal(t, PresetCustom, got.Preset)
}

func TestSetDayActive(t *testing.T) {
	e := NewEditor()

	e.SetDayActive(time.Wednesday, true)
	slots := e.Slots(time.Wednesday)
	require.Len(t, slots, 1)
	assert.Equal(t, DefaultPreset, slots[0].Preset)

	// Re-activating an active day inserts nothing.
	e.SetDayActive(time.Wednesday, true)
	assert.Len(t, e.Slots(time.Wednesday), 1)

	e.SetDayActive(time.Wednesday, false)
	assert.False(t, e.DayActive(time.Wednesday))
}

func TestEditorFromDaysRematchesPresets(t *testing.T) {
	days := map[time.Weekday][]Window{
		time.Monday: {
			{Start: "17:00", End: "21:00"}, // evening bounds
			{Start: "07:15", End: "08:00"}, // no preset matches
		},
		time.Tuesday: {
			{Start: "10:00", End: "09:00"}, // invalid, dropped
		},
	}

	e := EditorFromDays(days)

	slots := e.Slots(time.Monday)
	require.Len(t, slots, 2)
	assert.Equal(t, PresetEvening, slots[0].Preset)
	assert.Equal(t, PresetCustom, slots[1].Preset)
	assert.False(t, e.DayActive(time.Tuesday))
}

func TestPayloadDropsInvalidSlots(t *testing.T) {
	e := NewEditor()
	e.TogglePreset(time.Monday, PresetMorning)
	e.TogglePreset(time.Monday, PresetEvening)

	slots := e.Slots(time.Monday)
	require.NoError(t, e.SetTime(time.Monday, slots[1].ID, FieldEnd, "16:00"))
	require.NoError(t, e.SetTime(time.Monday, slots[1].ID, FieldStart, "18:00"))

	payload := e.Payload()
	require.Len(t, payload[time.Monday], 1)
	assert.Equal(t, Window{Start: "06:00", End: "09:00"}, payload[time.Monday][0])

	// The inverted slot remains editable in the model.
	assert.Len(t, e.Slots(time.Monday), 2)
}

func TestSlotsDisplayOrder(t *testing.T) {
	e := NewEditor()
	e.TogglePreset(time.Friday, PresetEvening)
	e.TogglePreset(time.Friday, PresetMorning)
	e.TogglePreset(time.Friday, PresetMidday)

	slots := e.Slots(time.Friday)
	require.Len(t, slots, 3)
	assert.Equal(t, PresetMorning, slots[0].Preset)
	assert.Equal(t, PresetMidday, slots[1].Preset)
	assert.Equal(t, PresetEvening, slots[2].Preset)
}
