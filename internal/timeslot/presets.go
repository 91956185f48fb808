package timeslot

// Preset identifies a named, fixed time-of-day interval offered as a
// one-tap shortcut for a slot.
type Preset string

const (
	PresetMorning   Preset = "morning"
	PresetMidday    Preset = "midday"
	PresetAfternoon Preset = "afternoon"
	PresetEvening   Preset = "evening"
	PresetAllDay    Preset = "all_day"
	PresetCustom    Preset = "custom"
)

// presetTimes holds the fixed start/end of each preset.
type presetTimes struct {
	Start string
	End   string
}

// presetCatalogue lists the selectable presets in display order. The
// index in this slice is the primary sort key for slot rendering.
var presetCatalogue = []Preset{
	PresetMorning,
	PresetMidday,
	PresetAfternoon,
	PresetEvening,
	PresetAllDay,
}

var presetBounds = map[Preset]presetTimes{
	PresetMorning:   {Start: "06:00", End: "09:00"},
	PresetMidday:    {Start: "11:00", End: "14:00"},
	PresetAfternoon: {Start: "14:00", End: "17:00"},
	PresetEvening:   {Start: "17:00", End: "21:00"},
	PresetAllDay:    {Start: "00:00", End: "23:59"},
}

// DefaultPreset is the slot inserted when a day is activated empty.
const DefaultPreset = PresetEvening

// Custom-edit fallbacks used when an existing field no longer parses.
const (
	defaultCustomStart = "17:00"
	defaultCustomEnd   = "19:00"
)

// Presets returns the selectable preset keys in catalogue order.
func Presets() []Preset {
	out := make([]Preset, len(presetCatalogue))
	copy(out, presetCatalogue)
	return out
}

// PresetBounds returns the fixed start/end for a preset and whether the
// preset exists in the catalogue. PresetCustom has no fixed bounds.
func PresetBounds(p Preset) (start, end string, ok bool) {
	b, ok := presetBounds[p]
	if !ok {
		return "", "", false
	}
	return b.Start, b.End, true
}

// presetRank returns the catalogue position of a preset, or a rank past
// the end for presets not in the catalogue (sorted last).
func presetRank(p Preset) int {
	for i, key := range presetCatalogue {
		if key == p {
			return i
		}
	}
	return len(presetCatalogue)
}
