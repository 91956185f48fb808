package timeslot

import (
	"sort"
	"time"

	"familytime/internal/utils"
)

// Slot is a single contiguous interval a user marks as available on a
// weekday. OriginalPreset records the preset the slot was created from
// and is retained for display ordering even after the times are
// hand-edited.
type Slot struct {
	ID             int64
	Start          string
	End            string
	Preset         Preset
	OriginalPreset Preset
}

// Window is the serialized form of a slot: just its bounds.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TimeField selects which bound of a slot SetTime writes.
type TimeField string

const (
	FieldStart TimeField = "start"
	FieldEnd   TimeField = "end"
)

// Editor is the in-memory model of a user's per-day slot selections.
// Slot ids are locally unique and monotonically generated; the model is
// not safe for concurrent use.
type Editor struct {
	days   map[time.Weekday][]Slot
	nextID int64
}

// NewEditor returns an empty editor.
func NewEditor() *Editor {
	return &Editor{days: make(map[time.Weekday][]Slot)}
}

// EditorFromDays builds an editor from a saved payload, re-matching each
// window against the preset catalogue so untouched preset slots keep
// their toggle behavior.
func EditorFromDays(days map[time.Weekday][]Window) *Editor {
	e := NewEditor()
	for day, windows := range days {
		for _, w := range windows {
			if !IsRange(w.Start, w.End) {
				continue
			}
			preset := matchPreset(w.Start, w.End)
			e.append(day, Slot{
				Start:          w.Start,
				End:            w.End,
				Preset:         preset,
				OriginalPreset: preset,
			})
		}
	}
	return e
}

// matchPreset returns the catalogue preset with exactly these bounds,
// or PresetCustom when none matches.
func matchPreset(start, end string) Preset {
	for _, p := range presetCatalogue {
		b := presetBounds[p]
		if b.Start == start && b.End == end {
			return p
		}
	}
	return PresetCustom
}

func (e *Editor) append(day time.Weekday, s Slot) {
	e.nextID++
	s.ID = e.nextID
	e.days[day] = append(e.days[day], s)
}

// Slots returns the day's slots in display order: preset catalogue
// position of the original preset first (unmatched presets last), then
// lexicographic start time. This is the canonical render order and is
// distinct from the time ordering Merge uses.
func (e *Editor) Slots(day time.Weekday) []Slot {
	slots := make([]Slot, len(e.days[day]))
	copy(slots, e.days[day])
	sort.SliceStable(slots, func(i, j int) bool {
		ri, rj := presetRank(slots[i].OriginalPreset), presetRank(slots[j].OriginalPreset)
		if ri != rj {
			return ri < rj
		}
		return slots[i].Start < slots[j].Start
	})
	return slots
}

// DayActive reports whether the day has at least one slot.
func (e *Editor) DayActive(day time.Weekday) bool {
	return len(e.days[day]) > 0
}

// TogglePreset adds a slot with the preset's fixed times, or removes the
// existing slot created from that preset. The all-day preset is mutually
// exclusive with every other preset: selecting it clears the day first,
// and selecting any other preset removes an existing all-day slot.
func (e *Editor) TogglePreset(day time.Weekday, preset Preset) {
	start, end, ok := PresetBounds(preset)
	if !ok {
		return
	}

	for _, s := range e.days[day] {
		if s.OriginalPreset == preset {
			e.RemoveSlot(day, s.ID)
			return
		}
	}

	if preset == PresetAllDay {
		e.days[day] = nil
	} else {
		for _, s := range e.days[day] {
			if s.OriginalPreset == PresetAllDay {
				e.RemoveSlot(day, s.ID)
				break
			}
		}
	}

	e.append(day, Slot{
		Start:          start,
		End:            end,
		Preset:         preset,
		OriginalPreset: preset,
	})
}

// BeginCustom switches a slot to custom editing. Valid existing times
// are preserved; an invalid field is replaced by the 17:00/19:00
// defaults so the slot stays a valid range throughout the edit.
func (e *Editor) BeginCustom(day time.Weekday, slotID int64) {
	slots := e.days[day]
	for i := range slots {
		if slots[i].ID != slotID {
			continue
		}
		if _, err := ParseClock(slots[i].Start); err != nil {
			slots[i].Start = defaultCustomStart
		}
		if _, err := ParseClock(slots[i].End); err != nil {
			slots[i].End = defaultCustomEnd
		}
		if !IsRange(slots[i].Start, slots[i].End) {
			slots[i].Start = defaultCustomStart
			slots[i].End = defaultCustomEnd
		}
		slots[i].Preset = PresetCustom
		return
	}
}

// SetTime writes a validated HH:MM value into one bound of a slot and
// marks the slot custom. OriginalPreset is left untouched so display
// ordering is stable across hand edits.
func (e *Editor) SetTime(day time.Weekday, slotID int64, field TimeField, value string) error {
	if _, err := ParseClock(value); err != nil {
		return utils.ValidationError{Field: string(field), Message: "invalid time format, expected HH:MM"}
	}
	slots := e.days[day]
	for i := range slots {
		if slots[i].ID != slotID {
			continue
		}
		switch field {
		case FieldStart:
			slots[i].Start = value
		case FieldEnd:
			slots[i].End = value
		default:
			return utils.ValidationError{Field: string(field), Message: "unknown time field"}
		}
		slots[i].Preset = PresetCustom
		return nil
	}
	return utils.ValidationError{Field: "slot", Message: "slot not found"}
}

// RemoveSlot deletes a slot from the day.
func (e *Editor) RemoveSlot(day time.Weekday, slotID int64) {
	slots := e.days[day]
	for i := range slots {
		if slots[i].ID == slotID {
			e.days[day] = append(slots[:i:i], slots[i+1:]...)
			if len(e.days[day]) == 0 {
				delete(e.days, day)
			}
			return
		}
	}
}

// SetDayActive activates or deactivates a whole day. Activating an
// empty day inserts one default-preset slot; deactivating clears every
// slot on the day.
func (e *Editor) SetDayActive(day time.Weekday, active bool) {
	if !active {
		delete(e.days, day)
		return
	}
	if len(e.days[day]) > 0 {
		return
	}
	start, end, _ := PresetBounds(DefaultPreset)
	e.append(day, Slot{
		Start:          start,
		End:            end,
		Preset:         DefaultPreset,
		OriginalPreset: DefaultPreset,
	})
}

// Payload serializes the editor into the persisted availability shape.
// Only days with at least one valid slot appear; slots failing IsRange
// are dropped from the payload but kept in the editor state.
func (e *Editor) Payload() map[time.Weekday][]Window {
	out := make(map[time.Weekday][]Window)
	for day, slots := range e.days {
		var windows []Window
		for _, s := range slots {
			if !IsRange(s.Start, s.End) {
				continue
			}
			windows = append(windows, Window{Start: s.Start, End: s.End})
		}
		if len(windows) > 0 {
			out[day] = windows
		}
	}
	return out
}
