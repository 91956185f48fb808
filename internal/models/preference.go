package models

import (
	"time"

	"familytime/internal/timeslot"
	"familytime/internal/utils"
)

// PreferenceMode selects how a user's effective availability is derived.
type PreferenceMode string

const (
	// ModeCustom uses the user's own declared windows.
	ModeCustom PreferenceMode = "custom"
	// ModeFollow mirrors another family member's declared windows.
	ModeFollow PreferenceMode = "follow"
	// ModeNone asserts no personal constraint; consumers defer to the
	// family aggregate and exclude the user from intersections.
	ModeNone PreferenceMode = "none"
)

// CollectionPreferences is the store collection for preference documents.
const CollectionPreferences = "preferences"

// Duration defaults applied on first profile save.
const (
	DefaultMinDurationMinutes = 30
	DefaultMaxDurationMinutes = 180
)

// UserPreference is a user's availability declaration: per-weekday
// windows plus the mode deciding whether they apply.
type UserPreference struct {
	UserID             string
	Mode               PreferenceMode
	FollowedUserID     string
	Days               map[time.Weekday][]timeslot.Window
	MinDurationMinutes int
	MaxDurationMinutes int
}

// DefaultPreference returns the preference created on first save.
func DefaultPreference(userID string) *UserPreference {
	return &UserPreference{
		UserID:             userID,
		Mode:               ModeCustom,
		Days:               make(map[time.Weekday][]timeslot.Window),
		MinDurationMinutes: DefaultMinDurationMinutes,
		MaxDurationMinutes: DefaultMaxDurationMinutes,
	}
}

// Validate checks the preference invariants before any write.
func (p *UserPreference) Validate() error {
	switch p.Mode {
	case ModeCustom, ModeFollow, ModeNone:
	default:
		return utils.ValidationError{Field: "mode", Message: "unknown preference mode"}
	}
	if p.Mode == ModeFollow {
		if p.FollowedUserID == "" {
			return utils.ValidationError{Field: "followedUserId", Message: "follow mode requires a followed user"}
		}
		if p.FollowedUserID == p.UserID {
			return utils.ValidationError{Field: "followedUserId", Message: "cannot follow yourself"}
		}
	}
	if p.MinDurationMinutes <= 0 {
		return utils.ValidationError{Field: "minDurationMinutes", Message: "must be positive"}
	}
	if p.MaxDurationMinutes <= p.MinDurationMinutes {
		return utils.ValidationError{Field: "maxDurationMinutes", Message: "must be greater than minDurationMinutes"}
	}
	for day, windows := range p.Days {
		if day < time.Sunday || day > time.Saturday {
			return utils.ValidationError{Field: "days", Message: "unknown weekday"}
		}
		for _, w := range windows {
			if !timeslot.IsRange(w.Start, w.End) {
				return utils.ValidationError{Field: "days", Message: "invalid window " + w.Start + "-" + w.End}
			}
		}
	}
	return nil
}

// weekday names used as document keys; JSON objects key on strings.
var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

var weekdaysByName = func() map[string]time.Weekday {
	out := make(map[string]time.Weekday, len(weekdayNames))
	for day, name := range weekdayNames {
		out[name] = day
	}
	return out
}()

// WeekdayName returns the document key for a weekday.
func WeekdayName(day time.Weekday) string {
	return weekdayNames[day]
}

// ParseWeekday resolves a document key back to a weekday.
func ParseWeekday(name string) (time.Weekday, bool) {
	day, ok := weekdaysByName[name]
	return day, ok
}

// Fields encodes the preference into its document shape.
func (p *UserPreference) Fields() map[string]any {
	days := make(map[string]any, len(p.Days))
	for day, windows := range p.Days {
		list := make([]map[string]any, len(windows))
		for i, w := range windows {
			list[i] = map[string]any{"start": w.Start, "end": w.End}
		}
		days[weekdayNames[day]] = list
	}
	return map[string]any{
		"userId":             p.UserID,
		"mode":               string(p.Mode),
		"followedUserId":     p.FollowedUserID,
		"days":               days,
		"minDurationMinutes": p.MinDurationMinutes,
		"maxDurationMinutes": p.MaxDurationMinutes,
	}
}

// DecodePreference decodes and validates a preference document.
func DecodePreference(fields map[string]any) (*UserPreference, error) {
	userID, err := getString(fields, "userId")
	if err != nil {
		return nil, err
	}
	mode, err := getString(fields, "mode")
	if err != nil {
		return nil, err
	}
	followed, err := optString(fields, "followedUserId")
	if err != nil {
		return nil, err
	}
	minDuration, err := getInt(fields, "minDurationMinutes")
	if err != nil {
		return nil, err
	}
	maxDuration, err := getInt(fields, "maxDurationMinutes")
	if err != nil {
		return nil, err
	}

	dayMap, err := getMap(fields, "days")
	if err != nil {
		return nil, err
	}
	days := make(map[time.Weekday][]timeslot.Window, len(dayMap))
	for name, value := range dayMap {
		day, ok := weekdaysByName[name]
		if !ok {
			return nil, utils.ValidationError{Field: "days", Message: "unknown weekday " + name}
		}
		windowMaps, err := getMapList(map[string]any{name: value}, name)
		if err != nil {
			return nil, err
		}
		windows := make([]timeslot.Window, 0, len(windowMaps))
		for _, w := range windowMaps {
			start, err := getString(w, "start")
			if err != nil {
				return nil, err
			}
			end, err := getString(w, "end")
			if err != nil {
				return nil, err
			}
			windows = append(windows, timeslot.Window{Start: start, End: end})
		}
		if len(windows) > 0 {
			days[day] = windows
		}
	}

	pref := &UserPreference{
		UserID:             userID,
		Mode:               PreferenceMode(mode),
		FollowedUserID:     followed,
		Days:               days,
		MinDurationMinutes: minDuration,
		MaxDurationMinutes: maxDuration,
	}
	if err := pref.Validate(); err != nil {
		return nil, err
	}
	return pref, nil
}
