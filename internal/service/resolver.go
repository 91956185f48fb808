package service

import (
	"time"

	"familytime/internal/models"
	"familytime/internal/timeslot"
)

// EffectiveAvailability is the resolved availability source for a user.
// Deferred means the user asserts no personal constraint: consumers
// computing family-aggregate availability must leave the user out of the
// intersection rather than treat them as always or never available.
type EffectiveAvailability struct {
	Mode     models.PreferenceMode
	SourceID string
	Days     map[time.Weekday][]timeslot.Window
	Deferred bool
}

// Resolve computes the effective availability for a preference against a
// snapshot of the family roster. It is a pure function of its inputs.
//
// Follow mode resolves the followed user against current membership;
// an absent, invalid, or self-referential target falls back to the
// first other member in roster order. With no other member the mode
// degrades to an empty self-declared availability (callers must not
// offer follow mode in a single-member family).
func Resolve(pref *models.UserPreference, family *models.Family, lookup func(userID string) *models.UserPreference) EffectiveAvailability {
	switch pref.Mode {
	case models.ModeNone:
		return EffectiveAvailability{Mode: models.ModeNone, SourceID: pref.UserID, Deferred: true}

	case models.ModeFollow:
		target := followTarget(pref, family)
		if target == "" {
			return EffectiveAvailability{Mode: models.ModeCustom, SourceID: pref.UserID}
		}
		followed := lookup(target)
		if followed == nil {
			return EffectiveAvailability{Mode: models.ModeFollow, SourceID: target}
		}
		return EffectiveAvailability{
			Mode:     models.ModeFollow,
			SourceID: target,
			Days:     normalizeDays(followed.Days),
		}

	default:
		return EffectiveAvailability{
			Mode:     models.ModeCustom,
			SourceID: pref.UserID,
			Days:     normalizeDays(pref.Days),
		}
	}
}

// followTarget picks the member a follow-mode preference mirrors:
// the declared target when it is another current member, otherwise the
// first other member in roster order, otherwise nobody.
func followTarget(pref *models.UserPreference, family *models.Family) string {
	if family != nil && pref.FollowedUserID != "" && pref.FollowedUserID != pref.UserID {
		if family.IsMember(pref.FollowedUserID) {
			return pref.FollowedUserID
		}
	}
	if family == nil {
		return ""
	}
	for _, m := range family.Members {
		if m.UserID != pref.UserID {
			return m.UserID
		}
	}
	return ""
}

// normalizeDays runs each day's windows through the interval merger so
// consumers always see minimal, ordered, disjoint windows.
func normalizeDays(days map[time.Weekday][]timeslot.Window) map[time.Weekday][]timeslot.Window {
	if days == nil {
		return nil
	}
	out := make(map[time.Weekday][]timeslot.Window, len(days))
	for day, windows := range days {
		pairs := make([][2]string, len(windows))
		for i, w := range windows {
			pairs[i] = [2]string{w.Start, w.End}
		}
		var merged []timeslot.Window
		for _, rng := range timeslot.MergeClock(pairs) {
			merged = append(merged, timeslot.Window{Start: rng[:5], End: rng[6:]})
		}
		if len(merged) > 0 {
			out[day] = merged
		}
	}
	return out
}
