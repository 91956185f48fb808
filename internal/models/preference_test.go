package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familytime/internal/timeslot"
)

func testPreference() *UserPreference {
	return &UserPreference{
		UserID: "u1",
		Mode:   ModeCustom,
		Days: map[time.Weekday][]timeslot.Window{
			time.Monday:   {{Start: "17:00", End: "21:00"}},
			time.Saturday: {{Start: "09:00", End: "12:00"}, {Start: "14:00", End: "17:00"}},
		},
		MinDurationMinutes: 30,
		MaxDurationMinutes: 180,
	}
}

func TestPreferenceValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*UserPreference)
		ok     bool
	}{
		{"custom", func(p *UserPreference) {}, true},
		{"none mode", func(p *UserPreference) { p.Mode = ModeNone }, true},
		{"follow", func(p *UserPreference) {
			p.Mode = ModeFollow
			p.FollowedUserID = "u2"
		}, true},
		{"unknown mode", func(p *UserPreference) { p.Mode = "psychic" }, false},
		{"follow without target", func(p *UserPreference) { p.Mode = ModeFollow }, false},
		{"follow self", func(p *UserPreference) {
			p.Mode = ModeFollow
			p.FollowedUserID = "u1"
		}, false},
		{"zero min duration", func(p *UserPreference) { p.MinDurationMinutes = 0 }, false},
		{"max not above min", func(p *UserPreference) { p.MaxDurationMinutes = 30 }, false},
		{"inverted window", func(p *UserPreference) {
			p.Days[time.Monday] = []timeslot.Window{{Start: "21:00", End: "17:00"}}
		}, false},
		{"unparseable window", func(p *UserPreference) {
			p.Days[time.Monday] = []timeslot.Window{{Start: "5pm", End: "21:00"}}
		}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testPreference()
			tc.mutate(p)
			err := p.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDefaultPreference(t *testing.T) {
	p := DefaultPreference("u1")
	require.NoError(t, p.Validate())
	assert.Equal(t, ModeCustom, p.Mode)
	assert.Empty(t, p.Days)
	assert.Equal(t, DefaultMinDurationMinutes, p.MinDurationMinutes)
	assert.Equal(t, DefaultMaxDurationMinutes, p.MaxDurationMinutes)
}

func TestWeekdayNames(t *testing.T) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := WeekdayName(day)
		require.NotEmpty(t, name)
		parsed, ok := ParseWeekday(name)
		require.True(t, ok)
		assert.Equal(t, day, parsed)
	}
	_, ok := ParseWeekday("someday")
	assert.False(t, ok)
}

func TestPreferenceEncodeDecode(t *testing.T) {
	p := testPreference()

	decoded, err := DecodePreference(p.Fields())
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestPreferenceDecodeAfterJSONRoundTrip(t *testing.T) {
	p := testPreference()
	raw, err := json.Marshal(p.Fields())
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	decoded, err := DecodePreference(fields)
	require.NoError(t, err)
	assert.Equal(t, p, decoded)
}

func TestPreferenceDecodeRejectsMalformed(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"missing user id", func(m map[string]any) { delete(m, "userId") }},
		{"mode wrong type", func(m map[string]any) { m["mode"] = true }},
		{"unknown weekday key", func(m map[string]any) {
			m["days"] = map[string]any{"payday": []map[string]any{{"start": "09:00", "end": "10:00"}}}
		}},
		{"window missing end", func(m map[string]any) {
			m["days"] = map[string]any{"monday": []map[string]any{{"start": "09:00"}}}
		}},
		{"duration wrong type", func(m map[string]any) { m["minDurationMinutes"] = "30" }},
		{"violates invariants", func(m map[string]any) { m["maxDurationMinutes"] = 10 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fields := testPreference().Fields()
			tc.mutate(fields)
			_, err := DecodePreference(fields)
			assert.Error(t, err)
		})
	}
}

func TestUserEncodeDecode(t *testing.T) {
	u := &User{
		ID:          "u1",
		Email:       "alice@example.com",
		DisplayName: "Alice",
		AvatarEmoji: "🦉",
		FamilyID:    "sunny-badger",
		FamilyRole:  RoleAdmin,
	}

	decoded, err := DecodeUser(u.Fields())
	require.NoError(t, err)
	assert.Equal(t, u, decoded)

	_, err = DecodeUser(map[string]any{"email": "x@example.com"})
	assert.Error(t, err, "id is required")

	_, err = DecodeUser(map[string]any{"id": "u1", "familyId": 7})
	assert.Error(t, err)
}
