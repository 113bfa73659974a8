package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderJSON_StoredList(t *testing.T) {
	start := time.Date(2024, 3, 5, 7, 0, 0, 0, time.UTC)
	at := TimeOfDay{Hour: 8, Minute: 30}
	in := []Reminder{
		{ID: "1", Enabled: true, Name: "Antibiotic", Pattern: Once{At: start.Add(48 * time.Hour)}, Start: start},
		{ID: "2", Enabled: true, Name: "Iron", Pattern: Weekly{Days: []Weekday{Monday, Friday}, At: at}, Halt: EveryNthWeek(start, 2), Start: start},
		{ID: "3", Enabled: false, Name: "B12", Pattern: DaysOfMonth{Days: []int{1, 15}, At: at}, Start: start},
		{ID: "4", Enabled: true, Name: "Rent", Pattern: LastDayOfMonth{At: at}, Start: start},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"days_of_month"`)

	var out []Reminder
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, len(in))
	for i := range in {
		assert.Equal(t, in[i].ID, out[i].ID)
		assert.Equal(t, in[i].Enabled, out[i].Enabled)
		assert.Equal(t, in[i].Pattern.Kind(), out[i].Pattern.Kind())
		assert.Equal(t, in[i].Describe(), out[i].Describe())
	}
}

func TestReminderJSON_UnknownKind(t *testing.T) {
	var r Reminder
	err := json.Unmarshal([]byte(`{"id":"x","name":"y","when":{"kind":"yearly"}}`), &r)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestReminder_Validate(t *testing.T) {
	ok := Reminder{Name: "Iron", Pattern: Weekly{Days: []Weekday{Monday}, At: TimeOfDay{Hour: 8}}}
	assert.NoError(t, ok.Validate())

	noName := ok
	noName.Name = "  "
	assert.Error(t, noName.Validate())

	badDay := ok
	badDay.Pattern = DaysOfMonth{Days: []int{0}, At: TimeOfDay{Hour: 8}}
	assert.ErrorIs(t, badDay.Validate(), ErrInvalidPattern)

	badHalt := ok
	badHalt.Halt = &HaltRule{Unit: HaltWeek, Nth: 1}
	assert.ErrorIs(t, badHalt.Validate(), ErrInvalidHalt)

	noPattern := ok
	noPattern.Pattern = nil
	assert.ErrorIs(t, noPattern.Validate(), ErrInvalidPattern)
}

func TestReminder_Describe(t *testing.T) {
	start := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "Mon, Fri at 8:05",
		Reminder{Pattern: Weekly{Days: []Weekday{Friday, Monday}, At: TimeOfDay{Hour: 8, Minute: 5}}}.Describe())
	assert.Equal(t, "monthly on day 12 at 9:00",
		Reminder{Pattern: Monthly{At: TimeOfDay{Hour: 9}}, Start: start}.Describe())
	assert.Equal(t, "days 1, 15 at 9:00, every 2nd month off",
		Reminder{Pattern: DaysOfMonth{Days: []int{15, 1}, At: TimeOfDay{Hour: 9}}, Halt: EveryNthMonth(start, 2)}.Describe())
	assert.Equal(t, "never (no weekdays selected)", Reminder{Pattern: Weekly{}}.Describe())
}

func TestReminder_HaltAnchor(t *testing.T) {
	start := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	anchor := start.AddDate(0, 0, -3)

	assert.Equal(t, start, Reminder{Start: start}.HaltAnchor())
	assert.Equal(t, start, Reminder{Start: start, Halt: &HaltRule{Unit: HaltWeek, Nth: 2}}.HaltAnchor())
	assert.Equal(t, anchor, Reminder{Start: start, Halt: EveryNthWeek(anchor, 2)}.HaltAnchor())
}
