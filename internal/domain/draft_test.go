package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraft_RoundTrip(t *testing.T) {
	start := time.Date(2024, 3, 5, 7, 0, 0, 0, time.UTC)
	at := TimeOfDay{Hour: 8, Minute: 30}

	tests := []struct {
		name     string
		reminder Reminder
	}{
		{
			name: "once",
			reminder: Reminder{ID: "1", Enabled: true, Name: "Antibiotic",
				Pattern: Once{At: time.Date(2024, 3, 9, 21, 15, 0, 0, time.UTC)}, Start: start},
		},
		{
			name: "weekly with week halt",
			reminder: Reminder{ID: "2", Enabled: true, Name: "Iron",
				Pattern: Weekly{Days: []Weekday{Friday, Monday}, At: at},
				Halt:    EveryNthWeek(start, 3), Start: start},
		},
		{
			name: "monthly disabled",
			reminder: Reminder{ID: "3", Enabled: false, Name: "Refill",
				Pattern: Monthly{At: at}, Start: start},
		},
		{
			name: "days of month with month halt",
			reminder: Reminder{ID: "4", Enabled: true, Name: "B12",
				Pattern: DaysOfMonth{Days: []int{28, 1, 15}, At: at},
				Halt:    EveryNthMonth(start, 2), Start: start},
		},
		{
			name: "halt without anchor",
			reminder: Reminder{ID: "6", Enabled: true, Name: "Zinc",
				Pattern: Monthly{At: at},
				Halt:    &HaltRule{Unit: HaltMonth, Nth: 4}, Start: start},
		},
		{
			name: "last day of month",
			reminder: Reminder{ID: "5", Enabled: true, Name: "Rent",
				Pattern: LastDayOfMonth{At: at}, Start: start},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToDraft(tt.reminder).ToReminder()
			require.NoError(t, err)

			assert.Equal(t, tt.reminder.ID, got.ID)
			assert.Equal(t, tt.reminder.Enabled, got.Enabled)
			assert.Equal(t, tt.reminder.Name, got.Name)
			assert.True(t, tt.reminder.Start.Equal(got.Start))
			assert.Equal(t, tt.reminder.Halt, got.Halt)
			require.Equal(t, tt.reminder.Pattern.Kind(), got.Pattern.Kind())
			assert.Equal(t, tt.reminder.Pattern.Time(), got.Pattern.Time())

			switch want := tt.reminder.Pattern.(type) {
			case Once:
				assert.True(t, want.At.Equal(got.Pattern.(Once).At))
			case Weekly:
				assert.ElementsMatch(t, want.Days, got.Pattern.(Weekly).Days)
			case DaysOfMonth:
				assert.ElementsMatch(t, want.Days, got.Pattern.(DaysOfMonth).Days)
			}
		})
	}
}

func TestDraft_EmptySelectionsStayEmpty(t *testing.T) {
	at := TimeOfDay{Hour: 9}

	got, err := ToDraft(Reminder{ID: "w", Name: "x", Pattern: Weekly{At: at}}).ToReminder()
	require.NoError(t, err)
	assert.Empty(t, got.Pattern.(Weekly).Days)

	got, err = ToDraft(Reminder{ID: "d", Name: "x", Pattern: DaysOfMonth{Days: []int{}, At: at}}).ToReminder()
	require.NoError(t, err)
	assert.Empty(t, got.Pattern.(DaysOfMonth).Days)
}

func TestDraft_SwitchingIntervalKeepsSelections(t *testing.T) {
	r := Reminder{ID: "1", Enabled: true, Name: "Iron", Pattern: Weekly{Days: []Weekday{Tuesday}, At: TimeOfDay{Hour: 7}}}
	d := ToDraft(r)

	assert.Len(t, d.SelectedMonthDays(), 31)

	d.Interval = KindDaysOfMonth
	p, err := d.Pattern()
	require.NoError(t, err)
	assert.Len(t, p.(DaysOfMonth).Days, 31)

	d.Interval = KindWeekly
	p, err = d.Pattern()
	require.NoError(t, err)
	assert.Equal(t, []Weekday{Tuesday}, p.(Weekly).Days)
}

func TestToDraft_Defaults(t *testing.T) {
	d := ToDraft(Reminder{ID: "1", Name: "x", Pattern: Monthly{At: TimeOfDay{Hour: 6}}})

	assert.Equal(t, KindMonthly, d.Interval)
	assert.Equal(t, HaltNone, d.HaltInterval)
	assert.Equal(t, 2, d.HaltNth)
	assert.Len(t, d.SelectedWeekdays(), 7)
	assert.Len(t, d.SelectedMonthDays(), 31)
	assert.Nil(t, d.HaltRule())
}

func TestNewDraft(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 2, 30, 0, time.UTC)
	d := NewDraft(now)

	assert.NotEmpty(t, d.ID)
	assert.True(t, d.Enabled)
	assert.Equal(t, KindOnce, d.Interval)
	assert.Equal(t, TimeOfDay{Hour: 10, Minute: 7}, d.Time)
	assert.NotEqual(t, d.ID, NewDraft(now).ID)
}

func TestDraft_HaltRule(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := ToDraft(Reminder{ID: "1", Name: "x", Pattern: Monthly{}, Start: start})

	d.HaltInterval = HaltMonth
	d.HaltNth = 3
	rule := d.HaltRule()
	require.NotNil(t, rule)
	assert.Equal(t, HaltMonth, rule.Unit)
	assert.True(t, rule.Anchor.IsZero())
	assert.Equal(t, 3, rule.Nth)

	r, err := d.ToReminder()
	require.NoError(t, err)
	assert.Equal(t, start, r.HaltAnchor())

	d.HaltAnchor = start.AddDate(0, 0, 7)
	assert.Equal(t, start.AddDate(0, 0, 7), d.HaltRule().Anchor)

	d.HaltNth = 1
	_, err = d.ToReminder()
	assert.ErrorIs(t, err, ErrInvalidHalt)
}

func TestDraft_PatternErrors(t *testing.T) {
	d := ToDraft(Reminder{ID: "1", Name: "x", Pattern: Monthly{}})

	d.Time = TimeOfDay{Hour: 24}
	_, err := d.Pattern()
	assert.ErrorIs(t, err, ErrInvalidTime)

	d.Time = TimeOfDay{Hour: 8}
	d.Interval = "yearly"
	_, err = d.Pattern()
	assert.ErrorIs(t, err, ErrInvalidPattern)
}
