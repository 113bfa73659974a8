package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tazhate/pillbot/config"
	"github.com/tazhate/pillbot/internal/calendar"
	"github.com/tazhate/pillbot/internal/domain"
	"github.com/tazhate/pillbot/internal/notify"
	"github.com/tazhate/pillbot/internal/recurrence"
	"github.com/tazhate/pillbot/internal/service"
	"github.com/tazhate/pillbot/internal/storage"
)

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func testConfig(username, password string) *config.Config {
	return &config.Config{
		Location: time.UTC,
		Server:   config.ServerConfig{Enabled: true, Port: "0", Username: username, Password: password},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, webhook http.HandlerFunc) *Server {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "pill.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	gen := recurrence.NewGenerator(calendar.New(cfg.Location))
	svc := service.NewReminderService(store, notify.NewLocal(store), gen, service.Options{})
	return New(cfg, svc, "/bot", webhook)
}

func do(t *testing.T, s *Server, method, path string, body interface{}) (int, testResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth("nurse", "secret")

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out testResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func createWeekly(t *testing.T, s *Server) ReminderResponse {
	t.Helper()
	status, resp := do(t, s, http.MethodPost, "/api/reminders", map[string]interface{}{
		"name":     "Iron",
		"kind":     "weekly",
		"time":     "08:30",
		"weekdays": []string{"mon", "fri"},
	})
	require.Equal(t, http.StatusCreated, status, resp.Error)

	var r ReminderResponse
	require.NoError(t, json.Unmarshal(resp.Data, &r))
	return r
}

func TestHealth_NoAuth(t *testing.T) {
	s := newTestServer(t, testConfig("nurse", "secret"), nil)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_RequiresBasicAuth(t *testing.T) {
	s := newTestServer(t, testConfig("nurse", "secret"), nil)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/api/reminders", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_DisabledWithoutCredentials(t *testing.T) {
	s := newTestServer(t, testConfig("", ""), nil)

	status, _ := do(t, s, http.MethodGet, "/api/reminders", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateAndList(t *testing.T) {
	s := newTestServer(t, testConfig("nurse", "secret"), nil)

	r := createWeekly(t, s)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "weekly", r.Kind)
	assert.True(t, r.Enabled)
	assert.Equal(t, "Mon, Fri at 8:30", r.Summary)
	assert.Contains(t, r.RRule, "FREQ=WEEKLY")
	require.NotNil(t, r.NextRun)

	status, resp := do(t, s, http.MethodGet, "/api/reminders", nil)
	require.Equal(t, http.StatusOK, status)
	var list []ReminderResponse
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, r.ID, list[0].ID)
	require.NotNil(t, list[0].NextRun)
	assert.True(t, r.NextRun.Equal(*list[0].NextRun))

	status, resp = do(t, s, http.MethodGet, "/api/pending", nil)
	require.Equal(t, http.StatusOK, status)
	var pending []TriggerResponse
	require.NoError(t, json.Unmarshal(resp.Data, &pending))
	assert.Len(t, pending, recurrence.DefaultTotalLimit)
	for _, p := range pending {
		assert.Equal(t, "Iron", p.Title)
	}
}

func TestCreate_Validation(t *testing.T) {
	s := newTestServer(t, testConfig("nurse", "secret"), nil)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"kind": "monthly", "time": "08:00"}},
		{"blank name", map[string]interface{}{"name": "  ", "kind": "monthly", "time": "08:00"}},
		{"unknown kind", map[string]interface{}{"name": "Iron", "kind": "yearly", "time": "08:00"}},
		{"bad time", map[string]interface{}{"name": "Iron", "kind": "monthly", "time": "25:00"}},
		{"once without date", map[string]interface{}{"name": "Iron", "kind": "once", "time": "08:00"}},
		{"once bad date", map[string]interface{}{"name": "Iron", "kind": "once", "time": "08:00", "date": "05/01/2024"}},
		{"bad weekday", map[string]interface{}{"name": "Iron", "kind": "weekly", "time": "08:00", "weekdays": []string{"funday"}}},
		{"bad day of month", map[string]interface{}{"name": "Iron", "kind": "days_of_month", "time": "08:00", "days": []int{0}}},
		{"halt every week", map[string]interface{}{"name": "Iron", "kind": "monthly", "time": "08:00", "halt": map[string]interface{}{"unit": "week", "nth": 1}}},
		{"halt bad unit", map[string]interface{}{"name": "Iron", "kind": "monthly", "time": "08:00", "halt": map[string]interface{}{"unit": "day", "nth": 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := do(t, s, http.MethodPost, "/api/reminders", tt.body)
			assert.Equal(t, http.StatusBadRequest, status, resp.Error)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}

	status, resp := do(t, s, http.MethodGet, "/api/reminders", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(resp.Data))
}

func TestCreate_WithHalt(t *testing.T) {
	s := newTestServer(t, testConfig("nurse", "secret"), nil)

	status, resp := do(t, s, http.MethodPost, "/api/reminders", map[string]interface{}{
		"name": "B12",
		"kind": "days_of_month",
		"time": "09:00",
		"days": []int{15, 1},
		"halt": map[string]interface{}{"unit": "month", "nth": 3},
	})
	require.Equal(t, http.StatusCreated, status, resp.Error)

	var r ReminderResponse
	require.NoError(t, json.Unmarshal(resp.Data, &r))
	assert.Equal(t, "days 1, 15 at 9:00, every 3rd month off", r.Summary)
	require.NotNil(t, r.Halt)
	assert.Equal(t, "month", r.Halt.Unit)
	assert.True(t, r.Halt.Anchor.Equal(r.Start))
}

func TestGet_NotFound(t *testing.T) {
	s := newTestServer(t, testConfig("nurse", "secret"), nil)

	status, resp := do(t, s, http.MethodGet, "/api/reminders/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, resp.Error, "not found")

	status, _ = do(t, s, http.MethodDelete, "/api/reminders/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDraftRoundTrip(t *testing.T) {
	s := newTestServer(t, testConfig("nurse", "secret"), nil)
	r := createWeekly(t, s)

	status, resp := do(t, s, http.MethodGet, "/api/reminders/"+r.ID+"/draft", nil)
	require.Equal(t, http.StatusOK, status)
	var d domain.Draft
	require.NoError(t, json.Unmarshal(resp.Data, &d))
	assert.Len(t, d.Weekdays, 7)
	assert.Len(t, d.MonthDays, 31)
	assert.ElementsMatch(t, []domain.Weekday{domain.Monday, domain.Friday}, d.SelectedWeekdays())

	d.HaltInterval = domain.HaltWeek
	d.HaltNth = 2
	status, resp = do(t, s, http.MethodPut, "/api/reminders/"+r.ID+"/draft", d)
	require.Equal(t, http.StatusOK, status, resp.Error)

	var updated ReminderResponse
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, r.ID, updated.ID)
	assert.Equal(t, "Mon, Fri at 8:30, every 2nd week off", updated.Summary)
	assert.True(t, updated.Start.Equal(r.Start))
}

func TestUpdate(t *testing.T) {
	s := newTestServer(t, testConfig("nurse", "secret"), nil)
	r := createWeekly(t, s)

	status, resp := do(t, s, http.MethodPut, "/api/reminders/"+r.ID, map[string]interface{}{
		"name": "Iron",
		"kind": "last_day_of_month",
		"time": "20:00",
	})
	require.Equal(t, http.StatusOK, status, resp.Error)

	var updated ReminderResponse
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.Equal(t, "last_day_of_month", updated.Kind)
	assert.Equal(t, "last day of month at 20:00", updated.Summary)
	assert.True(t, updated.Start.Equal(r.Start))
}

func TestUpcomingAndSchedule(t *testing.T) {
	s := newTestServer(t, testConfig("nurse", "secret"), nil)
	r := createWeekly(t, s)

	status, resp := do(t, s, http.MethodGet, "/api/reminders/"+r.ID+"/upcoming?count=3", nil)
	require.Equal(t, http.StatusOK, status, resp.Error)
	var times []time.Time
	require.NoError(t, json.Unmarshal(resp.Data, &times))
	require.Len(t, times, 3)
	for i, at := range times {
		assert.Contains(t, []time.Weekday{time.Monday, time.Friday}, at.Weekday())
		assert.Equal(t, 8, at.Hour())
		if i > 0 {
			assert.True(t, at.After(times[i-1]))
		}
	}

	status, _ = do(t, s, http.MethodGet, "/api/reminders/"+r.ID+"/upcoming?count=0", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp = do(t, s, http.MethodGet, "/api/schedule?limit=4", nil)
	require.Equal(t, http.StatusOK, status)
	var entries []OccurrenceResponse
	require.NoError(t, json.Unmarshal(resp.Data, &entries))
	require.Len(t, entries, 4)
	assert.True(t, entries[0].At.Equal(times[0]))
	assert.Equal(t, r.ID, entries[0].ReminderID)
}

func TestSetEnabledAndDelete(t *testing.T) {
	s := newTestServer(t, testConfig("nurse", "secret"), nil)
	r := createWeekly(t, s)

	status, _ := do(t, s, http.MethodPatch, "/api/reminders/"+r.ID+"/enabled", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, resp := do(t, s, http.MethodPatch, "/api/reminders/"+r.ID+"/enabled", map[string]interface{}{"enabled": false})
	require.Equal(t, http.StatusOK, status, resp.Error)
	var updated ReminderResponse
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.False(t, updated.Enabled)
	assert.Nil(t, updated.NextRun)

	status, resp = do(t, s, http.MethodGet, "/api/pending", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(resp.Data))

	status, _ = do(t, s, http.MethodDelete, "/api/reminders/"+r.ID, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, s, http.MethodGet, "/api/reminders/"+r.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReset(t *testing.T) {
	s := newTestServer(t, testConfig("nurse", "secret"), nil)
	createWeekly(t, s)

	status, resp := do(t, s, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, status, resp.Error)
	assert.JSONEq(t, `{"scheduled": 64}`, string(resp.Data))
}

func TestNewDraft(t *testing.T) {
	s := newTestServer(t, testConfig("nurse", "secret"), nil)

	status, resp := do(t, s, http.MethodGet, "/api/drafts/new", nil)
	require.Equal(t, http.StatusOK, status)
	var d domain.Draft
	require.NoError(t, json.Unmarshal(resp.Data, &d))
	assert.NotEmpty(t, d.ID)
	assert.True(t, d.Enabled)
	assert.Equal(t, domain.KindOnce, d.Interval)
}

func TestWebhookMountedWithoutAuth(t *testing.T) {
	called := false
	webhook := func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}
	s := newTestServer(t, testConfig("nurse", "secret"), webhook)

	req := httptest.NewRequest(http.MethodPost, "/bot", bytes.NewReader([]byte(`{"update_id": 1}`)))
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, called)
}
