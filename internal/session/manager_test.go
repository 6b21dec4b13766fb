package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/inspection-reports/constants"
	"github.com/joseph-ayodele/inspection-reports/internal/common"
	"github.com/joseph-ayodele/inspection-reports/internal/entity"
)

func TestManagerNewSessionSetsCookie(t *testing.T) {
	m := NewManager(NewMemoryStore(), ManagerConfig{TTL: time.Hour}, nil)

	rec := httptest.NewRecorder()
	st, err := m.Load(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NotEmpty(t, st.ID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultCookieName, cookies[0].Name)
	assert.Equal(t, st.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestManagerRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, ManagerConfig{TTL: time.Hour}, nil)
	ctx := context.Background()

	st, err := m.Load(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	st.Start(entity.ReportHeader{SiteID: "P-1", Date: "2024-02-03"})
	st.AddItem(entity.InspectionItem{Type: "a", Depth: "1", Status: "Good"})
	require.NoError(t, m.Save(ctx, st))

	req := httptest.NewRequest(http.MethodGet, "/step2", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: st.ID})
	rec := httptest.NewRecorder()
	got, err := m.Load(rec, req)
	require.NoError(t, err)
	assert.Equal(t, st.ID, got.ID)
	assert.Equal(t, "P-1", got.Header.SiteID)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, constants.StepItems, got.Step)
	assert.Empty(t, rec.Result().Cookies(), "existing session keeps its cookie")
}

func TestManagerExpiredSessionIsReplaced(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, ManagerConfig{TTL: time.Minute}, nil)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	st := &State{ID: "old"}
	require.NoError(t, m.Save(context.Background(), st))

	now = now.Add(2 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "old"})
	got, err := m.Load(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "old", got.ID)

	n, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = store.Get(context.Background(), "old")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestManagerReset(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, ManagerConfig{}, nil)
	st := &State{ID: "s1"}
	require.NoError(t, m.Save(context.Background(), st))

	rec := httptest.NewRecorder()
	require.NoError(t, m.Reset(context.Background(), rec, st))
	_, err := store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, common.ErrNotFound)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestStartSweeperStopsWithContext(t *testing.T) {
	m := NewManager(NewMemoryStore(), ManagerConfig{TTL: time.Minute}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := m.StartSweeper(ctx, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestStateSetPhotos(t *testing.T) {
	st := &State{}
	st.Start(entity.ReportHeader{SiteID: "x", Date: "2024-01-01"})
	st.AddItem(entity.InspectionItem{Type: "a", Photos: []entity.Photo{{Label: "ignored"}}})
	st.AddItem(entity.InspectionItem{Type: "b"})
	assert.Empty(t, st.Items[0].Photos, "photos are only set in bulk")

	err := st.SetPhotos([][]entity.Photo{{{Label: "p"}}})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	require.NoError(t, st.SetPhotos([][]entity.Photo{{{Label: "p", Data: []byte{1}}}, nil}))
	assert.Equal(t, constants.StepPhotos, st.Step)

	r := st.Report("bye")
	r.Items[0].Photos[0].Data[0] = 7
	assert.Equal(t, byte(1), st.Items[0].Photos[0].Data[0])
	assert.Equal(t, "x", r.Header.SiteID)
	assert.Equal(t, "bye", r.ClosingNotes)

	st.Start(entity.ReportHeader{SiteID: "y", Date: "2024-01-02"})
	assert.Empty(t, st.Items)
}
