package notifications

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/domain"
	perrors "pulse/internal/errors"
	"pulse/internal/storage"
)

type memoryLog struct {
	items   []domain.AppNotification
	loadErr error
	saveErr error
	saves   int
}

func (m *memoryLog) LoadNotifications() ([]domain.AppNotification, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]domain.AppNotification(nil), m.items...), nil
}

func (m *memoryLog) SaveNotifications(list []domain.AppNotification) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items = append([]domain.AppNotification(nil), list...)
	return nil
}

type gaugeRecorder struct {
	values []int
}

func (g *gaugeRecorder) SetUnread(n int) { g.values = append(g.values, n) }

func (g *gaugeRecorder) last() int {
	if len(g.values) == 0 {
		return -1
	}
	return g.values[len(g.values)-1]
}

func TestAddIsNewestFirstAndPersisted(t *testing.T) {
	log := &memoryLog{}
	gauge := &gaugeRecorder{}
	svc := NewService(log, gauge)
	assert.Equal(t, 0, gauge.last())

	first, err := svc.Add(domain.AppNotification{Title: "one"})
	require.NoError(t, err)
	_, err = svc.Add(domain.AppNotification{Title: "two", Type: domain.NotificationIncident})
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Timestamp.IsZero())
	assert.Equal(t, domain.NotificationSystem, first.Type)

	list := svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].Title)
	assert.Equal(t, list, log.items)
	assert.Equal(t, 2, log.saves)
	assert.Equal(t, 2, gauge.last())
}

func TestReadDeleteClear(t *testing.T) {
	log := &memoryLog{}
	gauge := &gaugeRecorder{}
	svc := NewService(log, gauge)

	a, _ := svc.Add(domain.AppNotification{Title: "a"})
	b, _ := svc.Add(domain.AppNotification{Title: "b"})
	_, _ = svc.Add(domain.AppNotification{Title: "c"})
	assert.Equal(t, 3, svc.UnreadCount())

	found, err := svc.MarkAsRead(a.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, svc.UnreadCount())

	saves := log.saves
	found, err = svc.MarkAsRead("missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, saves, log.saves)

	found, err = svc.Delete(b.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, svc.List(), 2)

	require.NoError(t, svc.MarkAllAsRead())
	assert.Equal(t, 0, svc.UnreadCount())
	assert.Equal(t, 0, gauge.last())

	require.NoError(t, svc.ClearAll())
	assert.Empty(t, svc.List())
	assert.Empty(t, log.items)
}

func TestLoadsExistingInbox(t *testing.T) {
	log := &memoryLog{items: []domain.AppNotification{
		{ID: "n1", Title: "old", Timestamp: time.Now(), Type: domain.NotificationRecovery},
	}}
	gauge := &gaugeRecorder{}
	svc := NewService(log, gauge)

	assert.Len(t, svc.List(), 1)
	assert.Equal(t, 1, gauge.last())
}

func TestCorruptedLogStartsEmpty(t *testing.T) {
	log := &memoryLog{loadErr: perrors.Storage(perrors.StorageCorrupted, "notifications", errors.New("bad json"))}
	svc := NewService(log, nil)
	assert.Empty(t, svc.List())

	_, err := svc.AddTest()
	require.NoError(t, err)
	assert.Len(t, log.items, 1)
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	log := &memoryLog{saveErr: errors.New("disk full")}
	svc := NewService(log, nil)

	_, err := svc.Add(domain.AppNotification{Title: "x"})
	assert.Error(t, err)
	assert.Len(t, svc.List(), 1)
}

func TestIngest(t *testing.T) {
	svc := NewService(&memoryLog{}, nil)

	endpointID := "e1"
	n, err := svc.Ingest(PushPayload{Title: "Down", Body: "API is down", Type: "incident", EndpointID: &endpointID})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationIncident, n.Type)
	require.NotNil(t, n.EndpointID)
	assert.Equal(t, "e1", *n.EndpointID)

	n, err = svc.Ingest(PushPayload{Title: "Odd", Type: "carrier-pigeon"})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationSystem, n.Type)
	assert.Nil(t, n.EndpointID)
}

func TestAddTest(t *testing.T) {
	svc := NewService(&memoryLog{}, nil)
	n, err := svc.AddTest()
	require.NoError(t, err)
	assert.Equal(t, "High Latency Detected", n.Title)
	assert.Equal(t, domain.NotificationDegradation, n.Type)
	assert.False(t, n.IsRead)
}

func TestSubscribe(t *testing.T) {
	svc := NewService(&memoryLog{}, nil)
	ch, cancel := svc.Subscribe()

	added, err := svc.Add(domain.AppNotification{Title: "hello"})
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, added.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive notification")
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	_, err = svc.Add(domain.AppNotification{Title: "after cancel"})
	require.NoError(t, err)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	svc := NewService(&memoryLog{}, nil)
	_, cancel := svc.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			_, _ = svc.Add(domain.AppNotification{Title: "burst"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Add blocked on a full subscriber")
	}
	assert.Len(t, svc.List(), subscriberBuffer*2)
}

func TestPersistsAcrossRestartsWithBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.db")

	store, err := storage.Open(path, nil)
	require.NoError(t, err)
	svc := NewService(store, nil)
	n, err := svc.AddTest()
	require.NoError(t, err)
	_, err = svc.MarkAsRead(n.ID)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = storage.Open(path, nil)
	require.NoError(t, err)
	defer store.Close()

	reloaded := NewService(store, nil)
	list := reloaded.List()
	require.Len(t, list, 1)
	assert.Equal(t, n.ID, list[0].ID)
	assert.True(t, list[0].IsRead)
	assert.Equal(t, 0, reloaded.UnreadCount())
}
