// internal/notifications/service.go
package notifications

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pulse/internal/domain"
	"pulse/internal/storage"
)

const subscriberBuffer = 16

// PushPayload is the body of a push delivered to the local agent.
type PushPayload struct {
	Title      string  `json:"title" binding:"required"`
	Body       string  `json:"body"`
	Type       string  `json:"type"`
	EndpointID *string `json:"endpoint_id"`
}

// UnreadGauge is told the unread count after every change. *metrics.Collector satisfies it.
type UnreadGauge interface {
	SetUnread(n int)
}

// Service is the local notification inbox. The list is kept newest first and
// written through to the log after every mutation. It has no size cap.
type Service struct {
	mu    sync.RWMutex
	log   storage.NotificationLog
	items []domain.AppNotification
	gauge UnreadGauge
	now   func() time.Time

	subMu   sync.Mutex
	subs    map[int]chan domain.AppNotification
	nextSub int
}

// NewService loads the persisted inbox. An unreadable log starts empty.
func NewService(log storage.NotificationLog, gauge UnreadGauge) *Service {
	s := &Service{
		log:   log,
		gauge: gauge,
		now:   time.Now,
		subs:  make(map[int]chan domain.AppNotification),
	}

	items, err := log.LoadNotifications()
	if err != nil {
		logrus.WithError(err).Warn("Failed to load notifications, starting with an empty inbox")
		items = nil
	}
	s.items = items
	s.updateGauge()

	logrus.WithField("count", len(s.items)).Debug("Notification inbox loaded")
	return s
}

// save must be called with mu held.
func (s *Service) save() error {
	err := s.log.SaveNotifications(s.items)
	if err != nil {
		logrus.WithError(err).Error("Failed to save notifications")
	}
	s.updateGauge()
	return err
}

func (s *Service) updateGauge() {
	if s.gauge != nil {
		s.gauge.SetUnread(s.countUnread())
	}
}

func (s *Service) countUnread() int {
	n := 0
	for _, item := range s.items {
		if !item.IsRead {
			n++
		}
	}
	return n
}

// Add inserts n at the front, assigning an id and timestamp when missing.
func (s *Service) Add(n domain.AppNotification) (domain.AppNotification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = s.now()
	}
	if n.Type == "" {
		n.Type = domain.NotificationSystem
	}

	s.mu.Lock()
	s.items = append([]domain.AppNotification{n}, s.items...)
	err := s.save()
	s.mu.Unlock()

	s.publish(n)

	logrus.WithFields(logrus.Fields{
		"id":    n.ID,
		"type":  n.Type,
		"title": n.Title,
	}).Info("Notification added")
	return n, err
}

// Ingest records a received push. Unknown types become system notifications.
func (s *Service) Ingest(p PushPayload) (domain.AppNotification, error) {
	typ, ok := domain.ParseNotificationType(p.Type)
	if !ok && p.Type != "" {
		logrus.WithField("type", p.Type).Warn("Unknown notification type, using system")
	}

	var endpointID *string
	if p.EndpointID != nil && strings.TrimSpace(*p.EndpointID) != "" {
		id := *p.EndpointID
		endpointID = &id
	}

	return s.Add(domain.AppNotification{
		Title:      p.Title,
		Body:       p.Body,
		Type:       typ,
		EndpointID: endpointID,
	})
}

// AddTest adds a sample degradation notification.
func (s *Service) AddTest() (domain.AppNotification, error) {
	return s.Add(domain.AppNotification{
		Title: "High Latency Detected",
		Body:  "Endpoint 'Checkout API' is experiencing high latency (850ms).",
		Type:  domain.NotificationDegradation,
	})
}

// MarkAsRead reports whether id was found. An unknown id changes nothing.
func (s *Service) MarkAsRead(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].IsRead = true
			return true, s.save()
		}
	}
	return false, nil
}

func (s *Service) MarkAllAsRead() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		s.items[i].IsRead = true
	}
	return s.save()
}

// Delete reports whether id was found.
func (s *Service) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0]
	found := false
	for _, item := range s.items {
		if item.ID == id {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	s.items = kept
	return found, s.save()
}

func (s *Service) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	return s.save()
}

func (s *Service) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countUnread()
}

// List returns a copy of the inbox, newest first.
func (s *Service) List() []domain.AppNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AppNotification, len(s.items))
	copy(out, s.items)
	return out
}

// Subscribe delivers notifications added after the call. Slow subscribers
// miss notifications rather than blocking Add. Call cancel to stop.
func (s *Service) Subscribe() (<-chan domain.AppNotification, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan domain.AppNotification, subscriberBuffer)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Service) publish(n domain.AppNotification) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for id, ch := range s.subs {
		select {
		case ch <- n:
		default:
			logrus.WithField("subscriber", id).Warn("Notification subscriber is full, dropping")
		}
	}
}
