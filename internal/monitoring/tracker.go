// internal/monitoring/tracker.go
package monitoring

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pulse/internal/domain"
)

// Transition is a confirmed status change of one endpoint.
type Transition struct {
	EndpointID string
	Name       string
	From       domain.EndpointStatus
	To         domain.EndpointStatus
	LatencyMs  *float64
	At         time.Time
}

// stateInfo tracks soft fail progress for one endpoint.
type stateInfo struct {
	current          domain.EndpointStatus
	pending          domain.EndpointStatus
	consecutiveCount int
	lastStateChange  time.Time
}

// StateTracker confirms endpoint status changes across dashboard snapshots.
// A worse status must be seen threshold times in a row before it is reported;
// a return to healthy is reported at once. Unknown never changes the state.
type StateTracker struct {
	mu        sync.Mutex
	states    map[string]*stateInfo
	threshold int
}

func NewStateTracker(threshold int) *StateTracker {
	if threshold < 1 {
		threshold = 1
	}
	return &StateTracker{
		states:    make(map[string]*stateInfo),
		threshold: threshold,
	}
}

// Observe feeds one snapshot and returns the transitions it confirmed. The
// first sighting of an endpoint only seeds its state.
func (t *StateTracker) Observe(dash domain.DashboardData) []Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := dash.FetchedAt
	if now.IsZero() {
		now = time.Now()
	}

	var transitions []Transition
	seen := make(map[string]struct{}, len(dash.Endpoints))

	for _, ep := range dash.Endpoints {
		seen[ep.ID] = struct{}{}
		status := ep.Status()

		info, exists := t.states[ep.ID]
		if !exists {
			if status != domain.StatusUnknown {
				t.states[ep.ID] = &stateInfo{current: status, pending: status, consecutiveCount: 1, lastStateChange: now}
			}
			continue
		}
		if status == domain.StatusUnknown {
			continue
		}

		if status == info.pending {
			info.consecutiveCount++
		} else {
			info.pending = status
			info.consecutiveCount = 1
		}

		if status == info.current {
			continue
		}
		if status != domain.StatusHealthy && info.consecutiveCount < t.threshold {
			continue
		}

		logrus.WithFields(logrus.Fields{
			"endpoint":          ep.ID,
			"old_state":         info.current,
			"new_state":         status,
			"consecutive_count": info.consecutiveCount,
			"threshold":         t.threshold,
		}).Info("Endpoint state change confirmed")

		transitions = append(transitions, Transition{
			EndpointID: ep.ID,
			Name:       ep.Name,
			From:       info.current,
			To:         status,
			LatencyMs:  ep.LatencyMs(),
			At:         now,
		})
		info.current = status
		info.consecutiveCount = 1
		info.lastStateChange = now
	}

	// Endpoints removed from the dashboard are forgotten.
	for id := range t.states {
		if _, ok := seen[id]; !ok {
			delete(t.states, id)
		}
	}

	return transitions
}

// Current returns the confirmed status of an endpoint.
func (t *StateTracker) Current(endpointID string) (domain.EndpointStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.states[endpointID]
	if !ok {
		return domain.StatusUnknown, false
	}
	return info.current, true
}

// Notification renders a transition for the local inbox.
func (tr Transition) Notification() domain.AppNotification {
	id := tr.EndpointID
	n := domain.AppNotification{
		Timestamp:  tr.At,
		EndpointID: &id,
	}

	switch tr.To {
	case domain.StatusDown:
		n.Type = domain.NotificationIncident
		n.Title = "Endpoint Down"
		n.Body = fmt.Sprintf("Endpoint '%s' is not responding.", tr.Name)
	case domain.StatusDegraded:
		n.Type = domain.NotificationDegradation
		n.Title = "Performance Degraded"
		if tr.LatencyMs != nil {
			n.Body = fmt.Sprintf("Endpoint '%s' is experiencing high latency (%s).", tr.Name, domain.FormatLatency(*tr.LatencyMs))
		} else {
			n.Body = fmt.Sprintf("Endpoint '%s' is degraded.", tr.Name)
		}
	default:
		n.Type = domain.NotificationRecovery
		n.Title = "Endpoint Recovered"
		n.Body = fmt.Sprintf("Endpoint '%s' is healthy again.", tr.Name)
	}
	return n
}
