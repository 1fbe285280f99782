// Package events fans task events out to stream subscribers of a project.
package events

import (
	"context"
	"sort"
	"sync"

	"go.pilab.hu/taskboard/domain"
	"go.pilab.hu/taskboard/internal/metrics"
)

const subscriberBuffer = 32

// Subscription is one connected stream client.
type Subscription struct {
	ProjectID string
	Actor     string

	events   chan domain.TaskEvent
	presence chan []string
}

// Events delivers task events of the subscribed project.
func (s *Subscription) Events() <-chan domain.TaskEvent { return s.events }

// Presence delivers the current roster after every join and leave.
// Only the latest roster is kept for a slow reader.
func (s *Subscription) Presence() <-chan []string { return s.presence }

// Hub is the in-process, per-project event fan-out.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscribe registers actor as a listener on projectID.
func (h *Hub) Subscribe(projectID, actor string) *Subscription {
	sub := &Subscription{
		ProjectID: projectID,
		Actor:     actor,
		events:    make(chan domain.TaskEvent, subscriberBuffer),
		presence:  make(chan []string, 1),
	}

	h.mu.Lock()
	set, ok := h.subs[projectID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[projectID] = set
	}
	set[sub] = struct{}{}
	h.broadcastPresenceLocked(projectID)
	h.mu.Unlock()

	metrics.StreamSubscribersGauge.Inc()
	return sub
}

// Unsubscribe removes sub and closes its channels. It is safe to call twice.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.ProjectID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.events)
	close(sub.presence)
	metrics.StreamSubscribersGauge.Dec()

	if len(set) == 0 {
		delete(h.subs, sub.ProjectID)
		return
	}
	h.broadcastPresenceLocked(sub.ProjectID)
}

// Publish delivers event to every subscriber of its project.
// A subscriber whose buffer is full misses the event.
func (h *Hub) Publish(_ context.Context, event domain.TaskEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[event.ProjectID] {
		select {
		case sub.events <- event:
		default:
		}
	}
}

// Roster returns the distinct actors connected to projectID, sorted.
func (h *Hub) Roster(projectID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rosterLocked(projectID)
}

func (h *Hub) rosterLocked(projectID string) []string {
	seen := make(map[string]struct{})
	roster := make([]string, 0, len(h.subs[projectID]))
	for sub := range h.subs[projectID] {
		if _, dup := seen[sub.Actor]; dup {
			continue
		}
		seen[sub.Actor] = struct{}{}
		roster = append(roster, sub.Actor)
	}
	sort.Strings(roster)
	return roster
}

func (h *Hub) broadcastPresenceLocked(projectID string) {
	roster := h.rosterLocked(projectID)
	for sub := range h.subs[projectID] {
		// Replace a stale roster the reader has not picked up yet.
		select {
		case <-sub.presence:
		default:
		}
		sub.presence <- roster
	}
}
