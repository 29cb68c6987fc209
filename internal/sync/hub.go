// Package sync implements spec.md §4.10's transport-agnostic command
// surface: variable writes, fault injection, logic pushes, and the
// tag-update event stream, serialised onto each project's scan engine.
package sync

import (
	"sync"

	"github.com/natasha-maryam/pandaura-runtime-suite-backend/internal/scan"
)

// wildcardTag is the topic suffix a streamTags subscriber with no tag
// filter registers under; it receives every variableUpdate plus every
// non-tag-scoped event (systemStatus, faultStatus, scenarioStep).
const wildcardTag = "*"

// Subscriber abstracts a streaming client of the event feed.
type Subscriber interface {
	Send(scan.Event) error
	Close()
}

// Hub fans engine events out to subscribers keyed by project and,
// optionally, by tag. It is the same register/unregister/broadcast
// channel-actor shape used elsewhere in this codebase for pub/sub,
// generalized from a single "per project" key to "per project and
// per tag" so a subscriber can follow one variable without receiving
// every other tag's updates.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[Subscriber]struct{}
	register chan subscription
	unreg    chan subscription
	events   chan topicEvent
}

type subscription struct {
	topic  string
	client Subscriber
}

type topicEvent struct {
	topic string
	event scan.Event
}

// NewHub creates an initialized Hub and starts its dispatch loop.
func NewHub() *Hub {
	h := &Hub{
		clients:  make(map[string]map[Subscriber]struct{}),
		register: make(chan subscription),
		unreg:    make(chan subscription),
		events:   make(chan topicEvent),
	}
	go h.run()
	return h
}

func topicKey(projectID, tag string) string {
	if tag == "" {
		tag = wildcardTag
	}
	return projectID + "|" + tag
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.clients[sub.topic]; !ok {
				h.clients[sub.topic] = make(map[Subscriber]struct{})
			}
			h.clients[sub.topic][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.clients[sub.topic]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.clients, sub.topic)
				}
			}
		case te := <-h.events:
			h.deliver(te.topic, te.event)
		}
	}
}

// deliver sends evt to every subscriber of topic. A subscriber whose Send
// fails is closed and dropped. Send runs synchronously on the dispatch
// loop, so a subscriber that blocks in Send holds up delivery and publish
// waits until the loop is free; a slow subscriber is not dropped.
func (h *Hub) deliver(topic string, evt scan.Event) {
	clients, ok := h.clients[topic]
	if !ok {
		return
	}
	for c := range clients {
		if err := c.Send(evt); err != nil {
			c.Close()
			delete(clients, c)
		}
	}
	if len(clients) == 0 {
		delete(h.clients, topic)
	}
}

// Subscribe registers client for projectID's events. An empty tag
// subscribes to every tag and every non-tag-scoped event in the project;
// a non-empty tag narrows delivery to that variable's updates only.
func (h *Hub) Subscribe(projectID, tag string, client Subscriber) {
	h.register <- subscription{topic: topicKey(projectID, tag), client: client}
}

// Unsubscribe removes client from a topic it previously joined.
// Unsubscription on client disconnect is the caller's responsibility; the
// hub itself only drops a client once its Send starts failing.
func (h *Hub) Unsubscribe(projectID, tag string, client Subscriber) {
	h.unreg <- subscription{topic: topicKey(projectID, tag), client: client}
}

// publish fans evt out to projectID's wildcard subscribers and, for
// variableUpdate events, to that variable's own per-tag subscribers too.
func (h *Hub) publish(projectID string, evt scan.Event) {
	h.events <- topicEvent{topic: topicKey(projectID, wildcardTag), event: evt}
	if evt.Type == scan.EventVariableUpdate && evt.Tag != "" {
		h.events <- topicEvent{topic: topicKey(projectID, evt.Tag), event: evt}
	}
}

// SinkFor returns a scan.Sink that publishes every event a project's
// engine emits through this hub, under that project's topic namespace.
func (h *Hub) SinkFor(projectID string) scan.Sink {
	return projectSink{hub: h, projectID: projectID}
}

type projectSink struct {
	hub       *Hub
	projectID string
}

func (s projectSink) Publish(evt scan.Event) {
	s.hub.publish(s.projectID, evt)
}
