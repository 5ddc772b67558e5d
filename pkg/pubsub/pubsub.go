package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published by the preview server
const (
	TopicOrganization = "organization"
)

// Event types on TopicOrganization
const (
	EventLoading = "loading"
	EventReady   = "ready"
	EventError   = "error"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "organization")
	Type    string          `json:"type"`    // Event type (e.g., "loading", "ready", "error")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// OrganizationStatus is the payload of TopicOrganization events
type OrganizationStatus struct {
	Message  string `json:"message"`
	Source   string `json:"source"`
	Title    string `json:"title,omitempty"`
	People   int    `json:"people"`
	Edges    int    `json:"edges"`
	Teams    int    `json:"teams"`
	Warnings int    `json:"warnings"`
}
