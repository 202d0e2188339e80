// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package dummy

import (
	"errors"
	"strings"
	"sync"

	"github.com/TheThingsNetwork/medicinebox-monitor/backend"
	"github.com/TheThingsNetwork/medicinebox-monitor/types"
	"github.com/apex/log"
	"github.com/google/uuid"
)

// ErrNotConnected is returned when subscribing or publishing without a connection
var ErrNotConnected = errors.New("dummy: not connected")

// Dummy backend
type Dummy struct {
	ctx log.Interface

	// RefuseCode makes Connect fail with a *backend.RefusedError if non-zero
	RefuseCode byte
	// ConnectError makes Connect fail with this error
	ConnectError error

	mu           sync.Mutex
	deliver      sync.Mutex
	handler      backend.Handler
	connectionID string
	topics       []string
	subscribed   chan struct{}
	subscribe    sync.Once
	disconnects  int
}

// New returns a new Dummy backend
func New(ctx log.Interface) *Dummy {
	return &Dummy{
		ctx:        ctx.WithField("Connector", "Dummy"),
		subscribed: make(chan struct{}),
	}
}

// Connect implements backend.Subscriber
func (d *Dummy) Connect(handler backend.Handler) error {
	if d.ConnectError != nil {
		return d.ConnectError
	}
	if d.RefuseCode != 0 {
		d.ctx.WithField("Code", d.RefuseCode).Debug("Refused connection")
		return &backend.RefusedError{Code: d.RefuseCode}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = handler
	d.connectionID = uuid.New().String()
	d.ctx.WithField("ConnectionID", d.connectionID).Debug("Connected")
	return nil
}

// Subscribe implements backend.Subscriber
func (d *Dummy) Subscribe(topic string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handler == nil {
		return ErrNotConnected
	}
	d.topics = append(d.topics, topic)
	d.subscribe.Do(func() { close(d.subscribed) })
	d.ctx.WithField("Topic", topic).Debug("Subscribed")
	return nil
}

// Disconnect implements backend.Subscriber
func (d *Dummy) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handler = nil
	d.topics = nil
	d.disconnects++
	d.ctx.Debug("Disconnected")
	return nil
}

// Subscribed is closed after the first successful Subscribe
func (d *Dummy) Subscribed() <-chan struct{} {
	return d.subscribed
}

// Topics returns the topic filters that are currently subscribed
func (d *Dummy) Topics() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.topics...)
}

// Disconnects returns the number of explicit Disconnect calls
func (d *Dummy) Disconnects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disconnects
}

// Publish delivers a message to the handler if it matches a subscription.
// Deliveries are serialized.
func (d *Dummy) Publish(topic string, payload []byte) error {
	d.mu.Lock()
	handler := d.handler
	matched := false
	for _, filter := range d.topics {
		if Match(filter, topic) {
			matched = true
			break
		}
	}
	d.mu.Unlock()
	if handler == nil {
		return ErrNotConnected
	}
	if !matched {
		d.ctx.WithField("Topic", topic).Debug("Did not publish [no subscription]")
		return nil
	}
	d.deliver.Lock()
	defer d.deliver.Unlock()
	handler.HandleMessage(&types.InboundMessage{Topic: topic, Payload: payload})
	d.ctx.WithField("Topic", topic).Debug("Published message")
	return nil
}

// Drop simulates a lost connection
func (d *Dummy) Drop(err error) {
	d.mu.Lock()
	handler := d.handler
	d.handler = nil
	d.topics = nil
	d.mu.Unlock()
	if handler != nil {
		handler.HandleDisconnect(err)
	}
}

// Match reports whether an MQTT topic filter matches a topic
func Match(filter, topic string) bool {
	filterLevels := strings.Split(filter, "/")
	topicLevels := strings.Split(topic, "/")
	for i, level := range filterLevels {
		if level == "#" {
			return i == len(filterLevels)-1
		}
		if i >= len(topicLevels) {
			return false
		}
		if level != "+" && level != topicLevels[i] {
			return false
		}
	}
	return len(filterLevels) == len(topicLevels)
}
