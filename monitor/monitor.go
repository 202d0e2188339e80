// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TheThingsNetwork/medicinebox-monitor/backend"
	"github.com/TheThingsNetwork/medicinebox-monitor/render"
	"github.com/TheThingsNetwork/medicinebox-monitor/types"
	"github.com/apex/log"
)

// ErrConnectionLost is returned by Run when the broker connection drops
var ErrConnectionLost = errors.New("connection lost")

// Config contains the configuration of the Monitor
type Config struct {
	Broker         types.BrokerEndpoint
	Topic          string
	ClientID       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
}

// DefaultConfig returns the configuration of the medicine box deployment
func DefaultConfig() Config {
	return Config{
		Broker:         types.BrokerEndpoint{Host: "34.19.178.165", Port: 1883},
		Topic:          "medicinebox/#",
		ClientID:       "MQTTMonitor",
		KeepAlive:      60 * time.Second,
		ConnectTimeout: 30 * time.Second,
	}
}

// Monitor subscribes to a topic and renders every message on a Console
type Monitor struct {
	ctx        log.Interface
	config     Config
	subscriber backend.Subscriber
	console    *render.Console
	lost       chan error
}

// New returns a new Monitor
func New(config Config, subscriber backend.Subscriber, console *render.Console, ctx log.Interface) *Monitor {
	return &Monitor{
		ctx:        ctx.WithField("Broker", config.Broker.String()).WithField("Topic", config.Topic),
		config:     config,
		subscriber: subscriber,
		console:    console,
		lost:       make(chan error, 1),
	}
}

// Run connects, subscribes and blocks until ctx is done or the connection is
// lost. A cancelled ctx results in an explicit disconnect and a nil error.
func (m *Monitor) Run(ctx context.Context) error {
	m.console.Starting()
	m.console.Connecting(m.config.Broker)

	if err := m.subscriber.Connect(m); err != nil {
		var refused *backend.RefusedError
		if errors.As(err, &refused) {
			m.ctx.WithField("Code", refused.Code).Warn("Connection refused")
			m.console.ConnectFailed(refused.Code)
			return err
		}
		m.console.Error(err)
		return err
	}
	connected.Set(1)
	defer connected.Set(0)

	m.console.Connected(m.config.Broker, m.config.Topic)
	if err := m.subscriber.Subscribe(m.config.Topic); err != nil {
		m.console.Error(err)
		return err
	}
	m.ctx.Debug("Waiting for messages")

	select {
	case <-ctx.Done():
		m.console.Stopping()
		if err := m.subscriber.Disconnect(); err != nil {
			m.ctx.WithError(err).Warn("Could not disconnect cleanly")
		}
		m.console.Disconnected(nil)
		m.console.Stopped()
		return nil
	case err := <-m.lost:
		return fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}
}

// HandleMessage renders a message. Payloads that are not a JSON object are
// printed as raw text.
func (m *Monitor) HandleMessage(msg *types.InboundMessage) {
	text := types.DecodeText(msg.Payload)
	report, err := types.ParseReport(text)
	if err != nil {
		m.ctx.WithField("MessageTopic", msg.Topic).WithError(err).Debug("Payload is not structured")
		m.console.Raw(msg.Topic, text)
		registerRaw()
		return
	}
	m.console.Report(msg.Topic, report)
	registerStructured(report.Taken())
}

// HandleDisconnect prints a warning and stops Run. There is no reconnect.
func (m *Monitor) HandleDisconnect(err error) {
	connected.Set(0)
	m.ctx.WithError(err).Warn("Disconnected")
	m.console.Disconnected(err)
	select {
	case m.lost <- err:
	default:
	}
}
