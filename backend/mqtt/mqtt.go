// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TheThingsNetwork/medicinebox-monitor/backend"
	"github.com/TheThingsNetwork/medicinebox-monitor/types"
	"github.com/apex/log"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
)

// SubscribeQoS indicates the MQTT Quality of Service level of the subscription.
// 0: The broker will deliver the message once, with no confirmation.
var SubscribeQoS byte = 0x00

// DisconnectQuiesce is the time in milliseconds the client waits for pending
// work when disconnecting
var DisconnectQuiesce uint = 250

// ErrNotConnected is returned when subscribing before Connect
var ErrNotConnected = errors.New("not connected")

// Config contains configuration for MQTT
type Config struct {
	Broker         types.BrokerEndpoint
	ClientID       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
}

// MQTT subscriber backend
type MQTT struct {
	ctx    log.Interface
	config Config

	mu      sync.Mutex
	client  paho.Client
	handler backend.Handler
}

// New returns a new MQTT backend
func New(config Config, ctx log.Interface) *MQTT {
	return &MQTT{
		ctx:    ctx.WithField("Connector", "MQTT").WithField("Broker", config.Broker.String()),
		config: config,
	}
}

func (c *MQTT) options() *paho.ClientOptions {
	mqttOpts := paho.NewClientOptions()
	mqttOpts.AddBroker(c.config.Broker.URL())
	mqttOpts.SetClientID(c.config.ClientID)
	mqttOpts.SetKeepAlive(c.config.KeepAlive)
	mqttOpts.SetPingTimeout(10 * time.Second)
	mqttOpts.SetCleanSession(true)
	mqttOpts.SetOrderMatters(true)
	mqttOpts.SetAutoReconnect(false)
	mqttOpts.SetConnectRetry(false)
	if c.config.ConnectTimeout > 0 {
		mqttOpts.SetConnectTimeout(c.config.ConnectTimeout)
	}
	mqttOpts.SetDefaultPublishHandler(func(_ paho.Client, msg paho.Message) {
		c.ctx.WithField("Topic", msg.Topic()).Debug("Received message outside of subscription")
		c.deliver(msg)
	})
	mqttOpts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.ctx.WithError(err).Debug("Connection lost")
		c.mu.Lock()
		handler := c.handler
		c.mu.Unlock()
		if handler != nil {
			handler.HandleDisconnect(err)
		}
	})
	mqttOpts.SetOnConnectHandler(func(_ paho.Client) {
		c.ctx.Debug("Connected")
	})
	return mqttOpts
}

// Connect to MQTT. A connection refused by the broker results in a
// *backend.RefusedError.
func (c *MQTT) Connect(handler backend.Handler) error {
	c.mu.Lock()
	c.handler = handler
	c.client = paho.NewClient(c.options())
	client := c.client
	c.mu.Unlock()

	token := client.Connect()
	finished := token.WaitTimeout(1 * time.Second)
	if !finished {
		c.ctx.Warn("MQTT connection took longer than expected...")
		token.Wait()
	}
	err := token.Error()
	if err == nil {
		return nil
	}
	if connectToken, ok := token.(*paho.ConnectToken); ok {
		if code := connectToken.ReturnCode(); code > packets.Accepted && code <= packets.ErrRefusedNotAuthorised {
			return &backend.RefusedError{Code: code}
		}
	}
	return fmt.Errorf("could not connect to MQTT: %w", err)
}

func (c *MQTT) deliver(msg paho.Message) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler == nil {
		return
	}
	handler.HandleMessage(&types.InboundMessage{
		Topic:   msg.Topic(),
		Payload: msg.Payload(),
	})
}

// Subscribe to the given topic filter
func (c *MQTT) Subscribe(topic string) error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return ErrNotConnected
	}
	token := client.Subscribe(topic, SubscribeQoS, func(_ paho.Client, msg paho.Message) {
		c.deliver(msg)
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("could not subscribe to %s: %w", topic, err)
	}
	c.ctx.WithField("Topic", topic).Debug("Subscribed")
	return nil
}

// Disconnect from MQTT
func (c *MQTT) Disconnect() error {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return nil
	}
	client.Disconnect(DisconnectQuiesce)
	c.ctx.Debug("Disconnected")
	return nil
}
