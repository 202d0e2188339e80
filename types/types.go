// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package types

import (
	"fmt"
	"net"
	"strconv"
)

// BrokerEndpoint is the address of the MQTT broker
type BrokerEndpoint struct {
	Host string
	Port int
}

// ParseBrokerEndpoint parses a host:port string
func ParseBrokerEndpoint(address string) (BrokerEndpoint, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return BrokerEndpoint{}, fmt.Errorf("invalid broker address %q: %w", address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return BrokerEndpoint{}, fmt.Errorf("invalid broker port %q", portStr)
	}
	if host == "" {
		return BrokerEndpoint{}, fmt.Errorf("invalid broker address %q: missing host", address)
	}
	return BrokerEndpoint{Host: host, Port: port}, nil
}

// String returns host:port
func (e BrokerEndpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// URL returns the broker URL as expected by the MQTT client
func (e BrokerEndpoint) URL() string {
	return "tcp://" + e.String()
}

// InboundMessage is a message received from the broker. It is only valid for
// the duration of the handler call.
type InboundMessage struct {
	Topic   string
	Payload []byte
}
