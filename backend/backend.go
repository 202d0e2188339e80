// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package backend

import (
	"fmt"

	"github.com/TheThingsNetwork/medicinebox-monitor/types"
)

// Handler receives the events of a Subscriber. HandleMessage is never called
// concurrently with itself.
type Handler interface {
	HandleMessage(msg *types.InboundMessage)
	HandleDisconnect(err error)
}

// Subscriber backends connect to a broker and deliver messages to a Handler
type Subscriber interface {
	Connect(handler Handler) error
	Subscribe(topic string) error
	Disconnect() error
}

// RefusedError is returned by Connect when the broker refused the connection
type RefusedError struct {
	Code byte
}

func (e *RefusedError) Error() string {
	return fmt.Sprintf("connection refused with return code %d", e.Code)
}
