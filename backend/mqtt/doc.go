// Copyright © 2016 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

// Package mqtt connects to an MQTT broker and delivers the messages of a
// single subscription to a backend.Handler.
//
// The client is configured with a clean session and ordered delivery, so the
// handler is called for one message at a time, in arrival order. Automatic
// reconnection is switched off: when the connection is lost, the handler's
// HandleDisconnect is called and no further messages arrive.
//
// A connection that is refused by the broker (a non-zero CONNACK return code)
// results in a *backend.RefusedError from Connect. Any other failure, such as
// an unreachable host, is returned as a wrapped error.
package mqtt
