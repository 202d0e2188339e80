// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

// Package monitor subscribes to the medicine box topics and prints every
// message that arrives.
//
// The Monitor is the backend.Handler of a single backend.Subscriber. Run
// connects and, only when the broker accepts the connection, prints a banner
// and subscribes. Messages are then rendered one at a time until the context
// is cancelled or the connection drops. Lost connections are not retried.
package monitor
