// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package monitor

import "github.com/prometheus/client_golang/prometheus"

var connected = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "medicinebox",
		Subsystem: "monitor",
		Name:      "connected",
		Help:      "Whether the monitor is connected to the broker.",
	},
)

var messagesCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "medicinebox",
		Subsystem: "monitor",
		Name:      "messages_total",
		Help:      "Total number of messages rendered.",
	}, []string{"format"},
)

var statusCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "medicinebox",
		Subsystem: "monitor",
		Name:      "status_total",
		Help:      "Total number of medicine status reports.",
	}, []string{"status"},
)

func registerStructured(taken, ok bool) {
	messagesCounter.WithLabelValues("structured").Inc()
	if !ok {
		return
	}
	if taken {
		statusCounter.WithLabelValues("taken").Inc()
	} else {
		statusCounter.WithLabelValues("not_taken").Inc()
	}
}

func registerRaw() {
	messagesCounter.WithLabelValues("raw").Inc()
}

func init() {
	prometheus.MustRegister(connected)
	prometheus.MustRegister(messagesCounter)
	prometheus.MustRegister(statusCounter)
}
