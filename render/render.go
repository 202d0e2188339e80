// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/TheThingsNetwork/medicinebox-monitor/types"
	"github.com/fatih/color"
)

// TimeFormat is the format of the timestamp in rendered messages
const TimeFormat = "15:04:05"

// RuleWidth is the width of the horizontal rules around reports and the banner
var RuleWidth = 60

// Console renders monitor output. It is safe for concurrent use.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time

	heading *color.Color
	success *color.Color
	warning *color.Color
	failure *color.Color
	plain   *color.Color
}

// Option configures a Console
type Option func(*Console)

// WithClock sets the clock used for timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Console) { c.now = now }
}

// WithColor enables or disables colors. By default colors are only used when
// stdout is a terminal.
func WithColor(enabled bool) Option {
	return func(c *Console) {
		for _, col := range []*color.Color{c.heading, c.success, c.warning, c.failure, c.plain} {
			if enabled {
				col.EnableColor()
			} else {
				col.DisableColor()
			}
		}
	}
}

// New returns a new Console writing to out
func New(out io.Writer, opts ...Option) *Console {
	c := &Console{
		out:     out,
		now:     time.Now,
		heading: color.New(color.FgCyan, color.Bold),
		success: color.New(color.FgGreen, color.Bold),
		warning: color.New(color.FgYellow, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
		plain:   color.New(color.Reset),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) rule() string {
	return strings.Repeat("=", RuleWidth)
}

func (c *Console) println(col *color.Color, format string, args ...interface{}) {
	col.Fprintf(c.out, format, args...)
	fmt.Fprintln(c.out)
}

// Starting prints the startup line
func (c *Console) Starting() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out)
	c.println(c.heading, "🚀 Starting MQTT Monitor...")
}

// Connecting prints the line before the connection attempt
func (c *Console) Connecting(broker types.BrokerEndpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.println(c.plain, "🔌 Connecting to %s...", broker)
}

// Connected prints the banner after a successful connection
func (c *Console) Connected(broker types.BrokerEndpoint, topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, c.rule())
	c.println(c.success, "✅ Connected to MQTT Broker!")
	c.println(c.plain, "📡 Broker: %s", broker)
	c.println(c.plain, "📬 Subscribed to: %s", topic)
	fmt.Fprintln(c.out, c.rule())
	fmt.Fprintln(c.out)
	c.println(c.plain, "⏳ Waiting for messages from ESP32...")
	fmt.Fprintln(c.out)
}

// ConnectFailed prints the broker's result code after a refused connection
func (c *Console) ConnectFailed(code byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.println(c.failure, "❌ Failed to connect, return code %d", code)
}

// Error prints an unexpected error
func (c *Console) Error(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out)
	c.println(c.failure, "❌ Error: %v", err)
}

// Disconnected prints a warning for a lost connection
func (c *Console) Disconnected(reason error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out)
	if reason == nil {
		c.println(c.warning, "⚠️  Disconnected from MQTT broker (code: 0)")
		return
	}
	c.println(c.warning, "⚠️  Disconnected from MQTT broker (code: %v)", reason)
}

// Stopping prints the line before an explicit disconnect
func (c *Console) Stopping() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out)
	c.println(c.plain, "👋 Stopping MQTT monitor...")
}

// Stopped confirms the explicit disconnect
func (c *Console) Stopped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.println(c.success, "✅ Disconnected successfully")
}

// Report prints the bordered block of a structured message
func (c *Console) Report(topic string, report *types.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.rule())
	c.println(c.heading, "🕐 Time: %s", c.now().Format(TimeFormat))
	c.println(c.heading, "📨 Topic: %s", topic)
	c.println(c.heading, "📦 Data:")
	for _, field := range report.Fields {
		fmt.Fprintf(c.out, "   %s: %s\n", field.Key, FormatValue(field.Value))
	}
	if taken, ok := report.Taken(); ok {
		if taken {
			c.println(c.success, "✅ STATUS: Medicine TAKEN ✅")
		} else {
			c.println(c.warning, "⚠️  STATUS: Medicine NOT taken")
		}
	}
	fmt.Fprintln(c.out, c.rule())
	fmt.Fprintln(c.out)
}

// Raw prints the compact line of an unstructured message
func (c *Console) Raw(topic string, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "\n[%s] %s: %s\n\n", c.now().Format(TimeFormat), topic, text)
}

// FormatValue formats a report value for display
func FormatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case string:
		return v
	case json.Number:
		return v.String()
	case json.RawMessage:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
