// Copyright © 2017 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/TheThingsNetwork/medicinebox-monitor/types"
	. "github.com/smartystreets/goconvey/convey"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestMonitorConfig(t *testing.T) {
	Convey("Given the default flags", t, func() {
		conf, err := monitorConfig()
		Convey("The configuration should match the medicine box deployment", func() {
			So(err, ShouldBeNil)
			So(conf.Broker, ShouldResemble, types.BrokerEndpoint{Host: "34.19.178.165", Port: 1883})
			So(conf.Topic, ShouldEqual, "medicinebox/#")
			So(conf.ClientID, ShouldEqual, "MQTTMonitor")
			So(conf.KeepAlive, ShouldEqual, 60*time.Second)
		})
	})

	Convey("Given overridden values", t, func() {
		config.Set("broker", "localhost:1884")
		config.Set("unique-client-id", true)
		Reset(func() {
			config.Set("broker", "34.19.178.165:1883")
			config.Set("unique-client-id", false)
		})
		conf, err := monitorConfig()
		So(err, ShouldBeNil)
		Convey("The broker should be overridden", func() {
			So(conf.Broker.String(), ShouldEqual, "localhost:1884")
		})
		Convey("The client ID should have a suffix", func() {
			So(conf.ClientID, ShouldStartWith, "MQTTMonitor-")
			So(conf.ClientID, ShouldHaveLength, len("MQTTMonitor-")+8)
		})
	})

	Convey("Given an invalid broker", t, func() {
		config.Set("broker", "no-port")
		Reset(func() {
			config.Set("broker", "34.19.178.165:1883")
		})
		_, err := monitorConfig()
		So(err, ShouldNotBeNil)
	})
}

func TestSmoke(t *testing.T) {
	Convey("When running the command with the dummy backend", t, func() {
		out, logs := new(syncBuffer), new(syncBuffer)
		MonitorCmd.SetOut(out)
		MonitorCmd.SetErr(logs)
		MonitorCmd.SetArgs([]string{"--dummy", "--no-color"})

		runCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- MonitorCmd.ExecuteContext(runCtx) }()

		deadline := time.After(5 * time.Second)
	wait:
		for !strings.Contains(out.String(), "Medicine NOT taken") {
			select {
			case <-deadline:
				break wait
			case <-time.After(10 * time.Millisecond):
			}
		}
		cancel()

		var err error
		select {
		case err = <-done:
		case <-time.After(5 * time.Second):
			So("Timeout Exceeded", ShouldBeFalse)
		}

		Convey("The command should exit cleanly", func() {
			So(err, ShouldBeNil)
		})
		Convey("The banner and the sample messages should be printed", func() {
			output := out.String()
			So(output, ShouldContainSubstring, "📬 Subscribed to: medicinebox/#")
			So(output, ShouldContainSubstring, "✅ STATUS: Medicine TAKEN ✅")
			So(output, ShouldContainSubstring, "medicinebox/box1/raw: not-json-text")
			So(output, ShouldContainSubstring, "⚠️  STATUS: Medicine NOT taken")
		})
		Convey("Exactly one disconnect confirmation should be printed", func() {
			So(strings.Count(out.String(), "Disconnected successfully"), ShouldEqual, 1)
		})
		Convey("The explicit disconnect should be reported with code 0", func() {
			So(out.String(), ShouldContainSubstring, "⚠️  Disconnected from MQTT broker (code: 0)")
		})
	})
}

func TestSetupErrors(t *testing.T) {
	Convey("When the log file lives in a directory that does not exist", t, func() {
		out, logs := new(syncBuffer), new(syncBuffer)
		MonitorCmd.SetOut(out)
		MonitorCmd.SetErr(logs)
		logFileLocation := filepath.Join(t.TempDir(), "missing", "x", "monitor.log")
		MonitorCmd.SetArgs([]string{"--dummy", "--no-color", "--log-file", logFileLocation})
		Reset(func() {
			MonitorCmd.Flags().Set("log-file", "")
			MonitorCmd.SetArgs([]string{})
		})

		err := MonitorCmd.ExecuteContext(context.Background())

		Convey("The command should return an error instead of panicking", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "could not open log file")
		})
		Convey("The monitor should not have started", func() {
			So(out.String(), ShouldNotContainSubstring, "Starting MQTT Monitor")
		})
		Convey("The error should be printed with exit code 1", func() {
			var printed bytes.Buffer
			So(exitCode(&printed, err), ShouldEqual, 1)
			So(printed.String(), ShouldContainSubstring, "❌ Error: could not open log file")
		})
	})

	Convey("When the config file does not exist", t, func() {
		out, logs := new(syncBuffer), new(syncBuffer)
		MonitorCmd.SetOut(out)
		MonitorCmd.SetErr(logs)
		MonitorCmd.SetArgs([]string{"--dummy", "--no-color", "--config", filepath.Join(t.TempDir(), "monitor.yml")})
		Reset(func() {
			cfgFile = ""
			cfgErr = nil
			MonitorCmd.SetArgs([]string{})
		})

		err := MonitorCmd.ExecuteContext(context.Background())

		Convey("The command should return the read error", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "could not read config file")
		})
		Convey("Nothing should be printed on stdout", func() {
			So(out.String(), ShouldBeEmpty)
		})
	})

	Convey("When the monitor already reported its error", t, func() {
		var printed bytes.Buffer
		code := exitCode(&printed, reportedError{errors.New("connection refused")})
		Convey("It should exit with code 1 without printing again", func() {
			So(code, ShouldEqual, 1)
			So(printed.String(), ShouldBeEmpty)
		})
	})

	Convey("When there is no error", t, func() {
		var printed bytes.Buffer
		So(exitCode(&printed, nil), ShouldEqual, 0)
		So(printed.String(), ShouldBeEmpty)
	})
}
