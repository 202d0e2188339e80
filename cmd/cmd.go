// Copyright © 2016 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/TheThingsNetwork/medicinebox-monitor/backend"
	"github.com/TheThingsNetwork/medicinebox-monitor/backend/dummy"
	"github.com/TheThingsNetwork/medicinebox-monitor/backend/mqtt"
	"github.com/TheThingsNetwork/medicinebox-monitor/monitor"
	"github.com/TheThingsNetwork/medicinebox-monitor/render"
	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/multi"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// MonitorCmd is the main command that is executed when running medicinebox-monitor
var MonitorCmd = &cobra.Command{
	Use:           "medicinebox-monitor",
	Short:         "Medicine box MQTT monitor",
	Long:          `medicinebox-monitor subscribes to the medicine box topics and prints every message it receives`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var logHandlers []log.Handler

		logHandlers = append(logHandlers, cli.New(cmd.ErrOrStderr()))

		if logFileLocation := config.GetString("log-file"); logFileLocation != "" {
			absLogFileLocation, err := filepath.Abs(logFileLocation)
			if err != nil {
				return fmt.Errorf("invalid log file location: %w", err)
			}
			logFile, err = os.OpenFile(absLogFileLocation, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
			if err != nil {
				return fmt.Errorf("could not open log file: %w", err)
			}
			logHandlers = append(logHandlers, json.New(logFile))
		}

		level := log.InfoLevel
		if config.GetBool("debug") {
			level = log.DebugLevel
		}

		ctx = &log.Logger{
			Level:   level,
			Handler: multi.New(logHandlers...),
		}

		if cfgErr != nil {
			return cfgErr
		}
		if cfgFile != "" {
			ctx.WithField("ConfigFile", viper.ConfigFileUsed()).Info("Using config file")
		}
		return nil
	},
	RunE: runMonitor,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLogFile()
	},
}

func closeLogFile() {
	if logFile != nil {
		time.Sleep(100 * time.Millisecond)
		logFile.Close()
		logFile = nil
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conf, err := monitorConfig()
	if err != nil {
		return err
	}

	var consoleOpts []render.Option
	if config.GetBool("no-color") {
		consoleOpts = append(consoleOpts, render.WithColor(false))
	}
	console := render.New(cmd.OutOrStdout(), consoleOpts...)

	var subscriber backend.Subscriber
	if config.GetBool("dummy") {
		ctx.Info("Initializing Dummy backend")
		d := dummy.New(ctx)
		go publishSamples(d)
		subscriber = d
	} else {
		ctx.WithField("Broker", conf.Broker).WithField("ClientID", conf.ClientID).Debug("Initializing MQTT")
		subscriber = mqtt.New(mqtt.Config{
			Broker:         conf.Broker,
			ClientID:       conf.ClientID,
			KeepAlive:      conf.KeepAlive,
			ConnectTimeout: conf.ConnectTimeout,
		}, ctx)
	}

	if metricsAddress := config.GetString("metrics-address"); metricsAddress != "" {
		server := serveMetrics(metricsAddress)
		defer server.Close()
	}

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	runCtx, stop := signal.NotifyContext(runCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := monitor.New(conf, subscriber, console, ctx).Run(runCtx); err != nil {
		ctx.WithError(err).Debug("Monitor stopped")
		return reportedError{err}
	}
	return nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		ctx.WithField("Address", addr).Info("Serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ctx.WithError(err).Warn("Could not serve metrics")
		}
	}()
	return server
}

var samples = []struct {
	topic   string
	payload string
}{
	{"medicinebox/box1/status", `{"taken": true, "pillCount": 3}`},
	{"medicinebox/box1/raw", `not-json-text`},
	{"medicinebox/box1/status", `{"taken": false, "pillCount": 4}`},
}

// publishSamples feeds the dummy backend once it is subscribed
func publishSamples(d *dummy.Dummy) {
	<-d.Subscribed()
	for _, sample := range samples {
		if err := d.Publish(sample.topic, []byte(sample.payload)); err != nil {
			ctx.WithError(err).Warn("Could not publish sample")
			return
		}
	}
}

func init() {
	MonitorCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Location of the config file")

	MonitorCmd.Flags().String("log-file", "", "Location of the log file")
	MonitorCmd.Flags().Bool("debug", false, "Print debug logs")
	MonitorCmd.Flags().Bool("no-color", false, "Disable colors")

	MonitorCmd.Flags().String("broker", "34.19.178.165:1883", "MQTT Broker to connect to")
	MonitorCmd.Flags().String("topic", "medicinebox/#", "Topic filter to subscribe to")
	MonitorCmd.Flags().String("client-id", "MQTTMonitor", "MQTT client ID")
	MonitorCmd.Flags().Bool("unique-client-id", false, "Append a random suffix to the client ID")
	MonitorCmd.Flags().Duration("keepalive", 60*time.Second, "MQTT keepalive interval")
	MonitorCmd.Flags().Duration("connect-timeout", 30*time.Second, "MQTT connect timeout")

	MonitorCmd.Flags().String("metrics-address", "", "Serve Prometheus metrics on this address (disabled if empty)")
	MonitorCmd.Flags().Bool("dummy", false, "Use a dummy backend that publishes sample messages")

	viper.BindPFlags(MonitorCmd.Flags())
}
