// Copyright © 2016 The Things Network
// Use of this source code is governed by the MIT license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"strings"

	"github.com/TheThingsNetwork/medicinebox-monitor/monitor"
	"github.com/TheThingsNetwork/medicinebox-monitor/types"
	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment prefix that is used for configuration
const EnvPrefix = "monitor"

var cfgFile string

// cfgErr is reported once the logger exists
var cfgErr error

func initConfig() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	cfgErr = nil
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			cfgErr = fmt.Errorf("could not read config file: %w", err)
		}
	}
	viper.BindEnv("debug")
}

var config = viper.GetViper()

func monitorConfig() (monitor.Config, error) {
	conf := monitor.DefaultConfig()

	broker, err := types.ParseBrokerEndpoint(config.GetString("broker"))
	if err != nil {
		return conf, err
	}
	conf.Broker = broker

	if topic := config.GetString("topic"); topic != "" {
		conf.Topic = topic
	}
	if clientID := config.GetString("client-id"); clientID != "" {
		conf.ClientID = clientID
	}
	if config.GetBool("unique-client-id") {
		conf.ClientID = fmt.Sprintf("%s-%s", conf.ClientID, uuid.New().String()[:8])
	}
	if keepAlive := config.GetDuration("keepalive"); keepAlive > 0 {
		conf.KeepAlive = keepAlive
	}
	if connectTimeout := config.GetDuration("connect-timeout"); connectTimeout > 0 {
		conf.ConnectTimeout = connectTimeout
	}
	return conf, nil
}
