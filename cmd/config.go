// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Thermoquad/kegstat/pkg/flowctl"
	"github.com/spf13/viper"
)

const (
	envPrefix           = "KEGSTAT"
	configName          = "kegstat"
	defaultPollInterval = flowctl.DefaultPollInterval
)

// settings holds the resolved connection and protocol configuration
type settings struct {
	Port         string
	Baud         int
	URL          string
	Username     string
	NoSSLVerify  bool
	PollInterval time.Duration
	Temperature  bool
	LogLevel     string
	LogFile      string
}

// initConfig wires the config file and environment into viper. A missing
// default config file is not an error; a missing --config file is.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(configName)
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// loadSettings reads the current settings from viper
func loadSettings() settings {
	return settings{
		Port:         viper.GetString("port"),
		Baud:         viper.GetInt("baud"),
		URL:          viper.GetString("url"),
		Username:     viper.GetString("username"),
		NoSSLVerify:  viper.GetBool("no-ssl-verify"),
		PollInterval: viper.GetDuration("poll-interval"),
		Temperature:  viper.GetBool("temperature"),
		LogLevel:     viper.GetString("log-level"),
		LogFile:      viper.GetString("log-file"),
	}
}

// layout returns the decoder layout selected by the settings
func (s settings) layout() flowctl.Layout {
	if s.Temperature {
		return flowctl.LayoutStatusTemp
	}
	return flowctl.LayoutStatus
}

// controllerOptions returns the flowctl options implied by the settings
func (s settings) controllerOptions() []flowctl.Option {
	return []flowctl.Option{
		flowctl.WithLayout(s.layout()),
		flowctl.WithPollInterval(s.PollInterval),
	}
}
