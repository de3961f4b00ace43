// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/obdstat/pkg/obd"
	"github.com/Thermoquad/obdstat/pkg/settings"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// General flags
	configPath  string
	unitsName   string
	logFile     string
	debugLog    bool
	metricsAddr string

	// Loaded in PersistentPreRunE
	store  *settings.Store
	config *settings.Settings
	units  obd.UnitSystem
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "obdstat",
	Short: "OBD-II Live Data Monitor",
	Long: `obdstat - A CLI tool for polling live OBD-II sensor data through an
ELM327-compatible interface.

Channels are polled one page at a time. Values, response rates and link
status are shown in a terminal UI (monitor) or printed as text (poll).

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 38400]
  WebSocket: --url ws://host/path [--username user]

Settings and the per-channel enabled flags are stored in
~/.config/obdstat/config.yaml. Command line flags override the file.

For WebSocket authentication, the password is read from the OBDSTAT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 38400, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/obdstat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&unitsName, "units", "metric", "Unit system (metric or imperial)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9105)")
}

// flag name to config key
var boundFlags = map[string]string{
	"port":         "port",
	"baud":         "baud",
	"url":          "url",
	"username":     "username",
	"units":        "units",
	"metrics-addr": "metrics_addr",
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	store, err = settings.Open(configPath)
	if err != nil {
		return err
	}

	v := store.Viper()
	for flag, key := range boundFlags {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}

	config, err = store.Settings()
	if err != nil {
		return err
	}
	units, err = config.UnitSystem()
	if err != nil {
		return err
	}

	// Connection settings come from flags or the config file
	portName = config.Port
	baudRate = config.Baud
	wsURL = config.URL
	wsUsername = config.Username
	metricsAddr = config.MetricsAddr

	logger, err = newLogger(logFile, debugLog, cmd.Name() == "monitor")
	if err != nil {
		return err
	}
	logger.Debug().Str("config", store.Path()).Str("units", units.String()).Msg("configuration loaded")

	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
