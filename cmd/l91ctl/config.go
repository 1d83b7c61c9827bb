// go-l91
// Copyright (c) 2026 The L91 Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-l91.
//
// go-l91 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-l91 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-l91; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	l91 "github.com/L91Project/go-l91"
)

// scanSettings mirror the scan.Config knobs an operator tunes per site.
type scanSettings struct {
	// Timeout bounds each per-address probe.
	Timeout time.Duration `mapstructure:"timeout"`
	// Pace spaces consecutive probes.
	Pace time.Duration `mapstructure:"pace"`
	// Start and End bound the default sweep range.
	Start int `mapstructure:"start"`
	End   int `mapstructure:"end"`
	// Tolerance is the gap merged when grouping responsive addresses.
	Tolerance int `mapstructure:"tolerance"`
	// Confirm follows positive probes with a load-parameters query.
	Confirm bool `mapstructure:"confirm"`
}

type logSettings struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// config is the merged view of config file, environment and defaults.
// Flags override it field by field after loading.
type config struct {
	// Port is a serial device path, a ws:// or wss:// URL, or empty for
	// adapter auto-detection.
	Port string `mapstructure:"port"`
	// Nodes maps bus addresses ("9", "0x0c") to human labels from the
	// site's calibration sheet. Display only.
	Nodes map[string]string `mapstructure:"nodes"`
	// FaultPrefixes are hex payload prefixes that classify a response as
	// a fault report, e.g. "10 01". Empty disables fault classification.
	FaultPrefixes []string `mapstructure:"fault_prefixes"`
	Log           logSettings  `mapstructure:"log"`
	Scan          scanSettings `mapstructure:"scan"`
	Baud          int          `mapstructure:"baud"`
}

// loadConfig reads the config file, environment (L91_ prefix) and
// defaults. An empty path searches the working directory and
// ~/.config/l91 for l91ctl.yaml; a missing file is fine, a broken one is
// not.
func loadConfig(path string) (*config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("l91ctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "l91"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix("L91")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "")
	v.SetDefault("baud", l91.DefaultBaudRate)

	v.SetDefault("scan.start", 0x01)
	v.SetDefault("scan.end", 0x20)
	v.SetDefault("scan.timeout", "250ms")
	v.SetDefault("scan.pace", "0s")
	v.SetDefault("scan.tolerance", 0)
	v.SetDefault("scan.confirm", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

// nodeLabels parses the nodes map keys into bus addresses.
func (c *config) nodeLabels() (map[byte]string, error) {
	if len(c.Nodes) == 0 {
		return nil, nil
	}
	labels := make(map[byte]string, len(c.Nodes))
	for key, label := range c.Nodes {
		addr, err := parseAddress(key)
		if err != nil {
			return nil, fmt.Errorf("nodes key %q: %w", key, err)
		}
		labels[addr] = label
	}
	return labels, nil
}

// faultClassifier builds the classifier from the configured hex prefixes,
// or nil when none are configured.
func (c *config) faultClassifier() (l91.FaultClassifier, error) {
	if len(c.FaultPrefixes) == 0 {
		return nil, nil
	}
	prefixes := make([][]byte, 0, len(c.FaultPrefixes))
	for _, s := range c.FaultPrefixes {
		prefix, err := parseHexBytes(s)
		if err != nil {
			return nil, fmt.Errorf("fault_prefixes entry %q: %w", s, err)
		}
		prefixes = append(prefixes, prefix)
	}
	return l91.PrefixFaultClassifier(prefixes...), nil
}

// parseAddress accepts decimal ("12") and hex ("0x0c") bus addresses.
func parseAddress(s string) (byte, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid node address %q", s)
	}
	return byte(n), nil
}

// parseAddressRange parses "A-B" with both forms of address accepted.
func parseAddressRange(s string) (l91.AddressRange, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return l91.AddressRange{}, fmt.Errorf("invalid range %q, want START-END", s)
	}
	start, err := parseAddress(parts[0])
	if err != nil {
		return l91.AddressRange{}, err
	}
	end, err := parseAddress(parts[1])
	if err != nil {
		return l91.AddressRange{}, err
	}
	if err := l91.ValidateNodeRange(start, end); err != nil {
		return l91.AddressRange{}, err
	}
	return l91.AddressRange{Start: start, End: end}, nil
}

// parseHexBytes decodes "10 01", "10:01", "0x1001" and "1001" alike.
func parseHexBytes(s string) ([]byte, error) {
	cleaned := strings.NewReplacer(" ", "", ":", "", "0x", "", "0X", "").Replace(s)
	if cleaned == "" || len(cleaned)%2 != 0 {
		return nil, fmt.Errorf("invalid hex bytes %q", s)
	}
	out := make([]byte, len(cleaned)/2)
	for i := 0; i < len(out); i++ {
		n, err := strconv.ParseUint(cleaned[2*i:2*i+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex bytes %q", s)
		}
		out[i] = byte(n)
	}
	return out, nil
}
