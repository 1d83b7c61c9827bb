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
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	l91 "github.com/L91Project/go-l91"
	"github.com/L91Project/go-l91/detection"
	"github.com/L91Project/go-l91/internal/transport"
)

var (
	flagDetectProbe bool
	flagDetectAll   bool
	flagDetectWait  time.Duration
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "List serial adapters that look like L91 bridges",
	Long: `Enumerate serial ports and rank the plausible bridge adapters, best
candidate first.

The default is read-only. --probe additionally opens each candidate and
sends the bring-up sequence; an answer confirms a bridge, but silence
disproves nothing, since some adapter chips never echo it. Only use
--probe where briefly grabbing every candidate port is acceptable.`,
	RunE: runDetect,
}

func init() {
	f := detectCmd.Flags()
	f.BoolVar(&flagDetectProbe, "probe", false, "open candidates and send the bring-up probe")
	f.BoolVar(&flagDetectAll, "all", false, "include ports that match no known adapter pattern")
	f.DurationVar(&flagDetectWait, "wait", 0, "keep re-enumerating up to this long for an adapter to appear")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(_ *cobra.Command, _ []string) error {
	opts := detection.DefaultOptions()
	if flagDetectProbe {
		opts.Mode = detection.Probe
	}
	opts.IncludeUnlikely = flagDetectAll

	var devices []detection.Device
	var err error
	if flagDetectWait > 0 {
		devices, err = transport.TimeoutRetry(flagDetectWait, func() ([]detection.Device, bool, error) {
			found, derr := detection.DetectAll(&opts)
			if derr != nil {
				return nil, false, derr
			}
			if len(found) == 0 {
				return nil, true, nil
			}
			return found, false, nil
		})
		if err != nil && l91.GetErrorType(err) == l91.ErrorTypeTimeout {
			devices, err = nil, nil
		}
	} else {
		devices, err = detection.DetectAll(&opts)
	}
	if err != nil {
		return err
	}

	if err := printDevices(devices); err != nil {
		return err
	}
	if len(devices) == 0 {
		return fmt.Errorf("no candidate adapters: %w", errNotFound)
	}
	return nil
}

type deviceReport struct {
	Path      string `json:"path"`
	Name      string `json:"name,omitempty"`
	VIDPID    string `json:"vidpid,omitempty"`
	Chip      string `json:"chip,omitempty"`
	Product   string `json:"product,omitempty"`
	Confirmed bool   `json:"confirmed"`
}

func printDevices(devices []detection.Device) error {
	if flagJSON {
		report := make([]deviceReport, 0, len(devices))
		for _, d := range devices {
			report = append(report, deviceReport{
				Path:      d.Path,
				Name:      d.Name,
				VIDPID:    d.VIDPID,
				Chip:      d.Chip,
				Product:   d.Product,
				Confirmed: d.Confirmed,
			})
		}
		return printJSON(report)
	}

	if len(devices) == 0 {
		fmt.Println("no candidate adapters found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tVIDPID\tCHIP\tPRODUCT\tPROBED")
	for _, d := range devices {
		probed := "-"
		if flagDetectProbe {
			probed = "no answer"
			if d.Confirmed {
				probed = "confirmed"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.Path, dash(d.VIDPID), dash(d.Chip), dash(d.Product), probed)
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
