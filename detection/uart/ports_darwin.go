//go:build darwin

package uart

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	calloutRegex = regexp.MustCompile(`"IOCalloutDevice"\s*=\s*"([^"]+)"`)
	vendorRegex  = regexp.MustCompile(`"idVendor"\s*=\s*(\d+)`)
	productRegex = regexp.MustCompile(`"idProduct"\s*=\s*(\d+)`)
	mfgRegex     = regexp.MustCompile(`"USB Vendor Name"\s*=\s*"([^"]+)"`)
	prodRegex    = regexp.MustCompile(`"USB Product Name"\s*=\s*"([^"]+)"`)
	serialRegex  = regexp.MustCompile(`"USB Serial Number"\s*=\s*"([^"]+)"`)
)

// platformPorts lists serial ports on macOS via ioreg, falling back to
// globbing /dev when ioreg is unavailable.
func platformPorts(ctx context.Context) ([]Port, error) {
	cmd := exec.CommandContext(ctx, "ioreg", "-r", "-c", "IOSerialBSDClient", "-a")
	output, err := cmd.Output()
	if err != nil {
		return globPorts()
	}

	var ports []Port
	for _, device := range strings.Split(string(output), "+-o ") {
		if !strings.Contains(device, "IOSerialBSDClient") ||
			!strings.Contains(device, "IOCalloutDevice") {
			continue
		}

		pathMatch := calloutRegex.FindStringSubmatch(device)
		if len(pathMatch) < 2 {
			continue
		}
		port := Port{
			Path:   pathMatch[1],
			Name:   filepath.Base(pathMatch[1]),
			VIDPID: ioregVIDPID(device),
		}
		if m := mfgRegex.FindStringSubmatch(device); len(m) >= 2 {
			port.Manufacturer = m[1]
		}
		if m := prodRegex.FindStringSubmatch(device); len(m) >= 2 {
			port.Product = m[1]
		}
		if m := serialRegex.FindStringSubmatch(device); len(m) >= 2 {
			port.SerialNumber = m[1]
		}

		if includeDarwinDevice(port.Name) {
			ports = append(ports, port)
		}
	}

	if len(ports) == 0 {
		return globPorts()
	}
	return ports, nil
}

// ioregVIDPID formats ioreg's decimal idVendor/idProduct as "VVVV:PPPP"
func ioregVIDPID(device string) string {
	vidMatch := vendorRegex.FindStringSubmatch(device)
	pidMatch := productRegex.FindStringSubmatch(device)
	if len(vidMatch) < 2 || len(pidMatch) < 2 {
		return ""
	}
	var vid, pid int
	if _, err := fmt.Sscanf(vidMatch[1], "%d", &vid); err != nil {
		return ""
	}
	if _, err := fmt.Sscanf(pidMatch[1], "%d", &pid); err != nil {
		return ""
	}
	return fmt.Sprintf("%04X:%04X", vid, pid)
}

// globPorts lists /dev/cu.* devices, then /dev/tty.* devices that have no
// cu.* twin. The cu.* callout device is preferred on macOS: opening the
// tty.* side blocks on carrier detect.
func globPorts() ([]Port, error) {
	var ports []Port

	cuMatches, err := filepath.Glob("/dev/cu.*")
	if err != nil {
		return nil, err
	}
	for _, path := range cuMatches {
		name := filepath.Base(path)
		if strings.HasPrefix(name, "cu.Bluetooth") || !includeDarwinDevice(name) {
			continue
		}
		ports = append(ports, Port{Path: path, Name: name})
	}

	ttyMatches, err := filepath.Glob("/dev/tty.*")
	if err != nil {
		return ports, nil
	}
	for _, path := range ttyMatches {
		name := filepath.Base(path)
		if strings.HasPrefix(name, "tty.Bluetooth") || !includeDarwinDevice(name) {
			continue
		}
		if hasCalloutTwin(path, ports) {
			continue
		}
		ports = append(ports, Port{Path: path, Name: name})
	}

	return ports, nil
}

func hasCalloutTwin(ttyPath string, ports []Port) bool {
	cuPath := strings.Replace(ttyPath, "/dev/tty.", "/dev/cu.", 1)
	for _, p := range ports {
		if p.Path == cuPath {
			return true
		}
	}
	return false
}

// includeDarwinDevice keeps device names that look like USB-serial
// bridges and drops system consoles.
func includeDarwinDevice(deviceName string) bool {
	lowerName := strings.ToLower(deviceName)

	// The usual bridge chips: FTDI and generic usbserial, Silicon Labs
	// CP210x, WinChipHead CH340/CH341, and CDC-ACM usbmodem devices.
	bridgePatterns := []string{
		"usbserial",
		"slab_usbtouart",
		"wchusbserial",
		"usbmodem",
	}
	for _, pattern := range bridgePatterns {
		if strings.Contains(lowerName, pattern) {
			return true
		}
	}

	systemPatterns := []string{"console", "debug", "system", "kernel"}
	for _, pattern := range systemPatterns {
		if strings.Contains(lowerName, pattern) {
			return false
		}
	}
	return true
}
