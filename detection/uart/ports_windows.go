//go:build windows

package uart

import (
	"context"
	"errors"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
)

// platformPorts lists COM ports on Windows, merging the SERIALCOMM
// registry map with SetupAPI device data. The registry knows every live
// port; SetupAPI adds friendly names and USB identity.
func platformPorts(_ context.Context) ([]Port, error) {
	registryPorts, registryErr := registryCOMPorts()
	setupPorts, setupErr := setupAPICOMPorts()
	if registryErr != nil && setupErr != nil {
		return nil, errors.Join(registryErr, setupErr)
	}

	byPath := make(map[string]Port)
	var order []string
	for _, port := range registryPorts {
		byPath[port.Path] = port
		order = append(order, port.Path)
	}
	for _, port := range setupPorts {
		if _, ok := byPath[port.Path]; !ok {
			order = append(order, port.Path)
		}
		byPath[port.Path] = port
	}

	ports := make([]Port, 0, len(order))
	for _, path := range order {
		ports = append(ports, byPath[path])
	}
	return ports, nil
}

// registryCOMPorts reads HARDWARE\DEVICEMAP\SERIALCOMM
func registryCOMPorts() ([]Port, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, `HARDWARE\DEVICEMAP\SERIALCOMM`, registry.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	values, err := key.ReadValueNames(-1)
	if err != nil {
		return nil, err
	}

	ports := make([]Port, 0, len(values))
	for _, value := range values {
		portName, _, err := key.GetStringValue(value)
		if err != nil {
			continue
		}
		ports = append(ports, Port{Path: portName, Name: portName})
	}
	return ports, nil
}

type spDevinfoData struct {
	cbSize    uint32
	classGuid windows.GUID
	devInst   uint32
	reserved  uintptr
}

// setupAPICOMPorts enumerates the Ports device class through SetupAPI
func setupAPICOMPorts() ([]Port, error) {
	setupapi := windows.NewLazySystemDLL("setupapi.dll")
	setupDiGetClassDevs := setupapi.NewProc("SetupDiGetClassDevsW")
	setupDiEnumDeviceInfo := setupapi.NewProc("SetupDiEnumDeviceInfo")
	setupDiGetDeviceRegistryProperty := setupapi.NewProc("SetupDiGetDeviceRegistryPropertyW")
	setupDiDestroyDeviceInfoList := setupapi.NewProc("SetupDiDestroyDeviceInfoList")

	// GUID for the Ports (COM & LPT) device class
	guidPorts := windows.GUID{
		Data1: 0x4d36e978,
		Data2: 0xe325,
		Data3: 0x11ce,
		Data4: [8]byte{0xbf, 0xc1, 0x08, 0x00, 0x2b, 0xe1, 0x03, 0x18},
	}

	const digcfPresent = 0x00000002
	devInfo, _, _ := setupDiGetClassDevs.Call(
		uintptr(unsafe.Pointer(&guidPorts)),
		0,
		0,
		digcfPresent,
	)
	if devInfo == uintptr(windows.InvalidHandle) {
		return nil, windows.GetLastError()
	}
	defer setupDiDestroyDeviceInfoList.Call(devInfo)

	const (
		spdrpFriendlyName = 0x0000000C
		spdrpHardwareID   = 0x00000001
		spdrpMfg          = 0x0000000B
	)

	// deviceProperty reads one registry property with the two-call
	// size-then-data pattern.
	deviceProperty := func(data *spDevinfoData, prop uintptr) string {
		var requiredSize uint32
		_, _, _ = setupDiGetDeviceRegistryProperty.Call(
			devInfo,
			uintptr(unsafe.Pointer(data)),
			prop,
			0,
			0,
			0,
			uintptr(unsafe.Pointer(&requiredSize)),
		)
		if requiredSize == 0 {
			return ""
		}

		var propertyType uint32
		buf := make([]uint16, requiredSize/2)
		ret, _, _ := setupDiGetDeviceRegistryProperty.Call(
			devInfo,
			uintptr(unsafe.Pointer(data)),
			prop,
			uintptr(unsafe.Pointer(&propertyType)),
			uintptr(unsafe.Pointer(&buf[0])),
			uintptr(requiredSize),
			0,
		)
		if ret == 0 {
			return ""
		}
		return windows.UTF16ToString(buf)
	}

	var ports []Port
	var devInfoData spDevinfoData
	devInfoData.cbSize = uint32(unsafe.Sizeof(devInfoData))

	for i := uint32(0); ; i++ {
		ret, _, _ := setupDiEnumDeviceInfo.Call(
			devInfo,
			uintptr(i),
			uintptr(unsafe.Pointer(&devInfoData)),
		)
		if ret == 0 {
			break
		}

		name := deviceProperty(&devInfoData, spdrpFriendlyName)
		comPort := comPortFromFriendlyName(name)
		if comPort == "" {
			continue
		}

		port := Port{
			Path:         comPort,
			Name:         name,
			VIDPID:       parseHardwareID(deviceProperty(&devInfoData, spdrpHardwareID)),
			Manufacturer: deviceProperty(&devInfoData, spdrpMfg),
		}
		if n := strings.Index(name, " ("); n > 0 {
			port.Product = name[:n]
		}
		ports = append(ports, port)
	}

	return ports, nil
}

// comPortFromFriendlyName pulls "COM7" out of "USB Serial Port (COM7)"
func comPortFromFriendlyName(name string) string {
	n := strings.LastIndex(name, "(COM")
	if n < 0 {
		return ""
	}
	m := strings.Index(name[n:], ")")
	if m < 0 {
		return ""
	}
	return name[n+1 : n+m]
}

// parseHardwareID extracts "VVVV:PPPP" from a hardware ID like
// USB\VID_1A86&PID_7523.
func parseHardwareID(hwid string) string {
	hwid = strings.ToUpper(hwid)

	vidIdx := strings.Index(hwid, "VID_")
	pidIdx := strings.Index(hwid, "PID_")
	if vidIdx < 0 || pidIdx < 0 {
		return ""
	}
	if vidIdx+8 > len(hwid) || pidIdx+8 > len(hwid) {
		return ""
	}

	vid := hwid[vidIdx+4 : vidIdx+8]
	pid := hwid[pidIdx+4 : pidIdx+8]
	for _, r := range vid + pid {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return ""
		}
	}
	return vid + ":" + pid
}
