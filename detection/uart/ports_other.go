//go:build !windows && !darwin

package uart

import "context"

// platformPorts has nothing to add on this platform; the library
// enumeration already covers it.
func platformPorts(_ context.Context) ([]Port, error) {
	return nil, nil
}
