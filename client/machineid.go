package client

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"slices"
	"strings"

	psnet "github.com/shirou/gopsutil/v4/net"
)

// FallbackMachineID is reported when no usable hardware address is found.
const FallbackMachineID = "00:00:00:00:00:00"

// interfaceLister lists the host's network interfaces.
type interfaceLister func(ctx context.Context) (psnet.InterfaceStatList, error)

// DiscoverMachineID returns the hardware address of the first non-loopback,
// non point-to-point interface with a 6-byte MAC, preferring interfaces that
// are up, formatted as upper-case colon-separated hex. It never fails; when
// nothing qualifies it returns FallbackMachineID.
func DiscoverMachineID(ctx context.Context) string {
	return discoverMachineID(ctx, psnet.InterfacesWithContext)
}

func discoverMachineID(ctx context.Context, list interfaceLister) string {
	ifaces, err := list(ctx)
	if err != nil {
		return FallbackMachineID
	}

	var down string
	for _, iface := range ifaces {
		if hasFlag(iface, "loopback") || hasFlag(iface, "pointtopoint") {
			continue
		}
		mac, ok := formatMAC(iface.HardwareAddr)
		if !ok {
			continue
		}
		if hasFlag(iface, "up") {
			return mac
		}
		if down == "" {
			down = mac
		}
	}
	if down != "" {
		return down
	}
	return FallbackMachineID
}

func hasFlag(iface psnet.InterfaceStat, flag string) bool {
	return slices.ContainsFunc(iface.Flags, func(f string) bool {
		return strings.EqualFold(f, flag)
	})
}

func formatMAC(s string) (string, bool) {
	hw, err := net.ParseMAC(s)
	if err != nil || len(hw) != 6 || bytes.Equal(hw, make(net.HardwareAddr, 6)) {
		return "", false
	}
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", hw[0], hw[1], hw[2], hw[3], hw[4], hw[5]), true
}
