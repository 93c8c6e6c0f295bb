package utils

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// NormalizeListenAddr turns "12000", ":12000" or "host:12000" into a listen address.
// A bare port listens on all interfaces, matching net/http conventions.
func NormalizeListenAddr(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("listen address is empty")
	}

	if !strings.Contains(addr, ":") {
		port, err := strconv.Atoi(addr)
		if err != nil {
			return "", fmt.Errorf("invalid port: %v", err)
		}
		return fmt.Sprintf(":%d", port), nil
	}

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("invalid port: %v", err)
	}

	return addr, nil
}

// ClientBaseURL converts a listen address into an http:// URL a local client can dial
func ClientBaseURL(addr string) (string, error) {
	normalized, err := NormalizeListenAddr(addr)
	if err != nil {
		return "", err
	}

	if strings.HasPrefix(normalized, ":") {
		normalized = "localhost" + normalized
	}

	return "http://" + normalized, nil
}

// IsAddrAvailable reports whether a TCP listener can be opened on addr
func IsAddrAvailable(addr string) bool {
	Verbose("Checking if %s is available", addr)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		Verbose("error: %v", err)
		return false
	}

	defer listener.Close()
	return true
}
