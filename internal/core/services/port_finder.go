package services

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// FindAvailablePort finds an available port in the given range.
func FindAvailablePort(startPort, endPort int) (int, error) {
	for port := startPort; port <= endPort; port++ {
		addr := fmt.Sprintf("127.0.0.1:%d", port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			listener.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port in range %d-%d", startPort, endPort)
}

// CallbackPort returns the loopback port of redirectURI and checks that
// it is free. Only that port is tried.
func CallbackPort(redirectURI string) (int, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return 0, fmt.Errorf("parse redirect uri: %w", err)
	}
	if u.Port() == "" {
		return 0, fmt.Errorf("redirect uri %s has no port", redirectURI)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return 0, fmt.Errorf("redirect uri port: %w", err)
	}
	if _, err := FindAvailablePort(port, port); err != nil {
		return 0, fmt.Errorf("callback port %d is in use: %w", port, err)
	}
	return port, nil
}
