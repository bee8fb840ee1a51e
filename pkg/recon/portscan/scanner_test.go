package portscan

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckPortDetectsOpenListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	assert.True(t, checkPort(context.Background(), "127.0.0.1", port, time.Second))
}

func TestCheckPortDetectsClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	assert.False(t, checkPort(context.Background(), "127.0.0.1", port, 200*time.Millisecond))
}

func TestResolveIPPrefersIPv4(t *testing.T) {
	ip, err := resolveIP("localhost")
	assert.NoError(t, err)
	assert.NotNil(t, ip)
	assert.NotNil(t, ip.To4())
}
