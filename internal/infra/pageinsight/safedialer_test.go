package pageinsight

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBlockedIP(t *testing.T) {
	tests := []struct {
		addr    string
		blocked bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"192.168.0.10", true},
		{"169.254.169.254", true},
		{"100.64.0.1", true},
		{"::1", true},
		{"::ffff:127.0.0.1", true},
		{"0.0.0.0", true},
		{"8.8.8.8", false},
		{"2606:4700:4700::1111", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.blocked, isBlockedIP(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestBlockPrivateAddresses(t *testing.T) {
	assert.ErrorIs(t, blockPrivateAddresses("tcp", "127.0.0.1:80", nil), errBlockedAddress)
	assert.ErrorIs(t, blockPrivateAddresses("tcp", "not-an-address", nil), errBlockedAddress)
	assert.NoError(t, blockPrivateAddresses("tcp", "8.8.8.8:443", nil))
}
