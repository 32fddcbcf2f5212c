package moca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localInfoFixture(nodeID, ncID, version, mask string) []string {
	return regWords(26, map[int]string{
		localNodeID:         nodeID,
		localNCNodeID:       ncID,
		localLinkStatus:     "0x00000001",
		localNetVersion:     version,
		localBitmask:        mask,
		localSOCVersion:     "0x312e322e",
		localSOCVersion + 1: "0x33303031",
	})
}

func TestNodeSetFromMask(t *testing.T) {
	tests := []struct {
		name string
		mask uint16
		want NodeSet
	}{
		{"empty", 0, NodeSet{}},
		{"single", 0x0001, NodeSet{0}},
		{"sparse", 0x000B, NodeSet{0, 1, 3}},
		{"high bit", 0x8002, NodeSet{1, 15}},
		{"full", 0xFFFF, NodeSet{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NodeSetFromMask(tt.mask)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.mask, got.Mask())
		})
	}
}

func TestNodeSetFromMaskAllMasks(t *testing.T) {
	for mask := 0; mask <= 0xFFFF; mask++ {
		got := NodeSetFromMask(uint16(mask))

		for i := 1; i < len(got); i++ {
			if got[i-1] >= got[i] {
				t.Fatalf("mask %#04x: nodes not strictly ascending: %v", mask, got)
			}
		}
		for id := 0; id < MaxNodes; id++ {
			if want := mask&(1<<id) != 0; got.Contains(id) != want {
				t.Fatalf("mask %#04x: Contains(%d) = %v", mask, id, !want)
			}
		}
		if got.Mask() != uint16(mask) {
			t.Fatalf("mask %#04x: round trip gave %#04x", mask, got.Mask())
		}
	}
}

func TestNodeSetContains(t *testing.T) {
	s := NodeSetFromMask(0x000B)
	assert.True(t, s.Contains(3))
	assert.False(t, s.Contains(2))
	assert.Equal(t, "[0 1 3]", s.String())
}

func TestDecodeNetwork(t *testing.T) {
	net, err := DecodeNetwork(localInfoFixture("0x00000002", "0x00000100", "0x00000025", "0x00000007"))
	require.NoError(t, err)

	assert.Equal(t, 2, net.NodeID)
	assert.Equal(t, 0, net.NCNodeID, "only the low byte of the NC word is the node ID")
	assert.Equal(t, uint32(0x25), net.NetVersion)
	assert.Equal(t, uint16(0x0007), net.Bitmask)
	assert.Equal(t, NodeSet{0, 1, 2}, net.Nodes)
	assert.True(t, net.LinkUp)
	assert.Equal(t, "Up", net.LinkStatus())
	assert.Empty(t, net.Warnings)
}

func TestDecodeNetworkRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		local []string
	}{
		{"too short", []string{"0x1", "0x0", "0x0"}},
		{"bad node id", localInfoFixture("node", "0x0", "0x25", "0x3")},
		{"bad nc id", localInfoFixture("0x0", "", "0x25", "0x3")},
		{"bad version", localInfoFixture("0x0", "0x0", "v2", "0x3")},
		{"bad bitmask", localInfoFixture("0x0", "0x0", "0x25", "0xZZ")},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeNetwork(tt.local)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedRegister)
		})
	}
}

func TestDecodeNetworkBadLinkStatusIsWarning(t *testing.T) {
	local := localInfoFixture("0x0", "0x0", "0x25", "0x1")
	local[localLinkStatus] = "up"

	net, err := DecodeNetwork(local)
	require.NoError(t, err)
	assert.False(t, net.LinkUp)
	require.Len(t, net.Warnings, 1)
	assert.ErrorIs(t, net.Warnings[0], ErrMalformedRegister)
}

func TestChipName(t *testing.T) {
	assert.Equal(t, "MXL370x", ChipName(0x15))
	assert.Equal(t, "MXL371x", ChipName(0x16))
	assert.Equal(t, "UNKNOWN", ChipName(0x17))
	assert.Equal(t, "UNKNOWN", ChipName(0x99))
	assert.Equal(t, "UNKNOWN", ChipName(0x10), "ids below the table base are clamped too")
}

func TestDecodeSOCVersion(t *testing.T) {
	local := localInfoFixture("0x0", "0x0", "0x25", "0x1")

	soc, err := DecodeSOCVersion(local, []string{"0x16"})
	require.NoError(t, err)
	assert.Equal(t, "MXL371x.1.2.3001", soc)

	// The string may run to the end of the array without a terminator.
	soc, err = DecodeSOCVersion(local[:localSOCVersion+1], []string{"0x15"})
	require.NoError(t, err)
	assert.Equal(t, "MXL370x.1.2.", soc)

	_, err = DecodeSOCVersion(local, nil)
	assert.ErrorIs(t, err, ErrMalformedRegister)
}

func TestDecodeNodeInfo(t *testing.T) {
	info, err := DecodeNodeInfo(3, regWords(8, map[int]string{
		netMACHi:   "0x00112233",
		netMACLo:   "0x44550000",
		netVersion: "0x00000120",
	}))
	require.NoError(t, err)
	assert.Equal(t, 3, info.ID)
	assert.Equal(t, "00:11:22:33:44:55", info.MAC)
	assert.Equal(t, uint32(0x20), info.MocaVersion)
	assert.Equal(t, "2.0", info.VersionString())

	_, err = DecodeNodeInfo(4, []string{"0x0"})
	assert.ErrorIs(t, err, ErrMalformedRegister)
}

func TestNCVersion(t *testing.T) {
	net := Network{NCNodeID: 1, NetVersion: 0x20}

	netInfo := map[int][]string{1: regWords(8, map[int]string{netVersion: "0x11"})}
	assert.Equal(t, uint32(0x11), NCVersion(netInfo, net))

	// Falls back to the network version when the coordinator is missing.
	assert.Equal(t, uint32(0x20), NCVersion(map[int][]string{}, net))
}

func TestFMRRequestVersion(t *testing.T) {
	assert.Equal(t, 1, FMRRequestVersion(0x11, 0x20))
	assert.Equal(t, 1, FMRRequestVersion(0x20, 0x11))
	assert.Equal(t, 2, FMRRequestVersion(0x20, 0x25))
	assert.Equal(t, 2, FMRRequestVersion(0x25, 0x25))
}
