package publish

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dewgenenny/gocoax-stats/internal/moca"
)

func words(n int, set map[int]string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "0x00000000"
	}
	for i, v := range set {
		out[i] = v
	}
	return out
}

// twoNodeResult decodes a 2.0 network of nodes 0 and 1 with empty FMR dumps.
func twoNodeResult(t *testing.T) moca.Result {
	t.Helper()
	netInfo := func(mac0, mac1 string) []string {
		return words(8, map[int]string{0: mac0, 1: mac1, 4: "0x00000020"})
	}
	regs := moca.Registers{
		LocalInfo: words(26, map[int]string{
			5: "0x00000001", 11: "0x00000020", 12: "0x00000003",
			21: "0x312e322e", 22: "0x33303031",
		}),
		NetInfo: map[int][]string{
			0: netInfo("0x00112233", "0x44550000"),
			1: netInfo("0x00aabbcc", "0xddee0000"),
		},
		FmrInfo: map[int][]string{
			0: words(16, nil),
			1: words(16, nil),
		},
		MacInfo:   []string{"0x00112233", "0x44550000"},
		FrameInfo: words(104, map[int]string{12: "0x1", 13: "0x2", 67: "0x9"}),
		Lof:       []string{"0x7"},
		IPAddr:    []string{"0xC0A80102"},
		ChipID:    []string{"0x16"},
	}
	res, err := moca.Decode(regs)
	require.NoError(t, err)
	return res
}

func byTopic(msgs []Message) map[string]string {
	out := make(map[string]string, len(msgs))
	for _, m := range msgs {
		out[m.Topic] = m.Payload
	}
	return out
}

func TestMessagesStatusTopics(t *testing.T) {
	msgs := Messages("", "10.0.0.5", twoNodeResult(t), Options{})
	got := byTopic(msgs)

	assert.Len(t, msgs, 21)
	assert.Equal(t, "MXL371x.1.2.3001", got["moca/10.0.0.5/status/soc_version"])
	assert.Equal(t, "2.0", got["moca/10.0.0.5/status/my_moca_version"])
	assert.Equal(t, "2.0", got["moca/10.0.0.5/status/network_moca_version"])
	assert.Equal(t, "192.168.1.2", got["moca/10.0.0.5/status/ip_address"])
	assert.Equal(t, "00:11:22:33:44:55", got["moca/10.0.0.5/status/mac_address"])
	assert.Equal(t, "Up", got["moca/10.0.0.5/status/link_status"])
	assert.Equal(t, "7", got["moca/10.0.0.5/status/lof"])
	assert.Equal(t, "0", got["moca/10.0.0.5/status/node_id"])
	assert.Equal(t, "4294967298", got["moca/10.0.0.5/status/ethernet_tx/tx_good"])
	assert.Equal(t, "9", got["moca/10.0.0.5/status/ethernet_rx/rx_good"])
	assert.Equal(t, "0", got["moca/10.0.0.5/status/ethernet_rx/rx_dropped"])
}

func TestMessagesRateTopics(t *testing.T) {
	got := byTopic(Messages("home/coax", "dev1", twoNodeResult(t), Options{}))

	for _, topic := range []string{
		"home/coax/dev1/phy_rates/gcd_rate/0",
		"home/coax/dev1/phy_rates/gcd_rate/1",
		"home/coax/dev1/phy_rates/from_0/to_0",
		"home/coax/dev1/phy_rates/from_0/to_1",
		"home/coax/dev1/phy_rates/from_1/to_0",
		"home/coax/dev1/phy_rates/from_1/to_1",
	} {
		assert.Contains(t, got, topic)
	}
	assert.NotContains(t, got, "home/coax/dev1/phy_rates_vl/from_0/to_1")
	assert.NotContains(t, got, "home/coax/dev1/nodes/1/mac_address")
}

func TestMessagesOptionalGroups(t *testing.T) {
	msgs := Messages("moca", "dev1", twoNodeResult(t), Options{VLRates: true, NodeInfo: true})
	got := byTopic(msgs)

	assert.Len(t, msgs, 29)
	assert.Equal(t, "0", got["moca/dev1/phy_rates_vl/from_1/to_0"])
	assert.Equal(t, "00:aa:bb:cc:dd:ee", got["moca/dev1/nodes/1/mac_address"])
	assert.Equal(t, "2.0", got["moca/dev1/nodes/0/moca_version"])
}

func TestMessagesEmptyNetwork(t *testing.T) {
	res := twoNodeResult(t)
	res.Rates = moca.ComputeRates(moca.Registers{}, moca.Network{})
	res.Nodes = nil

	msgs := Messages("moca", "dev1", res, Options{VLRates: true, NodeInfo: true})
	assert.Len(t, msgs, 15)
	for _, m := range msgs {
		assert.Contains(t, m.Topic, "moca/dev1/status/")
	}
}
