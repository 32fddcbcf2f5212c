// Package publish turns decoded adapter results into MQTT messages and
// delivers them to a broker.
package publish

import (
	"fmt"
	"strconv"

	"github.com/dewgenenny/gocoax-stats/internal/moca"
)

// DefaultBaseTopic is the topic root when none is configured
const DefaultBaseTopic = "moca"

// Message is one retained-or-not value on one topic
type Message struct {
	Topic   string `json:"topic"`
	Payload string `json:"payload"`
}

// Options selects the optional topic groups
type Options struct {
	VLRates  bool
	NodeInfo bool
}

// Messages flattens a poll result into topics under {base}/{host}.
func Messages(base, host string, res moca.Result, opts Options) []Message {
	if base == "" {
		base = DefaultBaseTopic
	}
	root := base + "/" + host
	st := res.Status

	var msgs []Message
	add := func(topic, payload string) {
		msgs = append(msgs, Message{Topic: root + "/" + topic, Payload: payload})
	}
	addUint := func(topic string, v uint64) {
		add(topic, strconv.FormatUint(v, 10))
	}

	add("status/soc_version", st.SOCVersion)
	add("status/my_moca_version", st.MyMocaVersion)
	add("status/network_moca_version", st.NetworkMocaVersion)
	add("status/ip_address", st.IPAddress)
	add("status/mac_address", st.MACAddress)
	add("status/link_status", st.LinkStatus)
	addUint("status/lof", uint64(st.LOF))
	add("status/node_id", strconv.Itoa(st.NodeID))
	add("status/nc_node_id", strconv.Itoa(st.NCNodeID))

	addUint("status/ethernet_tx/tx_good", st.TX.Good)
	addUint("status/ethernet_tx/tx_bad", st.TX.Bad)
	addUint("status/ethernet_tx/tx_dropped", st.TX.Dropped)
	addUint("status/ethernet_rx/rx_good", st.RX.Good)
	addUint("status/ethernet_rx/rx_bad", st.RX.Bad)
	addUint("status/ethernet_rx/rx_dropped", st.RX.Dropped)

	rates := res.Rates
	for _, id := range rates.Nodes {
		add(fmt.Sprintf("phy_rates/gcd_rate/%d", id), strconv.Itoa(rates.Gcd[id]))
	}
	msgs = append(msgs, matrixMessages(root+"/phy_rates", rates.N)...)
	if opts.VLRates {
		msgs = append(msgs, matrixMessages(root+"/phy_rates_vl", rates.VL)...)
	}

	if opts.NodeInfo {
		for _, n := range res.Nodes {
			if n.MAC != "" {
				add(fmt.Sprintf("nodes/%d/mac_address", n.ID), n.MAC)
			}
			if n.MocaVersion != 0 {
				add(fmt.Sprintf("nodes/%d/moca_version", n.ID), n.VersionString())
			}
		}
	}

	return msgs
}

func matrixMessages(prefix string, m moca.RateMatrix) []Message {
	nodes := m.Nodes()
	out := make([]Message, 0, len(nodes)*len(nodes))
	for _, from := range nodes {
		for _, to := range nodes {
			rate, _ := m.At(from, to)
			out = append(out, Message{
				Topic:   fmt.Sprintf("%s/from_%d/to_%d", prefix, from, to),
				Payload: strconv.Itoa(rate),
			})
		}
	}
	return out
}
