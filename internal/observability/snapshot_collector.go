package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dewgenenny/gocoax-stats/internal/models"
)

// SnapshotSource returns the latest snapshot of every host
type SnapshotSource interface {
	Snapshots() []*models.HostSnapshot
}

// SnapshotCollector exports the latest decoded values of every host as
// gauges, read at scrape time.
type SnapshotCollector struct {
	source SnapshotSource

	phyRate     *prometheus.Desc
	phyRateVL   *prometheus.Desc
	gcdRate     *prometheus.Desc
	frames      *prometheus.Desc
	linkUp      *prometheus.Desc
	activeNodes *prometheus.Desc
	lof         *prometheus.Desc
	lastPoll    *prometheus.Desc
}

// NewSnapshotCollector creates a collector reading from source.
func NewSnapshotCollector(source SnapshotSource) *SnapshotCollector {
	return &SnapshotCollector{
		source: source,
		phyRate: prometheus.NewDesc("mocad_phy_rate_mbps",
			"Unicast PHY rate between two nodes.",
			[]string{"host", "from", "to"}, nil),
		phyRateVL: prometheus.NewDesc("mocad_phy_rate_vl_mbps",
			"VLPER PHY rate between two nodes.",
			[]string{"host", "from", "to"}, nil),
		gcdRate: prometheus.NewDesc("mocad_gcd_rate_mbps",
			"Greatest common denominator rate of a node.",
			[]string{"host", "node"}, nil),
		frames: prometheus.NewDesc("mocad_ethernet_frames",
			"Ethernet frame counters of the adapter.",
			[]string{"host", "direction", "kind"}, nil),
		linkUp: prometheus.NewDesc("mocad_link_up",
			"1 when the coax link is up.",
			[]string{"host"}, nil),
		activeNodes: prometheus.NewDesc("mocad_active_nodes",
			"Number of nodes in the MoCA network.",
			[]string{"host"}, nil),
		lof: prometheus.NewDesc("mocad_lof",
			"Last operating frequency in MHz.",
			[]string{"host"}, nil),
		lastPoll: prometheus.NewDesc("mocad_last_poll_timestamp_seconds",
			"Unix time of the latest successful poll.",
			[]string{"host"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *SnapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.phyRate
	ch <- c.phyRateVL
	ch <- c.gcdRate
	ch <- c.frames
	ch <- c.linkUp
	ch <- c.activeNodes
	ch <- c.lof
	ch <- c.lastPoll
}

// Collect implements prometheus.Collector. Hosts whose latest poll failed
// export nothing.
func (c *SnapshotCollector) Collect(ch chan<- prometheus.Metric) {
	for _, snap := range c.source.Snapshots() {
		if !snap.OK() {
			continue
		}
		host := snap.Host
		res := snap.Result

		for _, from := range res.Rates.Nodes {
			f := strconv.Itoa(from)
			for _, to := range res.Rates.Nodes {
				t := strconv.Itoa(to)
				n, _ := res.Rates.N.At(from, to)
				ch <- prometheus.MustNewConstMetric(c.phyRate, prometheus.GaugeValue, float64(n), host, f, t)
				vl, _ := res.Rates.VL.At(from, to)
				ch <- prometheus.MustNewConstMetric(c.phyRateVL, prometheus.GaugeValue, float64(vl), host, f, t)
			}
			ch <- prometheus.MustNewConstMetric(c.gcdRate, prometheus.GaugeValue, float64(res.Rates.Gcd[from]), host, f)
		}

		st := res.Status
		for _, fc := range []struct {
			direction, kind string
			value           uint64
		}{
			{"tx", "good", st.TX.Good},
			{"tx", "bad", st.TX.Bad},
			{"tx", "dropped", st.TX.Dropped},
			{"rx", "good", st.RX.Good},
			{"rx", "bad", st.RX.Bad},
			{"rx", "dropped", st.RX.Dropped},
		} {
			ch <- prometheus.MustNewConstMetric(c.frames, prometheus.CounterValue, float64(fc.value), host, fc.direction, fc.kind)
		}

		link := 0.0
		if res.Network.LinkUp {
			link = 1
		}
		ch <- prometheus.MustNewConstMetric(c.linkUp, prometheus.GaugeValue, link, host)
		ch <- prometheus.MustNewConstMetric(c.activeNodes, prometheus.GaugeValue, float64(len(res.Network.Nodes)), host)
		ch <- prometheus.MustNewConstMetric(c.lof, prometheus.GaugeValue, float64(st.LOF), host)
		ch <- prometheus.MustNewConstMetric(c.lastPoll, prometheus.GaugeValue, float64(snap.PolledAt.Unix()), host)
	}
}
