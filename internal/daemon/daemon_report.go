package daemon

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dewgenenny/gocoax-stats/internal/logging"
	"github.com/dewgenenny/gocoax-stats/internal/models"
)

// PollSingleHost polls host once, whether or not it is configured, and
// writes a console report to w.
func (d *Daemon) PollSingleHost(ctx context.Context, host string, w io.Writer) error {
	if d.currentConfig().Logging.Level == "debug" {
		_ = d.SetDebugMode(true)
	}

	logging.Infof("Polling single host %s", host)
	snap, err := d.PollHost(ctx, host)
	if err != nil {
		return err
	}
	return WriteReport(w, snap)
}

// WriteReport prints the status, node table, PHY rate matrix and GCD rates
// of a snapshot as tab-aligned text.
func WriteReport(w io.Writer, snap *models.HostSnapshot) error {
	if !snap.OK() {
		_, err := fmt.Fprintf(w, "%s: poll failed: %s\n", snap.Host, snap.Error)
		return err
	}

	res := snap.Result
	st := res.Status
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Host:\t%s\n", snap.Host)
	fmt.Fprintf(tw, "SOC Version:\t%s\n", st.SOCVersion)
	fmt.Fprintf(tw, "MoCA Version:\t%s (network %s)\n", st.MyMocaVersion, st.NetworkMocaVersion)
	fmt.Fprintf(tw, "IP / MAC:\t%s / %s\n", st.IPAddress, st.MACAddress)
	fmt.Fprintf(tw, "Link:\t%s (LOF %d MHz)\n", st.LinkStatus, st.LOF)
	fmt.Fprintf(tw, "Node / NC:\t%d / %d\n", st.NodeID, st.NCNodeID)
	fmt.Fprintf(tw, "Ethernet TX:\tgood %d, bad %d, dropped %d\n", st.TX.Good, st.TX.Bad, st.TX.Dropped)
	fmt.Fprintf(tw, "Ethernet RX:\tgood %d, bad %d, dropped %d\n", st.RX.Good, st.RX.Bad, st.RX.Dropped)

	fmt.Fprintln(tw, "\nNode Information:")
	fmt.Fprintln(tw, "NodeID\tMAC Address\tMoCA Version")
	for _, n := range res.Nodes {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", n.ID, n.MAC, n.VersionString())
	}

	nodes := res.Rates.Nodes
	fmt.Fprintln(tw, "\nPHY Rates (Mbps):")
	header := []string{"From/To"}
	for _, id := range nodes {
		header = append(header, strconv.Itoa(id))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, from := range nodes {
		row := []string{strconv.Itoa(from)}
		for _, to := range nodes {
			rate, _ := res.Rates.N.At(from, to)
			row = append(row, strconv.Itoa(rate))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	fmt.Fprintln(tw, "\nGCD Rates (Mbps):")
	fmt.Fprintln(tw, "NodeID\tGCD Rate")
	for _, id := range nodes {
		fmt.Fprintf(tw, "%d\t%d\n", id, res.Rates.Gcd[id])
	}

	if len(snap.Warnings) > 0 {
		fmt.Fprintln(tw, "\nWarnings:")
		for _, warn := range snap.Warnings {
			fmt.Fprintf(tw, "  %s\n", warn)
		}
	}

	return tw.Flush()
}
