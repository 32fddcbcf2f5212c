package moca

import "fmt"

// Registers holds the raw register arrays fetched in one poll of one adapter.
// NetInfo and FmrInfo are keyed by node ID.
type Registers struct {
	LocalInfo      []string         `json:"local_info"`
	NetInfo        map[int][]string `json:"net_info"`
	FmrInfo        map[int][]string `json:"fmr_info"`
	MacInfo        []string         `json:"mac_info"`
	FrameInfo      []string         `json:"frame_info"`
	Lof            []string         `json:"lof"`
	IPAddr         []string         `json:"ip_addr"`
	ChipID         []string         `json:"chip_id"`
	MiscPhyInfo    []string         `json:"misc_phy_info,omitempty"`
	GPIO           []string         `json:"gpio,omitempty"`
	MiscM25PhyInfo []string         `json:"misc_m25_phy_info,omitempty"`
}

// FrameInfo hi/lo word offsets of the Ethernet counters
var frameCounterWords = [...]struct {
	name   string
	hi, lo int
}{
	{"tx_good", 12, 13},
	{"tx_bad", 30, 31},
	{"tx_dropped", 48, 49},
	{"rx_good", 66, 67},
	{"rx_bad", 84, 85},
	{"rx_dropped", 102, 103},
}

// EthernetCounters are the frame counters of one direction
type EthernetCounters struct {
	Good    uint64 `json:"good"`
	Bad     uint64 `json:"bad"`
	Dropped uint64 `json:"dropped"`
}

// StatusRecord is the decoded device status of an adapter
type StatusRecord struct {
	SOCVersion         string           `json:"soc_version"`
	MyMocaVersion      string           `json:"my_moca_version"`
	NetworkMocaVersion string           `json:"network_moca_version"`
	IPAddress          string           `json:"ip_address"`
	MACAddress         string           `json:"mac_address"`
	LinkStatus         string           `json:"link_status"`
	NodeID             int              `json:"node_id"`
	NCNodeID           int              `json:"nc_node_id"`
	LOF                uint32           `json:"lof"`
	TX                 EthernetCounters `json:"ethernet_tx"`
	RX                 EthernetCounters `json:"ethernet_rx"`
	Warnings           []error          `json:"-"`
}

// DecodeStatus assembles the status record. A field whose registers are
// missing or malformed is left empty and reported in Warnings.
func DecodeStatus(regs Registers, net Network) StatusRecord {
	rec := StatusRecord{
		NetworkMocaVersion: VersionString(net.NetVersion),
		LinkStatus:         net.LinkStatus(),
		NodeID:             net.NodeID,
		NCNodeID:           net.NCNodeID,
	}
	warn := func(err error) {
		rec.Warnings = append(rec.Warnings, err)
	}

	if soc, err := DecodeSOCVersion(regs.LocalInfo, regs.ChipID); err != nil {
		warn(err)
	} else {
		rec.SOCVersion = soc
	}

	if v, err := NodeVersion(regs.NetInfo, net.NodeID); err != nil {
		warn(err)
	} else {
		rec.MyMocaVersion = VersionString(v)
	}

	if hi, err := wordAt(regs.MacInfo, "MacInfo", 0); err != nil {
		warn(err)
	} else if lo, err := wordAt(regs.MacInfo, "MacInfo", 1); err != nil {
		warn(err)
	} else {
		rec.MACAddress = MACFromHiLo(hi, lo)
	}

	if ip, err := wordAt(regs.IPAddr, "IPAddr", 0); err != nil {
		warn(err)
	} else {
		rec.IPAddress = IPv4FromWord(ip)
	}

	if lof, err := wordAt(regs.Lof, "Lof", 0); err != nil {
		warn(err)
	} else {
		rec.LOF = lof
	}

	counters := make(map[string]uint64, len(frameCounterWords))
	for _, fc := range frameCounterWords {
		v, err := frameCounter(regs.FrameInfo, fc.hi, fc.lo)
		if err != nil {
			warn(fmt.Errorf("%s: %w", fc.name, err))
			continue
		}
		counters[fc.name] = v
	}
	rec.TX = EthernetCounters{Good: counters["tx_good"], Bad: counters["tx_bad"], Dropped: counters["tx_dropped"]}
	rec.RX = EthernetCounters{Good: counters["rx_good"], Bad: counters["rx_bad"], Dropped: counters["rx_dropped"]}

	return rec
}

func frameCounter(words []string, hiIdx, loIdx int) (uint64, error) {
	hi, err := wordAt(words, "FrameInfo", hiIdx)
	if err != nil {
		return 0, err
	}
	lo, err := wordAt(words, "FrameInfo", loIdx)
	if err != nil {
		return 0, err
	}
	return HiLoTo64(hi, lo), nil
}
