package moca

import (
	"fmt"
	"strings"
)

// MaxNodes is the number of node slots in a MoCA network
const MaxNodes = 16

// LocalInfo word offsets
const (
	localNodeID     = 0
	localNCNodeID   = 1
	localLinkStatus = 5
	localNetVersion = 11
	localBitmask    = 12
	localSOCVersion = 21
)

// NetInfo word offsets
const (
	netMACHi   = 0
	netMACLo   = 1
	netVersion = 4
)

// chipNames maps ChipID - 0x15 to a chip family. The last entry is the fallback.
var chipNames = [...]string{"MXL370x", "MXL371x", "UNKNOWN"}

const chipIDBase = 0x15

// NodeSet is the ascending list of active node IDs
type NodeSet []int

// NodeSetFromMask returns the IDs whose bit is set in mask, lowest first.
func NodeSetFromMask(mask uint16) NodeSet {
	nodes := make(NodeSet, 0, MaxNodes)
	for id := 0; id < MaxNodes; id++ {
		if mask&(1<<id) != 0 {
			nodes = append(nodes, id)
		}
	}
	return nodes
}

// Mask rebuilds the bitmask for the set.
func (s NodeSet) Mask() uint16 {
	var mask uint16
	for _, id := range s {
		mask |= 1 << id
	}
	return mask
}

// Contains reports whether id is active.
func (s NodeSet) Contains(id int) bool {
	for _, n := range s {
		if n == id {
			return true
		}
	}
	return false
}

func (s NodeSet) String() string {
	parts := make([]string, len(s))
	for i, id := range s {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Network is the decoded view of the LocalInfo register block
type Network struct {
	NodeID     int     `json:"node_id"`
	NCNodeID   int     `json:"nc_node_id"`
	NetVersion uint32  `json:"network_moca_version"`
	LinkUp     bool    `json:"link_up"`
	Bitmask    uint16  `json:"bitmask"`
	Nodes      NodeSet `json:"nodes"`
	Warnings   []error `json:"-"`
}

// DecodeNetwork extracts node membership and network identity from LocalInfo.
// Missing or malformed required words are returned as an error wrapping
// ErrMalformedRegister; the poll cannot continue without them.
func DecodeNetwork(localInfo []string) (Network, error) {
	var net Network

	nodeID, err := wordAt(localInfo, "LocalInfo", localNodeID)
	if err != nil {
		return Network{}, err
	}
	nc, err := wordAt(localInfo, "LocalInfo", localNCNodeID)
	if err != nil {
		return Network{}, err
	}
	ver, err := wordAt(localInfo, "LocalInfo", localNetVersion)
	if err != nil {
		return Network{}, err
	}
	mask, err := wordAt(localInfo, "LocalInfo", localBitmask)
	if err != nil {
		return Network{}, err
	}

	net.NodeID = int(nodeID)
	net.NCNodeID = int(nc & 0xFF)
	net.NetVersion = ver & 0xFF
	net.Bitmask = uint16(mask & 0xFFFF)
	net.Nodes = NodeSetFromMask(net.Bitmask)

	if link, err := wordAt(localInfo, "LocalInfo", localLinkStatus); err != nil {
		net.Warnings = append(net.Warnings, err)
	} else {
		net.LinkUp = link != 0
	}

	return net, nil
}

// LinkStatus renders the link flag the way the adapter's own UI does.
func (n Network) LinkStatus() string {
	if n.LinkUp {
		return "Up"
	}
	return "Down"
}

// ChipName returns the chip family for a ChipID register value.
func ChipName(chipID uint32) string {
	idx := int64(chipID) - chipIDBase
	if idx < 0 || idx >= int64(len(chipNames)) {
		return chipNames[len(chipNames)-1]
	}
	return chipNames[idx]
}

// DecodeSOCVersion joins the chip family with the firmware string stored
// as ASCII words from LocalInfo[21] onward.
func DecodeSOCVersion(localInfo, chipID []string) (string, error) {
	id, err := wordAt(chipID, "ChipID", 0)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := localSOCVersion; i < len(localInfo); i++ {
		s, ok := BytesToPrintableASCII(localInfo[i])
		if !ok {
			break
		}
		sb.WriteString(s)
	}

	return ChipName(id) + "." + sb.String(), nil
}

// NodeInfo is the per-node identity from a NetInfo block
type NodeInfo struct {
	ID          int    `json:"id"`
	MAC         string `json:"mac_address"`
	MocaVersion uint32 `json:"moca_version"`
}

// VersionString renders the node's MoCA version.
func (n NodeInfo) VersionString() string {
	return VersionString(n.MocaVersion)
}

// DecodeNodeInfo reads the MAC address and MoCA version of node id.
func DecodeNodeInfo(id int, netInfo []string) (NodeInfo, error) {
	field := fmt.Sprintf("NetInfo(%d)", id)
	info := NodeInfo{ID: id}

	ver, err := wordAt(netInfo, field, netVersion)
	if err != nil {
		return info, err
	}
	info.MocaVersion = ver & 0xFF

	hi, err := wordAt(netInfo, field, netMACHi)
	if err != nil {
		return info, err
	}
	lo, err := wordAt(netInfo, field, netMACLo)
	if err != nil {
		return info, err
	}
	info.MAC = MACFromHiLo(hi, lo)

	return info, nil
}

// NodeVersion reads the MoCA version byte of node id from its NetInfo block.
func NodeVersion(netInfo map[int][]string, id int) (uint32, error) {
	words, ok := netInfo[id]
	if !ok {
		return 0, missingWord(fmt.Sprintf("NetInfo(%d)", id), netVersion)
	}
	v, err := wordAt(words, fmt.Sprintf("NetInfo(%d)", id), netVersion)
	if err != nil {
		return 0, err
	}
	return v & 0xFF, nil
}

// NCVersion returns the network coordinator's MoCA version, falling back to
// the network version from LocalInfo when the coordinator's NetInfo is unusable.
func NCVersion(netInfo map[int][]string, net Network) uint32 {
	if v, err := NodeVersion(netInfo, net.NCNodeID); err == nil {
		return v
	}
	return net.NetVersion
}

// FMRRequestVersion selects the FMR payload format to request from the adapter
// for a node: 1 when either side speaks MoCA 1.x, otherwise 2.
func FMRRequestVersion(ncVersion, nodeVersion uint32) int {
	if min(ncVersion, nodeVersion) < 0x20 {
		return 1
	}
	return 2
}
