package moca

import (
	"encoding/json"
	"strconv"
)

// Rate formula constants
const (
	LDPCLen100MHz = 3900
	LDPCLen50MHz  = 1200
	FFTLen100MHz  = 512
	FFTLen50MHz   = 256
)

// VLRate is the VLPER PHY rate in Mbps. Zero when the VL gap is zero.
func VLRate(gapVL, ofdmbVL uint32) int {
	if gapVL == 0 {
		return 0
	}
	return LDPCLen100MHz * int(ofdmbVL) / ((FFTLen100MHz + (int(gapVL)+10)*2) * 46)
}

// NRate is the NPER PHY rate in Mbps for an entry decoded with the given payload version.
func NRate(version, gapN, ofdmbN, gapVL uint32) int {
	if gapN == 0 {
		return 0
	}
	if gapVL == 0 && version == Version20 {
		return rate50MHz(gapN, ofdmbN)
	}
	return rate100MHz(gapN, ofdmbN)
}

// GCDRate is the greatest-common-denominator rate of a node, taken from its
// own entry and chosen by the major digit of the node's MoCA version.
func GCDRate(nodeVersion, gapN, ofdmbN uint32) int {
	switch nodeVersion & 0xF0 {
	case 0x10:
		return rate50MHz(gapN, ofdmbN)
	case 0x20:
		return rate100MHz(gapN, ofdmbN)
	default:
		return 0
	}
}

func rate50MHz(gap, ofdmb uint32) int {
	return LDPCLen50MHz * int(ofdmb) / ((FFTLen50MHz + (int(gap)*2 + 10)) * 26)
}

func rate100MHz(gap, ofdmb uint32) int {
	return LDPCLen100MHz * int(ofdmb) / ((FFTLen100MHz + (int(gap)+10)*2) * 46)
}

// PayloadVersion picks the FMR payload version for the entry of peer inside
// the dump of node. Below a 2.0 coordinator every entry uses the lowest version
// of node, peer and coordinator; otherwise the node's own version applies.
func PayloadVersion(ncVersion, nodeVersion, peerVersion uint32) uint32 {
	if ncVersion < Version20 {
		return min(nodeVersion, ncVersion, peerVersion)
	}
	return nodeVersion
}

// RateMatrix maps an ordered (from, to) pair of active nodes to a rate in Mbps.
// It is not symmetric.
type RateMatrix struct {
	nodes NodeSet
	index map[int]int
	rates [][]int
}

func newRateMatrix(nodes NodeSet) RateMatrix {
	m := RateMatrix{
		nodes: nodes,
		index: make(map[int]int, len(nodes)),
		rates: make([][]int, len(nodes)),
	}
	for i, id := range nodes {
		m.index[id] = i
		m.rates[i] = make([]int, len(nodes))
	}
	return m
}

// Nodes returns the node IDs labelling rows and columns.
func (m RateMatrix) Nodes() NodeSet {
	return m.nodes
}

// Len returns the number of rows.
func (m RateMatrix) Len() int {
	return len(m.nodes)
}

// At returns the rate from one node to another. ok is false if either is not active.
func (m RateMatrix) At(from, to int) (rate int, ok bool) {
	i, ok := m.index[from]
	if !ok {
		return 0, false
	}
	j, ok := m.index[to]
	if !ok {
		return 0, false
	}
	return m.rates[i][j], true
}

// MarshalJSON renders {"from": {"to": rate}}.
func (m RateMatrix) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]int, len(m.nodes))
	for i, from := range m.nodes {
		row := make(map[string]int, len(m.nodes))
		for j, to := range m.nodes {
			row[strconv.Itoa(to)] = m.rates[i][j]
		}
		out[strconv.Itoa(from)] = row
	}
	return json.Marshal(out)
}

// GcdRates maps a node ID to its GCD rate in Mbps
type GcdRates map[int]int

// PairResult is the outcome of decoding one ordered pair
type PairResult struct {
	From    int    `json:"from"`
	To      int    `json:"to"`
	Version uint32 `json:"version"`
	NRate   int    `json:"n_rate"`
	VLRate  int    `json:"vl_rate"`
	Err     error  `json:"-"`
}

// OK reports whether the pair decoded.
func (p PairResult) OK() bool {
	return p.Err == nil
}

// PhyRates is the full rate picture of one poll
type PhyRates struct {
	Nodes    NodeSet      `json:"nodes"`
	N        RateMatrix   `json:"rates"`
	VL       RateMatrix   `json:"vl_rates"`
	Gcd      GcdRates     `json:"gcd_rates"`
	Pairs    []PairResult `json:"-"`
	Warnings []error      `json:"-"`
}

// Failures returns the pairs that could not be decoded.
func (r PhyRates) Failures() []PairResult {
	var failed []PairResult
	for _, p := range r.Pairs {
		if !p.OK() {
			failed = append(failed, p)
		}
	}
	return failed
}

// ComputeRates decodes the FMR dump of every active node and fills the
// N and VL matrices and the GCD map. A pair that cannot be decoded gets
// zero rates and a DecodeError in its PairResult; all other pairs are
// still computed.
func ComputeRates(regs Registers, net Network) PhyRates {
	nodes := net.Nodes
	out := PhyRates{
		Nodes: nodes,
		N:     newRateMatrix(nodes),
		VL:    newRateMatrix(nodes),
		Gcd:   make(GcdRates, len(nodes)),
		Pairs: make([]PairResult, 0, len(nodes)*len(nodes)),
	}
	if len(nodes) == 0 {
		out.Warnings = append(out.Warnings, ErrEmptyNodeSet)
		return out
	}

	ncVer := NCVersion(regs.NetInfo, net)

	for i, from := range nodes {
		out.Gcd[from] = 0
		words := regs.FmrInfo[from]

		fromVer, fromErr := NodeVersion(regs.NetInfo, from)
		entryVer := min(fromVer, ncVer)

		scanner := NewFMRScanner()
		for j, to := range nodes {
			pair := PairResult{From: from, To: to}

			version, verErr := fromVer, fromErr
			if verErr == nil && ncVer < Version20 {
				var peerVer uint32
				peerVer, verErr = NodeVersion(regs.NetInfo, to)
				version = PayloadVersion(ncVer, fromVer, peerVer)
			}
			if verErr != nil {
				pair.Err = &DecodeError{From: from, To: to, Cursor: scanner.Cursor, Cause: verErr}
				scanner = scanner.Next(entryVer)
				out.Pairs = append(out.Pairs, pair)
				continue
			}

			cursor := scanner.Cursor
			entry, next, err := scanner.Step(words, version)
			scanner = next
			pair.Version = version
			if err != nil {
				pair.Err = &DecodeError{From: from, To: to, Cursor: cursor, Cause: err}
				out.Pairs = append(out.Pairs, pair)
				continue
			}

			pair.VLRate = VLRate(entry.GapVL, entry.OfdmbVL)
			pair.NRate = NRate(version, entry.GapN, entry.OfdmbN, entry.GapVL)
			out.N.rates[i][j] = pair.NRate
			out.VL.rates[i][j] = pair.VLRate

			if from == to {
				out.Gcd[from] = GCDRate(fromVer, entry.GapN, entry.OfdmbN)
			}
			out.Pairs = append(out.Pairs, pair)
		}
	}

	return out
}
