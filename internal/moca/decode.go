package moca

// Result is everything decoded from one poll of one adapter
type Result struct {
	Network Network      `json:"network"`
	Status  StatusRecord `json:"status"`
	Rates   PhyRates     `json:"phy_rates"`
	Nodes   []NodeInfo   `json:"nodes"`
}

// Warnings collects the non-fatal problems found while decoding.
func (r Result) Warnings() []error {
	var all []error
	all = append(all, r.Network.Warnings...)
	all = append(all, r.Status.Warnings...)
	all = append(all, r.Rates.Warnings...)
	for _, p := range r.Rates.Pairs {
		if p.Err != nil {
			all = append(all, p.Err)
		}
	}
	return all
}

// Decode runs the whole pipeline over one set of registers. Only an
// unreadable LocalInfo block is fatal; everything else degrades to
// warnings and zero values.
func Decode(regs Registers) (Result, error) {
	net, err := DecodeNetwork(regs.LocalInfo)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Network: net,
		Status:  DecodeStatus(regs, net),
		Rates:   ComputeRates(regs, net),
		Nodes:   make([]NodeInfo, 0, len(net.Nodes)),
	}

	for _, id := range net.Nodes {
		info, err := DecodeNodeInfo(id, regs.NetInfo[id])
		if err != nil {
			res.Status.Warnings = append(res.Status.Warnings, err)
		}
		res.Nodes = append(res.Nodes, info)
	}

	return res, nil
}
