// Package fetcher talks to the web management API of a MoCA adapter and
// returns raw register arrays.
package fetcher

import "net/http"

// Endpoint is one register page of the adapter API
type Endpoint struct {
	Name   string
	Path   string
	Method string
}

var (
	DevStatus      = Endpoint{"devStatus", "/devStatus.html", http.MethodGet}
	PhyRatesPage   = Endpoint{"phyRates", "/phyRates.html", http.MethodGet}
	LocalInfo      = Endpoint{"localInfo", "/ms/0/0x15", http.MethodPost}
	NetInfo        = Endpoint{"netInfo", "/ms/0/0x16", http.MethodPost}
	FmrInfo        = Endpoint{"fmrInfo", "/ms/0/0x1D", http.MethodPost}
	MiscPhyInfo    = Endpoint{"miscPhyInfo", "/ms/0/0x24", http.MethodPost}
	MacInfo        = Endpoint{"macInfo", "/ms/1/0x103/GET", http.MethodPost}
	FrameInfo      = Endpoint{"frameInfo", "/ms/0/0x14", http.MethodPost}
	Lof            = Endpoint{"lof", "/ms/0/0x1003/GET", http.MethodPost}
	IPAddr         = Endpoint{"ipAddr", "/ms/1/0x20b/GET", http.MethodPost}
	ChipID         = Endpoint{"chipID", "/ms/1/0x303/GET", http.MethodPost}
	GPIO           = Endpoint{"gpio", "/ms/1/0xb17", http.MethodPost}
	MiscM25PhyInfo = Endpoint{"miscM25PhyInfo", "/ms/0/0x7f", http.MethodPost}
)

// Endpoints lists every register page by name
var Endpoints = map[string]Endpoint{
	DevStatus.Name:      DevStatus,
	PhyRatesPage.Name:   PhyRatesPage,
	LocalInfo.Name:      LocalInfo,
	NetInfo.Name:        NetInfo,
	FmrInfo.Name:        FmrInfo,
	MiscPhyInfo.Name:    MiscPhyInfo,
	MacInfo.Name:        MacInfo,
	FrameInfo.Name:      FrameInfo,
	Lof.Name:            Lof,
	IPAddr.Name:         IPAddr,
	ChipID.Name:         ChipID,
	GPIO.Name:           GPIO,
	MiscM25PhyInfo.Name: MiscM25PhyInfo,
}
