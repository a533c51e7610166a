// Package network is the supply-network sub-model: port centrality, carrier
// redundancy, upstream and downstream dependency, and disruption propagation.
package network

import (
	"log/slog"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/region"
)

const (
	defaultCentrality = 0.50
	defaultRedundancy = 0.60
	hubUplift         = 0.85
)

// centrality scores the top hubs by name and UN/LOCODE.
var centrality = map[string]float64{
	"SINGAPORE": 0.95, "SGSIN": 0.95,
	"SHANGHAI": 0.95, "CNSHA": 0.95,
	"ROTTERDAM": 0.90, "NLRTM": 0.90,
	"NINGBO": 0.85, "CNNGB": 0.85,
	"SHENZHEN": 0.85, "CNSZX": 0.85,
	"HONG KONG": 0.85, "HKHKG": 0.85,
	"BUSAN": 0.80, "KRPUS": 0.80,
	"LOS ANGELES": 0.80, "USLAX": 0.80, "LAX": 0.80,
	"HAMBURG": 0.80, "DEHAM": 0.80,
	"DUBAI": 0.80, "JEBEL ALI": 0.80, "AEJEA": 0.80,
	"LONG BEACH": 0.78, "USLGB": 0.78,
	"ANTWERP": 0.78, "BEANR": 0.78,
}

// hubNames trigger the heuristic uplift for free-text port names.
var hubNames = []string{"SINGAPORE", "ROTTERDAM", "SHANGHAI", "HONG KONG", "LOS ANGELES"}

// redundancy is lower for carriers with large alternative capacity.
var redundancy = []struct {
	name  string
	value float64
}{
	{"HAPAG LLOYD", 0.30},
	{"EVERGREEN", 0.35},
	{"CMA CGM", 0.30},
	{"MAERSK", 0.25},
	{"COSCO", 0.30},
	{"MSC", 0.25},
}

var exportHubs = map[string]bool{
	"SHANGHAI": true, "CNSHA": true, "NINGBO": true, "CNNGB": true,
	"SHENZHEN": true, "CNSZX": true, "SINGAPORE": true, "SGSIN": true,
	"BUSAN": true, "KRPUS": true, "HONG KONG": true, "HKHKG": true,
	"HO CHI MINH": true, "VNSGN": true, "CAI MEP": true, "VNCMP": true,
}

var importHubs = map[string]bool{
	"LOS ANGELES": true, "USLAX": true, "LAX": true, "LONG BEACH": true, "USLGB": true,
	"ROTTERDAM": true, "NLRTM": true, "HAMBURG": true, "DEHAM": true,
	"ANTWERP": true, "BEANR": true, "NEW YORK": true, "USNYC": true,
	"FELIXSTOWE": true, "GBFXT": true,
}

// Lane is the network sub-model input.
type Lane struct {
	POL     string
	POD     string
	Carrier string
	// Origin and Destination are the detected regions of each end.
	Origin      domain.RegionCode
	Destination domain.RegionCode
	// PropagationFactor is the region profile's network propagation factor.
	PropagationFactor float64
}

// Assess computes the network breakdown for a lane.
func Assess(l Lane) domain.NetworkRisk {
	pc := (PortCentrality(l.POL) + PortCentrality(l.POD)) / 2
	cr := CarrierRedundancy(l.Carrier)

	up := 0.4
	if crossesContinents(l.Origin, l.Destination) {
		up = 0.6
	}
	if exportHubs[normalize(l.POL)] {
		up *= 1.2
	}
	up = domain.Clamp01(up)

	down := 0.5
	if importHubs[normalize(l.POD)] {
		down = 0.7
	}

	pf := l.PropagationFactor
	if pf <= 0 {
		pf = 1
	}
	prop := domain.Clamp01((0.6*pc + 0.4*cr) * pf)

	overall := domain.Clamp01(0.25*pc + 0.20*cr + 0.15*up + 0.15*down + 0.25*prop)

	return domain.NetworkRisk{
		PortCentrality:    pc,
		CarrierRedundancy: cr,
		Upstream:          up,
		Downstream:        down,
		Propagation:       prop,
		Overall:           overall,
	}
}

// PortCentrality looks up a port, uplifting free text that names a major hub.
func PortCentrality(port string) float64 {
	p := normalize(port)
	if p == "" {
		return defaultCentrality
	}
	if v, ok := centrality[p]; ok {
		return v
	}
	for _, hub := range hubNames {
		if strings.Contains(p, hub) {
			return hubUplift
		}
	}
	slog.Debug("unknown port, using default centrality", "port", port)
	return defaultCentrality
}

// CarrierRedundancy looks up a carrier by name fragment.
func CarrierRedundancy(carrier string) float64 {
	c := strings.ReplaceAll(normalize(carrier), "-", " ")
	if c == "" {
		return defaultRedundancy
	}
	for _, r := range redundancy {
		if strings.Contains(c, r.name) {
			return r.value
		}
	}
	slog.Debug("unknown carrier, using default redundancy", "carrier", carrier)
	return defaultRedundancy
}

func crossesContinents(o, d domain.RegionCode) bool {
	co, cd := region.Continent(o), region.Continent(d)
	return co != "" && cd != "" && co != cd
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
