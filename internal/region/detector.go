// Package region maps shipment origins and destinations to trade regions and
// their weight profiles.
package region

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// table maps country codes, UN/LOCODEs, IATA codes and port or city names
// to a region.
var table = map[string]domain.RegionCode{
	// Vietnam
	"VN": domain.RegionVN, "VIETNAM": domain.RegionVN, "VIET NAM": domain.RegionVN,
	"VNSGN": domain.RegionVN, "VNHPH": domain.RegionVN, "VNDAD": domain.RegionVN,
	"VNCMP": domain.RegionVN, "VNVUT": domain.RegionVN, "VNUIH": domain.RegionVN,
	"SGN": domain.RegionVN, "HAN": domain.RegionVN, "HPH": domain.RegionVN,
	"HCM": domain.RegionVN, "HCMC": domain.RegionVN, "SAIGON": domain.RegionVN,
	"HO CHI MINH": domain.RegionVN, "HO CHI MINH CITY": domain.RegionVN,
	"HAIPHONG": domain.RegionVN, "HAI PHONG": domain.RegionVN, "HANOI": domain.RegionVN,
	"DANANG": domain.RegionVN, "DA NANG": domain.RegionVN, "CAT LAI": domain.RegionVN,
	"CAI MEP": domain.RegionVN, "VUNG TAU": domain.RegionVN, "QUY NHON": domain.RegionVN,

	// Southeast Asia
	"SEA": domain.RegionSEA, "ASEAN": domain.RegionSEA,
	"SG": domain.RegionSEA, "SGSIN": domain.RegionSEA, "SIN": domain.RegionSEA, "SINGAPORE": domain.RegionSEA,
	"TH": domain.RegionSEA, "THAILAND": domain.RegionSEA, "THLCH": domain.RegionSEA, "THBKK": domain.RegionSEA,
	"LAEM CHABANG": domain.RegionSEA, "BANGKOK": domain.RegionSEA, "BKK": domain.RegionSEA,
	"MY": domain.RegionSEA, "MALAYSIA": domain.RegionSEA, "MYPKG": domain.RegionSEA, "MYTPP": domain.RegionSEA,
	"PORT KLANG": domain.RegionSEA, "TANJUNG PELEPAS": domain.RegionSEA, "KUL": domain.RegionSEA,
	"ID": domain.RegionSEA, "INDONESIA": domain.RegionSEA, "IDJKT": domain.RegionSEA, "IDSUB": domain.RegionSEA,
	"JAKARTA": domain.RegionSEA, "TANJUNG PRIOK": domain.RegionSEA, "SURABAYA": domain.RegionSEA,
	"PH": domain.RegionSEA, "PHILIPPINES": domain.RegionSEA, "PHMNL": domain.RegionSEA, "MANILA": domain.RegionSEA,
	"KH": domain.RegionSEA, "CAMBODIA": domain.RegionSEA, "KHPNH": domain.RegionSEA, "PHNOM PENH": domain.RegionSEA,
	"SIHANOUKVILLE": domain.RegionSEA, "MM": domain.RegionSEA, "MYANMAR": domain.RegionSEA, "YANGON": domain.RegionSEA,

	// China and Hong Kong
	"CN": domain.RegionCN, "CHINA": domain.RegionCN, "PRC": domain.RegionCN,
	"CNSHA": domain.RegionCN, "SHANGHAI": domain.RegionCN, "PVG": domain.RegionCN,
	"CNNGB": domain.RegionCN, "NINGBO": domain.RegionCN,
	"CNSZX": domain.RegionCN, "SHENZHEN": domain.RegionCN, "SZX": domain.RegionCN,
	"CNYTN": domain.RegionCN, "YANTIAN": domain.RegionCN,
	"CNCAN": domain.RegionCN, "GUANGZHOU": domain.RegionCN, "CAN": domain.RegionCN,
	"CNTAO": domain.RegionCN, "QINGDAO": domain.RegionCN,
	"CNTSN": domain.RegionCN, "TIANJIN": domain.RegionCN,
	"CNXMN": domain.RegionCN, "XIAMEN": domain.RegionCN,
	"HK": domain.RegionCN, "HKHKG": domain.RegionCN, "HKG": domain.RegionCN, "HONG KONG": domain.RegionCN,

	// Europe
	"EU": domain.RegionEU, "EUROPE": domain.RegionEU,
	"NL": domain.RegionEU, "NETHERLANDS": domain.RegionEU, "NLRTM": domain.RegionEU, "ROTTERDAM": domain.RegionEU, "AMS": domain.RegionEU,
	"DE": domain.RegionEU, "GERMANY": domain.RegionEU, "DEHAM": domain.RegionEU, "HAMBURG": domain.RegionEU,
	"DEBRV": domain.RegionEU, "BREMERHAVEN": domain.RegionEU, "FRA": domain.RegionEU,
	"BE": domain.RegionEU, "BELGIUM": domain.RegionEU, "BEANR": domain.RegionEU, "ANTWERP": domain.RegionEU,
	"FR": domain.RegionEU, "FRANCE": domain.RegionEU, "FRLEH": domain.RegionEU, "LE HAVRE": domain.RegionEU,
	"ES": domain.RegionEU, "SPAIN": domain.RegionEU, "ESVLC": domain.RegionEU, "VALENCIA": domain.RegionEU,
	"ESALG": domain.RegionEU, "ALGECIRAS": domain.RegionEU,
	"IT": domain.RegionEU, "ITALY": domain.RegionEU, "ITGOA": domain.RegionEU, "GENOA": domain.RegionEU,
	"GB": domain.RegionEU, "UK": domain.RegionEU, "GBFXT": domain.RegionEU, "FELIXSTOWE": domain.RegionEU, "LHR": domain.RegionEU,
	"PL": domain.RegionEU, "PLGDN": domain.RegionEU, "GDANSK": domain.RegionEU,
	"GR": domain.RegionEU, "GRPIR": domain.RegionEU, "PIRAEUS": domain.RegionEU,

	// United States
	"US": domain.RegionUS, "USA": domain.RegionUS, "UNITED STATES": domain.RegionUS,
	"USLAX": domain.RegionUS, "LAX": domain.RegionUS, "LOS ANGELES": domain.RegionUS,
	"USLGB": domain.RegionUS, "LONG BEACH": domain.RegionUS,
	"USNYC": domain.RegionUS, "NEW YORK": domain.RegionUS, "JFK": domain.RegionUS,
	"USSAV": domain.RegionUS, "SAVANNAH": domain.RegionUS,
	"USSEA": domain.RegionUS, "SEATTLE": domain.RegionUS,
	"USOAK": domain.RegionUS, "OAKLAND": domain.RegionUS,
	"USHOU": domain.RegionUS, "HOUSTON": domain.RegionUS,
	"USCHS": domain.RegionUS, "CHARLESTON": domain.RegionUS,
	"ORD": domain.RegionUS, "CHICAGO": domain.RegionUS,
}

// Detector resolves regions from the static table. It holds no mutable state
// and is safe for concurrent use.
type Detector struct {
	prefixKeys []string
	suffixKeys []string
}

// NewDetector builds a detector over the static region table.
func NewDetector() *Detector {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	// longest key first so the most specific code wins
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	d := &Detector{prefixKeys: keys}
	for _, k := range keys {
		// two-letter suffixes match too many unrelated words
		if len(k) >= 3 {
			d.suffixKeys = append(d.suffixKeys, k)
		}
	}
	return d
}

// Lookup resolves a single code to its region, or "" when unknown.
// Matching is exact, then prefix, then suffix, then per underscore part.
func (d *Detector) Lookup(code string) domain.RegionCode {
	s := normalize(code)
	if s == "" {
		return ""
	}

	if r, ok := table[s]; ok {
		return r
	}
	for _, k := range d.prefixKeys {
		if hasPrefixCode(s, k) {
			return table[k]
		}
	}
	for _, k := range d.suffixKeys {
		if hasSuffixCode(s, k) {
			return table[k]
		}
	}
	for _, part := range strings.Split(s, "_") {
		if r, ok := table[strings.TrimSpace(part)]; ok {
			return r
		}
	}
	return ""
}

// Detect applies the region rule set to an origin and destination.
func (d *Detector) Detect(origin, destination string) domain.RegionMatch {
	o := d.Lookup(origin)
	dst := d.Lookup(destination)
	code := resolve(o, dst)

	if code == domain.RegionGlobal && (origin != "" || destination != "") {
		slog.Debug("region fallback to GLOBAL",
			"origin", origin,
			"destination", destination,
		)
	}

	return domain.RegionMatch{
		Code:        code,
		Profile:     Profile(code),
		Origin:      o,
		Destination: dst,
	}
}

// DetectShipment uses POL and POD, falling back to the first and last route
// segments.
func (d *Detector) DetectShipment(s domain.Shipment) domain.RegionMatch {
	origin, destination := Endpoints(s)
	return d.Detect(origin, destination)
}

// Endpoints returns the origin and destination strings of a shipment.
func Endpoints(s domain.Shipment) (origin, destination string) {
	origin, destination = s.POL, s.POD
	segments := RouteSegments(s.Route)
	if origin == "" && len(segments) > 0 {
		origin = segments[0]
	}
	if destination == "" && len(segments) > 1 {
		destination = segments[len(segments)-1]
	}
	return origin, destination
}

// RouteSegments splits a composite route key such as "VN_CN" or
// "VNSGN-CNSHA" into its legs.
func RouteSegments(route string) []string {
	parts := strings.FieldsFunc(normalize(route), func(r rune) bool {
		switch r {
		case '_', '-', '>', '/', '|', '→':
			return true
		}
		return false
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func resolve(o, d domain.RegionCode) domain.RegionCode {
	switch {
	case o == domain.RegionVN && (d == domain.RegionCN || d == domain.RegionSEA):
		return domain.RegionSEA
	case o == domain.RegionVN && d == domain.RegionUS:
		return domain.RegionUS
	case o == domain.RegionVN && d == domain.RegionEU:
		return domain.RegionEU
	case o == domain.RegionCN && d == domain.RegionVN:
		return domain.RegionCN
	case d != "" && d != domain.RegionVN:
		return d
	case o != "" && o != domain.RegionSEA:
		return o
	case o == domain.RegionSEA || d == domain.RegionSEA:
		return domain.RegionSEA
	default:
		return domain.RegionGlobal
	}
}

// shortKey is the length below which a key is a country or IATA code and
// must stand alone as a word rather than start or end free text.
const shortKey = 4

// hasPrefixCode reports whether s starts with key. Short keys need a word
// boundary after them, except two-letter country codes opening a UN/LOCODE.
func hasPrefixCode(s, key string) bool {
	if !strings.HasPrefix(s, key) {
		return false
	}
	if len(key) >= shortKey || len(s) == len(key) {
		return true
	}
	if len(key) == 2 && isLocode(s) {
		return true
	}
	return !isLetter(s[len(key)])
}

// hasSuffixCode reports whether s ends with key, short keys on a word
// boundary only.
func hasSuffixCode(s, key string) bool {
	if !strings.HasSuffix(s, key) {
		return false
	}
	if len(key) >= shortKey || len(s) == len(key) {
		return true
	}
	return !isLetter(s[len(s)-len(key)-1])
}

// isLocode reports whether s has the shape of a UN/LOCODE such as VNSGN.
func isLocode(s string) bool {
	if len(s) != 5 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isLetter(s[i]) && (s[i] < '0' || s[i] > '9') {
			return false
		}
	}
	return true
}

func isLetter(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
