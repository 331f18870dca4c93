package clientportal

import (
	"slices"
	"strings"
)

// ibkrToMIC maps gateway exchange abbreviations to ISO MICs. The first MIC is
// the primary one.
var ibkrToMIC = map[string][]string{
	// North America
	"NYSE": {"XNYS"}, "NASDAQ": {"XNAS", "XNGS", "XNCM", "XNMS"},
	"ARCA": {"ARCX"}, "AMEX": {"XASE"},
	"BATS": {"BATS"}, "IEX": {"IEXG"}, "TSE": {"XTSE"}, "TSX": {"XTSE"},
	"VENTURE": {"XTSX"}, "MEXI": {"XMEX"}, "PSE": {"XPHL"},
	"PINK": {"OTCM"},
	// South America
	"B3": {"BVMF"}, "BVMF": {"BVMF"}, "BVL": {"XLIM"}, "BCS": {"XSGO"},
	// Europe
	"LSE": {"XLON"}, "LSEETF": {"XLON"}, "FWB": {"XFRA"}, "FWB2": {"XFRA"},
	"EBS": {"XSWX"}, "IBIS": {"XETR"}, "IBIS2": {"XETR"},
	"SBF": {"XPAR"}, "ENXTPA": {"XPAR"}, "AEB": {"XAMS"}, "ENEXT.BE": {"XBRU"},
	"LIS": {"XLIS"}, "BVME": {"XMIL", "MTAA"}, "BM": {"XMAD"}, "VSE": {"XWBO"},
	"SFB": {"XSTO"}, "CPH": {"XCSE"}, "HEX": {"XHEL"}, "OSE": {"XOSL"},
	"WSE": {"XWAR"}, "IST": {"XIST"}, "ATH": {"XATH"}, "BUD": {"XBUD"},
	"PRG": {"XPRA"},
	// Asia-Pacific
	"TSEJ": {"XTKS"}, "SEHK": {"XHKG"}, "HKSE": {"XHKG"}, "SGX": {"XSES"},
	"ASX": {"XASX"}, "KSE": {"XKRX"}, "TWSE": {"XTAI", "ROCO"}, "TPEX": {"ROCO"}, "SSE": {"XSHG"},
	"SZSE": {"XSHE"}, "NSE": {"XNSE"}, "BSE": {"XBOM"}, "NZE": {"XNZE"},
	// Middle East / Africa
	"TASE": {"XTAE"}, "JSE": {"XJSE"},
}

// micToIBKR is the reverse of ibkrToMIC, with the broader electronic
// venues first.
var micToIBKR = func() map[string][]string {
	m := map[string][]string{}
	for abbr, mics := range ibkrToMIC {
		for _, mic := range mics {
			m[mic] = append(m[mic], abbr)
		}
	}
	for mic, venues := range m {
		sortVenues(venues, preferredVenue[mic])
	}
	return m
}()

// preferredVenue lists venues that carry more international listings.
var preferredVenue = map[string]string{"XFRA": "FWB2", "XETR": "IBIS2"}

// sortVenues orders venues alphabetically, with preferred first.
func sortVenues(venues []string, preferred string) {
	slices.SortFunc(venues, func(a, b string) int {
		switch {
		case a == b:
			return 0
		case a == preferred:
			return -1
		case b == preferred:
			return 1
		}
		return strings.Compare(a, b)
	})
}

// MIC returns the primary MIC of a gateway exchange abbreviation, or the
// abbreviation itself when it is unknown.
func MIC(exchange string) string {
	exchange = strings.ToUpper(strings.TrimSpace(exchange))
	if mics := ibkrToMIC[exchange]; len(mics) > 0 {
		return mics[0]
	}
	return exchange
}

// MICs returns every MIC a gateway exchange abbreviation stands for.
func MICs(exchange string) []string {
	exchange = strings.ToUpper(strings.TrimSpace(exchange))
	if mics := ibkrToMIC[exchange]; len(mics) > 0 {
		return mics
	}
	return []string{exchange}
}

// Venues returns the gateway exchanges listing on mic.
func Venues(mic string) []string { return micToIBKR[strings.ToUpper(mic)] }
