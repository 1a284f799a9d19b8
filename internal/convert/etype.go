package convert

import (
	"sort"
	"strings"
)

// defaultEtypeMap maps CSS3.0 origin etype flags to QuakeML event types.
// Options.EtypeMap entries override or extend it.
var defaultEtypeMap = map[string]string{
	"qb": "quarry blast",
	"eq": "earthquake",
	"me": "meteorite",
	"ex": "explosion",
	"o":  "other event",
	"l":  "earthquake",
	"r":  "earthquake",
	"t":  "earthquake",
	"f":  "earthquake",
}

// eventType maps an etype flag to a QuakeML event type, checking custom
// overrides first, then exact flags, then substring matches for composite
// flags like "LF". Unknown or empty flags report "not reported".
func eventType(etype string, overrides map[string]string) string {
	if etype == "" {
		return "not reported"
	}
	flag := strings.ToLower(etype)

	if t, ok := overrides[flag]; ok {
		return t
	}
	if t, ok := defaultEtypeMap[flag]; ok {
		return t
	}
	// Substring fallback walks sorted keys so a composite flag matching
	// several entries always maps the same way.
	for _, k := range sortedKeys(overrides) {
		if strings.Contains(flag, k) {
			return overrides[k]
		}
	}
	for _, k := range sortedKeys(defaultEtypeMap) {
		if strings.Contains(flag, k) {
			return defaultEtypeMap[k]
		}
	}
	return "not reported"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
