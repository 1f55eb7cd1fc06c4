// Package inject turns a resolver's GeoIP JSON reply into the closed set
// of Prux-* headers the proxy attaches to the upstream request.
package inject

import (
	"strconv"

	"github.com/goccy/go-json"
)

// EnrichmentSet is an ordered collection of header name/value pairs to
// apply to the outgoing request. Values are never empty strings.
type EnrichmentSet struct {
	pairs []pair
}

type pair struct {
	name  string
	value string
}

// NewEnrichmentSet initializes a set carrying only Prux-Addr, per 4.F
// step 3a: the set always exists once an effective IP is known, even if
// the resolver is never consulted or fails to enrich further.
func NewEnrichmentSet(canonicalAddr string) *EnrichmentSet {
	return &EnrichmentSet{pairs: []pair{{"Prux-Addr", canonicalAddr}}}
}

// set overwrites any existing value for name, per the injector's
// overwrite-on-collision rule.
func (s *EnrichmentSet) set(name, value string) {
	for i, p := range s.pairs {
		if p.name == name {
			s.pairs[i].value = value
			return
		}
	}
	s.pairs = append(s.pairs, pair{name, value})
}

// Apply writes every accumulated header onto setter, which is satisfied
// by http.Header.Set.
func (s *EnrichmentSet) Apply(setter func(name, value string)) {
	for _, p := range s.pairs {
		setter(p.name, p.value)
	}
}

type geoReply struct {
	City struct {
		Names map[string]string `json:"names"`
	} `json:"city"`
	Country struct {
		Names map[string]string `json:"names"`
	} `json:"country"`
	Subdivisions []struct {
		IsoCode string `json:"iso_code"`
	} `json:"subdivisions"`
	Location struct {
		Latitude       *float64 `json:"latitude"`
		Longitude      *float64 `json:"longitude"`
		AccuracyRadius *float64 `json:"accuracy_radius"`
		TimeZone       string   `json:"time_zone"`
	} `json:"location"`
	Traits struct {
		ISP     string `json:"isp"`
		Network string `json:"network"`
	} `json:"traits"`
}

// Merge decodes a MaxMind GeoIP2 City JSON body and folds every emission
// rule from the header injector table into s. Missing fields are
// silently skipped. A body that fails to decode, including one in which
// any of the fields above has an unexpected JSON type, is ignored as a
// whole: no header is added from it, not even from its well-typed
// fields. This never fails the request.
func Merge(s *EnrichmentSet, body []byte) {
	var reply geoReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return
	}

	if v, ok := reply.City.Names["en"]; ok && v != "" {
		s.set("Prux-City", v)
	}
	if v, ok := reply.Country.Names["en"]; ok && v != "" {
		s.set("Prux-Country", v)
	}
	if len(reply.Subdivisions) > 0 && reply.Subdivisions[0].IsoCode != "" {
		s.set("Prux-Province", reply.Subdivisions[0].IsoCode)
	}
	if reply.Location.Latitude != nil && reply.Location.Longitude != nil {
		lat := strconv.FormatFloat(*reply.Location.Latitude, 'g', -1, 64)
		lon := strconv.FormatFloat(*reply.Location.Longitude, 'g', -1, 64)
		s.set("Prux-Coord", lat+","+lon)
	}
	if reply.Location.AccuracyRadius != nil {
		s.set("Prux-Coord-Accuracy", strconv.FormatFloat(*reply.Location.AccuracyRadius, 'f', 0, 64))
	}
	if reply.Location.TimeZone != "" {
		s.set("Prux-Timezone", reply.Location.TimeZone)
	}
	if reply.Traits.ISP != "" {
		s.set("Prux-Isp", reply.Traits.ISP)
	}
	if reply.Traits.Network != "" {
		s.set("Prux-Network", reply.Traits.Network)
	}
}
