package inject

import (
	"net/http"
	"testing"
)

func applyToHeader(s *EnrichmentSet) http.Header {
	h := http.Header{}
	s.Apply(h.Set)
	return h
}

func TestNewEnrichmentSetCarriesAddr(t *testing.T) {
	s := NewEnrichmentSet("8.8.8.8")
	h := applyToHeader(s)
	if got := h.Get("Prux-Addr"); got != "8.8.8.8" {
		t.Fatalf("Prux-Addr = %q, want 8.8.8.8", got)
	}
}

func TestMergeS7EndToEnd(t *testing.T) {
	s := NewEnrichmentSet("8.8.8.8")
	body := []byte(`{"city":{"names":{"en":"Mountain View"}},"country":{"names":{"en":"United States"}},"location":{"latitude":37.386,"longitude":-122.0838}}`)
	Merge(s, body)
	h := applyToHeader(s)

	want := map[string]string{
		"Prux-Addr":    "8.8.8.8",
		"Prux-City":    "Mountain View",
		"Prux-Country": "United States",
		"Prux-Coord":   "37.386,-122.0838",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
	if got := h.Get("Prux-Province"); got != "" {
		t.Errorf("Prux-Province should be absent, got %q", got)
	}
}

func TestMergeFullFieldSet(t *testing.T) {
	s := NewEnrichmentSet("203.0.113.5")
	body := []byte(`{
		"city":{"names":{"en":"Paris"}},
		"country":{"names":{"en":"France"}},
		"subdivisions":[{"iso_code":"IDF"}],
		"location":{"latitude":48.8566,"longitude":2.3522,"accuracy_radius":25,"time_zone":"Europe/Paris"},
		"traits":{"isp":"Example ISP","network":"203.0.113.0/24"}
	}`)
	Merge(s, body)
	h := applyToHeader(s)

	cases := map[string]string{
		"Prux-Addr":           "203.0.113.5",
		"Prux-City":           "Paris",
		"Prux-Country":        "France",
		"Prux-Province":       "IDF",
		"Prux-Coord":          "48.8566,2.3522",
		"Prux-Coord-Accuracy": "25",
		"Prux-Timezone":       "Europe/Paris",
		"Prux-Isp":            "Example ISP",
		"Prux-Network":        "203.0.113.0/24",
	}
	for k, v := range cases {
		if got := h.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestMergeMissingFieldsSkippedSilently(t *testing.T) {
	s := NewEnrichmentSet("1.2.3.4")
	Merge(s, []byte(`{"city":{}}`))
	h := applyToHeader(s)
	if len(h) != 1 {
		t.Fatalf("expected only Prux-Addr, got %v", h)
	}
}

func TestMergeMalformedJSONNeverFails(t *testing.T) {
	s := NewEnrichmentSet("1.2.3.4")
	Merge(s, []byte(`not json`))
	h := applyToHeader(s)
	if got := h.Get("Prux-Addr"); got != "1.2.3.4" {
		t.Fatalf("Prux-Addr = %q, want 1.2.3.4", got)
	}
}

func TestMergeOverwritesOnCollision(t *testing.T) {
	s := NewEnrichmentSet("1.2.3.4")
	Merge(s, []byte(`{"city":{"names":{"en":"First"}}}`))
	Merge(s, []byte(`{"city":{"names":{"en":"Second"}}}`))
	h := applyToHeader(s)
	if got := h.Get("Prux-City"); got != "Second" {
		t.Fatalf("Prux-City = %q, want Second", got)
	}
}

func TestMergeWrongTypeSkipped(t *testing.T) {
	s := NewEnrichmentSet("1.2.3.4")
	Merge(s, []byte(`{"location":{"latitude":"not-a-number"}}`))
	h := applyToHeader(s)
	if got := h.Get("Prux-Coord"); got != "" {
		t.Errorf("Prux-Coord should be absent on type mismatch, got %q", got)
	}
}
