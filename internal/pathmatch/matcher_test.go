package pathmatch

import "testing"

func TestNewRejectsEmptyPattern(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("expected error for empty pattern")
	}
	if _, err := New("///"); err == nil {
		t.Fatalf("expected error for pattern with no segments")
	}
}

func TestMatchStartLiteral(t *testing.T) {
	m, err := New("/api/users")
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string]bool{
		"/api/users":         true,
		"/api/users/1":       true,
		"/api/user":          false,
		"/other":             false,
		"/api":               false,
	}
	for path, want := range cases {
		if got := m.MatchStart(path); got != want {
			t.Errorf("MatchStart(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestMatchStartWildcard(t *testing.T) {
	m, err := New("/api/*")
	if err != nil {
		t.Fatal(err)
	}

	if !m.MatchStart("/api/users") {
		t.Errorf("expected /api/users to match /api/*")
	}
	if !m.MatchStart("/api/users/1") {
		t.Errorf("expected /api/users/1 to match /api/* (prefix match)")
	}
	if m.MatchStart("/api") {
		t.Errorf("wildcard must match a non-empty segment")
	}
	if m.MatchStart("/api/") {
		t.Errorf("trailing slash has no segment to satisfy the wildcard")
	}
}

func TestPolicyEmptyInclusionsAdmitsAll(t *testing.T) {
	p := NewPolicy(nil, nil, nil)
	if !p.Validate("/anything") {
		t.Fatalf("empty inclusions should admit every path")
	}
}

func TestPolicyInclusionExclusion(t *testing.T) {
	p := NewPolicy([]string{"/api/*"}, []string{"/api/internal/*"}, nil)

	if !p.Validate("/api/users") {
		t.Fatalf("/api/users should be admitted")
	}
	if p.Validate("/other") {
		t.Fatalf("/other should be rejected (no matching inclusion)")
	}
	if p.Validate("/api/internal/debug") {
		t.Fatalf("/api/internal/debug should be rejected by exclusion")
	}
}

func TestPolicyDeterministic(t *testing.T) {
	p := NewPolicy([]string{"/api/*"}, []string{"/api/internal/*"}, nil)
	first := p.Validate("/api/users")
	for i := 0; i < 10; i++ {
		if got := p.Validate("/api/users"); got != first {
			t.Fatalf("Validate is not deterministic: got %v, want %v", got, first)
		}
	}
}
