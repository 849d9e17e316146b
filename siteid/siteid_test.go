package siteid

import "testing"

func TestResolve_HostOnlyKeying(t *testing.T) {
	variants := []string{
		"https://example.com",
		"http://example.com",
		"https://example.com/some/deep/path",
		"https://example.com/other?query=1#frag",
		"https://EXAMPLE.COM/Path",
	}

	base := Resolve(variants[0])
	if base == "" {
		t.Fatal("expected non-empty identity")
	}
	for _, u := range variants[1:] {
		if got := Resolve(u); got != base {
			t.Errorf("Resolve(%q) = %s, want %s (same host must yield same identity)", u, got, base)
		}
	}
}

func TestResolve_DifferentHosts(t *testing.T) {
	if Resolve("https://example.com") == Resolve("https://example.org") {
		t.Error("different hosts produced the same identity")
	}
}

func TestResolve_SchemelessURL(t *testing.T) {
	if Resolve("example.com/path") != Resolve("https://example.com") {
		t.Error("schemeless URL should resolve to the same host identity")
	}
}

func TestResolve_PortIsPartOfHost(t *testing.T) {
	if Resolve("http://example.com:8080") == Resolve("http://example.com") {
		t.Error("host with explicit port should yield a distinct identity")
	}
}

func TestResolve_MalformedNeverFails(t *testing.T) {
	sentinel := Resolve("")
	if sentinel == "" {
		t.Fatal("empty input must still yield a well-defined identity")
	}
	for _, in := range []string{"http://", "%zz", "   "} {
		if got := Resolve(in); got != sentinel {
			t.Errorf("Resolve(%q) = %s, want sentinel identity %s", in, got, sentinel)
		}
	}
	// Deterministic even for garbage.
	if Resolve(":::") != Resolve(":::") || Resolve(":::") == "" {
		t.Error("malformed input must resolve deterministically and non-empty")
	}
}
