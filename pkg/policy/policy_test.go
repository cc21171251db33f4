package policy

import (
	"strings"
	"testing"
)

func TestResolveTier(t *testing.T) {
	tests := []struct {
		name   string
		tierID string
		want   Allocation
	}{
		{name: "starter", tierID: "starter", want: Allocation{CPUs: "0.5", Memory: "512m", PidsLimit: 128}},
		{name: "builder", tierID: "builder", want: Allocation{CPUs: "1", Memory: "2g", PidsLimit: 256}},
		{name: "creator", tierID: "creator", want: Allocation{CPUs: "2", Memory: "4g", PidsLimit: 512}},
		{name: "power", tierID: "power", want: Allocation{CPUs: "4", Memory: "8g", PidsLimit: 1024}},
		{name: "unknown falls back to builder", tierID: "nonexistent-tier", want: Allocation{CPUs: "1", Memory: "2g", PidsLimit: 256}},
		{name: "empty falls back to builder", tierID: "", want: Allocation{CPUs: "1", Memory: "2g", PidsLimit: 256}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveTier(tt.tierID); got != tt.want {
				t.Errorf("ResolveTier(%q) = %+v, want %+v", tt.tierID, got, tt.want)
			}
		})
	}
}

func TestAllocationConversions(t *testing.T) {
	a := ResolveTier("starter")

	mem, err := a.MemoryBytes()
	if err != nil {
		t.Fatalf("MemoryBytes() error: %v", err)
	}
	if mem != 512*1024*1024 {
		t.Errorf("MemoryBytes() = %d, want %d", mem, 512*1024*1024)
	}

	cpus, err := a.NanoCPUs()
	if err != nil {
		t.Fatalf("NanoCPUs() error: %v", err)
	}
	if cpus != 500_000_000 {
		t.Errorf("NanoCPUs() = %d, want %d", cpus, 500_000_000)
	}

	bad := Allocation{CPUs: "lots", Memory: "much"}
	if _, err := bad.MemoryBytes(); err == nil {
		t.Error("MemoryBytes() on invalid limit = nil error")
	}
	if _, err := bad.NanoCPUs(); err == nil {
		t.Error("NanoCPUs() on invalid share = nil error")
	}
}

func TestResolveImage(t *testing.T) {
	tests := []struct {
		name     string
		flavorID string
		env      Environment
		version  string
		want     string
	}{
		{name: "js dev", flavorID: "js", env: EnvDevelopment, want: "codeopen-js"},
		{name: "python dev", flavorID: "python", env: EnvDevelopment, want: "codeopen-python"},
		{name: "unknown dev falls back to fullstack", flavorID: "cobol", env: EnvDevelopment, want: "codeopen-fullstack"},
		{name: "empty dev falls back to fullstack", flavorID: "", env: EnvDevelopment, want: "codeopen-fullstack"},
		{name: "js prod", flavorID: "js", env: EnvProduction, version: "1.4.0", want: "registry.codeopen.dev/sandbox/js:1.4.0"},
		{name: "prod without version", flavorID: "go", env: EnvProduction, want: "registry.codeopen.dev/sandbox/go:latest"},
		{name: "unknown prod falls back to fullstack", flavorID: "cobol", env: EnvProduction, version: "2.0.0", want: "registry.codeopen.dev/sandbox/fullstack:2.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveImage(tt.flavorID, tt.env, tt.version); got != tt.want {
				t.Errorf("ResolveImage(%q, %q, %q) = %q, want %q", tt.flavorID, tt.env, tt.version, got, tt.want)
			}
		})
	}
}

func TestDevImageSuffix(t *testing.T) {
	// The js development image reference must end in codeopen-js so local
	// image builds resolve without a registry.
	got := ResolveImage("js", EnvDevelopment, "")
	if !strings.HasSuffix(got, "codeopen-js") {
		t.Errorf("ResolveImage(js, dev) = %q, want suffix \"codeopen-js\"", got)
	}
}

func TestKnownTierAndFlavor(t *testing.T) {
	for _, id := range Tiers() {
		if !KnownTier(id) {
			t.Errorf("KnownTier(%q) = false", id)
		}
	}
	for _, id := range Flavors() {
		if !KnownFlavor(id) {
			t.Errorf("KnownFlavor(%q) = false", id)
		}
	}
	if KnownTier("mega") {
		t.Error("KnownTier(mega) = true")
	}
	if KnownFlavor("cobol") {
		t.Error("KnownFlavor(cobol) = true")
	}
}
