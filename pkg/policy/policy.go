// Package policy resolves sandbox placement requests into concrete values:
// a resource tier id into CPU/memory/process limits, and a flavor id into a
// container image reference. All lookups are pure table lookups with fixed
// fallbacks; unknown tiers resolve to the builder tier and unknown flavors
// to fullstack, so callers never have to handle a resolution failure.
package policy

import (
	"fmt"
	"math"
	"strconv"

	"github.com/docker/go-units"
)

// Environment selects between image naming schemes.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

const (
	// DefaultTierID is the fallback tier for unknown or empty tier ids.
	DefaultTierID = "builder"
	// DefaultFlavorID is the fallback flavor for unknown or empty flavor ids.
	DefaultFlavorID = "fullstack"

	devImagePrefix = "codeopen-"
	prodRegistry   = "registry.codeopen.dev/sandbox"
)

// Allocation is the concrete resource bundle a tier resolves to. CPUs and
// Memory keep the human-readable forms ("0.5", "512m") used in records and
// logs; the conversion helpers produce the numeric forms engines want.
type Allocation struct {
	CPUs      string
	Memory    string
	PidsLimit int64
}

// MemoryBytes converts the memory limit to bytes.
func (a Allocation) MemoryBytes() (int64, error) {
	n, err := units.RAMInBytes(a.Memory)
	if err != nil {
		return 0, fmt.Errorf("invalid memory limit %q: %w", a.Memory, err)
	}
	return n, nil
}

// NanoCPUs converts the CPU share to the engine's nano-CPU unit.
func (a Allocation) NanoCPUs() (int64, error) {
	f, err := strconv.ParseFloat(a.CPUs, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cpu share %q: %w", a.CPUs, err)
	}
	return int64(math.Round(f * 1_000_000_000)), nil
}

var tiers = map[string]Allocation{
	"starter": {CPUs: "0.5", Memory: "512m", PidsLimit: 128},
	"builder": {CPUs: "1", Memory: "2g", PidsLimit: 256},
	"creator": {CPUs: "2", Memory: "4g", PidsLimit: 512},
	"power":   {CPUs: "4", Memory: "8g", PidsLimit: 1024},
}

var flavors = map[string]string{
	"js":        "js",
	"python":    "python",
	"go":        "go",
	"rust":      "rust",
	"fullstack": "fullstack",
}

// ResolveTier maps a tier id to its allocation. Unknown ids resolve to the
// builder tier.
func ResolveTier(tierID string) Allocation {
	if a, ok := tiers[tierID]; ok {
		return a
	}
	return tiers[DefaultTierID]
}

// KnownTier reports whether tierID is one of the defined tiers.
func KnownTier(tierID string) bool {
	_, ok := tiers[tierID]
	return ok
}

// ResolveImage maps a flavor id to a container image reference. In
// development the reference is a fixed local tag per flavor; in production
// it is a registry-qualified path carrying the given version. Unknown
// flavors resolve as fullstack.
func ResolveImage(flavorID string, env Environment, version string) string {
	flavor, ok := flavors[flavorID]
	if !ok {
		flavor = DefaultFlavorID
	}
	if env == EnvProduction {
		if version == "" {
			version = "latest"
		}
		return fmt.Sprintf("%s/%s:%s", prodRegistry, flavor, version)
	}
	return devImagePrefix + flavor
}

// KnownFlavor reports whether flavorID is one of the defined flavors.
func KnownFlavor(flavorID string) bool {
	_, ok := flavors[flavorID]
	return ok
}

// Tiers returns the defined tier ids in ascending allocation order.
func Tiers() []string {
	return []string{"starter", "builder", "creator", "power"}
}

// Flavors returns the defined flavor ids.
func Flavors() []string {
	return []string{"js", "python", "go", "rust", "fullstack"}
}
