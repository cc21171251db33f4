// Package workspace loads the per-sandbox descriptor file committed at the
// workspace root. The descriptor is advisory: a missing or broken file
// never fails a lifecycle operation, it just means defaults.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/codeopen/sandboxd/pkg/api"
	"github.com/codeopen/sandboxd/pkg/policy"
)

// Filename is the descriptor's well-known name at the workspace root.
const Filename = "codeopen.toml"

// Descriptor is the parsed codeopen.toml.
type Descriptor struct {
	Sandbox SandboxSection `toml:"sandbox"`
	Addons  AddonsSection  `toml:"addons"`
	Startup StartupSection `toml:"startup"`
}

// SandboxSection names the environment and its resource shape.
type SandboxSection struct {
	Name   string `toml:"name"`
	Flavor string `toml:"flavor"`
	Tier   string `toml:"tier"`
}

// AddonsSection lists the addon ids to enable.
type AddonsSection struct {
	IDs []string `toml:"ids"`
}

// StartupSection describes what runs when the sandbox comes up.
type StartupSection struct {
	Command string            `toml:"command"`
	Env     map[string]string `toml:"env"`
}

// EnvSlice renders the startup environment as KEY=VALUE pairs in a stable
// order.
func (s StartupSection) EnvSlice() []string {
	if len(s.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+s.Env[k])
	}
	return out
}

// Default returns the descriptor used when a workspace carries none.
func Default() Descriptor {
	return Descriptor{
		Sandbox: SandboxSection{
			Flavor: policy.DefaultFlavorID,
			Tier:   policy.DefaultTierID,
		},
		Addons: AddonsSection{
			IDs: append([]string(nil), api.DefaultAddonIDs...),
		},
	}
}

// Load reads the descriptor from root. The path is resolved with
// securejoin so a descriptor symlinked outside the workspace is never
// followed. Any failure falls back to Default().
func Load(root string, logger *slog.Logger) Descriptor {
	if logger == nil {
		logger = slog.Default()
	}

	path, err := securejoin.SecureJoin(root, Filename)
	if err != nil {
		logger.Warn("workspace descriptor path rejected", "root", root, "error", err)
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("workspace descriptor unreadable", "path", path, "error", err)
		}
		return Default()
	}

	var d Descriptor
	if _, err := toml.Decode(string(data), &d); err != nil {
		logger.Warn("workspace descriptor malformed, using defaults", "path", path, "error", err)
		return Default()
	}
	if err := d.validate(); err != nil {
		logger.Warn("workspace descriptor invalid, using defaults", "path", path, "error", err)
		return Default()
	}
	d.fillDefaults()
	return d
}

// validate rejects descriptors that would poison downstream provisioning.
func (d *Descriptor) validate() error {
	for _, id := range d.Addons.IDs {
		if id == "" {
			return fmt.Errorf("addons.ids contains an empty id")
		}
	}
	return nil
}

// fillDefaults completes fields the descriptor left out.
func (d *Descriptor) fillDefaults() {
	if d.Sandbox.Flavor == "" {
		d.Sandbox.Flavor = policy.DefaultFlavorID
	}
	if d.Sandbox.Tier == "" {
		d.Sandbox.Tier = policy.DefaultTierID
	}
	if d.Addons.IDs == nil {
		d.Addons.IDs = append([]string(nil), api.DefaultAddonIDs...)
	}
}
