// Package version carries the build stamp injected at link time.
package version

// Set via -ldflags "-X github.com/codeopen/sandboxd/pkg/version.Version=... -X github.com/codeopen/sandboxd/pkg/version.Commit=...".
var (
	Version = "dev"
	Commit  = "unknown"
)

// String renders the stamp for logs and --version output.
func String() string {
	return Version + " (" + Commit + ")"
}
