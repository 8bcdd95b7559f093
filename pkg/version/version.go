package version

// Set at build time with -ldflags "-X github.com/projectdiscovery/netdiag/pkg/version.Version=..."
var (
	Version = "v0.1.0"
	// Commit is the revision the binary was built from, empty for dev builds
	Commit = ""
)

// GetVersion returns the version, with the commit when known
func GetVersion() string {
	if Commit == "" {
		return Version
	}
	return Version + " (" + Commit + ")"
}
