//go:build windows

package runner

// openFileLimit reports no limit, sockets are not bounded by a descriptor table
func openFileLimit() (uint64, bool) {
	return 0, false
}
