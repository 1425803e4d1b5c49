// ABOUTME: Version and product constants
// ABOUTME: Reported by the binaries, the health endpoint and mDNS TXT records
package version

const (
	// Version is the release of the op1drum tools
	Version = "0.3.0"

	// Product names the tools in logs and service records
	Product = "op1drum"

	// Manufacturer is the publisher of the tools
	Manufacturer = "op1kit"
)
