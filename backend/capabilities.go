package backend

import "slices"

// BackendCapability represents a capability that a backend can provide
type BackendCapability string

const (
	// Core capabilities by backend
	CapabilityTable    BackendCapability = "table"
	CapabilityRegistry BackendCapability = "registry"
	CapabilitySigner   BackendCapability = "signer"

	// Signer extensions
	CapabilityChecksum      BackendCapability = "checksum"
	CapabilityContentLength BackendCapability = "content_length"
)

// BackendCapabilities describes what a backend supports
type BackendCapabilities struct {
	Capabilities []BackendCapability `json:"capabilities"`
	// ChecksumAlgorithms lists the multihash names a signer can bind as a
	// store-verified integrity header.
	ChecksumAlgorithms []string `json:"checksum_algorithms,omitempty"`
}

// Contains checks if a capability is supported
func (bc *BackendCapabilities) Contains(cap BackendCapability) bool {
	return slices.Contains(bc.Capabilities, cap)
}

// SupportsChecksum checks if the named multihash function can be verified by the store.
func (bc *BackendCapabilities) SupportsChecksum(algorithm string) bool {
	return bc.Contains(CapabilityChecksum) && slices.Contains(bc.ChecksumAlgorithms, algorithm)
}
