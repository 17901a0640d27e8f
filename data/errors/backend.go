package errors

import "github.com/mwantia/carupload/data"

func BackendUnsupported(name string, capability string) error {
	return newError(data.ErrBackendUnsupported, "backend '%s' does not provide '%s'", name, capability)
}

func BackendUnknown(kind string, name string) error {
	return newError(data.ErrBackendUnsupported, "unknown %s backend '%s'", kind, name)
}

func BackendOpenFailed(err error, name string) error {
	return newError(err, "failed to open backend '%s'", name)
}

func BackendCloseFailed(err error, name string) error {
	return newError(err, "failed to close backend '%s'", name)
}
