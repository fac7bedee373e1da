package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// ErrReadBytesNotSupported is returned when ReadBytes is called on a map
// provider.
var ErrReadBytesNotSupported = errors.New("confloader: ReadBytes not supported by map provider, use Read() instead")

// mapProvider is a koanf provider over an in-memory map. Dotted keys are
// expanded into nested maps so they unmarshal into nested structs.
type mapProvider struct {
	data map[string]any
}

func newMapProvider(data map[string]any, delim string) mapProvider {
	cp := make(map[string]any, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return mapProvider{data: maps.Unflatten(cp, delim)}
}

// ReadBytes is not supported.
func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, ErrReadBytesNotSupported
}

// Read returns the nested configuration map.
func (m mapProvider) Read() (map[string]any, error) {
	return m.data, nil
}
