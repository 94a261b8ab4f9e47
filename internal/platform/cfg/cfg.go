// Package cfg decodes per-driver config maps (the [store.drivers.<name>] and
// [cache.drivers.<name>] TOML tables) into typed structs.
package cfg

import (
	"sort"

	"github.com/mitchellh/mapstructure"
)

// Setter is implemented by config structs that fill in their own defaults.
type Setter interface {
	ApplyDefaults()
}

func newDecoder(c any, md *mapstructure.Metadata) (*mapstructure.Decoder, error) {
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         md,
		Result:           c,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
}

// Decode decodes the raw input map into the target pointer c.
// A nil map decodes to the zero value. If c implements Setter,
// ApplyDefaults() is called afterwards.
func Decode(input map[string]any, c any) error {
	_, err := DecodeWithUnused(input, c)
	return err
}

// DecodeWithUnused decodes input to c and returns any unused keys, sorted.
func DecodeWithUnused(input map[string]any, c any) ([]string, error) {
	var md mapstructure.Metadata
	decoder, err := newDecoder(c, &md)
	if err != nil {
		return nil, err
	}
	if input != nil {
		if err := decoder.Decode(input); err != nil {
			return nil, err
		}
	}

	if s, ok := c.(Setter); ok {
		s.ApplyDefaults()
	}

	unused := md.Unused
	sort.Strings(unused)
	return unused, nil
}
