//go:build !unix && !windows

package fs

import "os"

// MapFile reads path into memory on platforms without a mapping primitive.
func MapFile(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data}, nil
}
