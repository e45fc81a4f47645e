package source

import (
	"context"
	"fmt"
	"os"

	"github.com/WessleyAI/wessley-marketplace/engine/domain"
)

// FileSource reads a listing dump in any shape DecodeVehicles accepts.
// The query is ignored; filtering happens in the engine.
type FileSource struct {
	Path string
}

// Load implements Loader.
func (s FileSource) Load(ctx context.Context, _ Query) ([]domain.RawVehicle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	b, err := DecodeVehicles(data)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w", s.Path, err)
	}
	return b.Vehicles, nil
}
