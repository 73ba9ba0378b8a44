package storage

import (
	"context"
	"fmt"

	"JobWatch/internal/domain"
	"JobWatch/internal/ports"
)

// Seed inserts the given sources when the store is empty. It returns how many were added.
func Seed(ctx context.Context, store ports.SourceStore, sources []domain.Source) (int, error) {
	existing, err := store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sources: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	added := 0
	for _, src := range sources {
		if _, err := store.Create(ctx, src); err != nil {
			return added, fmt.Errorf("seed %q: %w", src.Name, err)
		}
		added++
	}
	return added, nil
}
