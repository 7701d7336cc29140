package storage

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/denisok6893-rgb/buybox-recommender/internal/domain"
)

// LoadCandidatesFromFile reads a JSON array of candidate properties for bulk import.
func LoadCandidatesFromFile(path string) ([]domain.Property, error) {
	return readSeedFile[domain.Property](path, "candidates")
}

// LoadMarketsFromFile reads a JSON array of market criteria.
func LoadMarketsFromFile(path string) ([]domain.MarketCriteria, error) {
	return readSeedFile[domain.MarketCriteria](path, "markets")
}

// readSeedFile decodes a seed file holding one JSON array. An empty file or a JSON
// null yields an empty, non-nil slice.
func readSeedFile[T any](path, kind string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s file %s: %w", kind, path, err)
	}
	items := []T{}
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s file %s: %w", kind, path, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
