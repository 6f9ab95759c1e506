package app

import (
	"fmt"
	"os"
	"strings"

	"raceplan/internal/catalog"
	"raceplan/internal/config"
	"raceplan/internal/overlap"
)

// loadCatalog returns the factory catalog: the built-in one, or the YAML
// file named by game.catalog.
func loadCatalog(cfg *config.Config) (catalog.Catalog, error) {
	path := strings.TrimSpace(cfg.Game.Catalog)
	if path == "" {
		return catalog.Defaults()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("game.catalog: %w", err)
	}
	c, err := catalog.Parse(b)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("game.catalog %s: %w", path, err)
	}
	return c, nil
}

func classifier(cfg *config.Config) *overlap.Classifier {
	return overlap.New(overlap.DefaultTable().Merge(cfg.Overlap.Synonyms))
}
