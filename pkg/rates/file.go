package rates

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// ratesFile is the YAML shape of a unit cost override file.
//
// Example:
//
//	unit_costs:
//	  scraping.basicScrape: 0.0005
//	  enrichment.companyEnrichment: 0.015
type ratesFile struct {
	UnitCosts map[string]float64 `yaml:"unit_costs"`
}

// LoadFile applies unit cost overrides from a YAML file to the table.
// Keys outside the closed operation set are logged and skipped, never fatal,
// so a rate file can carry entries for operation types this build predates.
func (t *Table) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rates file %q: %w", path, err)
	}

	var file ratesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse rates file %q: %w", path, err)
	}

	overrides := make(map[Operation]float64, len(file.UnitCosts))
	for key, cost := range file.UnitCosts {
		op, ok := ParseOperation(key)
		if !ok {
			slog.Default().Warn("skipping unknown operation in rates file",
				"path", path,
				"operation", key,
			)
			continue
		}
		if cost < 0 {
			return fmt.Errorf("rates file %q: negative unit cost %.6f for %q", path, cost, key)
		}
		overrides[op] = cost
	}

	t.SetUnitCosts(overrides)
	return nil
}
