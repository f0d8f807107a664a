package ledger

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"moneydrain/internal/core"
)

type seedFile struct {
	Categories []core.NewCategory `yaml:"categories"`
}

// LoadSeed reads the category seed from a YAML file of the form
//
//	categories:
//	  - name: Salary
//	    color: "#22c55e"
//	    icon: "💼"
//	    type: income
//
// An empty path returns core.DefaultCategories.
func LoadSeed(path string) ([]core.NewCategory, error) {
	if path == "" {
		return core.DefaultCategories(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("seed file %s: no categories", path)
	}
	seen := make(map[string]struct{}, len(f.Categories))
	out := make([]core.NewCategory, 0, len(f.Categories))
	for i, c := range f.Categories {
		c, err := c.Normalize()
		if err != nil {
			return nil, fmt.Errorf("seed category %d: %w", i+1, err)
		}
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("seed category %q: %w", c.Name, core.ErrDuplicateCategory)
		}
		seen[c.Name] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}
