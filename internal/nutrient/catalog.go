// Package nutrient provides the nutrient catalog and the micronutrient impact model.
package nutrient

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/nutriplan/internal/model"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

// minSubstringLen is the shortest name that takes part in substring matching.
// Element symbols like "k" or "mg" only match exactly.
const minSubstringLen = 3

// Category is a health-impact category.
type Category string

// Health-impact categories.
const (
	CategoryEnergy         Category = "energy"
	CategoryHeartHealth    Category = "heart-health"
	CategoryImmuneSupport  Category = "immune-support"
	CategoryBoneHealth     Category = "bone-health"
	CategoryBrainFocus     Category = "brain-focus"
	CategoryMuscleRecovery Category = "muscle-recovery"
)

// Categories lists the six categories in report order.
var Categories = []Category{
	CategoryEnergy,
	CategoryHeartHealth,
	CategoryImmuneSupport,
	CategoryBoneHealth,
	CategoryBrainFocus,
	CategoryMuscleRecovery,
}

// Severity scales an anti-nutrient penalty.
type Severity string

// Severities.
const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Factor returns the penalty multiplier for the severity.
func (s Severity) Factor() float64 {
	switch s {
	case SeverityHigh:
		return 1.5
	case SeverityLow:
		return 0.7
	default:
		return 1.0
	}
}

// PenaltyClass selects which context rules apply to an anti-nutrient.
type PenaltyClass string

// Penalty classes.
const (
	ClassSodium   PenaltyClass = "sodium"
	ClassSugar    PenaltyClass = "sugar"
	ClassCaffeine PenaltyClass = "caffeine"
	ClassOther    PenaltyClass = "other"
)

// RDA is a recommended daily amount per sex.
type RDA struct {
	Male   float64 `yaml:"male"`
	Female float64 `yaml:"female"`
}

// For returns the RDA for sex, averaging both columns when unspecified.
func (r RDA) For(sex model.Sex) float64 {
	switch sex {
	case model.SexMale:
		return r.Male
	case model.SexFemale:
		return r.Female
	default:
		return (r.Male + r.Female) / 2
	}
}

// Info describes a catalog nutrient.
type Info struct {
	Name       string       `yaml:"name"`
	Aliases    []string     `yaml:"aliases"`
	Unit       string       `yaml:"unit"`
	RDA        RDA          `yaml:"rda"`
	Categories []Category   `yaml:"categories"`
	Anti       bool         `yaml:"anti"`
	Limit      float64      `yaml:"limit"`
	Severity   Severity     `yaml:"severity"`
	Class      PenaltyClass `yaml:"class"`
}

// InCategory reports whether the nutrient maps to c.
func (n Info) InCategory(c Category) bool {
	for _, cat := range n.Categories {
		if cat == c {
			return true
		}
	}
	return false
}

func (n Info) clone() Info {
	n.Aliases = append([]string(nil), n.Aliases...)
	n.Categories = append([]Category(nil), n.Categories...)
	return n
}

type catalogFile struct {
	Nutrients []Info `yaml:"nutrients"`
}

type entry struct {
	info    Info
	name    string
	aliases []string
}

// Catalog is an immutable nutrient registry.
type Catalog struct {
	entries []entry
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog built from the embedded document. It is parsed once.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(embeddedCatalog)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("embedded nutrient catalog: %v", defaultErr))
	}
	return defaultCatalog
}

// Parse builds a catalog from a YAML document.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if len(file.Nutrients) == 0 {
		return nil, fmt.Errorf("catalog has no nutrients")
	}
	seen := map[string]struct{}{}
	c := &Catalog{entries: make([]entry, 0, len(file.Nutrients))}
	for i, info := range file.Nutrients {
		if strings.TrimSpace(info.Name) == "" {
			return nil, fmt.Errorf("catalog entry %d has no name", i)
		}
		key := normalize(info.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", info.Name)
		}
		seen[key] = struct{}{}
		if info.Anti {
			if info.Limit <= 0 {
				return nil, fmt.Errorf("anti-nutrient %q needs a positive limit", info.Name)
			}
			if info.Class == "" {
				info.Class = ClassOther
			}
			if info.Severity == "" {
				info.Severity = SeverityMedium
			}
		}
		for _, cat := range info.Categories {
			if !knownCategory(cat) {
				return nil, fmt.Errorf("nutrient %q has unknown category %q", info.Name, cat)
			}
		}
		e := entry{info: info, name: key}
		for _, alias := range info.Aliases {
			e.aliases = append(e.aliases, normalize(alias))
		}
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// Len returns the number of nutrients.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// All returns every nutrient in catalog order.
func (c *Catalog) All() []Info {
	out := make([]Info, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.info.clone())
	}
	return out
}

// Lookup resolves a nutrient name. Matching is case-insensitive and tries, in
// order: exact name, exact alias, substring against names, substring against
// aliases. Within a substring stage the longest matching name wins.
func (c *Catalog) Lookup(name string) (Info, bool) {
	q := normalize(name)
	if q == "" {
		return Info{}, false
	}
	for _, e := range c.entries {
		if e.name == q {
			return e.info.clone(), true
		}
	}
	for _, e := range c.entries {
		for _, alias := range e.aliases {
			if alias == q {
				return e.info.clone(), true
			}
		}
	}
	if idx := c.bestSubstring(q, func(e entry) []string { return []string{e.name} }); idx >= 0 {
		return c.entries[idx].info.clone(), true
	}
	if idx := c.bestSubstring(q, func(e entry) []string { return e.aliases }); idx >= 0 {
		return c.entries[idx].info.clone(), true
	}
	return Info{}, false
}

func (c *Catalog) bestSubstring(q string, candidates func(entry) []string) int {
	best, bestLen := -1, 0
	for i, e := range c.entries {
		for _, cand := range candidates(e) {
			if !substringMatch(q, cand) {
				continue
			}
			if len(cand) > bestLen {
				best, bestLen = i, len(cand)
			}
		}
	}
	return best
}

func substringMatch(q, cand string) bool {
	if len(q) < minSubstringLen || len(cand) < minSubstringLen {
		return false
	}
	return strings.Contains(cand, q) || strings.Contains(q, cand)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func knownCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
