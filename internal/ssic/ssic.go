// Package ssic resolves Standard Subject Identification Codes to records
// classifications.
package ssic

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"docroute/internal/models"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var defaultCatalog []byte

var codePattern = regexp.MustCompile(`^[0-9]{4,5}$`)

// Entry is one catalog row.
type Entry struct {
	Code           string               `yaml:"code" json:"code"`
	Nomenclature   string               `yaml:"nomenclature" json:"nomenclature"`
	Bucket         string               `yaml:"bucket" json:"bucket"`
	BucketTitle    string               `yaml:"bucket_title" json:"bucket_title"`
	Permanent      bool                 `yaml:"permanent" json:"permanent"`
	Cutoff         models.CutoffTrigger `yaml:"cutoff" json:"cutoff,omitempty"`
	RetentionValue int                  `yaml:"retention_value" json:"retention_value,omitempty"`
	RetentionUnit  models.RetentionUnit `yaml:"retention_unit" json:"retention_unit,omitempty"`
	DisposalAction string               `yaml:"disposal_action" json:"disposal_action"`
}

// Classification converts the entry into the form stored on a request.
// ssicCode is the code the user asked for, which may be more specific than
// the catalog row that matched.
func (e Entry) Classification(ssicCode string) models.Classification {
	if ssicCode == "" {
		ssicCode = e.Code
	}
	c := models.Classification{
		SSIC:           ssicCode,
		Nomenclature:   e.Nomenclature,
		Bucket:         e.Bucket,
		BucketTitle:    e.BucketTitle,
		IsPermanent:    e.Permanent,
		DisposalAction: e.DisposalAction,
	}
	if !e.Permanent {
		c.CutoffTrigger = e.Cutoff
		c.RetentionValue = e.RetentionValue
		c.RetentionUnit = e.RetentionUnit
	}
	return c
}

func (e Entry) validate() error {
	if !codePattern.MatchString(e.Code) {
		return fmt.Errorf("invalid SSIC %q", e.Code)
	}
	if strings.TrimSpace(e.Nomenclature) == "" {
		return fmt.Errorf("SSIC %s: nomenclature is required", e.Code)
	}
	if e.Permanent {
		return nil
	}
	switch e.Cutoff {
	case models.CutoffCalendarYear, models.CutoffFiscalYear, models.CutoffEvent:
	default:
		return fmt.Errorf("SSIC %s: unknown cutoff %q", e.Code, e.Cutoff)
	}
	switch e.RetentionUnit {
	case models.RetentionDays, models.RetentionMonths, models.RetentionYears:
	default:
		return fmt.Errorf("SSIC %s: unknown retention unit %q", e.Code, e.RetentionUnit)
	}
	if e.RetentionValue <= 0 {
		return fmt.Errorf("SSIC %s: retention value must be positive", e.Code)
	}
	return nil
}

type file struct {
	Entries []Entry `yaml:"entries"`
}

type lookup struct {
	entry Entry
	ok    bool
}

// Catalog is an immutable set of entries keyed by code.
type Catalog struct {
	entries map[string]Entry
	cache   *expirable.LRU[string, lookup]
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode SSIC catalog: %w", err)
	}
	if len(f.Entries) == 0 {
		return nil, errors.New("SSIC catalog has no entries")
	}

	c := &Catalog{entries: make(map[string]Entry, len(f.Entries))}
	var errs []error
	for _, e := range f.Entries {
		e.Code = strings.TrimSpace(e.Code)
		if err := e.validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := c.entries[e.Code]; dup {
			errs = append(errs, fmt.Errorf("duplicate SSIC %s", e.Code))
			continue
		}
		c.entries[e.Code] = e
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog at path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read SSIC catalog: %w", err)
	}
	return Parse(data)
}

// WithLookupCache memoizes Lookup results in an LRU of size entries.
func (c *Catalog) WithLookupCache(size int, ttl time.Duration) *Catalog {
	if size <= 0 {
		return c
	}
	return &Catalog{
		entries: c.entries,
		cache:   expirable.NewLRU[string, lookup](size, nil, ttl),
	}
}

// Len reports the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns all entries ordered by code.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Lookup resolves code to its catalog entry. A code without an exact row
// falls back to its subject group by zeroing trailing digits, so 5213
// tries 5210, 5200 and then 5000.
func (c *Catalog) Lookup(code string) (Entry, bool) {
	code = strings.TrimSpace(code)
	if c.cache != nil {
		if hit, ok := c.cache.Get(code); ok {
			return hit.entry, hit.ok
		}
	}
	e, ok := c.resolve(code)
	if c.cache != nil {
		c.cache.Add(code, lookup{entry: e, ok: ok})
	}
	return e, ok
}

func (c *Catalog) resolve(code string) (Entry, bool) {
	if !codePattern.MatchString(code) {
		return Entry{}, false
	}
	if e, ok := c.entries[code]; ok {
		return e, true
	}
	digits := []byte(code)
	for i := len(digits) - 1; i >= 1; i-- {
		if digits[i] == '0' {
			continue
		}
		digits[i] = '0'
		if e, ok := c.entries[string(digits)]; ok {
			return e, true
		}
	}
	return Entry{}, false
}

// Classify resolves code and returns the classification to store.
func (c *Catalog) Classify(code string) (models.Classification, error) {
	e, ok := c.Lookup(code)
	if !ok {
		return models.Classification{}, models.NewNotFoundError("SSIC", code)
	}
	return e.Classification(strings.TrimSpace(code)), nil
}
