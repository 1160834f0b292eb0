// Package catalog holds the static OCI bundle definitions. A Catalog is built
// once at startup and never mutated, so it is safe to share across goroutines.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Fallback is the description used for codes that belong to no bundle item.
const Fallback = "Código não faz parte de um item de OCI"

// Item is one procedure code inside a bundle.
type Item struct {
	Code        string `yaml:"code" json:"codigo"`
	Description string `yaml:"description" json:"descricao"`
}

// Bundle is an OCI grouping: patients holding every mandatory code qualify.
type Bundle struct {
	Code      string `yaml:"code" json:"codigo"`
	Name      string `yaml:"name" json:"nome"`
	Mandatory []Item `yaml:"mandatory" json:"itens_obrigatorios"`
	Optional  []Item `yaml:"optional" json:"itens_facultativos"`
}

// DisplayCode returns the bundle code segmented for presentation.
func (b *Bundle) DisplayCode() string {
	return FormatCode(b.Code)
}

// MandatoryCodes returns the mandatory item codes in definition order.
func (b *Bundle) MandatoryCodes() []string {
	codes := make([]string, len(b.Mandatory))
	for i, it := range b.Mandatory {
		codes[i] = it.Code
	}
	return codes
}

// Catalog is an ordered, read-only set of bundles.
type Catalog struct {
	bundles []Bundle
	byCode  map[string]int
	// first description seen for each item code, in catalog order
	descriptions map[string]string
}

type catalogFile struct {
	Bundles []Bundle `yaml:"bundles"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a YAML catalog file. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(f.Bundles)
}

// New builds a Catalog from bundles, preserving their order. The slice is
// copied so later changes by the caller do not leak in.
func New(bundles []Bundle) (*Catalog, error) {
	c := &Catalog{
		bundles:      make([]Bundle, 0, len(bundles)),
		byCode:       make(map[string]int, len(bundles)),
		descriptions: make(map[string]string),
	}
	for _, b := range bundles {
		if err := validateBundle(b); err != nil {
			return nil, err
		}
		if _, dup := c.byCode[b.Code]; dup {
			return nil, fmt.Errorf("duplicate bundle code %s", b.Code)
		}
		b.Mandatory = append([]Item(nil), b.Mandatory...)
		b.Optional = append([]Item(nil), b.Optional...)
		c.byCode[b.Code] = len(c.bundles)
		c.bundles = append(c.bundles, b)

		for _, it := range b.Mandatory {
			c.remember(it)
		}
		for _, it := range b.Optional {
			c.remember(it)
		}
	}
	return c, nil
}

func (c *Catalog) remember(it Item) {
	if _, ok := c.descriptions[it.Code]; !ok {
		c.descriptions[it.Code] = it.Description
	}
}

func validateBundle(b Bundle) error {
	if strings.TrimSpace(b.Code) == "" {
		return fmt.Errorf("bundle %q has no code", b.Name)
	}
	if len(b.Mandatory) == 0 {
		return fmt.Errorf("bundle %s has no mandatory items", b.Code)
	}
	seen := make(map[string]bool, len(b.Mandatory))
	for _, it := range b.Mandatory {
		if it.Code == "" {
			return fmt.Errorf("bundle %s has a mandatory item without code", b.Code)
		}
		if seen[it.Code] {
			return fmt.Errorf("bundle %s lists mandatory code %s twice", b.Code, it.Code)
		}
		seen[it.Code] = true
	}
	for _, it := range b.Optional {
		if it.Code == "" {
			return fmt.Errorf("bundle %s has an optional item without code", b.Code)
		}
	}
	return nil
}

// Bundles returns the bundles in catalog order. Callers must not modify the
// returned slice.
func (c *Catalog) Bundles() []Bundle {
	return c.bundles
}

// Len returns the number of bundles.
func (c *Catalog) Len() int {
	return len(c.bundles)
}

// Lookup returns the bundle with the given code, or ok=false.
func (c *Catalog) Lookup(code string) (*Bundle, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return nil, false
	}
	return &c.bundles[i], true
}

// Describe returns the description of the first item carrying code, scanning
// bundles in catalog order and mandatory items before optional ones. Codes
// shared by several bundles carry the same description in practice, so the
// first occurrence is used. Unknown codes get Fallback.
func (c *Catalog) Describe(code string) string {
	if d, ok := c.descriptions[code]; ok {
		return d
	}
	return Fallback
}

// FormatCode segments a bundle code as AA.BB.CC.rest. Codes shorter than six
// characters are returned unchanged.
func FormatCode(code string) string {
	if len(code) < 6 {
		return code
	}
	return code[:2] + "." + code[2:4] + "." + code[4:6] + "." + code[6:]
}
