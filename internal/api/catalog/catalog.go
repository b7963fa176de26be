// Package catalog holds the static lookup tables used by the planner: the offline
// city-to-location-code table and the preference-to-place-category table. Both are
// versioned YAML documents embedded in the binary.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"maps"
	"strings"
	"unicode"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GenericCategory is used when no preference maps to a category, and for the
// fallback places query.
const GenericCategory = "tourism.attraction"

//go:embed location_codes.yml
var locationCodesYAML []byte

//go:embed categories.yml
var categoriesYAML []byte

type Catalog struct {
	LocationVersion string
	CategoryVersion string
	locationCodes   map[string]string
	categories      map[string]string
}

// Load parses the embedded tables.
func Load() (*Catalog, error) {
	locVersion, codes, err := readTable(locationCodesYAML, "codes")
	if err != nil {
		return nil, fmt.Errorf("failed to load location codes: %w", err)
	}
	catVersion, categories, err := readTable(categoriesYAML, "categories")
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	c := &Catalog{
		LocationVersion: locVersion,
		CategoryVersion: catVersion,
		locationCodes:   make(map[string]string, len(codes)),
		categories:      make(map[string]string, len(categories)),
	}
	for k, v := range codes {
		c.locationCodes[NormalizeLocation(k)] = strings.ToUpper(strings.TrimSpace(v))
	}
	for k, v := range categories {
		c.categories[normalizeKeyword(k)] = strings.TrimSpace(v)
	}
	return c, nil
}

// MustLoad is Load for package initialisation and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func readTable(doc []byte, section string) (string, map[string]string, error) {
	v := viper.New()
	v.SetConfigType("yml")
	if err := v.ReadConfig(bytes.NewReader(doc)); err != nil {
		return "", nil, err
	}
	table := v.GetStringMapString(section)
	if len(table) == 0 {
		return "", nil, fmt.Errorf("section %q is empty", section)
	}
	return v.GetString("version"), table, nil
}

// NormalizeLocation lowercases name and drops every whitespace rune, so
// "Hong Kong", "hong  kong" and "HongKong" share one key.
func NormalizeLocation(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cases.Lower(language.Und).String(name))
}

func normalizeKeyword(keyword string) string {
	return strings.TrimSpace(cases.Lower(language.Und).String(keyword))
}

// LocationCode looks up the offline code for a destination name.
func (c *Catalog) LocationCode(destination string) (string, bool) {
	code, ok := c.locationCodes[NormalizeLocation(destination)]
	return code, ok
}

// LocationCodes returns a copy of the location table.
func (c *Catalog) LocationCodes() map[string]string {
	return maps.Clone(c.locationCodes)
}

// CategoryFilter maps preference keywords to category tokens and ORs them together
// in input order. Unknown keywords are dropped and a repeated token is listed once.
func (c *Catalog) CategoryFilter(preferences []string) string {
	tokens := lo.Uniq(lo.FilterMap(preferences, func(p string, _ int) (string, bool) {
		token, ok := c.categories[normalizeKeyword(p)]
		return token, ok
	}))
	if len(tokens) == 0 {
		return GenericCategory
	}
	return strings.Join(tokens, ",")
}
