// Package catalog holds the categorized list of packages that goes into the
// image. Category order and package order are significant: they decide the
// order packages are written to the profile manifest.
package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// ErrPackageExists is returned by Add when the package is already listed
	// in the category. The catalog is left unchanged.
	ErrPackageExists = errors.New("package already exists")
	// ErrPackageNotFound is returned by Remove when no category lists the package.
	ErrPackageNotFound = errors.New("package not found")
)

type category struct {
	name     string
	packages []string
}

// Catalog is an ordered mapping of category name to ordered package names.
// The zero value is an empty catalog ready to use.
// Mutable
type Catalog struct {
	categories []*category
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{}
}

func (c *Catalog) find(name string) *category {
	for _, cat := range c.categories {
		if cat.name == name {
			return cat
		}
	}
	return nil
}

// Add appends pkg to the named category, creating the category at the end
// of the catalog if needed.
func (c *Catalog) Add(categoryName, pkg string) error {
	if categoryName == "" || pkg == "" {
		return fmt.Errorf("category and package must not be empty")
	}
	cat := c.find(categoryName)
	if cat == nil {
		cat = &category{name: categoryName}
		c.categories = append(c.categories, cat)
	}
	if slices.Contains(cat.packages, pkg) {
		return fmt.Errorf("%w: '%s' in category '%s'", ErrPackageExists, pkg, categoryName)
	}
	cat.packages = append(cat.packages, pkg)
	return nil
}

// Remove drops pkg from every category that lists it (first occurrence per
// category) and returns the names of those categories in catalog order.
// Categories left empty are kept.
func (c *Catalog) Remove(pkg string) ([]string, error) {
	var removed []string
	for _, cat := range c.categories {
		idx := slices.Index(cat.packages, pkg)
		if idx < 0 {
			continue
		}
		cat.packages = slices.Delete(cat.packages, idx, idx+1)
		removed = append(removed, cat.name)
	}
	if len(removed) == 0 {
		return nil, fmt.Errorf("%w: '%s' in any category", ErrPackageNotFound, pkg)
	}
	return removed, nil
}

// Categories returns the category names in insertion order.
func (c *Catalog) Categories() []string {
	names := make([]string, 0, len(c.categories))
	for _, cat := range c.categories {
		names = append(names, cat.name)
	}
	return names
}

// Packages returns a copy of the packages of one category, or nil if the
// category does not exist.
func (c *Catalog) Packages(categoryName string) []string {
	cat := c.find(categoryName)
	if cat == nil {
		return nil
	}
	return slices.Clone(cat.packages)
}

// Len returns the total number of package entries across all categories.
func (c *Catalog) Len() int {
	n := 0
	for _, cat := range c.categories {
		n += len(cat.packages)
	}
	return n
}

// Flatten concatenates all packages, category order preserved.
func (c *Catalog) Flatten() []string {
	all := make([]string, 0, c.Len())
	for _, cat := range c.categories {
		all = append(all, cat.packages...)
	}
	return all
}

// Clone returns a deep copy.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{categories: make([]*category, 0, len(c.categories))}
	for _, cat := range c.categories {
		out.categories = append(out.categories, &category{
			name:     cat.name,
			packages: slices.Clone(cat.packages),
		})
	}
	return out
}

// Equal reports whether both catalogs have the same categories and packages
// in the same order.
func (c *Catalog) Equal(other *Catalog) bool {
	if len(c.categories) != len(other.categories) {
		return false
	}
	for i, cat := range c.categories {
		o := other.categories[i]
		if cat.name != o.name || !slices.Equal(cat.packages, o.packages) {
			return false
		}
	}
	return true
}

// Title turns a category name such as "imaging_tools" into "Imaging Tools".
func Title(categoryName string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(categoryName, "_", " "))
}

// RenderText renders the catalog in package manifest form: every category
// becomes a comment header preceded by a blank line, followed by one
// package per line.
func (c *Catalog) RenderText() string {
	var sb strings.Builder
	for _, cat := range c.categories {
		sb.WriteString("\n# ")
		sb.WriteString(Title(cat.name))
		sb.WriteString("\n")
		for _, pkg := range cat.packages {
			sb.WriteString(pkg)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
