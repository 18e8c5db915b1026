package manifest

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// ErrDependencyNotFound is returned by LocateDependency when no dependency
// table declares the requested crate.
var ErrDependencyNotFound = errors.New("dependency not found")

// Location describes which dependency table declares a crate.
type Location struct {
	Section string
	// Flag is the `cargo remove` flag selecting Section, empty for
	// [dependencies].
	Flag string
}

var dependencySections = []Location{
	{Section: "dependencies"},
	{Section: "dev-dependencies", Flag: "--dev"},
	{Section: "build-dependencies", Flag: "--build"},
}

type packageDTO struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
}

// PackageName returns the name declared in the [package] table.
func PackageName(content string) (string, error) {
	var dto packageDTO
	if _, err := toml.Decode(content, &dto); err != nil {
		return "", fmt.Errorf("failed to parse manifest: %w", err)
	}
	if dto.Package.Name == "" {
		return "", errors.New("manifest has no package name")
	}
	return dto.Package.Name, nil
}

// LocateDependency finds the dependency table that declares dep.
func LocateDependency(content, dep string) (Location, error) {
	var doc map[string]interface{}
	if _, err := toml.Decode(content, &doc); err != nil {
		return Location{}, fmt.Errorf("failed to parse manifest: %w", err)
	}

	for _, loc := range dependencySections {
		table, ok := doc[loc.Section].(map[string]interface{})
		if !ok {
			continue
		}
		if _, ok := table[dep]; ok {
			return loc, nil
		}
	}
	return Location{}, fmt.Errorf("%w: %s", ErrDependencyNotFound, dep)
}
