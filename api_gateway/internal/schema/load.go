package schema

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed families/*.yaml
var builtinFS embed.FS

// DefaultFamily is served when ENTITY_FAMILY is unset.
const DefaultFamily = "hr"

// Parse decodes and validates a single family document. Unknown keys are rejected.
func Parse(data []byte) (*Family, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var fam Family
	if err := dec.Decode(&fam); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty family document")
		}
		return nil, fmt.Errorf("decode family: %w", err)
	}
	if err := fam.normalize(); err != nil {
		return nil, err
	}
	return &fam, nil
}

// Load reads a family from a YAML file on disk.
func Load(file string) (*Family, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read family file: %w", err)
	}
	fam, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return fam, nil
}

// Builtin returns one of the families compiled into the binary.
func Builtin(name string) (*Family, error) {
	data, err := builtinFS.ReadFile(path.Join("families", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown entity family %q (available: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	fam, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("builtin family %s: %w", name, err)
	}
	if fam.Name != name {
		return nil, fmt.Errorf("builtin family file %s declares family %s", name, fam.Name)
	}
	return fam, nil
}

// BuiltinNames lists the compiled-in families, sorted.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("families")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if name, ok := strings.CutSuffix(entry.Name(), ".yaml"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Resolve picks the family to serve: an explicit file wins over a builtin name.
func Resolve(file, name string) (*Family, error) {
	if file != "" {
		return Load(file)
	}
	if name == "" {
		name = DefaultFamily
	}
	return Builtin(name)
}
