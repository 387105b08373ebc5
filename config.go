package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// applyConfigFile sets every flag named in the YAML file at path that was not
// given on the command line. Unknown keys are an error.
func applyConfigFile(fs *pflag.FlagSet, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil {
			return fmt.Errorf("%s: unknown flag %q", path, name)
		}
		if name == "config" {
			return fmt.Errorf("%s: config files cannot be nested", path)
		}
		if f.Changed {
			continue
		}
		if err := fs.Set(name, fmt.Sprint(values[name])); err != nil {
			return fmt.Errorf("%s: %s: %w", path, name, err)
		}
	}
	return nil
}
