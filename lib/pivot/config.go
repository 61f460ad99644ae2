package pivot

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Registration is one validated pivot provider entry from a
// registration file.
type Registration struct {
	File     string
	Entry    string
	Provider string
	FuncName string
	NewName  string
	// EntityMap maps entity name to the entity attribute whose value
	// feeds the pivot function.
	EntityMap     map[string]string
	ContainerName string
}

// Name returns the name the pivot function is bound under.
func (r Registration) Name() string {
	if r.NewName != "" {
		return r.NewName
	}
	return r.FuncName
}

type registrationFile struct {
	PivotProviders map[string]registrationEntry `yaml:"pivot_providers"`
}

type registrationEntry struct {
	SrcProvider         string         `yaml:"src_provider"`
	SrcFuncName         string         `yaml:"src_func_name"`
	FuncNewName         string         `yaml:"func_new_name"`
	EntityMap           map[string]any `yaml:"entity_map"`
	EntityContainerName string         `yaml:"entity_container_name"`
}

// ReadRegistrations loads and validates a pivot registration file.
// Entries come back sorted by name so registration order is stable.
func ReadRegistrations(path string) ([]Registration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{File: path, Msg: "cannot read registration file", Err: err}
	}

	var file registrationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ConfigError{File: path, Msg: "invalid YAML", Err: err}
	}
	if len(file.PivotProviders) == 0 {
		return nil, &ConfigError{File: path, Msg: "no pivot_providers section"}
	}

	names := make([]string, 0, len(file.PivotProviders))
	for name := range file.PivotProviders {
		names = append(names, name)
	}
	sort.Strings(names)

	regs := make([]Registration, 0, len(names))
	for _, name := range names {
		entry := file.PivotProviders[name]
		reg, err := entry.validate(path, name)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

func (e registrationEntry) validate(path, name string) (Registration, error) {
	if e.SrcProvider == "" {
		return Registration{}, &ConfigError{File: path, Entry: name, Msg: "missing src_provider"}
	}
	if e.SrcFuncName == "" {
		return Registration{}, &ConfigError{File: path, Entry: name, Msg: "missing src_func_name"}
	}
	if len(e.EntityMap) == 0 {
		return Registration{}, &ConfigError{File: path, Entry: name, Msg: "missing entity_map"}
	}
	entityMap, err := cast.ToStringMapStringE(e.EntityMap)
	if err != nil {
		return Registration{}, &ConfigError{
			File:  path,
			Entry: name,
			Msg:   fmt.Sprintf("entity_map values must be strings: %s", err),
			Err:   err,
		}
	}
	return Registration{
		File:          path,
		Entry:         name,
		Provider:      e.SrcProvider,
		FuncName:      e.SrcFuncName,
		NewName:       e.FuncNewName,
		EntityMap:     entityMap,
		ContainerName: e.EntityContainerName,
	}, nil
}
