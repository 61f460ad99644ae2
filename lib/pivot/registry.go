// Package pivot binds query-producing functions onto entity types from
// declarative registration files. Providers are plain Go values placed
// in a Namespace; registrations name a provider, one of its methods,
// and the entities the resulting pivot function attaches to.
package pivot

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kustoforge/sql-to-kql/lib/kql"
)

// DefaultContainer receives pivot functions whose registration names no
// container of its own.
const DefaultContainer = "other"

// PivotFunc runs one pivot: it takes an entity attribute value and
// returns a query.
type PivotFunc func(value string) (string, error)

// Namespace holds provider instances, keyed by the name registration
// entries refer to them with.
type Namespace map[string]any

// Binding is a pivot function attached to an entity container.
type Binding struct {
	Name      string
	Attribute string
	Run       PivotFunc
}

// Container groups the pivot functions bound to one entity under a
// common name.
type Container struct {
	name  string
	funcs map[string]Binding
}

func (c *Container) Get(name string) (Binding, bool) {
	b, ok := c.funcs[name]
	return b, ok
}

func (c *Container) Names() []string {
	names := make([]string, 0, len(c.funcs))
	for name := range c.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entity is a registration target (Host, Account, IpAddress, ...).
type Entity struct {
	name       string
	containers map[string]*Container
}

func (e *Entity) Container(name string) (*Container, bool) {
	c, ok := e.containers[name]
	return c, ok
}

func (e *Entity) container(name string) *Container {
	if c, ok := e.containers[name]; ok {
		return c
	}
	c := &Container{name: name, funcs: make(map[string]Binding)}
	e.containers[name] = c
	return c
}

// Options control how registrations pick their target container.
type Options struct {
	// Container is the fallback container name; DefaultContainer when
	// empty.
	Container string
	// ForceContainer overrides per-entry container names with Container.
	ForceContainer bool
}

func (o Options) containerFor(reg Registration) string {
	fallback := o.Container
	if fallback == "" {
		fallback = DefaultContainer
	}
	if o.ForceContainer || reg.ContainerName == "" {
		return fallback
	}
	return reg.ContainerName
}

// Registry holds the known entities and their bound pivot functions.
type Registry struct {
	entities map[string]*Entity
	log      zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		entities: make(map[string]*Entity),
		log:      log,
	}
}

// AddEntity declares a registration target. Registering against an
// undeclared entity fails.
func (r *Registry) AddEntity(name string) *Entity {
	if e, ok := r.entities[name]; ok {
		return e
	}
	e := &Entity{name: name, containers: make(map[string]*Container)}
	r.entities[name] = e
	return e
}

func (r *Registry) Entity(name string) (*Entity, bool) {
	e, ok := r.entities[name]
	return e, ok
}

// RegisterFile reads a registration file and binds every entry against
// providers found in the namespace.
func (r *Registry) RegisterFile(path string, ns Namespace, opts Options) error {
	regs, err := ReadRegistrations(path)
	if err != nil {
		return err
	}
	for _, reg := range regs {
		if err := r.register(reg, ns, opts); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) register(reg Registration, ns Namespace, opts Options) error {
	provider, ok := ns[reg.Provider]
	if !ok {
		return &ConfigError{
			File:  reg.File,
			Entry: reg.Entry,
			Msg:   fmt.Sprintf("provider %q is not in the namespace", reg.Provider),
		}
	}
	fn, err := resolvePivotFunc(provider, reg.FuncName)
	if err != nil {
		return &ConfigError{File: reg.File, Entry: reg.Entry, Msg: err.Error(), Err: err}
	}

	container := opts.containerFor(reg)
	name := reg.Name()

	entityNames := make([]string, 0, len(reg.EntityMap))
	for entityName := range reg.EntityMap {
		entityNames = append(entityNames, entityName)
	}
	sort.Strings(entityNames)

	for _, entityName := range entityNames {
		entity, ok := r.entities[entityName]
		if !ok {
			return &ConfigError{
				File:  reg.File,
				Entry: reg.Entry,
				Msg:   fmt.Sprintf("unrecognized entity %q", entityName),
			}
		}
		entity.container(container).funcs[name] = Binding{
			Name:      name,
			Attribute: reg.EntityMap[entityName],
			Run:       fn,
		}
		r.log.Debug().
			Str("entity", entityName).
			Str("container", container).
			Str("func", name).
			Str("provider", reg.Provider).
			Msg("registered pivot function")
	}
	return nil
}

// Bind attaches a pivot function directly, without a registration file.
func (r *Registry) Bind(entityName, containerName, name, attribute string, fn PivotFunc) error {
	entity, ok := r.entities[entityName]
	if !ok {
		return &ConfigError{Msg: fmt.Sprintf("unrecognized entity %q", entityName)}
	}
	if containerName == "" {
		containerName = DefaultContainer
	}
	entity.container(containerName).funcs[name] = Binding{
		Name:      name,
		Attribute: attribute,
		Run:       fn,
	}
	r.log.Debug().
		Str("entity", entityName).
		Str("container", containerName).
		Str("func", name).
		Msg("registered pivot function")
	return nil
}

// resolvePivotFunc looks up a method on the provider value by name. The
// method must have the PivotFunc signature.
func resolvePivotFunc(provider any, name string) (PivotFunc, error) {
	method := reflect.ValueOf(provider).MethodByName(name)
	if !method.IsValid() {
		return nil, fmt.Errorf("provider %T has no method %s", provider, name)
	}
	fn, ok := method.Interface().(func(string) (string, error))
	if !ok {
		return nil, fmt.Errorf("method %s has signature %s, want func(string) (string, error)", name, method.Type())
	}
	return fn, nil
}

// FromSQL builds a pivot function from a SQL template. Each occurrence
// of {value} is replaced with the single-quoted entity value and the
// result translated to KQL.
func FromSQL(template string, targetTables map[string]string) PivotFunc {
	return func(value string) (string, error) {
		quoted := "'" + strings.ReplaceAll(value, "'", "''") + "'"
		sql := strings.ReplaceAll(template, "{value}", quoted)
		return kql.Translate(sql, targetTables)
	}
}
