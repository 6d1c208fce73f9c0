package dagflow

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/dagflow/pkg/dagflow/registry"
)

// Catalog holds built definitions by name so each workflow type is built
// once and shared. It is safe for concurrent use.
type Catalog struct {
	defs *registry.Registry[string, *Definition]
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: registry.New[string, *Definition]()}
}

// Register adds def under its name.
// Returns an error wrapping ErrDuplicateDefinition if the name is taken.
func (c *Catalog) Register(def *Definition) error {
	if def == nil {
		return errors.New("dagflow: definition cannot be nil")
	}
	if err := c.defs.Register(def.Name(), def); err != nil {
		if errors.Is(err, registry.ErrDuplicate) {
			return fmt.Errorf("%w: %s", ErrDuplicateDefinition, def.Name())
		}
		return err
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (c *Catalog) MustRegister(def *Definition) *Definition {
	if err := c.Register(def); err != nil {
		panic(err.Error())
	}
	return def
}

// Lookup returns the definition registered as name.
func (c *Catalog) Lookup(name string) (*Definition, bool) {
	return c.defs.Get(name)
}

// BuildOnce returns the definition registered as name, building and
// registering it with build on first use. Concurrent first calls build once.
func (c *Catalog) BuildOnce(name string, build func() (*Definition, error)) (*Definition, error) {
	def, err := c.defs.GetOrCreate(name, func() (*Definition, error) {
		d, err := build()
		if err != nil {
			return nil, err
		}
		if d.Name() != name {
			return nil, fmt.Errorf("dagflow: built definition %q registered as %q", d.Name(), name)
		}
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return def, nil
}

// Registered returns every registered name, sorted.
func (c *Catalog) Registered() []string {
	return c.defs.Keys()
}

// Unregister removes name. Missing names are ignored.
func (c *Catalog) Unregister(name string) {
	c.defs.Delete(name)
}

var defaultCatalog = NewCatalog()

// Register adds def to the process-wide catalog.
func Register(def *Definition) error {
	return defaultCatalog.Register(def)
}

// MustRegister adds def to the process-wide catalog, panicking on error.
// Intended for package-level declarations:
//
//	var Features = dagflow.MustRegister(dagflow.NewBuilder("features")....MustBuild())
func MustRegister(def *Definition) *Definition {
	return defaultCatalog.MustRegister(def)
}

// Lookup finds a definition in the process-wide catalog.
func Lookup(name string) (*Definition, bool) {
	return defaultCatalog.Lookup(name)
}

// Registered lists the process-wide catalog, sorted.
func Registered() []string {
	return defaultCatalog.Registered()
}
