// Package launch models a launch configuration document (launch.json) and
// converts it to and from JSON-with-comments text.
//
// A document holds an ordered list of configurations and an optional list of
// compounds. Configurations and compounds share one namespace of names.
// Unknown keys, on records and at the top level, are kept in order and
// written back unchanged.
package launch

// DefaultVersion is the version written into newly created documents.
const DefaultVersion = "0.2.0"

// Request values used by convention. Other values are accepted.
const (
	RequestLaunch = "launch"
	RequestAttach = "attach"
)

// Entry is either a Configuration or a Compound.
type Entry interface {
	EntryName() string
	entry()
}

// Configuration is one named debug/run configuration.
type Configuration struct {
	Name    string
	Type    string
	Request string
	// HasType and HasRequest keep an empty type or request key that was
	// present in the text.
	HasType    bool
	HasRequest bool
	// Attrs holds every other key, in source order.
	Attrs *Object
}

func (Configuration) entry() {}

// EntryName returns c.Name.
func (c Configuration) EntryName() string { return c.Name }

// Attr returns the value of an additional key.
func (c Configuration) Attr(key string) (Value, bool) { return c.Attrs.Get(key) }

// StringAttr returns an additional key holding a string.
func (c Configuration) StringAttr(key string) (string, bool) {
	v, ok := c.Attrs.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// SetAttr stores an additional key. name, type and request are rejected
// silently; set the fields instead.
func (c *Configuration) SetAttr(key string, v Value) {
	if reservedConfigurationKey(key) {
		return
	}
	if c.Attrs == nil {
		c.Attrs = NewObject()
	}
	c.Attrs.Set(key, v)
}

// Clone returns a deep copy of c.
func (c Configuration) Clone() Configuration {
	c.Attrs = c.Attrs.Clone()
	return c
}

// Equal reports whether c and o are identical, including attribute order.
func (c Configuration) Equal(o Configuration) bool {
	return c.Name == o.Name && c.Type == o.Type && c.Request == o.Request &&
		c.writesType() == o.writesType() && c.writesRequest() == o.writesRequest() &&
		c.Attrs.Equal(o.Attrs)
}

// Value returns c as an object value in canonical key order: name, type,
// request, then the additional keys in order.
func (c Configuration) Value() Value {
	obj := NewObject()
	obj.Set("name", String(c.Name))
	if c.writesType() {
		obj.Set("type", String(c.Type))
	}
	if c.writesRequest() {
		obj.Set("request", String(c.Request))
	}
	c.Attrs.Range(func(k string, v Value) bool {
		if !reservedConfigurationKey(k) {
			obj.Set(k, v)
		}
		return true
	})
	return ObjectValue(obj)
}

func (c Configuration) writesType() bool    { return c.Type != "" || c.HasType }
func (c Configuration) writesRequest() bool { return c.Request != "" || c.HasRequest }

func reservedConfigurationKey(k string) bool {
	return k == "name" || k == "type" || k == "request"
}

// Compound is a named group of configurations, referenced by name. The
// references may name configurations that do not exist.
type Compound struct {
	Name           string
	Configurations []string
	// Attrs holds every other key (e.g. stopAll), in source order.
	Attrs *Object
}

func (Compound) entry() {}

// EntryName returns c.Name.
func (c Compound) EntryName() string { return c.Name }

// Clone returns a deep copy of c.
func (c Compound) Clone() Compound {
	c.Configurations = append([]string{}, c.Configurations...)
	c.Attrs = c.Attrs.Clone()
	return c
}

// Equal reports whether c and o are identical.
func (c Compound) Equal(o Compound) bool {
	if c.Name != o.Name || len(c.Configurations) != len(o.Configurations) {
		return false
	}
	for i := range c.Configurations {
		if c.Configurations[i] != o.Configurations[i] {
			return false
		}
	}
	return c.Attrs.Equal(o.Attrs)
}

// Value returns c as an object value: name, configurations, then the
// additional keys in order.
func (c Compound) Value() Value {
	obj := NewObject()
	obj.Set("name", String(c.Name))
	obj.Set("configurations", Strings(c.Configurations...))
	c.Attrs.Range(func(k string, v Value) bool {
		if k != "name" && k != "configurations" {
			obj.Set(k, v)
		}
		return true
	})
	return ObjectValue(obj)
}

// RemoveReference drops every reference to name, reporting whether any
// were present.
func (c *Compound) RemoveReference(name string) bool {
	kept := c.Configurations[:0]
	for _, ref := range c.Configurations {
		if ref != name {
			kept = append(kept, ref)
		}
	}
	removed := len(kept) != len(c.Configurations)
	c.Configurations = kept
	return removed
}

// Document is a full launch configuration document.
type Document struct {
	// Version is informational; empty means the key is absent.
	Version        string
	Configurations []Configuration
	Compounds      []Compound
	// HasCompounds records that the compounds key is present even when
	// the list is empty.
	HasCompounds bool
	// Extra holds unknown top-level keys (e.g. inputs), in source order.
	Extra *Object
}

// NewDocument returns an empty document with the default version.
func NewDocument() *Document {
	return &Document{
		Version:        DefaultVersion,
		Configurations: []Configuration{},
	}
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	c := &Document{
		Version:        d.Version,
		Configurations: make([]Configuration, len(d.Configurations)),
		HasCompounds:   d.HasCompounds,
		Extra:          d.Extra.Clone(),
	}
	for i, cfg := range d.Configurations {
		c.Configurations[i] = cfg.Clone()
	}
	if d.Compounds != nil {
		c.Compounds = make([]Compound, len(d.Compounds))
		for i, cmp := range d.Compounds {
			c.Compounds[i] = cmp.Clone()
		}
	}
	return c
}

// Equal reports whether d and o hold the same records in the same order.
func (d *Document) Equal(o *Document) bool {
	if d.Version != o.Version || d.hasCompounds() != o.hasCompounds() ||
		len(d.Configurations) != len(o.Configurations) || len(d.Compounds) != len(o.Compounds) {
		return false
	}
	for i := range d.Configurations {
		if !d.Configurations[i].Equal(o.Configurations[i]) {
			return false
		}
	}
	for i := range d.Compounds {
		if !d.Compounds[i].Equal(o.Compounds[i]) {
			return false
		}
	}
	return d.Extra.Equal(o.Extra)
}

func (d *Document) hasCompounds() bool {
	return d.HasCompounds || len(d.Compounds) > 0
}

// ConfigurationIndex returns the index of the first configuration named
// name, or -1.
func (d *Document) ConfigurationIndex(name string) int {
	for i, c := range d.Configurations {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// CompoundIndex returns the index of the first compound named name, or -1.
func (d *Document) CompoundIndex(name string) int {
	for i, c := range d.Compounds {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// HasName reports whether any configuration or compound is named name.
func (d *Document) HasName(name string) bool {
	return d.ConfigurationIndex(name) >= 0 || d.CompoundIndex(name) >= 0
}

// Names returns every configuration name followed by every compound name.
func (d *Document) Names() []string {
	names := make([]string, 0, len(d.Configurations)+len(d.Compounds))
	for _, c := range d.Configurations {
		names = append(names, c.Name)
	}
	for _, c := range d.Compounds {
		names = append(names, c.Name)
	}
	return names
}

// Value returns d as an object value: version, configurations, compounds,
// then the extra keys.
func (d *Document) Value() Value {
	obj := NewObject()
	if d.Version != "" {
		obj.Set("version", String(d.Version))
	}
	obj.Set("configurations", configurationValues(d.Configurations))
	if d.hasCompounds() {
		obj.Set("compounds", compoundValues(d.Compounds))
	}
	d.Extra.Range(func(k string, v Value) bool {
		if k != "version" && k != "configurations" && k != "compounds" {
			obj.Set(k, v)
		}
		return true
	})
	return ObjectValue(obj)
}

func configurationValues(cs []Configuration) Value {
	vs := make([]Value, len(cs))
	for i, c := range cs {
		vs[i] = c.Value()
	}
	return Array(vs...)
}

func compoundValues(cs []Compound) Value {
	vs := make([]Value, len(cs))
	for i, c := range cs {
		vs[i] = c.Value()
	}
	return Array(vs...)
}
