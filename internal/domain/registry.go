package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Object is implemented by every domain type reachable through the generic
// accessor commands and the change notifier.
type Object interface {
	Ref() Ref
	Tenant() string
	Clone() Object
}

// ServiceResolver resolves a named business service for accessors that
// delegate domain operations. Satisfied by the service locator.
type ServiceResolver interface {
	ResolveService(name string) (any, error)
}

var (
	ErrUnknownClass    = errors.New("unknown class")
	ErrUnknownAccessor = errors.New("unknown accessor")
	ErrBadArgument     = errors.New("bad argument")
)

type AccessorKind int

const (
	AccessorGet AccessorKind = iota
	AccessorSet
	AccessorInvoke
)

type ParamType int

const (
	ParamString ParamType = iota
	ParamInt
	ParamFloat
	ParamBool
)

// accessorPrefixes is the allow-list of accessor name prefixes. A name
// outside this list can never be registered, so a client-supplied name
// outside it can never execute.
var accessorPrefixes = []string{"get", "set", "is", "mark", "assign", "compute"}

func allowedAccessorName(name string) bool {
	for _, p := range accessorPrefixes {
		if strings.HasPrefix(name, p) && len(name) > len(p) {
			return true
		}
	}
	return false
}

// Accessor is one entry in a class's closed accessor table. Exactly one of
// Get, Set, Invoke is non-nil, matching Kind.
type Accessor struct {
	Name     string
	Kind     AccessorKind
	Property string // for getters: the property name projected by subscriptions
	Params   []ParamType
	Mutates  bool

	Get    func(Object) any
	Set    func(Object, any) error
	Invoke func(ServiceResolver, Object, []any) (any, error)
}

// ClassDescriptor describes one registered domain class: its wire name, its
// server-side qualified name, whether subscriptions may target it, and its
// accessor table.
type ClassDescriptor struct {
	Name       string
	Qualified  string
	Notifiable bool

	accessors  map[string]*Accessor
	properties map[string]*Accessor // getters keyed by property name
}

func newClassDescriptor(name string, notifiable bool) *ClassDescriptor {
	return &ClassDescriptor{
		Name:       name,
		Qualified:  "floorlink.domain." + name,
		Notifiable: notifiable,
		accessors:  make(map[string]*Accessor),
		properties: make(map[string]*Accessor),
	}
}

func (d *ClassDescriptor) add(a *Accessor) {
	if !allowedAccessorName(a.Name) {
		panic(fmt.Sprintf("domain: accessor %s.%s has no allow-listed prefix", d.Name, a.Name))
	}
	if _, ok := d.accessors[a.Name]; ok {
		panic(fmt.Sprintf("domain: duplicate accessor %s.%s", d.Name, a.Name))
	}
	d.accessors[a.Name] = a
	if a.Kind == AccessorGet && a.Property != "" {
		d.properties[a.Property] = a
	}
}

func (d *ClassDescriptor) getter(name, property string, fn func(Object) any) {
	d.add(&Accessor{Name: name, Kind: AccessorGet, Property: property, Get: fn})
}

func (d *ClassDescriptor) setter(name string, param ParamType, fn func(Object, any) error) {
	d.add(&Accessor{Name: name, Kind: AccessorSet, Params: []ParamType{param}, Mutates: true, Set: fn})
}

func (d *ClassDescriptor) method(name string, params []ParamType, mutates bool, fn func(ServiceResolver, Object, []any) (any, error)) {
	d.add(&Accessor{Name: name, Kind: AccessorInvoke, Params: params, Mutates: mutates, Invoke: fn})
}

// Accessor returns the named accessor, or ErrUnknownAccessor. The prefix
// check runs first so a rejected name is indistinguishable from an
// unregistered one.
func (d *ClassDescriptor) Accessor(name string) (*Accessor, error) {
	if !allowedAccessorName(name) {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAccessor, d.Name, name)
	}
	a, ok := d.accessors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAccessor, d.Name, name)
	}
	return a, nil
}

// Property returns the getter for a projected property name, if the class
// has one.
func (d *ClassDescriptor) Property(name string) (*Accessor, bool) {
	a, ok := d.properties[name]
	return a, ok
}

// Classes is the closed registry of domain classes clients may name over the
// wire. It is built once at the composition root and immutable afterwards,
// so it is safe for concurrent use without locking.
type Classes struct {
	byName map[string]*ClassDescriptor
}

// Resolve maps a client-supplied short class name to its descriptor. Unknown
// names are rejected here, before any store or accessor resolution.
func (c *Classes) Resolve(name string) (*ClassDescriptor, error) {
	d, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, name)
	}
	return d, nil
}

// Names returns the registered short class names.
func (c *Classes) Names() []string {
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	return names
}

// ConvertArgs type-checks and converts raw (JSON-decoded) arguments against
// an accessor's declared parameter types, failing closed on arity or type
// mismatch.
func ConvertArgs(a *Accessor, raw []any) ([]any, error) {
	if len(raw) != len(a.Params) {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrBadArgument, a.Name, len(a.Params), len(raw))
	}
	out := make([]any, len(raw))
	for i, v := range raw {
		converted, err := convertArg(a.Params[i], v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s argument %d: %v", ErrBadArgument, a.Name, i, err)
		}
		out[i] = converted
	}
	return out, nil
}

func convertArg(t ParamType, v any) (any, error) {
	switch t {
	case ParamString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	case ParamInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case float64:
			if n != float64(int(n)) {
				return nil, fmt.Errorf("expected integer, got %v", n)
			}
			return int(n), nil
		}
		return nil, fmt.Errorf("expected integer, got %T", v)
	case ParamFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		}
		return nil, fmt.Errorf("expected number, got %T", v)
	case ParamBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unsupported parameter type %d", t)
}
