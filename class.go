package injectfactory

import (
	"reflect"
	"sort"
	"sync"

	"github.com/xraph/injectfactory/errors"
)

// Class names the type a destination produces. Name is what destination
// definitions refer to as their source; Type is used to check cached
// objects against the configuration.
type Class struct {
	Name string
	Type reflect.Type
}

// ClassOf builds a Class for T.
func ClassOf[T any](name string) Class {
	return Class{Name: name, Type: reflect.TypeFor[T]()}
}

// Accepts reports whether v can stand in for the class: its dynamic type is
// the class type, is assignable to it, or implements it when the class type
// is an interface.
func (c Class) Accepts(v any) bool {
	if v == nil || c.Type == nil {
		return false
	}

	vt := reflect.TypeOf(v)
	return vt == c.Type || vt.AssignableTo(c.Type)
}

func (c Class) String() string {
	if c.Type == nil {
		return c.Name
	}
	return c.Name + "(" + c.Type.String() + ")"
}

// ClassRegistry maps source names to classes.
type ClassRegistry struct {
	mu      sync.RWMutex
	classes map[string]Class
}

// NewClassRegistry creates an empty registry.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{classes: make(map[string]Class)}
}

// Register adds class under class.Name.
func (r *ClassRegistry) Register(class Class) error {
	if class.Name == "" {
		return errors.ErrEmptyClass
	}
	if class.Type == nil {
		return errors.ErrValidationError("type", errors.New("class '"+class.Name+"' has no type"))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.classes[class.Name]; exists {
		return errors.ErrClassAlreadyExists(class.Name)
	}

	r.classes[class.Name] = class
	return nil
}

// RegisterClass registers T under name.
func RegisterClass[T any](r *ClassRegistry, name string) error {
	return r.Register(ClassOf[T](name))
}

// MustRegisterClass registers T under name and panics on failure. Use only
// during startup.
func MustRegisterClass[T any](r *ClassRegistry, name string) {
	if err := RegisterClass[T](r, name); err != nil {
		panic(err)
	}
}

// Lookup returns the class registered under name.
func (r *ClassRegistry) Lookup(name string) (Class, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	class, ok := r.classes[name]
	if !ok {
		return Class{}, errors.ErrClassNotFound(name)
	}
	return class, nil
}

// Names returns the registered names in sorted order.
func (r *ClassRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
