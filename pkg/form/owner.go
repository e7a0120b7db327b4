package form

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/goliatone/go-actionform/pkg/model"
	"github.com/goliatone/go-actionform/pkg/params"
)

// ErrCapabilityNotFound reports a predicate that no node in the owner chain
// and no host provides.
var ErrCapabilityNotFound = errors.New("form: capability not found")

// CapabilityError names the missing predicate and the node that asked.
type CapabilityError struct {
	Name string
	Node string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("form: %s: no owner provides %q", e.Node, e.Name)
}

func (e *CapabilityError) Unwrap() error {
	return ErrCapabilityNotFound
}

// Node is a runtime tree member. Owner is the node that built it; Resolve
// looks a predicate up on the node, then strictly upward.
type Node interface {
	NodeName() string
	Owner() Node
	Resolve(name string) (params.Predicate, error)
}

// Container is a node with children.
type Container interface {
	Node
	Nodes() []Node
}

type predicateSource interface {
	ownPredicate(name string) (params.Predicate, bool)
}

func resolve(start Node, name string) (params.Predicate, error) {
	key := predicateKey(name)
	for cur := start; cur != nil; cur = cur.Owner() {
		src, ok := cur.(predicateSource)
		if !ok {
			continue
		}
		if fn, ok := src.ownPredicate(key); ok {
			return fn, nil
		}
	}
	return nil, &CapabilityError{Name: name, Node: start.NodeName()}
}

func bindPredicates(n Node, defs map[string]PredicateFunc, key string) (params.Predicate, bool) {
	fn, ok := defs[key]
	if !ok {
		return nil, false
	}
	return func() (bool, error) { return fn(n) }, true
}

// Host supplies predicates from outside the form, typically the controller
// or view that builds it.
type Host interface {
	Predicate(name string) (params.Predicate, bool)
}

// HostFuncs is a Host backed by a map. Keys may carry a trailing "?".
type HostFuncs map[string]func() (bool, error)

// Predicate implements Host.
func (h HostFuncs) Predicate(name string) (params.Predicate, bool) {
	key := predicateKey(name)
	for candidate, fn := range h {
		if predicateKey(candidate) == key && fn != nil {
			return fn, true
		}
	}
	return nil, false
}

// HostObject exposes the methods of v as predicates: "name_render?" maps to
// a method NameRender with signature func() bool or func() (bool, error).
func HostObject(v any) Host {
	return hostObject{value: reflect.ValueOf(v)}
}

type hostObject struct {
	value reflect.Value
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func (h hostObject) Predicate(name string) (params.Predicate, bool) {
	if !h.value.IsValid() {
		return nil, false
	}
	method := h.value.MethodByName(model.CamelCase(predicateKey(name)))
	if !method.IsValid() {
		return nil, false
	}
	mt := method.Type()
	if mt.NumIn() != 0 || mt.NumOut() == 0 || mt.Out(0).Kind() != reflect.Bool {
		return nil, false
	}
	switch {
	case mt.NumOut() == 1:
		return func() (bool, error) {
			return method.Call(nil)[0].Bool(), nil
		}, true
	case mt.NumOut() == 2 && mt.Out(1).Implements(errorType):
		return func() (bool, error) {
			out := method.Call(nil)
			if err, _ := out[1].Interface().(error); err != nil {
				return false, err
			}
			return out[0].Bool(), nil
		}, true
	}
	return nil, false
}

// Walk visits n and its descendants depth first. Collection templates are
// not visited.
func Walk(n Node, fn func(Node) error) error {
	if n == nil {
		return nil
	}
	if err := fn(n); err != nil {
		return err
	}
	c, ok := n.(Container)
	if !ok {
		return nil
	}
	for _, child := range c.Nodes() {
		if err := Walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}
