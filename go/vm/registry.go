// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package vm

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Interpreter implementations register a factory under a name, usually in
// the init function of their package. Importing an implementation package
// is thus sufficient to make it available through NewInterpreter. Names
// are not case-sensitive.

// InterpreterFactory creates an Interpreter from an implementation specific
// configuration. A nil configuration selects the default.
type InterpreterFactory func(config any) (Interpreter, error)

type registry struct {
	mutex     sync.Mutex
	factories map[string]InterpreterFactory
}

var interpreters = registry{factories: map[string]InterpreterFactory{}}

func (r *registry) get(name string) InterpreterFactory {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.factories[strings.ToLower(name)]
}

func (r *registry) add(name string, factory InterpreterFactory) error {
	key := strings.ToLower(name)
	if factory == nil {
		return fmt.Errorf("cannot register nil factory as %q", key)
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if _, found := r.factories[key]; found {
		return fmt.Errorf("interpreter %q is already registered", key)
	}
	r.factories[key] = factory
	return nil
}

func (r *registry) snapshot() map[string]InterpreterFactory {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return maps.Clone(r.factories)
}

// NewInterpreter creates an instance of the interpreter registered under the
// given name. At most one configuration may be given; without it the
// factory receives nil.
func NewInterpreter(name string, config ...any) (Interpreter, error) {
	var c any
	switch len(config) {
	case 0:
	case 1:
		c = config[0]
	default:
		return nil, fmt.Errorf("expected at most one configuration, got %d", len(config))
	}
	factory := interpreters.get(name)
	if factory == nil {
		return nil, fmt.Errorf("unknown interpreter %q, registered are %v", name, RegisteredInterpreterNames())
	}
	return factory(c)
}

// GetInterpreterFactory returns the factory registered under the given name
// or nil if there is none.
func GetInterpreterFactory(name string) InterpreterFactory {
	return interpreters.get(name)
}

// GetAllRegisteredInterpreters returns a copy of the registry content.
func GetAllRegisteredInterpreters() map[string]InterpreterFactory {
	return interpreters.snapshot()
}

// RegisteredInterpreterNames lists the registered names in lower case and
// sorted order.
func RegisteredInterpreterNames() []string {
	names := maps.Keys(interpreters.snapshot())
	slices.Sort(names)
	return names
}

// RegisterInterpreterFactory makes an implementation available under the
// given name. Names can not be registered twice.
func RegisterInterpreterFactory(name string, factory InterpreterFactory) error {
	return interpreters.add(name, factory)
}
