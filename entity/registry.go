/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package entity

import (
	"sort"
	"sync"
)

var defaultRegistry = newRegistry()

// Mapping is the type-erased view of a Schema used by tooling that walks
// every registered shape.
type Mapping interface {
	Shape() string
	TableName() string
	IdentityColumn() string
	Capabilities() Capability
	FieldColumns() []string
	ColumnsFor(persisted bool) []string
	PlaceholdersFor(persisted bool) []string
	UpdateSetClause() string
	SelectList() string
}

var _ Mapping = (*Schema[*Base])(nil)

// Registry stores mappings and exposes them in a deterministic order.
type Registry interface {
	Register(m Mapping, priority int)
	Mappings() []Mapping
	Lookup(table string) (Mapping, bool)
}

type registered struct {
	mapping  Mapping
	priority int
}

type registry struct {
	entries []registered
	mutex   sync.RWMutex
}

func newRegistry() Registry {
	return &registry{entries: make([]registered, 0)}
}

// NewRegistry returns an empty registry, independent from the default one.
func NewRegistry() Registry {
	return newRegistry()
}

// Register adds m; a mapping for an already registered table replaces it.
func (r *registry) Register(m Mapping, priority int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for i, e := range r.entries {
		if e.mapping.TableName() == m.TableName() {
			r.entries[i] = registered{mapping: m, priority: priority}
			return
		}
	}
	r.entries = append(r.entries, registered{mapping: m, priority: priority})
}

// Mappings returns every mapping ordered by priority, lower first, then by
// table name.
func (r *registry) Mappings() []Mapping {
	r.mutex.RLock()
	entries := make([]registered, len(r.entries))
	copy(entries, r.entries)
	r.mutex.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return entries[i].mapping.TableName() < entries[j].mapping.TableName()
	})
	result := make([]Mapping, len(entries))
	for i, e := range entries {
		result[i] = e.mapping
	}
	return result
}

func (r *registry) Lookup(table string) (Mapping, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	for _, e := range r.entries {
		if e.mapping.TableName() == table {
			return e.mapping, true
		}
	}
	return nil, false
}

// Register adds a mapping to the default registry.
func Register(m Mapping, priority int) {
	defaultRegistry.Register(m, priority)
}

// Registered returns the default registry's mappings in priority order.
func Registered() []Mapping {
	return defaultRegistry.Mappings()
}

// LookupTable finds a mapping in the default registry by table name.
func LookupTable(table string) (Mapping, bool) {
	return defaultRegistry.Lookup(table)
}
