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
	"database/sql"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// DefaultIdentityColumn is the primary key column used unless a shape
// declares another one.
const DefaultIdentityColumn = "id"

// Columns the scoped operations filter on.
const (
	AccountIDColumn = "accountid"
	ProfileIDColumn = "profileid"
	TypeColumn      = "type"
)

// requiredColumns lists the columns a capability filters on.
var requiredColumns = map[Capability][]string{
	ProfileScoped:    {ProfileIDColumn, AccountIDColumn},
	TypeScopedDelete: {AccountIDColumn, TypeColumn},
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Capability marks a shape as supporting a domain-specific operation.
type Capability uint8

const (
	// SecondaryLookup allows lookups by one of the shape's lookup columns.
	SecondaryLookup Capability = 1 << iota
	// ProfileScoped allows lookups by (profileid, accountid).
	ProfileScoped
	// TypeScopedDelete allows deletes by (accountid, type).
	TypeScopedDelete
)

func (c Capability) String() string {
	var names []string
	if c&SecondaryLookup != 0 {
		names = append(names, "secondary-lookup")
	}
	if c&ProfileScoped != 0 {
		names = append(names, "profile-scoped")
	}
	if c&TypeScopedDelete != 0 {
		names = append(names, "type-scoped-delete")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

type options struct {
	table    string
	identity string
	lookups  []string
	caps     Capability
}

// Option customises a schema.
type Option func(*options)

// WithTable overrides the derived table name.
func WithTable(name string) Option {
	return func(o *options) { o.table = name }
}

// WithIdentityColumn overrides the identity column name.
func WithIdentityColumn(name string) Option {
	return func(o *options) { o.identity = name }
}

// WithLookupColumns whitelists columns usable for secondary-key lookups and
// grants SecondaryLookup.
func WithLookupColumns(columns ...string) Option {
	return func(o *options) {
		o.lookups = append(o.lookups, columns...)
		o.caps |= SecondaryLookup
	}
}

// WithCapabilities grants domain-specific operations.
func WithCapabilities(caps Capability) Option {
	return func(o *options) { o.caps |= caps }
}

// Schema is the field descriptor table of shape T. It is immutable once
// built and safe for concurrent use.
type Schema[T Entity] struct {
	shape     string
	table     string
	identity  string
	fields    []Field[T]
	newFn     func() T
	lookups   map[string]struct{}
	caps      Capability
	updateSet string
}

// NewSchema builds the descriptor table for T. newFn must return a fresh,
// non-nil record.
func NewSchema[T Entity](newFn func() T, fields []Field[T], opts ...Option) (*Schema[T], error) {
	o := options{identity: DefaultIdentityColumn}
	for _, opt := range opts {
		opt(&o)
	}

	if newFn == nil {
		return nil, mappingErrorf("anonymous", "no constructor declared")
	}
	shape := shapeName(newFn())
	if len(fields) == 0 {
		return nil, mappingErrorf(shape, "no persistable fields declared")
	}

	table := o.table
	if table == "" {
		table = inflection.Plural(underscore(shape))
	}
	if !identifierPattern.MatchString(table) {
		return nil, mappingErrorf(shape, "invalid table name %q", table)
	}
	if !identifierPattern.MatchString(o.identity) {
		return nil, mappingErrorf(shape, "invalid identity column %q", o.identity)
	}

	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		name := strings.ToLower(f.column)
		switch {
		case !identifierPattern.MatchString(f.column):
			return nil, mappingErrorf(shape, "invalid column name %q", f.column)
		case name == strings.ToLower(o.identity):
			return nil, mappingErrorf(shape, "identity column %q must not be declared as a field", f.column)
		case f.value == nil || f.target == nil:
			return nil, mappingErrorf(shape, "column %q has no accessor", f.column)
		}
		if _, dup := seen[name]; dup {
			return nil, mappingErrorf(shape, "duplicate column %q", f.column)
		}
		seen[name] = struct{}{}
	}

	lookups := make(map[string]struct{}, len(o.lookups))
	for _, c := range o.lookups {
		name := strings.ToLower(c)
		if _, ok := seen[name]; !ok {
			return nil, mappingErrorf(shape, "lookup column %q is not a declared field", c)
		}
		lookups[name] = struct{}{}
	}

	for c, cols := range requiredColumns {
		if o.caps&c == 0 {
			continue
		}
		for _, col := range cols {
			if _, ok := seen[col]; !ok {
				return nil, mappingErrorf(shape, "capability %s requires column %q", c, col)
			}
		}
	}

	s := &Schema[T]{
		shape:    shape,
		table:    table,
		identity: o.identity,
		fields:   append([]Field[T](nil), fields...),
		newFn:    newFn,
		lookups:  lookups,
		caps:     o.caps,
	}
	assignments := make([]string, len(s.fields))
	for i, f := range s.fields {
		assignments[i] = fmt.Sprintf("%s = @%s", f.column, f.column)
	}
	s.updateSet = strings.Join(assignments, ", ")
	return s, nil
}

// MustSchema is like NewSchema but panics on error. Intended for
// package-level schema variables.
func MustSchema[T Entity](newFn func() T, fields []Field[T], opts ...Option) *Schema[T] {
	s, err := NewSchema(newFn, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema[T]) Shape() string { return s.shape }

func (s *Schema[T]) TableName() string { return s.table }

func (s *Schema[T]) IdentityColumn() string { return s.identity }

func (s *Schema[T]) Capabilities() Capability { return s.caps }

// New returns a fresh unsaved record.
func (s *Schema[T]) New() T { return s.newFn() }

// Supports reports whether every capability in c was granted.
func (s *Schema[T]) Supports(c Capability) bool { return s.caps&c == c }

// IsLookupColumn reports whether column is whitelisted for secondary lookups.
func (s *Schema[T]) IsLookupColumn(column string) bool {
	if !s.Supports(SecondaryLookup) {
		return false
	}
	_, ok := s.lookups[strings.ToLower(column)]
	return ok
}

// HasColumn reports whether column is the identity or a declared field.
func (s *Schema[T]) HasColumn(column string) bool {
	if strings.EqualFold(column, s.identity) {
		return true
	}
	for _, f := range s.fields {
		if strings.EqualFold(f.column, column) {
			return true
		}
	}
	return false
}

// FieldColumns returns the declared field columns, identity excluded.
func (s *Schema[T]) FieldColumns() []string {
	cols := make([]string, len(s.fields))
	for i, f := range s.fields {
		cols[i] = f.column
	}
	return cols
}

// each is the single ordered enumeration every insert fragment is derived
// from. The identity comes first and only for persisted records; f is nil
// for it.
func (s *Schema[T]) each(persisted bool, fn func(column string, f *Field[T])) {
	if persisted {
		fn(s.identity, nil)
	}
	for i := range s.fields {
		fn(s.fields[i].column, &s.fields[i])
	}
}

// ColumnsFor returns the insert column list for an unsaved or persisted record.
func (s *Schema[T]) ColumnsFor(persisted bool) []string {
	var cols []string
	s.each(persisted, func(column string, _ *Field[T]) {
		cols = append(cols, column)
	})
	return cols
}

// PlaceholdersFor returns the insert placeholders aligned with ColumnsFor.
func (s *Schema[T]) PlaceholdersFor(persisted bool) []string {
	var params []string
	s.each(persisted, func(column string, _ *Field[T]) {
		params = append(params, "@"+column)
	})
	return params
}

// ColumnNames returns the insert column list for e.
func (s *Schema[T]) ColumnNames(e T) []string {
	return s.ColumnsFor(IsPersisted(e))
}

// ParameterPlaceholders returns one @column token per entry of ColumnNames(e).
func (s *Schema[T]) ParameterPlaceholders(e T) []string {
	return s.PlaceholdersFor(IsPersisted(e))
}

// UpdateSetClause returns "col = @col, ..." over every field column.
func (s *Schema[T]) UpdateSetClause() string { return s.updateSet }

// Values returns the encoded values of e named after, and ordered like,
// ColumnNames(e).
func (s *Schema[T]) Values(e T) ([]sql.NamedArg, error) {
	var (
		args []sql.NamedArg
		err  error
	)
	s.each(IsPersisted(e), func(column string, f *Field[T]) {
		if err != nil {
			return
		}
		if f == nil {
			args = append(args, sql.Named(column, e.GetID()))
			return
		}
		v, encErr := f.value(e)
		if encErr != nil {
			err = &MappingError{Shape: s.shape, Reason: fmt.Sprintf("encode column %q", column), Err: encErr}
			return
		}
		args = append(args, sql.Named(column, v))
	})
	if err != nil {
		return nil, err
	}
	return args, nil
}

// SelectList returns the identity followed by every field column, in the
// order ScanTargets expects.
func (s *Schema[T]) SelectList() string {
	return strings.Join(append([]string{s.identity}, s.FieldColumns()...), ", ")
}

// ScanTargets returns destinations for a row selected with SelectList.
func (s *Schema[T]) ScanTargets(e T) []interface{} {
	targets := make([]interface{}, 0, len(s.fields)+1)
	targets = append(targets, identityTarget{e: e})
	for _, f := range s.fields {
		targets = append(targets, f.target(e))
	}
	return targets
}

// identityTarget scans the identity column through SetID.
type identityTarget struct {
	e Entity
}

func (t identityTarget) Scan(value interface{}) error {
	id, err := toInt64(value)
	if err != nil {
		return fmt.Errorf("entity: scan identity: %w", err)
	}
	t.e.SetID(id)
	return nil
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported identity type %T", value)
	}
}

func shapeName(v interface{}) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "anonymous"
	}
	return t.Name()
}

// underscore converts a Go identifier to snake_case: ItemAttribute ->
// item_attribute, HTTPToken -> http_token.
func underscore(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
