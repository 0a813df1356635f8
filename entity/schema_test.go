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
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Widget struct {
	Base
	Name  string
	Tags  []string
	Count int
	cache string
}

func widgetFields() []Field[*Widget] {
	return []Field[*Widget]{
		Column("name", func(w *Widget) *string { return &w.Name }),
		JSONColumn("tags", func(w *Widget) *[]string { return &w.Tags }),
		Column("count", func(w *Widget) *int { return &w.Count }),
	}
}

func newWidgetSchema(t *testing.T, opts ...Option) *Schema[*Widget] {
	t.Helper()
	s, err := NewSchema(func() *Widget { return &Widget{} }, widgetFields(), opts...)
	require.NoError(t, err)
	return s
}

type token struct {
	Base
	AccountID string
	Type      string
}

type ItemAttribute struct {
	Base
	Property string
}

func TestNewSchema_TableName(t *testing.T) {
	assert.Equal(t, "widgets", newWidgetSchema(t).TableName())
	assert.Equal(t, "gadgets", newWidgetSchema(t, WithTable("gadgets")).TableName())

	attrs, err := NewSchema(func() *ItemAttribute { return &ItemAttribute{} }, []Field[*ItemAttribute]{
		Column("property", func(a *ItemAttribute) *string { return &a.Property }),
	})
	require.NoError(t, err)
	assert.Equal(t, "item_attributes", attrs.TableName())
	assert.Equal(t, "ItemAttribute", attrs.Shape())
}

func TestUnderscore(t *testing.T) {
	for _, tc := range []struct {
		in, want string
	}{
		{"User", "user"},
		{"ItemAttribute", "item_attribute"},
		{"HTTPToken", "http_token"},
		{"userID", "user_id"},
		{"loadout", "loadout"},
	} {
		assert.Equal(t, tc.want, underscore(tc.in), tc.in)
	}
}

func TestNewSchema_MappingErrors(t *testing.T) {
	newFn := func() *Widget { return &Widget{} }
	name := func(w *Widget) *string { return &w.Name }

	for _, tc := range []struct {
		name   string
		fields []Field[*Widget]
		opts   []Option
	}{
		{name: "no fields"},
		{name: "duplicate column", fields: []Field[*Widget]{Column("name", name), Column("NAME", name)}},
		{name: "identity as field", fields: []Field[*Widget]{Column("id", name)}},
		{name: "invalid column", fields: []Field[*Widget]{Column("name; drop", name)}},
		{name: "invalid table", fields: []Field[*Widget]{Column("name", name)}, opts: []Option{WithTable("a b")}},
		{name: "unknown lookup", fields: []Field[*Widget]{Column("name", name)}, opts: []Option{WithLookupColumns("email")}},
		{name: "profile scope without columns", fields: []Field[*Widget]{Column("name", name)}, opts: []Option{WithCapabilities(ProfileScoped)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSchema(newFn, tc.fields, tc.opts...)
			assert.Nil(t, s)
			var mErr *MappingError
			require.True(t, errors.As(err, &mErr), "got %v", err)
			assert.Equal(t, "Widget", mErr.Shape)
		})
	}

	assert.Panics(t, func() { MustSchema(newFn, nil) })
}

func TestSchema_InsertFragments(t *testing.T) {
	s := newWidgetSchema(t)

	unsaved := &Widget{Name: "a"}
	assert.Equal(t, []string{"name", "tags", "count"}, s.ColumnNames(unsaved))
	assert.Equal(t, []string{"@name", "@tags", "@count"}, s.ParameterPlaceholders(unsaved))

	saved := &Widget{Base: Base{ID: 9}, Name: "a"}
	assert.Equal(t, []string{"id", "name", "tags", "count"}, s.ColumnNames(saved))
	assert.Equal(t, []string{"@id", "@name", "@tags", "@count"}, s.ParameterPlaceholders(saved))

	assert.Equal(t, "name = @name, tags = @tags, count = @count", s.UpdateSetClause())
	assert.Equal(t, "id, name, tags, count", s.SelectList())
}

func TestSchema_Values(t *testing.T) {
	s := newWidgetSchema(t)
	w := &Widget{Base: Base{ID: 3}, Name: "a", Tags: []string{"x", "y"}, Count: 2, cache: "ignored"}

	values, err := s.Values(w)
	require.NoError(t, err)
	assert.Equal(t, []sql.NamedArg{
		sql.Named("id", int64(3)),
		sql.Named("name", "a"),
		sql.Named("tags", `["x","y"]`),
		sql.Named("count", 2),
	}, values)
}

func TestSchema_ScanTargets(t *testing.T) {
	s := newWidgetSchema(t)
	w := s.New()

	targets := s.ScanTargets(w)
	require.Len(t, targets, 4)
	require.NoError(t, targets[0].(sql.Scanner).Scan([]byte("42")))
	*(targets[1].(*string)) = "scanned"
	require.NoError(t, targets[2].(sql.Scanner).Scan(`["a"]`))
	*(targets[3].(*int)) = 5

	assert.Equal(t, &Widget{Base: Base{ID: 42}, Name: "scanned", Tags: []string{"a"}, Count: 5}, w)

	require.NoError(t, targets[2].(sql.Scanner).Scan(nil))
	assert.Nil(t, w.Tags)
	assert.Error(t, targets[2].(sql.Scanner).Scan(3.5))
	assert.Error(t, targets[0].(sql.Scanner).Scan(true))
}

func TestSchema_Capabilities(t *testing.T) {
	plain := newWidgetSchema(t)
	assert.False(t, plain.Supports(SecondaryLookup))
	assert.False(t, plain.IsLookupColumn("name"))
	assert.Equal(t, "none", plain.Capabilities().String())

	lookup := newWidgetSchema(t, WithLookupColumns("name"))
	assert.True(t, lookup.IsLookupColumn("NAME"))
	assert.False(t, lookup.IsLookupColumn("count"))
	assert.True(t, lookup.Supports(SecondaryLookup))
	assert.False(t, lookup.Supports(SecondaryLookup|TypeScopedDelete))
	assert.Equal(t, "secondary-lookup", lookup.Capabilities().String())

	tokens, err := NewSchema(func() *token { return &token{} }, []Field[*token]{
		Column("accountid", func(tk *token) *string { return &tk.AccountID }),
		Column("type", func(tk *token) *string { return &tk.Type }),
	}, WithLookupColumns("accountid"), WithCapabilities(TypeScopedDelete))
	require.NoError(t, err)
	assert.True(t, tokens.Supports(SecondaryLookup|TypeScopedDelete))
	assert.False(t, tokens.Supports(ProfileScoped))
	assert.Equal(t, "secondary-lookup,type-scoped-delete", tokens.Capabilities().String())

	assert.True(t, lookup.HasColumn("id"))
	assert.True(t, lookup.HasColumn("Count"))
	assert.False(t, lookup.HasColumn("cache"))
}

// bag is a synthetic shape whose column set is generated at runtime.
type bag struct {
	Base
	vals []interface{}
}

func TestSchema_ColumnPlaceholderAlignment(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	for shape := 0; shape < 200; shape++ {
		n := 1 + rnd.Intn(30)
		fields := make([]Field[*bag], n)
		for i := 0; i < n; i++ {
			idx := i
			fields[i] = Column(fmt.Sprintf("c%d_%d", shape, i), func(b *bag) *interface{} { return &b.vals[idx] })
		}
		s, err := NewSchema(func() *bag { return &bag{vals: make([]interface{}, n)} }, fields)
		require.NoError(t, err)

		b := s.New()
		if rnd.Intn(2) == 1 {
			b.SetID(int64(1 + rnd.Intn(1000)))
		}
		for i := range b.vals {
			b.vals[i] = rnd.Int()
		}

		cols := s.ColumnNames(b)
		params := s.ParameterPlaceholders(b)
		values, err := s.Values(b)
		require.NoError(t, err)

		require.Len(t, params, len(cols))
		require.Len(t, values, len(cols))
		for i := range cols {
			assert.Equal(t, "@"+cols[i], params[i])
			assert.Equal(t, cols[i], values[i].Name)
		}
		if IsPersisted(b) {
			assert.Equal(t, "id", cols[0])
			assert.Equal(t, n+1, len(cols))
		} else {
			assert.Equal(t, n, len(cols))
		}
	}
}

type session struct {
	Base
	Started time.Time
}

func TestTimeColumn(t *testing.T) {
	s, err := NewSchema(func() *session { return &session{} }, []Field[*session]{
		TimeColumn("started", func(x *session) *time.Time { return &x.Started }),
	})
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 10, 30, 0, 500, time.FixedZone("CET", 3600))
	values, err := s.Values(&session{Started: at})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01T09:30:00.0000005Z", values[0].Value)

	values, err = s.Values(&session{})
	require.NoError(t, err)
	assert.Nil(t, values[0].Value)

	for _, raw := range []interface{}{
		at,
		"2024-03-01T09:30:00.0000005Z",
		[]byte("2024-03-01 10:30:00.0000005+01:00"),
	} {
		x := s.New()
		target := s.ScanTargets(x)[1].(sql.Scanner)
		require.NoError(t, target.Scan(raw))
		assert.True(t, at.Equal(x.Started), "%v", raw)
		assert.Equal(t, time.UTC, x.Started.Location())
	}

	x := &session{Started: at}
	target := s.ScanTargets(x)[1].(sql.Scanner)
	require.NoError(t, target.Scan(nil))
	assert.True(t, x.Started.IsZero())
	assert.Error(t, target.Scan("yesterday"))
	assert.Error(t, target.Scan(42))
}
