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
	"encoding/json"
	"fmt"
	"time"
)

// Field describes one persisted column of shape T: its name, how to read the
// value to bind, and where to scan the stored value back.
type Field[T any] struct {
	column string
	value  func(e T) (interface{}, error)
	target func(e T) interface{}
}

// Name returns the column name.
func (f Field[T]) Name() string { return f.column }

// Column declares a field stored as-is. ref must return the address of the
// field inside e.
func Column[T any, V any](name string, ref func(e T) *V) Field[T] {
	return Field[T]{
		column: name,
		value: func(e T) (interface{}, error) {
			return *ref(e), nil
		},
		target: func(e T) interface{} {
			return ref(e)
		},
	}
}

// JSONColumn declares a structured field stored as JSON text.
func JSONColumn[T any, V any](name string, ref func(e T) *V) Field[T] {
	return Field[T]{
		column: name,
		value: func(e T) (interface{}, error) {
			b, err := json.Marshal(ref(e))
			if err != nil {
				return nil, err
			}
			return string(b), nil
		},
		target: func(e T) interface{} {
			return &jsonText[V]{dst: ref(e)}
		},
	}
}

// jsonText decodes a text or bytea column into dst.
type jsonText[V any] struct {
	dst *V
}

func (j *jsonText[V]) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		var zero V
		*j.dst = zero
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("entity: cannot decode %T as JSON text", value)
	}
	if len(raw) == 0 {
		var zero V
		*j.dst = zero
		return nil
	}
	return json.Unmarshal(raw, j.dst)
}

// TimeColumn declares a time field stored as RFC 3339 text in UTC. The zero
// time is stored as NULL.
func TimeColumn[T any](name string, ref func(e T) *time.Time) Field[T] {
	return Field[T]{
		column: name,
		value: func(e T) (interface{}, error) {
			t := *ref(e)
			if t.IsZero() {
				return nil, nil
			}
			return t.UTC().Format(time.RFC3339Nano), nil
		},
		target: func(e T) interface{} {
			return &timeText{dst: ref(e)}
		},
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// timeText decodes native time values as well as their text forms.
type timeText struct {
	dst *time.Time
}

func (t *timeText) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case nil:
		*t.dst = time.Time{}
		return nil
	case time.Time:
		*t.dst = v.UTC()
		return nil
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("entity: cannot decode %T as time", value)
	}
	if s == "" {
		*t.dst = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t.dst = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("entity: cannot parse time %q", s)
}
