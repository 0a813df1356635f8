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

package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/tomoncle/strata/entity"
)

// bindNamed rewrites the @name tokens of statement into Bun "?"
// placeholders and returns their values in order of appearance. Names match
// case-insensitively; tokens inside single-quoted literals and "@@"
// variables are left alone. Any other "?" is escaped so Bun keeps it
// literal. An unbound token is a *entity.MappingError.
func bindNamed(shape, statement string, named []sql.NamedArg) (string, []interface{}, error) {
	values := make(map[string]interface{}, len(named))
	for _, a := range named {
		values[strings.ToLower(a.Name)] = a.Value
	}

	var (
		b       strings.Builder
		args    []interface{}
		inQuote bool
	)
	b.Grow(len(statement))
	for i := 0; i < len(statement); i++ {
		c := statement[i]
		if c == '\'' {
			inQuote = !inQuote
		}
		if c == '?' {
			b.WriteString(`\?`)
			continue
		}
		if c != '@' || inQuote || i+1 == len(statement) || !isIdentStart(statement[i+1]) ||
			(i > 0 && (isIdentPart(statement[i-1]) || statement[i-1] == '@')) {
			b.WriteByte(c)
			continue
		}

		j := i + 1
		for j < len(statement) && isIdentPart(statement[j]) {
			j++
		}
		name := statement[i+1 : j]
		v, ok := values[strings.ToLower(name)]
		if !ok {
			return "", nil, &entity.MappingError{Shape: shape, Reason: fmt.Sprintf("no value bound to placeholder @%s", name)}
		}
		b.WriteByte('?')
		args = append(args, v)
		i = j - 1
	}
	if len(args) == 0 {
		// Bun leaves statements without arguments untouched, escapes included.
		return statement, nil, nil
	}
	return b.String(), args, nil
}

// escapeQuoted escapes every "?" inside a single-quoted literal of a
// statement bound with positional arguments.
func escapeQuoted(statement string) string {
	if !strings.Contains(statement, "?") {
		return statement
	}
	var (
		b       strings.Builder
		inQuote bool
	)
	b.Grow(len(statement) + 2)
	for i := 0; i < len(statement); i++ {
		c := statement[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
		case c == '?' && inQuote:
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// splitArgs separates sql.NamedArg values from positional ones. Mixing the
// two is rejected.
func splitArgs(shape string, args []interface{}) ([]sql.NamedArg, []interface{}, error) {
	var (
		named      []sql.NamedArg
		positional []interface{}
	)
	for _, a := range args {
		switch v := a.(type) {
		case sql.NamedArg:
			named = append(named, v)
		case *sql.NamedArg:
			named = append(named, *v)
		default:
			positional = append(positional, a)
		}
	}
	if len(named) > 0 && len(positional) > 0 {
		return nil, nil, &entity.MappingError{Shape: shape, Reason: "named and positional arguments cannot be mixed"}
	}
	return named, positional, nil
}
