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
	"fmt"
	"strings"

	"github.com/tomoncle/strata/entity"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

// Secondary-key columns behind the named lookups.
const (
	DiscordIDColumn  = "discordid"
	EmailColumn      = "email"
	UsernameColumn   = "username"
	TemplateIDColumn = "templateid"
)

// UpsertStyle is the insert-or-update form a dialect supports.
type UpsertStyle int

const (
	UpsertUnsupported UpsertStyle = iota
	// UpsertOnConflict is INSERT ... ON CONFLICT DO UPDATE ... RETURNING.
	UpsertOnConflict
	// UpsertOnDuplicateKey is INSERT ... ON DUPLICATE KEY UPDATE.
	UpsertOnDuplicateKey
)

func (s UpsertStyle) String() string {
	switch s {
	case UpsertOnConflict:
		return "on-conflict"
	case UpsertOnDuplicateKey:
		return "on-duplicate-key"
	default:
		return "unsupported"
	}
}

// UpsertStyleFor picks the upsert form from the dialect's feature flags.
func UpsertStyleFor(d schema.Dialect) UpsertStyle {
	features := d.Features()
	switch {
	case features.Has(feature.InsertOnConflict) && features.Has(feature.InsertReturning):
		return UpsertOnConflict
	case features.Has(feature.InsertOnDuplicateKey):
		return UpsertOnDuplicateKey
	default:
		return UpsertUnsupported
	}
}

// Statements holds the statement templates of one shape. Placeholders are
// @column tokens. Scoped statements are empty unless the shape has the
// matching capability, and the inserts are empty when the dialect has no
// upsert. SyncIdentity is only set for Postgres.
type Statements struct {
	InsertUnsaved   string
	InsertPersisted string
	SelectByID      string
	SelectAll       string
	Update          string
	DeleteByID      string
	SelectByProfile string
	SelectAllScoped string
	DeleteByType    string
	SyncIdentity    string
	table           string
	identity        string
	selectList      string
}

// BuildStatements renders the statement templates of m for the given
// upsert style.
func BuildStatements(m entity.Mapping, style UpsertStyle) Statements {
	table, id, list := m.TableName(), m.IdentityColumn(), m.SelectList()
	st := Statements{
		SelectByID: fmt.Sprintf("SELECT %s FROM %s WHERE %s = @%s", list, table, id, id),
		SelectAll:  fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", list, table, id),
		Update:     fmt.Sprintf("UPDATE %s SET %s WHERE %s = @%s", table, m.UpdateSetClause(), id, id),
		DeleteByID: fmt.Sprintf("DELETE FROM %s WHERE %s = @%s", table, id, id),
		table:      table,
		identity:   id,
		selectList: list,
	}
	st.InsertUnsaved = upsertStatement(m, style, false)
	st.InsertPersisted = upsertStatement(m, style, true)

	caps := m.Capabilities()
	if caps&entity.ProfileScoped != 0 {
		st.SelectByProfile = fmt.Sprintf("SELECT %s FROM %s WHERE %s = @%s AND %s = @%s ORDER BY %s LIMIT 1",
			list, table, entity.ProfileIDColumn, entity.ProfileIDColumn, entity.AccountIDColumn, entity.AccountIDColumn, id)
		st.SelectAllScoped = fmt.Sprintf("SELECT %s FROM %s WHERE %s = @%s AND %s = @%s ORDER BY %s",
			list, table, entity.AccountIDColumn, entity.AccountIDColumn, entity.ProfileIDColumn, entity.ProfileIDColumn, id)
	}
	if caps&entity.TypeScopedDelete != 0 {
		st.DeleteByType = fmt.Sprintf("DELETE FROM %s WHERE %s = @%s AND %s = @%s",
			table, entity.AccountIDColumn, entity.AccountIDColumn, entity.TypeColumn, entity.TypeColumn)
	}
	return st
}

// BuildStatementsFor renders the statement templates of m for dialect d.
func BuildStatementsFor(m entity.Mapping, d schema.Dialect) Statements {
	st := BuildStatements(m, UpsertStyleFor(d))
	if d.Name() == dialect.PG {
		st.SyncIdentity = identitySyncStatement(m)
	}
	return st
}

// Insert returns the upsert template for an unsaved or persisted record.
func (st Statements) Insert(persisted bool) string {
	if persisted {
		return st.InsertPersisted
	}
	return st.InsertUnsaved
}

// SelectByColumn returns the first-match lookup on column.
func (st Statements) SelectByColumn(column string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = @%s ORDER BY %s LIMIT 1",
		st.selectList, st.table, column, column, st.identity)
}

// SelectWhere returns a select over the rows matching where, which may be
// empty, ordered by orderBy or by identity when orderBy is empty.
func (st Statements) SelectWhere(where, orderBy string) string {
	if orderBy == "" {
		orderBy = st.identity
	}
	return fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s", st.selectList, st.table, whereClause(where), orderBy)
}

// CountWhere returns a row count over the rows matching where.
func (st Statements) CountWhere(where string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", st.table, whereClause(where))
}

func whereClause(where string) string {
	if where = strings.TrimSpace(where); where == "" {
		return ""
	}
	return " WHERE " + where
}

// All lists every non-empty template with a label, in a fixed order.
func (st Statements) All() [][2]string {
	var out [][2]string
	for _, s := range [][2]string{
		{"insert", st.InsertUnsaved},
		{"insert (persisted)", st.InsertPersisted},
		{"select by id", st.SelectByID},
		{"select all", st.SelectAll},
		{"update", st.Update},
		{"delete by id", st.DeleteByID},
		{"select by profile", st.SelectByProfile},
		{"select all by account", st.SelectAllScoped},
		{"delete by type", st.DeleteByType},
		{"sync identity", st.SyncIdentity},
	} {
		if s[1] != "" {
			out = append(out, s)
		}
	}
	return out
}

// String renders every template as "label: statement" lines.
func (st Statements) String() string {
	var b strings.Builder
	for _, s := range st.All() {
		fmt.Fprintf(&b, "%s: %s\n", s[0], s[1])
	}
	return b.String()
}

// upsertStatement renders the insert of an unsaved record, which never
// carries a conflict branch, or the upsert of a persisted one. The MySQL
// upsert fires on any unique key, so every assignment is guarded by the
// identity and LAST_INSERT_ID reports which row was hit.
func upsertStatement(m entity.Mapping, style UpsertStyle, persisted bool) string {
	table, id := m.TableName(), m.IdentityColumn()
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table,
		strings.Join(m.ColumnsFor(persisted), ", "),
		strings.Join(m.PlaceholdersFor(persisted), ", "))
	switch {
	case style == UpsertOnConflict && !persisted:
		return fmt.Sprintf("%s RETURNING %s", insert, id)
	case style == UpsertOnConflict:
		return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s RETURNING %s",
			insert, id, m.UpdateSetClause(), id)
	case style == UpsertOnDuplicateKey && !persisted:
		return insert
	case style == UpsertOnDuplicateKey:
		guarded := make([]string, 0, len(m.FieldColumns()))
		for _, c := range m.FieldColumns() {
			guarded = append(guarded, fmt.Sprintf("%s = IF(%s = @%s, @%s, %s)", c, id, id, c, c))
		}
		return fmt.Sprintf("%s ON DUPLICATE KEY UPDATE %s = LAST_INSERT_ID(%s), %s",
			insert, id, id, strings.Join(guarded, ", "))
	default:
		return ""
	}
}

// identitySyncStatement moves a Postgres identity sequence forward to a
// caller-chosen identity, so later generated identities never reach it.
func identitySyncStatement(m entity.Mapping) string {
	seq := fmt.Sprintf("pg_get_serial_sequence('%s', '%s')", m.TableName(), m.IdentityColumn())
	return fmt.Sprintf("SELECT setval(%s, @%s) WHERE @%s > COALESCE(pg_sequence_last_value(%s::regclass), 0)",
		seq, m.IdentityColumn(), m.IdentityColumn(), seq)
}
