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
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tomoncle/strata/database"
	"github.com/tomoncle/strata/entity"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Player is the smallest useful shape: an identity and one column.
type Player struct {
	entity.Base
	Name string
}

var playerSchema = entity.MustSchema(func() *Player { return &Player{} }, []entity.Field[*Player]{
	entity.Column("name", func(p *Player) *string { return &p.Name }),
})

// Grant exercises lookups, scoped reads, scoped deletes and JSON columns.
type Grant struct {
	entity.Base
	AccountID  string
	ProfileID  string
	TemplateID string
	Type       string
	Quantity   int
	Attrs      map[string]interface{}
}

var grantSchema = entity.MustSchema(func() *Grant { return &Grant{} }, []entity.Field[*Grant]{
	entity.Column("accountid", func(g *Grant) *string { return &g.AccountID }),
	entity.Column("profileid", func(g *Grant) *string { return &g.ProfileID }),
	entity.Column("templateid", func(g *Grant) *string { return &g.TemplateID }),
	entity.Column("type", func(g *Grant) *string { return &g.Type }),
	entity.Column("quantity", func(g *Grant) *int { return &g.Quantity }),
	entity.JSONColumn("attrs", func(g *Grant) *map[string]interface{} { return &g.Attrs }),
},
	entity.WithLookupColumns(entity.AccountIDColumn, TemplateIDColumn),
	entity.WithCapabilities(entity.ProfileScoped|entity.TypeScopedDelete),
)

const sqliteDDL = `
CREATE TABLE players (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE grants (
  id INTEGER PRIMARY KEY,
  accountid TEXT NOT NULL,
  profileid TEXT NOT NULL,
  templateid TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL DEFAULT 1,
  attrs TEXT
);`

// newSQLite opens a private in-memory database limited to one connection,
// so a leaked connection blocks the next operation.
func newSQLite(t *testing.T) (*bun.DB, *database.QueryCounter) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	for _, stmt := range strings.Split(sqliteDDL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	counter := &database.QueryCounter{}
	db.AddQueryHook(counter)
	return db, counter
}
