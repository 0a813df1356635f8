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
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/strata/database"
	"github.com/tomoncle/strata/entity"
	"github.com/tomoncle/strata/types"
)

func TestScenario_InsertThenUpsert(t *testing.T) {
	ctx := context.Background()
	db, _ := newSQLite(t)
	repo := NewRepository(db, playerSchema)

	p := &Player{Name: "a"}
	require.NoError(t, repo.Save(ctx, p))
	assert.EqualValues(t, 1, p.ID)

	require.NoError(t, repo.Save(ctx, &Player{Base: entity.Base{ID: 1}, Name: "b"}))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*Player{{Base: entity.Base{ID: 1}, Name: "b"}}, all)

	_, err = repo.FindByID(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSave_UnsavedRecordsGetDistinctIdentities(t *testing.T) {
	ctx := context.Background()
	db, _ := newSQLite(t)
	repo := NewRepository(db, playerSchema)

	a, b := &Player{Name: "same"}, &Player{Name: "same"}
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, repo.Save(ctx, b))
	assert.NotZero(t, a.ID)
	assert.NotZero(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)

	got, err := repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

// A persisted-looking record whose row is missing is inserted with the
// caller's identity and later generated identities skip past it.
func TestSave_MissingRowKeepsCallerIdentity(t *testing.T) {
	ctx := context.Background()
	db, _ := newSQLite(t)
	repo := NewRepository(db, playerSchema)

	ghost := &Player{Base: entity.Base{ID: 40}, Name: "ghost"}
	require.NoError(t, repo.Save(ctx, ghost))
	assert.EqualValues(t, 40, ghost.ID)

	got, err := repo.FindByID(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, "ghost", got.Name)

	next := &Player{Name: "next"}
	require.NoError(t, repo.Save(ctx, next))
	assert.Greater(t, next.ID, int64(40))
}

func TestRoundTrip_Grant(t *testing.T) {
	ctx := context.Background()
	db, _ := newSQLite(t)
	repo := NewRepository(db, grantSchema)

	g := &Grant{
		AccountID:  "acc",
		ProfileID:  "athena",
		TemplateID: "AthenaGlider:DefaultGlider",
		Type:       "cosmetic",
		Quantity:   2,
		Attrs:      map[string]interface{}{"item_seen": false, "platform": "EpicPC"},
	}
	require.NoError(t, repo.Save(ctx, g))

	byID, err := repo.FindByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g, byID)

	byTemplate, err := repo.FindByTemplateID(ctx, g.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, g, byTemplate)

	byAccount, err := repo.FindByColumn(ctx, "AccountID", "acc")
	require.NoError(t, err)
	assert.Equal(t, g.ID, byAccount.ID)

	scoped, err := repo.FindByProfileIDAndAccountID(ctx, "athena", "acc")
	require.NoError(t, err)
	assert.Equal(t, g.ID, scoped.ID)

	_, err = repo.FindByProfileIDAndAccountID(ctx, "common_core", "acc")
	assert.ErrorIs(t, err, ErrNotFound)

	// a nil map comes back nil
	empty := &Grant{AccountID: "acc", ProfileID: "athena", TemplateID: "stat:level"}
	require.NoError(t, repo.Save(ctx, empty))
	got, err := repo.FindByID(ctx, empty.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Attrs)
}

func TestScopedReadsAndDeletes(t *testing.T) {
	ctx := context.Background()
	db, _ := newSQLite(t)
	repo := NewRepository(db, grantSchema)

	seed := []*Grant{
		{AccountID: "acc", ProfileID: "athena", TemplateID: "a", Type: "cosmetic"},
		{AccountID: "acc", ProfileID: "common_core", TemplateID: "b", Type: "currency"},
		{AccountID: "acc", ProfileID: "athena", TemplateID: "c", Type: "stat"},
		{AccountID: "other", ProfileID: "athena", TemplateID: "d", Type: "stat"},
	}
	res := repo.SaveAll(ctx, seed...)
	require.True(t, res.OK(), "%v", res.Err())
	assert.Equal(t, 4, res.Saved)

	athena, err := repo.FindAllByAccountID(ctx, "acc", "athena")
	require.NoError(t, err)
	require.Len(t, athena, 2)
	assert.Equal(t, "a", athena[0].TemplateID)
	assert.Equal(t, "c", athena[1].TemplateID)

	require.NoError(t, repo.DeleteByType(ctx, "acc", "stat"))
	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	var templates []string
	for _, g := range all {
		templates = append(templates, g.TemplateID)
	}
	assert.Equal(t, []string{"a", "b", "d"}, templates)

	none, err := repo.FindAllByAccountID(ctx, "nobody", "athena")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSaveAll_BestEffort(t *testing.T) {
	ctx := context.Background()
	db, _ := newSQLite(t)
	repo := NewRepository(db, grantSchema)

	batch := []*Grant{
		{AccountID: "acc", ProfileID: "athena", TemplateID: "dup"},
		{AccountID: "acc", ProfileID: "athena", TemplateID: "dup"},
		{AccountID: "acc", ProfileID: "athena", TemplateID: "after"},
	}
	res := repo.SaveAll(ctx, batch...)
	assert.Equal(t, 2, res.Saved)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Failures[0].Index)
	assert.False(t, res.OK())
	assert.Error(t, res.Err())

	var storeErr *StoreError
	require.True(t, errors.As(res.Failures[0].Err, &storeErr))
	assert.Equal(t, database.DuplicateKeyErr, storeErr.Kind)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2, "earlier saves are not rolled back")
	assert.NotZero(t, batch[2].ID)
}

func TestDeleteAndUpdate_MissingRows(t *testing.T) {
	ctx := context.Background()
	db, _ := newSQLite(t)
	repo := NewRepository(db, playerSchema)

	require.NoError(t, repo.Save(ctx, &Player{Name: "keep"}))

	require.NoError(t, repo.Delete(ctx, 999))
	require.NoError(t, repo.Delete(ctx, 999))
	require.NoError(t, repo.Update(ctx, &Player{Base: entity.Base{ID: 42}, Name: "nobody"}))
	require.NoError(t, repo.Update(ctx, &Player{Name: "unsaved"}))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "keep", all[0].Name)

	all[0].Name = "kept"
	require.NoError(t, repo.Update(ctx, all[0]))
	got, err := repo.FindByID(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Name)

	require.NoError(t, repo.Delete(ctx, all[0].ID))
	_, err = repo.FindByID(ctx, all[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnsupported_NoStoreCalls_SQLite(t *testing.T) {
	ctx := context.Background()
	db, counter := newSQLite(t)
	repo := NewRepository(db, playerSchema)

	_, err := repo.FindByEmail(ctx, "a@b.c")
	var uErr *UnsupportedOperationError
	require.True(t, errors.As(err, &uErr))
	assert.Equal(t, "Player", uErr.Shape)

	_, err = NewRepository(db, grantSchema).FindByColumn(ctx, "quantity", 1)
	require.True(t, errors.As(err, &uErr))
	assert.Contains(t, uErr.Error(), "quantity")

	assert.Zero(t, counter.Count())
}

func TestStoreError_MissingTable(t *testing.T) {
	ctx := context.Background()
	db, _ := newSQLite(t)
	ghosts := entity.MustSchema(func() *Player { return &Player{} }, []entity.Field[*Player]{
		entity.Column("name", func(p *Player) *string { return &p.Name }),
	}, entity.WithTable("ghosts"))
	repo := NewRepository(db, ghosts)

	_, err := repo.GetAll(ctx)
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr), "got %v", err)
	assert.Equal(t, "GetAll", storeErr.Op)
	assert.Equal(t, "SELECT id, name FROM ghosts ORDER BY id", storeErr.Statement)
	assert.Equal(t, database.NoTableErr, storeErr.Kind)
	assert.Contains(t, storeErr.Error(), "no-table")

	page, err := repo.Page(ctx, nil)
	assert.Nil(t, page)
	require.True(t, errors.As(err, &storeErr), "got %v", err)
	assert.Equal(t, "Page", storeErr.Op)
	assert.Equal(t, "SELECT COUNT(*) FROM ghosts", storeErr.Statement)
	assert.Zero(t, db.Stats().InUse)
}

func TestContextCancelled(t *testing.T) {
	db, _ := newSQLite(t)
	repo := NewRepository(db, playerSchema)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := repo.Save(ctx, &Player{Name: "late"})
	assert.ErrorIs(t, err, context.Canceled)

	all, err := repo.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestConcurrentCallers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, _ := newSQLite(t)
	repo := NewRepository(db, playerSchema)

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n*2)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := &Player{Name: "p"}
			if err := repo.Save(ctx, p); err != nil {
				errs <- err
				return
			}
			if _, err := repo.FindByID(ctx, p.ID); err != nil {
				errs <- err
			}
			if _, err := repo.FindByEmail(ctx, "x"); err == nil {
				errs <- errors.New("lookup should be rejected")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, n)
	seen := map[int64]bool{}
	for _, p := range all {
		assert.False(t, seen[p.ID], "duplicate id %d", p.ID)
		seen[p.ID] = true
	}
	assert.Zero(t, db.Stats().InUse)
}

type nameCount struct {
	Name  string
	Total int64
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	db, _ := newSQLite(t)
	repo := NewRepository(db, playerSchema)
	require.True(t, repo.SaveAll(ctx, &Player{Name: "a"}, &Player{Name: "b"}, &Player{Name: "a"}).OK())

	ids, err := Query[int64](ctx, repo, "SELECT id FROM players WHERE name = @Name ORDER BY id", sql.Named("name", "a"))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)

	counts, err := Query[nameCount](ctx, repo, "SELECT name, COUNT(*) AS total FROM players GROUP BY name ORDER BY name")
	require.NoError(t, err)
	assert.Equal(t, []nameCount{{"a", 2}, {"b", 1}}, counts)

	names, err := Query[string](ctx, repo, "SELECT name FROM players WHERE id > ? ORDER BY id", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, names)

	empty, err := Query[int64](ctx, repo, "SELECT id FROM players WHERE name = @name", sql.Named("name", "zzz"))
	require.NoError(t, err)
	assert.Empty(t, empty)

	var mErr *entity.MappingError
	_, err = Query[int64](ctx, repo, "SELECT id FROM players WHERE name = @missing", sql.Named("name", "a"))
	assert.True(t, errors.As(err, &mErr))
	_, err = Query[int64](ctx, repo, "SELECT id FROM players WHERE name = ?", "a", sql.Named("name", "a"))
	assert.True(t, errors.As(err, &mErr))

	_, err = Query[int64](ctx, repo, "SELECT id FROM nowhere")
	require.Error(t, err)
	var storeErr *StoreError
	assert.False(t, errors.As(err, &storeErr), "query errors are returned as-is")
	assert.Equal(t, database.NoTableErr, database.Classify(err))
	assert.Zero(t, db.Stats().InUse)
}

func TestListAndPage(t *testing.T) {
	ctx := context.Background()
	db, counter := newSQLite(t)
	repo := NewRepository(db, grantSchema)

	for i, tmpl := range []string{"e", "d", "c", "b", "a"} {
		g := &Grant{AccountID: "acc", ProfileID: "athena", TemplateID: tmpl, Quantity: i}
		require.NoError(t, repo.Save(ctx, g))
	}
	require.NoError(t, repo.Save(ctx, &Grant{AccountID: "other", ProfileID: "athena", TemplateID: "z"}))

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	named, err := repo.List(ctx, types.NewQueryFilter("accountid = @acc AND quantity >= @min",
		sql.Named("acc", "acc"), sql.Named("min", 3)))
	require.NoError(t, err)
	require.Len(t, named, 2)
	assert.Equal(t, "b", named[0].TemplateID)

	positional, err := repo.List(ctx, types.NewQueryFilter("accountid = ?", "other"))
	require.NoError(t, err)
	require.Len(t, positional, 1)
	assert.Equal(t, "z", positional[0].TemplateID)

	filter := types.NewQueryFilter("accountid = @accountid", sql.Named("accountid", "acc"))
	page, err := repo.Page(ctx, types.NewPageRequest(2, 2, filter, []string{"templateid asc"}))
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.Pages())
	require.Len(t, page.Items, 2)
	assert.Equal(t, "c", page.Items[0].TemplateID)
	assert.Equal(t, "d", page.Items[1].TemplateID)

	last, err := repo.Page(ctx, types.NewPageRequest(3, 2, filter, nil))
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.Equal(t, "a", last.Items[0].TemplateID)

	empty, err := repo.Page(ctx, types.NewPageRequestWithFilter(1, 10, types.NewQueryFilter("accountid = ?", "nobody")))
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Empty(t, empty.Items)

	defaults, err := repo.Page(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, defaults.Total)
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, 10, defaults.PageSize)
	assert.Len(t, defaults.Items, 6)

	counter.Reset()
	for _, orders := range [][]string{{"nope"}, {"name DESC"}, {"templateid sideways"}, {"id; DROP TABLE grants"}} {
		_, err := repo.Page(ctx, types.NewPageRequestWithOrders(1, 10, orders))
		var mErr *entity.MappingError
		assert.True(t, errors.As(err, &mErr), "%v", orders)
	}
	assert.Zero(t, counter.Count())
}

func TestQuotedQuestionMarks(t *testing.T) {
	ctx := context.Background()
	db, _ := newSQLite(t)
	repo := NewRepository(db, playerSchema)
	require.True(t, repo.SaveAll(ctx, &Player{Name: "who?"}, &Player{Name: "bob"}, &Player{Name: "x"}).OK())

	for _, tc := range []struct {
		statement string
		args      []interface{}
		want      []string
	}{
		{"SELECT name FROM players WHERE name = 'who?' OR name = @name ORDER BY id", []interface{}{sql.Named("name", "bob")}, []string{"who?", "bob"}},
		{"SELECT name FROM players WHERE name = 'who?' OR name = ? ORDER BY id", []interface{}{"x"}, []string{"who?", "x"}},
		{"SELECT name FROM players WHERE name = 'who?'", nil, []string{"who?"}},
		{"SELECT name FROM players WHERE name IN ('who?', 'it''s?') AND id > @id", []interface{}{sql.Named("id", 0)}, []string{"who?"}},
	} {
		names, err := Query[string](ctx, repo, tc.statement, tc.args...)
		require.NoError(t, err, tc.statement)
		assert.Equal(t, tc.want, names, tc.statement)
	}

	for _, filter := range []*types.QueryFilter{
		types.NewQueryFilter("name = 'who?' OR name = ?", "x"),
		types.NewQueryFilter("name = 'who?' OR name = @name", sql.Named("name", "x")),
	} {
		listed, err := repo.List(ctx, filter)
		require.NoError(t, err, filter.Schema)
		require.Len(t, listed, 2, filter.Schema)
		assert.Equal(t, "who?", listed[0].Name)
		assert.Equal(t, "x", listed[1].Name)
	}

	only, err := repo.List(ctx, types.NewQueryFilter("name = 'who?'"))
	require.NoError(t, err)
	require.Len(t, only, 1)

	page, err := repo.Page(ctx, types.NewPageRequestWithFilter(1, 10, types.NewQueryFilter("name <> 'who?'")))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "bob", page.Items[0].Name)
}
