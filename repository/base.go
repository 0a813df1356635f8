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
	"fmt"
	"strings"
	"time"

	"github.com/tomoncle/strata/database"
	"github.com/tomoncle/strata/entity"
	"github.com/tomoncle/strata/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

type baseRepositoryImpl[T entity.Entity] struct {
	db     *bun.DB
	schema *entity.Schema[T]
	style  UpsertStyle
	stmts  Statements
	logger database.Logger
}

// NewRepository returns a repository for the shape described by s, backed
// by the provided Bun DB.
func NewRepository[T entity.Entity](db *bun.DB, s *entity.Schema[T]) Repository[T] {
	style := UpsertStyleFor(db.Dialect())
	return &baseRepositoryImpl[T]{
		db:     db,
		schema: s,
		style:  style,
		stmts:  BuildStatementsFor(s, db.Dialect()),
		logger: database.GetLogger(),
	}
}

func (r *baseRepositoryImpl[T]) Schema() *entity.Schema[T] { return r.schema }

func (r *baseRepositoryImpl[T]) Dialect() schema.Dialect { return r.db.Dialect() }

func (r *baseRepositoryImpl[T]) DB() *bun.DB { return r.db }

func (r *baseRepositoryImpl[T]) Save(ctx context.Context, e T) error {
	const op = "Save"
	persisted := entity.IsPersisted(e)
	statement := r.stmts.Insert(persisted)
	if statement == "" {
		return &entity.MappingError{
			Shape:  r.schema.Shape(),
			Reason: fmt.Sprintf("dialect %s has no upsert statement", r.db.Dialect().Name()),
		}
	}
	values, err := r.schema.Values(e)
	if err != nil {
		return err
	}
	query, args, err := bindNamed(r.schema.Shape(), statement, values)
	if err != nil {
		return err
	}

	var id int64
	err = r.run(ctx, op, statement, func(conn bun.Conn) error {
		if r.style == UpsertOnDuplicateKey {
			res, err := conn.ExecContext(ctx, query, args...)
			if err != nil {
				return err
			}
			if id, err = res.LastInsertId(); err != nil {
				return err
			}
			if persisted && id != 0 && id != e.GetID() {
				return fmt.Errorf("duplicate key value: row %d holds a unique value of record %d", id, e.GetID())
			}
			return nil
		}
		if err := conn.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return err
		}
		if persisted && r.stmts.SyncIdentity != "" {
			syncQuery, syncArgs, err := bindNamed(r.schema.Shape(), r.stmts.SyncIdentity,
				[]sql.NamedArg{sql.Named(r.schema.IdentityColumn(), id)})
			if err != nil {
				return err
			}
			_, err = conn.ExecContext(ctx, syncQuery, syncArgs...)
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	if id != 0 {
		e.SetID(id)
	}
	return nil
}

func (r *baseRepositoryImpl[T]) SaveAll(ctx context.Context, es ...T) *BatchResult {
	result := &BatchResult{}
	for i, e := range es {
		if err := r.Save(ctx, e); err != nil {
			r.logger.Error("Bulk save failed, continuing",
				"table", r.schema.TableName(), "index", i, "id", e.GetID(), "error", err)
			result.Failures = append(result.Failures, BatchFailure{Index: i, ID: e.GetID(), Err: err})
			continue
		}
		result.Saved++
	}
	return result
}

func (r *baseRepositoryImpl[T]) FindByID(ctx context.Context, id int64) (T, error) {
	return r.findOne(ctx, "FindByID", r.stmts.SelectByID, sql.Named(r.schema.IdentityColumn(), id))
}

func (r *baseRepositoryImpl[T]) FindByColumn(ctx context.Context, column string, value interface{}) (T, error) {
	return r.findByLookup(ctx, "FindByColumn", column, value)
}

func (r *baseRepositoryImpl[T]) FindByDiscordID(ctx context.Context, discordID string) (T, error) {
	return r.findByLookup(ctx, "FindByDiscordID", DiscordIDColumn, discordID)
}

func (r *baseRepositoryImpl[T]) FindByEmail(ctx context.Context, email string) (T, error) {
	return r.findByLookup(ctx, "FindByEmail", EmailColumn, email)
}

func (r *baseRepositoryImpl[T]) FindByUsername(ctx context.Context, username string) (T, error) {
	return r.findByLookup(ctx, "FindByUsername", UsernameColumn, username)
}

func (r *baseRepositoryImpl[T]) FindByAccountID(ctx context.Context, accountID string) (T, error) {
	return r.findByLookup(ctx, "FindByAccountID", entity.AccountIDColumn, accountID)
}

func (r *baseRepositoryImpl[T]) FindByTemplateID(ctx context.Context, templateID string) (T, error) {
	return r.findByLookup(ctx, "FindByTemplateID", TemplateIDColumn, templateID)
}

func (r *baseRepositoryImpl[T]) findByLookup(ctx context.Context, op, column string, value interface{}) (T, error) {
	if !r.schema.IsLookupColumn(column) {
		var zero T
		return zero, r.unsupported(op, fmt.Sprintf("column %q is not a lookup key", column))
	}
	column = strings.ToLower(column)
	return r.findOne(ctx, op, r.stmts.SelectByColumn(column), sql.Named(column, value))
}

func (r *baseRepositoryImpl[T]) FindByProfileIDAndAccountID(ctx context.Context, profileID, accountID string) (T, error) {
	const op = "FindByProfileIDAndAccountID"
	if !r.schema.Supports(entity.ProfileScoped) {
		var zero T
		return zero, r.unsupported(op, "")
	}
	return r.findOne(ctx, op, r.stmts.SelectByProfile,
		sql.Named(entity.ProfileIDColumn, profileID),
		sql.Named(entity.AccountIDColumn, accountID),
	)
}

func (r *baseRepositoryImpl[T]) FindAllByAccountID(ctx context.Context, accountID, profileID string) ([]T, error) {
	const op = "FindAllByAccountID"
	if !r.schema.Supports(entity.ProfileScoped) {
		return nil, r.unsupported(op, "")
	}
	return r.findAll(ctx, op, r.stmts.SelectAllScoped,
		sql.Named(entity.AccountIDColumn, accountID),
		sql.Named(entity.ProfileIDColumn, profileID),
	)
}

func (r *baseRepositoryImpl[T]) GetAll(ctx context.Context) ([]T, error) {
	return r.findAll(ctx, "GetAll", r.stmts.SelectAll)
}

func (r *baseRepositoryImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]T, error) {
	where, args, err := r.bindFilter(filter)
	if err != nil {
		return nil, err
	}
	statement := r.stmts.SelectWhere(where, "")
	return r.queryAll(ctx, "List", statement, statement, args)
}

func (r *baseRepositoryImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	const op = "Page"
	if page == nil {
		page = types.NewDefaultPageRequest(1, 10)
	}
	orderBy, err := r.orderBy(page.GetOrders())
	if err != nil {
		return nil, err
	}
	where, args, err := r.bindFilter(page.GetFilter())
	if err != nil {
		return nil, err
	}

	pagination := types.NewDefaultPagination[T](page.GetPage(), page.GetPageSize())
	count := r.stmts.CountWhere(where)
	var total int
	err = r.run(ctx, op, count, func(conn bun.Conn) error {
		return conn.QueryRowContext(ctx, count, args...).Scan(&total)
	})
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return pagination, nil
	}

	if len(args) == 0 {
		// the page bounds make this statement formatted even without filter args
		where = escapeQuoted(where)
	}
	statement := r.stmts.SelectWhere(where, orderBy) + " LIMIT ? OFFSET ?"
	records, err := r.queryAll(ctx, op, statement, statement,
		append(args, page.GetPageSize(), page.GetOffset()))
	if err != nil {
		return nil, err
	}
	pagination.Total = total
	pagination.Items = records
	return pagination, nil
}

// bindFilter rewrites the filter's @name tokens, if any, to positional
// placeholders.
func (r *baseRepositoryImpl[T]) bindFilter(filter *types.QueryFilter) (string, []interface{}, error) {
	if filter == nil {
		return "", nil, nil
	}
	named, positional, err := splitArgs(r.schema.Shape(), filter.Args)
	if err != nil {
		return "", nil, err
	}
	if len(named) == 0 {
		if len(positional) == 0 {
			return filter.Schema, nil, nil
		}
		return escapeQuoted(filter.Schema), positional, nil
	}
	return bindNamed(r.schema.Shape(), filter.Schema, named)
}

// orderBy validates "column [ASC|DESC]" entries against the schema.
func (r *baseRepositoryImpl[T]) orderBy(orders []string) (string, error) {
	terms := make([]string, 0, len(orders))
	for _, o := range orders {
		parts := strings.Fields(o)
		if len(parts) == 0 {
			continue
		}
		valid := len(parts) <= 2 && r.schema.HasColumn(parts[0])
		if len(parts) == 2 {
			dir := strings.ToUpper(parts[1])
			valid = valid && (dir == "ASC" || dir == "DESC")
			parts[1] = dir
		}
		if !valid {
			return "", &entity.MappingError{Shape: r.schema.Shape(), Reason: fmt.Sprintf("invalid order %q", o)}
		}
		terms = append(terms, strings.Join(parts, " "))
	}
	return strings.Join(terms, ", "), nil
}

func (r *baseRepositoryImpl[T]) Update(ctx context.Context, e T) error {
	values, err := r.schema.Values(e)
	if err != nil {
		return err
	}
	if !entity.IsPersisted(e) {
		values = append(values, sql.Named(r.schema.IdentityColumn(), e.GetID()))
	}
	return r.exec(ctx, "Update", r.stmts.Update, values...)
}

func (r *baseRepositoryImpl[T]) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, "Delete", r.stmts.DeleteByID, sql.Named(r.schema.IdentityColumn(), id))
}

func (r *baseRepositoryImpl[T]) DeleteByType(ctx context.Context, accountID, typ string) error {
	const op = "DeleteByType"
	if !r.schema.Supports(entity.TypeScopedDelete) {
		return r.unsupported(op, "")
	}
	return r.exec(ctx, op, r.stmts.DeleteByType,
		sql.Named(entity.AccountIDColumn, accountID),
		sql.Named(entity.TypeColumn, typ),
	)
}

func (r *baseRepositoryImpl[T]) findOne(ctx context.Context, op, statement string, named ...sql.NamedArg) (T, error) {
	var zero T
	query, args, err := bindNamed(r.schema.Shape(), statement, named)
	if err != nil {
		return zero, err
	}

	e := r.schema.New()
	err = r.run(ctx, op, statement, func(conn bun.Conn) error {
		err := conn.QueryRowContext(ctx, query, args...).Scan(r.schema.ScanTargets(e)...)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", r.schema.TableName(), ErrNotFound)
		}
		return err
	})
	if err != nil {
		return zero, err
	}
	return e, nil
}

func (r *baseRepositoryImpl[T]) findAll(ctx context.Context, op, statement string, named ...sql.NamedArg) ([]T, error) {
	query, args, err := bindNamed(r.schema.Shape(), statement, named)
	if err != nil {
		return nil, err
	}
	return r.queryAll(ctx, op, statement, query, args)
}

func (r *baseRepositoryImpl[T]) queryAll(ctx context.Context, op, statement, query string, args []interface{}) ([]T, error) {
	records := make([]T, 0)
	err := r.run(ctx, op, statement, func(conn bun.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			e := r.schema.New()
			if err := rows.Scan(r.schema.ScanTargets(e)...); err != nil {
				return err
			}
			records = append(records, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *baseRepositoryImpl[T]) exec(ctx context.Context, op, statement string, named ...sql.NamedArg) error {
	query, args, err := bindNamed(r.schema.Shape(), statement, named)
	if err != nil {
		return err
	}
	return r.run(ctx, op, statement, func(conn bun.Conn) error {
		res, err := conn.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil {
			r.logger.Debug("Rows affected", "op", op, "table", r.schema.TableName(), "rows", n)
		}
		return nil
	})
}

// run acquires one pooled connection, runs fn on it and releases it on
// every path. Failures other than ErrNotFound come back as *StoreError.
func (r *baseRepositoryImpl[T]) run(ctx context.Context, op, statement string, fn func(conn bun.Conn) error) error {
	start := time.Now()
	err := func() error {
		conn, err := r.db.Conn(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = conn.Close() }()
		return fn(conn)
	}()
	elapsed := time.Since(start)

	r.logger.Debug("Repository operation", "op", op, "table", r.schema.TableName(), "elapsed_ms", elapsed.Milliseconds())
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}

	_, kind := database.IsSqlError(err)
	r.logger.Error("Repository operation failed",
		"op", op,
		"table", r.schema.TableName(),
		"elapsed_ms", elapsed.Milliseconds(),
		"kind", kind,
		"statement", statement,
		"error", err,
	)
	return &StoreError{
		Op:        op,
		Table:     r.schema.TableName(),
		Statement: statement,
		Elapsed:   elapsed,
		Kind:      kind,
		Err:       err,
	}
}

func (r *baseRepositoryImpl[T]) unsupported(op, detail string) error {
	return &UnsupportedOperationError{Op: op, Shape: r.schema.Shape(), Detail: detail}
}
