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

	"github.com/tomoncle/strata/entity"
	"github.com/tomoncle/strata/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

// CrudRepository defines identity keyed operations for an entity shape.
type CrudRepository[T entity.Entity] interface {
	// Save inserts e, or overwrites the row with e's identity, and writes the
	// stored identity back onto e.
	Save(ctx context.Context, e T) error

	// SaveAll saves every record, logging and collecting failures instead of
	// stopping at the first one.
	SaveAll(ctx context.Context, es ...T) *BatchResult

	// FindByID returns the row with the given identity or ErrNotFound.
	FindByID(ctx context.Context, id int64) (T, error)

	// GetAll returns every row ordered by identity.
	GetAll(ctx context.Context) ([]T, error)

	// Update overwrites every column of the row with e's identity. A missing
	// row is not an error.
	Update(ctx context.Context, e T) error

	// Delete removes the row with the given identity. A missing row is not
	// an error.
	Delete(ctx context.Context, id int64) error
}

// LookupRepository defines secondary-key lookups. They fail with
// *UnsupportedOperationError unless the schema whitelists the column.
type LookupRepository[T entity.Entity] interface {
	FindByColumn(ctx context.Context, column string, value interface{}) (T, error)
	FindByDiscordID(ctx context.Context, discordID string) (T, error)
	FindByEmail(ctx context.Context, email string) (T, error)
	FindByUsername(ctx context.Context, username string) (T, error)
	FindByAccountID(ctx context.Context, accountID string) (T, error)
	FindByTemplateID(ctx context.Context, templateID string) (T, error)
}

// ScopedRepository defines account and profile scoped operations, available
// on shapes granted entity.ProfileScoped or entity.TypeScopedDelete.
type ScopedRepository[T entity.Entity] interface {
	FindByProfileIDAndAccountID(ctx context.Context, profileID, accountID string) (T, error)
	FindAllByAccountID(ctx context.Context, accountID, profileID string) ([]T, error)
	DeleteByType(ctx context.Context, accountID, typ string) error
}

// ListRepository defines filtered reads. Filters are WHERE fragments written
// by the caller; orders may only name columns of the shape.
type ListRepository[T entity.Entity] interface {
	// List returns the rows matching filter, every row when filter is nil,
	// ordered by identity.
	List(ctx context.Context, filter *types.QueryFilter) ([]T, error)

	// Page returns one page of the rows matching the request's filter.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)
}

// Repository combines every operation and exposes what Query needs.
type Repository[T entity.Entity] interface {
	CrudRepository[T]
	LookupRepository[T]
	ScopedRepository[T]
	ListRepository[T]
	Schema() *entity.Schema[T]
	Dialect() schema.Dialect
	DB() *bun.DB
}
