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

package strata

import (
	"context"
	"errors"
	"sync"

	"github.com/tomoncle/strata/database"
	"github.com/tomoncle/strata/entity"
	"github.com/tomoncle/strata/repository"
	"github.com/tomoncle/strata/types"
	"github.com/uptrace/bun"
)

// ErrNotInitialized is returned by services used before Setup.
var ErrNotInitialized = errors.New("strata: database not initialized")

type Service[T entity.Entity] interface {
	// Get returns the record with the given identity.
	Get(ctx context.Context, id int64) (T, error)

	// All returns every record ordered by identity.
	All(ctx context.Context) ([]T, error)

	// List returns the records that match the provided filter.
	List(ctx context.Context, filter *types.QueryFilter) ([]T, error)

	// Page returns a paginated list of records.
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Save upserts records one by one. With several records every one is
	// attempted and the failures are joined.
	Save(ctx context.Context, records ...T) error

	// Update overwrites an existing record.
	Update(ctx context.Context, record T) error

	// Delete removes a record by its identity.
	Delete(ctx context.Context, id int64) error

	// Repository returns the underlying repository.
	Repository() (repository.Repository[T], error)
}

// Setup connects the global database described by p.
func Setup(ctx context.Context, p database.AbstractDatabaseConfigProvider) (*bun.DB, error) {
	return database.InitDB(ctx, p.ConfigLoader())
}

type baseServiceImpl[T entity.Entity] struct {
	schema *entity.Schema[T]
	db     *bun.DB
	repo   repository.Repository[T]
	mu     sync.Mutex
}

// NewService returns a Service for the shape described by s, backed by the
// global database connection once Setup has run.
func NewService[T entity.Entity](s *entity.Schema[T]) Service[T] {
	return &baseServiceImpl[T]{schema: s}
}

// NewServiceWithDB returns a Service bound to db.
func NewServiceWithDB[T entity.Entity](db *bun.DB, s *entity.Schema[T]) Service[T] {
	return &baseServiceImpl[T]{schema: s, db: db}
}

func (s *baseServiceImpl[T]) Repository() (repository.Repository[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo == nil {
		db := s.db
		if db == nil {
			db = database.GetDB()
		}
		if db == nil {
			return nil, ErrNotInitialized
		}
		s.repo = repository.NewRepository(db, s.schema)
	}
	return s.repo, nil
}

func (s *baseServiceImpl[T]) Get(ctx context.Context, id int64) (T, error) {
	repo, err := s.Repository()
	if err != nil {
		var zero T
		return zero, err
	}
	return repo.FindByID(ctx, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.GetAll(ctx)
}

func (s *baseServiceImpl[T]) List(ctx context.Context, filter *types.QueryFilter) ([]T, error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, filter)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	repo, err := s.Repository()
	if err != nil {
		return nil, err
	}
	return repo.Page(ctx, page)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, records ...T) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	if len(records) == 1 {
		return repo.Save(ctx, records[0])
	}
	return repo.SaveAll(ctx, records...).Err()
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, record T) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	return repo.Update(ctx, record)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id int64) error {
	repo, err := s.Repository()
	if err != nil {
		return err
	}
	return repo.Delete(ctx, id)
}
