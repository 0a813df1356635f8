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
	"errors"
	"fmt"
	"time"

	"github.com/tomoncle/strata/database"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("repository: record not found")

// StoreError wraps a connectivity, constraint or statement failure.
type StoreError struct {
	Op        string
	Table     string
	Statement string
	Elapsed   time.Duration
	Kind      database.SQLError
	Err       error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("repository: %s on %s failed (%s): %v", e.Op, e.Table, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// UnsupportedOperationError reports an operation the shape does not allow.
// It is returned before any connection is acquired.
type UnsupportedOperationError struct {
	Op     string
	Shape  string
	Detail string
}

func (e *UnsupportedOperationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("repository: %s is not supported for %s: %s", e.Op, e.Shape, e.Detail)
	}
	return fmt.Sprintf("repository: %s is not supported for %s", e.Op, e.Shape)
}

// BatchFailure records one record SaveAll could not save.
type BatchFailure struct {
	Index int
	ID    int64
	Err   error
}

// BatchResult summarises a SaveAll call.
type BatchResult struct {
	Saved    int
	Failures []BatchFailure
}

// OK reports whether every record was saved.
func (r *BatchResult) OK() bool { return len(r.Failures) == 0 }

// Err joins the failures, nil when there are none.
func (r *BatchResult) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = fmt.Errorf("record %d: %w", f.Index, f.Err)
	}
	return errors.Join(errs...)
}
