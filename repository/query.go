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
	"time"

	"github.com/tomoncle/strata/database"
	"github.com/tomoncle/strata/entity"
)

// Query runs a caller-written statement on one pooled connection of repo and
// scans the rows into R with Bun: structs by column name, or single-column
// scalars. Pass sql.Named values for @name placeholders, or plain values for
// "?" placeholders. Store errors are logged with the statement and returned
// as-is.
func Query[R any, T entity.Entity](ctx context.Context, repo Repository[T], statement string, args ...interface{}) ([]R, error) {
	shape := repo.Schema().Shape()
	named, positional, err := splitArgs(shape, args)
	if err != nil {
		return nil, err
	}
	query := statement
	switch {
	case len(named) > 0:
		if query, positional, err = bindNamed(shape, statement, named); err != nil {
			return nil, err
		}
	case len(positional) > 0:
		query = escapeQuoted(statement)
	}

	logger := database.GetLogger()
	start := time.Now()
	conn, err := repo.DB().Conn(ctx)
	if err != nil {
		logger.Error("Query failed", "statement", statement, "error", err)
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	rows := make([]R, 0)
	if err := conn.NewRaw(query, positional...).Scan(ctx, &rows); err != nil {
		logger.Error("Query failed",
			"statement", statement,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil, err
	}
	logger.Debug("Query", "statement", statement, "rows", len(rows), "elapsed_ms", time.Since(start).Milliseconds())
	return rows, nil
}
