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

package database

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const unorderedFile = 999

var fileOrderPattern = regexp.MustCompile(`^(\d+)_`)

// SQLInitManager executes the ordered .sql files of an fs.FS. Files under
// <root>/common run first, then the ones under the directory named after
// the connection's dialect (postgres, mysql, sqlite). Each file runs in its
// own transaction.
type SQLInitManager struct {
	db     *bun.DB
	fsys   fs.FS
	root   string
	logger Logger
}

// SQLFileInfo describes a SQL file to be executed.
type SQLFileInfo struct {
	Path  string
	Name  string
	Order int
	Group string
}

// ExecutionResult contains the outcome of executing a single SQL file.
type ExecutionResult struct {
	File         string
	Statements   int
	Duration     time.Duration
	RowsAffected int64
	Err          error
}

// NewSQLInitManager creates an initializer reading files from fsys.
func NewSQLInitManager(db *bun.DB, fsys fs.FS) *SQLInitManager {
	return &SQLInitManager{
		db:     db,
		fsys:   fsys,
		root:   ".",
		logger: GetLogger(),
	}
}

// SetSQLRootPath sets the directory of fsys holding common/ and the dialect
// directories.
func (s *SQLInitManager) SetSQLRootPath(root string) {
	s.root = root
}

// SetLogger replaces the logger.
func (s *SQLInitManager) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// DialectDir returns the directory name used for db's dialect.
func DialectDir(db *bun.DB) string {
	switch db.Dialect().Name() {
	case dialect.PG:
		return "postgres"
	case dialect.MySQL:
		return "mysql"
	case dialect.SQLite:
		return "sqlite"
	default:
		return db.Dialect().Name().String()
	}
}

// ExecuteInitialization runs every discovered file in order and stops at the
// first failure.
func (s *SQLInitManager) ExecuteInitialization(ctx context.Context) ([]ExecutionResult, error) {
	s.logger.Info("Starting SQL initialization", "root", s.root, "dialect", DialectDir(s.db))

	files, err := s.GetSQLFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to get SQL files: %w", err)
	}
	if len(files) == 0 {
		s.logger.Info("No SQL files found to execute")
		return nil, nil
	}

	results := make([]ExecutionResult, 0, len(files))
	for _, file := range files {
		result := s.executeFile(ctx, file)
		results = append(results, result)
		if result.Err != nil {
			s.logger.Error("SQL file execution failed", "file", result.File, "error", result.Err)
			return results, fmt.Errorf("SQL file execution failed %s: %w", result.File, result.Err)
		}
		s.logger.Info("SQL file executed",
			"file", result.File,
			"statements", result.Statements,
			"duration", result.Duration.String(),
			"rows_affected", result.RowsAffected,
		)
	}

	s.logger.Info("SQL initialization completed", "total_files", len(results))
	return results, nil
}

// GetSQLFiles lists common files first, then dialect files, each group
// ordered by numeric prefix and name.
func (s *SQLInitManager) GetSQLFiles() ([]SQLFileInfo, error) {
	var files []SQLFileInfo
	for _, group := range []string{"common", DialectDir(s.db)} {
		groupFiles, err := s.getFilesFromDir(path.Join(s.root, group), group)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s SQL files: %w", group, err)
		}
		files = append(files, groupFiles...)
	}
	return files, nil
}

func (s *SQLInitManager) getFilesFromDir(dir, group string) ([]SQLFileInfo, error) {
	var files []SQLFileInfo
	err := fs.WalkDir(s.fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			return nil
		}
		files = append(files, SQLFileInfo{
			Path:  p,
			Name:  d.Name(),
			Order: parseFileOrder(d.Name()),
			Group: group,
		})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func parseFileOrder(filename string) int {
	matches := fileOrderPattern.FindStringSubmatch(filename)
	if len(matches) > 1 {
		if order, err := strconv.Atoi(matches[1]); err == nil {
			return order
		}
	}
	return unorderedFile
}

func (s *SQLInitManager) executeFile(ctx context.Context, file SQLFileInfo) ExecutionResult {
	start := time.Now()
	result := ExecutionResult{File: file.Path}

	content, err := fs.ReadFile(s.fsys, file.Path)
	if err != nil {
		result.Err = fmt.Errorf("failed to read file: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	statements := splitSQLStatements(string(content))
	result.Statements = len(statements)
	if len(statements) == 0 {
		result.Duration = time.Since(start)
		return result
	}

	result.Err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, stmt := range statements {
			res, execErr := tx.ExecContext(ctx, stmt)
			if execErr != nil {
				return fmt.Errorf("failed to execute SQL statement: %s, error: %w", stmt, execErr)
			}
			n, _ := res.RowsAffected()
			result.RowsAffected += n
		}
		return nil
	})
	result.Duration = time.Since(start)
	return result
}

// splitSQLStatements splits a script on lines ending with ';', dropping
// blank lines and "--" comment lines.
func splitSQLStatements(content string) []string {
	var (
		statements []string
		current    strings.Builder
	)
	flush := func() {
		stmt := strings.TrimSuffix(strings.TrimSpace(current.String()), ";")
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString(" ")
		if strings.HasSuffix(line, ";") {
			flush()
		}
	}
	flush()
	return statements
}
