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

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tomoncle/strata/entity"
	_ "github.com/tomoncle/strata/models"
	"github.com/tomoncle/strata/repository"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// MappingOutput describes the statements generated for one shape.
type MappingOutput struct {
	Shape        string            `json:"shape"`
	Table        string            `json:"table"`
	Capabilities string            `json:"capabilities"`
	Statements   map[string]string `json:"statements"`
}

func dialectFor(name string) (schema.Dialect, error) {
	switch name {
	case "pg", "postgres", "postgresql":
		return pgdialect.New(), nil
	case "mysql":
		return mysqldialect.New(), nil
	case "sqlite", "sqlite3":
		return sqlitedialect.New(), nil
	}
	return nil, fmt.Errorf("unknown dialect %q", name)
}

// NewMappingCommand creates the mapping command.
func NewMappingCommand(rootOpts *RootOptions) *cobra.Command {
	var dialect string
	cmd := &cobra.Command{
		Use:   "mapping [table...]",
		Short: "Print the statements generated for registered shapes",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dialectFor(dialect)
			if err != nil {
				return err
			}
			mappings, err := selectMappings(args)
			if err != nil {
				return err
			}
			return runMapping(rootOpts, cmd.OutOrStdout(), d, mappings)
		},
	}
	cmd.Flags().StringVarP(&dialect, "dialect", "d", "pg", "dialect (pg|mysql|sqlite)")
	return cmd
}

func selectMappings(tables []string) ([]entity.Mapping, error) {
	if len(tables) == 0 {
		return entity.Registered(), nil
	}
	mappings := make([]entity.Mapping, 0, len(tables))
	for _, table := range tables {
		m, ok := entity.LookupTable(table)
		if !ok {
			return nil, fmt.Errorf("no shape is registered for table %q", table)
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}

func runMapping(opts *RootOptions, w io.Writer, d schema.Dialect, mappings []entity.Mapping) error {
	style := repository.UpsertStyleFor(d)
	out := make([]MappingOutput, 0, len(mappings))
	for _, m := range mappings {
		st := repository.BuildStatementsFor(m, d)
		mo := MappingOutput{
			Shape:        m.Shape(),
			Table:        m.TableName(),
			Capabilities: m.Capabilities().String(),
			Statements:   make(map[string]string),
		}
		for _, s := range st.All() {
			mo.Statements[s[0]] = s[1]
		}
		out = append(out, mo)
	}

	return opts.write(w, out, func(w io.Writer) error {
		for i, m := range mappings {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "-- %s (%s) capabilities: %s, upsert: %s\n",
				m.Shape(), m.TableName(), m.Capabilities(), style)
			fmt.Fprint(w, repository.BuildStatementsFor(m, d).String())
		}
		return nil
	})
}
