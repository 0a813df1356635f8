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
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/tomoncle/strata/database"
	"github.com/tomoncle/strata/models"
	"github.com/uptrace/bun"
)

// NewPingCommand creates the ping command.
func NewPingCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Connect to the configured database and report its health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withDB(cmd.Context(), func(db *bun.DB) error {
				status := database.GetHealthStatus(cmd.Context())
				err := rootOpts.write(cmd.OutOrStdout(), status, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "healthy: %t, dialect: %s, response: %s, open: %d/%d\n",
						status.Healthy, database.DialectDir(db), status.ResponseTime,
						status.ActiveConns+status.IdleConns, status.MaxOpenConns)
					return err
				})
				if err != nil {
					return err
				}
				if !status.Healthy {
					return fmt.Errorf("database is unhealthy: %s", status.LastError)
				}
				return nil
			})
		},
	}
}

// BootstrapResult is the outcome of one SQL file.
type BootstrapResult struct {
	File         string `json:"file"`
	Statements   int    `json:"statements"`
	RowsAffected int64  `json:"rowsAffected"`
	DurationMS   int64  `json:"durationMs"`
	Error        string `json:"error,omitempty"`
}

// NewBootstrapCommand creates the bootstrap command.
func NewBootstrapCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the tables of the registered shapes",
		Long: `Run the SQL files under <dir>/common and <dir>/<dialect> in order.
Without --dir the built-in table definitions are used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys := models.DDL()
			if dir != "" {
				fsys = os.DirFS(dir)
			}
			return rootOpts.withDB(cmd.Context(), func(db *bun.DB) error {
				return runBootstrap(rootOpts, cmd, db, fsys)
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory holding common/ and <dialect>/ SQL files")
	return cmd
}

func runBootstrap(opts *RootOptions, cmd *cobra.Command, db *bun.DB, fsys fs.FS) error {
	results, runErr := database.Bootstrap(cmd.Context(), db, fsys)
	out := make([]BootstrapResult, len(results))
	for i, r := range results {
		out[i] = BootstrapResult{
			File:         r.File,
			Statements:   r.Statements,
			RowsAffected: r.RowsAffected,
			DurationMS:   r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	err := opts.write(cmd.OutOrStdout(), out, func(w io.Writer) error {
		for _, r := range out {
			status := "ok"
			if r.Error != "" {
				status = "failed: " + r.Error
			}
			fmt.Fprintf(w, "%s: %d statements, %dms, %s\n", r.File, r.Statements, r.DurationMS, status)
		}
		if len(out) == 0 {
			fmt.Fprintln(w, "no SQL files found")
		}
		return nil
	})
	if runErr != nil {
		return runErr
	}
	return err
}
