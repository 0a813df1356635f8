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
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tomoncle/strata/database"
	"github.com/uptrace/bun"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config  string
	Type    string
	DSN     string
	Format  string // "json" | "text"
	Verbose bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the strata CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "strata",
		Short: "strata - entity persistence toolkit",
		Long:  "Inspect the statements generated for registered shapes, bootstrap their tables and manage profiles.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Verbose {
				database.GetLogger().SetLevel(database.LogLevelDebug)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "config file (.yaml, .yml or .toml)")
	cmd.PersistentFlags().StringVar(&opts.Type, "type", "", "database type, overrides the config file")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "data source name, overrides the config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewMappingCommand(opts))
	cmd.AddCommand(NewPingCommand(opts))
	cmd.AddCommand(NewBootstrapCommand(opts))
	cmd.AddCommand(NewProfileCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig reads the config file, if any, and applies the flag overrides.
func (o *RootOptions) loadConfig() (*database.Config, error) {
	cfg := &database.Config{ConnectionConfig: *database.DefaultConnectionConfig()}
	if o.Config != "" {
		loaded, err := database.LoadConfig(o.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.Type != "" {
		cfg.ConnectionConfig.Type = o.Type
	}
	if o.DSN != "" {
		cfg.ConnectionConfig.DSN = o.DSN
	}
	cfg.ConnectionConfig.HealthCheckInterval = 0
	return cfg, nil
}

// withDB connects the global database for the duration of fn.
func (o *RootOptions) withDB(ctx context.Context, fn func(db *bun.DB) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	db, err := database.InitDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.CloseDB() }()
	return fn(db)
}

// write prints v as indented JSON, or calls text otherwise.
func (o *RootOptions) write(w io.Writer, v interface{}, text func(w io.Writer) error) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}
