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
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tomoncle/strata/profile"
	"github.com/tomoncle/strata/types"
	"github.com/uptrace/bun"
)

// NewProfileCommand creates the profile command group.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Create and inspect player profiles",
	}
	cmd.AddCommand(newProfileCreateCommand(rootOpts))
	cmd.AddCommand(newProfileShowCommand(rootOpts))
	return cmd
}

func kindFlag(cmd *cobra.Command, kind *string) {
	cmd.Flags().StringVarP(kind, "kind", "k", profile.Athena.Name(),
		fmt.Sprintf("profile kind (%s)", strings.Join(types.EnumNames(profile.Kinds()), "|")))
}

func parseKind(name string) (profile.Kind, error) {
	kind, ok := types.ParseEnum(profile.Kinds(), name)
	if !ok {
		return kind, fmt.Errorf("unknown profile kind %q: must be one of %v", name, types.EnumNames(profile.Kinds()))
	}
	return kind, nil
}

func newProfileCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var kindName string
	cmd := &cobra.Command{
		Use:   "create <account-id>",
		Short: "Create a profile with its default items and stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(kindName)
			if err != nil {
				return err
			}
			return rootOpts.withDB(cmd.Context(), func(db *bun.DB) error {
				created, err := profile.NewManager(db).CreateProfile(cmd.Context(), args[0], kind)
				if err != nil {
					return err
				}
				return rootOpts.write(cmd.OutOrStdout(), created, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "created %s profile %d for %s: %d items saved, %d failed\n",
						kind, created.Profile.ID, args[0], created.Items.Saved, len(created.Items.Failures))
					return err
				})
			})
		},
	}
	kindFlag(cmd, &kindName)
	return cmd
}

func newProfileShowCommand(rootOpts *RootOptions) *cobra.Command {
	var kindName string
	cmd := &cobra.Command{
		Use:   "show <account-id>",
		Short: "Print a profile assembled from its rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(kindName)
			if err != nil {
				return err
			}
			return rootOpts.withDB(cmd.Context(), func(db *bun.DB) error {
				snapshot, err := profile.NewManager(db).GetProfile(cmd.Context(), args[0], kind)
				if err != nil {
					return err
				}
				return rootOpts.write(cmd.OutOrStdout(), snapshot, func(w io.Writer) error {
					return printSnapshot(w, snapshot)
				})
			})
		},
	}
	kindFlag(cmd, &kindName)
	return cmd
}

func printSnapshot(w io.Writer, s *profile.Snapshot) error {
	fmt.Fprintf(w, "%s %s rvn %d (%s)\n", s.AccountID, s.ProfileID, s.Revision, s.Version)
	for _, item := range s.Items {
		fmt.Fprintf(w, "  item %s x%d\n", item.TemplateID, item.Quantity)
	}
	names := make([]string, 0, len(s.Stats))
	for name := range s.Stats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  stat %s = %s\n", name, s.Stats[name])
	}
	for _, l := range s.Loadouts {
		fmt.Fprintf(w, "  loadout %s %q\n", l.TemplateID, l.LockerName)
	}
	return nil
}
