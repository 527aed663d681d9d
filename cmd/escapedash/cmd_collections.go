/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"escapedash/internal/cache"
	"escapedash/internal/domain"
	"escapedash/internal/grid"
	applog "escapedash/internal/log"
	"escapedash/internal/layout"
	"escapedash/internal/registry"
	"escapedash/internal/session"
	"escapedash/internal/telemetry"
)

func newCollectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"col"},
		Short:   "Manage saved dashboard collections",
	}
	cmd.AddCommand(newCollectionsListCmd())
	cmd.AddCommand(newCollectionsShowCmd())
	cmd.AddCommand(newCollectionsCreateCmd())
	cmd.AddCommand(newCollectionsRenameCmd())
	cmd.AddCommand(newCollectionsActivateCmd())
	cmd.AddCommand(newCollectionsDeleteCmd())
	return cmd
}

func newCollectionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session.Session) error {
				cols, err := s.Client.ListCollections(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(cols) == 0 {
					mutedStyle.Fprintln(out, "No collections yet. The dashboard shows the default layout.")
					return nil
				}
				rows := make([][]string, 0, len(cols))
				active := ""
				for _, c := range cols {
					mark := ""
					if c.IsActive {
						mark = "*"
						if active == "" {
							active = c.Name
						}
					}
					rows = append(rows, []string{mark, c.ID, dash(c.Name), strconv.Itoa(len(c.Layout)), dash(c.UpdatedAt)})
				}
				printTable(out, []string{"", "ID", "NAME", "WIDGETS", "UPDATED"}, rows)
				if active != "" {
					activeStyle.Fprintf(out, "active: %s\n", active)
				}
				return nil
			})
		},
	}
}

// layoutRows renders a layout as one row per widget in reading order, with
// its flow position on the full-width grid.
func layoutRows(l domain.Layout, reg *registry.Registry) [][]string {
	placed, _ := grid.Flow(l, domain.GridColumns)
	rows := make([][]string, 0, len(placed))
	for i, p := range placed {
		title := "(unknown)"
		if def, ok := reg.Resolve(p.Widget.Type); ok {
			title = def.Title
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			p.Widget.ID,
			p.Widget.Type,
			title,
			fmt.Sprintf("%d×%d", p.ColSpan, p.RowSpan),
			fmt.Sprintf("r%d c%d", p.Row, p.Col),
		})
	}
	return rows
}

var layoutHeader = []string{"#", "ID", "TYPE", "TITLE", "SPAN", "POSITION"}

func newCollectionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the widgets of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session.Session) error {
				c, err := s.Client.GetCollection(ctx, args[0])
				if err != nil {
					return err
				}
				reg := registry.Load(ctx, registry.Builtin(), s.Client, applog.WithComponent("cli"))
				out := cmd.OutOrStdout()
				headerStyle.Fprintf(out, "%s", dash(c.Name))
				if c.IsActive {
					activeStyle.Fprint(out, "  (active)")
				}
				fmt.Fprintln(out)
				if c.Description != "" {
					fmt.Fprintln(out, c.Description)
				}
				fmt.Fprintln(out)
				printTable(out, layoutHeader, layoutRows(c.Layout, reg))
				return nil
			})
		},
	}
}

func newCollectionsCreateCmd() *cobra.Command {
	var template, description string
	var activate bool
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a collection from a template or the default layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session.Session) error {
				l := layout.DefaultLayout()
				if template != "" {
					t, err := s.Client.GetTemplate(ctx, template)
					if err != nil {
						return fmt.Errorf("template %s: %w", template, err)
					}
					l = layout.WithFreshIDs(t.Layout, layout.NewInstanceID)
				}
				c, err := s.Client.CreateCollection(ctx, domain.CollectionDraft{Name: args[0], Description: description, Layout: l})
				if err != nil {
					return err
				}
				s.Telemetry.CollectionEvent(telemetry.EventCollectionCreated, c)
				if activate {
					if _, err := s.Client.ActivateCollection(ctx, c.ID); err != nil {
						return fmt.Errorf("created %s but activation failed: %w", c.ID, err)
					}
					s.Telemetry.CollectionEvent(telemetry.EventCollectionActivated, c)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with %d widgets\n", c.ID, c.Name, len(c.Layout))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&template, "template", "", "start from this template id")
	cmd.Flags().StringVar(&description, "description", "", "collection description")
	cmd.Flags().BoolVar(&activate, "activate", false, "make the new collection active")
	return cmd
}

func newCollectionsRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session.Session) error {
				name := args[1]
				if _, err := s.Client.UpdateCollection(ctx, args[0], domain.CollectionPatch{Name: &name}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "renamed %s to %s\n", args[0], name)
				return nil
			})
		},
	}
}

func newCollectionsActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <id>",
		Short: "Make a collection the active dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session.Session) error {
				c, err := s.Client.ActivateCollection(ctx, args[0])
				if err != nil {
					return err
				}
				s.Telemetry.CollectionEvent(telemetry.EventCollectionActivated, c)
				if c.Layout == nil {
					if full, err := s.Client.GetCollection(ctx, c.ID); err == nil {
						c = full
					}
				}
				// The next desktop session starts from the newly active layout.
				if s.Cache != nil && c.Layout != nil {
					if err := s.Cache.SaveState(ctx, cache.State{Layout: c.Layout, ActiveCollection: c.ID}); err != nil {
						return err
					}
				}
				activeStyle.Fprintf(cmd.OutOrStdout(), "active: %s\n", args[0])
				return nil
			})
		},
	}
}

var errNotConfirmed = errors.New("refusing to delete without --yes")

func newCollectionsDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errNotConfirmed
			}
			return withSession(cmd, func(ctx context.Context, s *session.Session) error {
				if err := s.Client.DeleteCollection(ctx, args[0]); err != nil {
					return err
				}
				s.Telemetry.CollectionEvent(telemetry.EventCollectionDeleted, domain.Collection{ID: args[0]})
				if s.Cache != nil {
					if st, ok, err := s.Cache.LoadState(ctx); err == nil && ok && st.ActiveCollection == args[0] {
						st.ActiveCollection = ""
						if err := s.Cache.SaveState(ctx, st); err != nil {
							return err
						}
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}
