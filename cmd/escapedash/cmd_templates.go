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
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"escapedash/internal/cache"
	applog "escapedash/internal/log"
	"escapedash/internal/registry"
	"escapedash/internal/session"
)

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"tpl"},
		Short:   "Inspect the preset layouts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session.Session) error {
				tpls, err := s.Client.ListTemplates(ctx)
				if err != nil {
					return err
				}
				if len(tpls) == 0 {
					mutedStyle.Fprintln(cmd.OutOrStdout(), "No templates available.")
					return nil
				}
				last := lastTemplate(ctx, s)
				rows := make([][]string, 0, len(tpls))
				for _, t := range tpls {
					mark := ""
					if t.ID == last {
						mark = "*"
					}
					rows = append(rows, []string{t.ID, dash(t.Name), strconv.Itoa(len(t.Layout)), yesNo(t.IsDefault), mark, dash(t.Description)})
				}
				printTable(cmd.OutOrStdout(), []string{"ID", "NAME", "WIDGETS", "DEFAULT", "LAST", "DESCRIPTION"}, rows)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show the widgets of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session.Session) error {
				t, err := s.Client.GetTemplate(ctx, args[0])
				if err != nil {
					return err
				}
				reg := registry.Load(ctx, registry.Builtin(), s.Client, applog.WithComponent("cli"))
				out := cmd.OutOrStdout()
				headerStyle.Fprintln(out, dash(t.Name))
				if t.Description != "" {
					fmt.Fprintln(out, t.Description)
				}
				fmt.Fprintln(out)
				printTable(out, layoutHeader, layoutRows(t.Layout, reg))
				return nil
			})
		},
	})
	return cmd
}

// lastTemplate returns the template applied most recently on this machine, if known.
func lastTemplate(ctx context.Context, s *session.Session) string {
	if s.Cache == nil {
		return ""
	}
	id, ok, err := s.Cache.Meta(ctx, cache.MetaLastTemplate)
	if err != nil || !ok {
		return ""
	}
	return id
}
