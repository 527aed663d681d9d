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
	"strings"

	"github.com/spf13/cobra"

	"escapedash/internal/domain"
	applog "escapedash/internal/log"
	"escapedash/internal/registry"
	"escapedash/internal/session"
	"escapedash/internal/ui"
)

func newWidgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "widgets",
		Short: "Inspect and adjust the widget catalog",
	}
	cmd.AddCommand(newWidgetsListCmd())
	cmd.AddCommand(newWidgetsSetCmd())
	return cmd
}

func newWidgetsListCmd() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List widget kinds with their spans and options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			show := func(reg *registry.Registry) {
				defs := reg.Definitions()
				rows := make([][]string, 0, len(defs))
				for _, d := range defs {
					rows = append(rows, []string{
						d.Type,
						d.Title,
						fmt.Sprintf("%d×%d", d.DefaultSpan(domain.AxisWidth), d.DefaultSpan(domain.AxisHeight)),
						fmt.Sprintf("%d×%d", d.MinSpan(domain.AxisWidth), d.MinSpan(domain.AxisHeight)),
						dash(strings.Join(d.ConfigurableOptions, ",")),
					})
				}
				printTable(cmd.OutOrStdout(), []string{"TYPE", "TITLE", "DEFAULT", "MIN", "OPTIONS"}, rows)
			}
			if offline {
				show(registry.Builtin())
				return nil
			}
			return withSession(cmd, func(ctx context.Context, s *session.Session) error {
				show(registry.Load(ctx, registry.Builtin(), s.Client, applog.WithComponent("cli")))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "show the built-in catalog without contacting the service")
	return cmd
}

func newWidgetsSetCmd() *cobra.Command {
	var name, description string
	var defaults []string
	var enable, disable bool
	cmd := &cobra.Command{
		Use:   "set <type>",
		Short: "Update the service-side overlay of a widget kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if enable && disable {
				return fmt.Errorf("--enable and --disable are exclusive")
			}
			def, ok := registry.Builtin().Resolve(args[0])
			if !ok {
				return fmt.Errorf("unknown widget type %q", args[0])
			}
			var patch domain.DefinitionPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if enable || disable {
				on := enable
				patch.IsActive = &on
			}
			if len(defaults) > 0 {
				cfg, err := parseDefaults(def, defaults)
				if err != nil {
					return err
				}
				patch.DefaultConfig = cfg
			}
			return withSession(cmd, func(ctx context.Context, s *session.Session) error {
				recs, err := s.Client.ListWidgetDefinitions(ctx)
				if err != nil {
					return err
				}
				id := ""
				for _, r := range recs {
					if r.Slug == def.Type {
						id = r.ID
						break
					}
				}
				if id == "" {
					return fmt.Errorf("the service has no definition record for %q", def.Type)
				}
				rec, err := s.Client.UpdateWidgetDefinition(ctx, id, patch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%s)\n", def.Type, dash(rec.Name))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display title")
	cmd.Flags().StringVar(&description, "description", "", "catalog description")
	cmd.Flags().StringArrayVar(&defaults, "default", nil, "default option as key=value (repeatable)")
	cmd.Flags().BoolVar(&enable, "enable", false, "show the kind in the catalog")
	cmd.Flags().BoolVar(&disable, "disable", false, "hide the kind from the catalog")
	return cmd
}

// parseDefaults reads key=value pairs against the kind's configurable options.
func parseDefaults(def registry.Definition, pairs []string) (domain.Config, error) {
	fields := ui.ConfigFields(def, def.DefaultConfig)
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Key] = true
	}
	values := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("--default %q: want key=value", p)
		}
		if !known[k] {
			return nil, fmt.Errorf("%s has no option %q (options: %s)", def.Type, k, strings.Join(def.ConfigurableOptions, ", "))
		}
		values[k] = v
	}
	return ui.ParseConfig(fields, values)
}
