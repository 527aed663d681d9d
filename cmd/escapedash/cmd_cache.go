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
	"time"

	"github.com/spf13/cobra"

	"escapedash/internal/session"
)

var errCacheDisabled = errors.New("the local cache is disabled (cache.enabled: false)")

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the local layout cache",
	}

	var scope string
	var limit int
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the cached dashboard state and recent snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session.Session) error {
				if s.Cache == nil {
					return errCacheDisabled
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "file: %s\n", s.Cache.FilePath())
				st, ok, err := s.Cache.LoadState(ctx)
				if err != nil {
					return err
				}
				if !ok {
					mutedStyle.Fprintln(out, "no cached state")
				} else {
					fmt.Fprintf(out, "active: %s\nwidgets: %d\nsaved: %s\n", dash(st.ActiveCollection), len(st.Layout), st.SavedAt.Local().Format(time.DateTime))
				}
				sc := scope
				if sc == "" && ok {
					sc = st.ActiveCollection
				}
				if sc == "" {
					return nil
				}
				snaps, err := s.Cache.ListSnapshots(ctx, sc, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				if len(snaps) == 0 {
					mutedStyle.Fprintf(out, "no snapshots for %s\n", sc)
					return nil
				}
				rows := make([][]string, 0, len(snaps))
				for _, sn := range snaps {
					rows = append(rows, []string{sn.TS.Local().Format(time.DateTime), strconv.Itoa(len(sn.Layout))})
				}
				printTable(out, []string{"SNAPSHOT (" + sc + ")", "WIDGETS"}, rows)
				return nil
			})
		},
	}
	showCmd.Flags().StringVar(&scope, "scope", "", "collection id whose snapshots to list (default: the cached active one)")
	showCmd.Flags().IntVar(&limit, "limit", 10, "snapshots to list")

	var keep int
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the cached dashboard state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session.Session) error {
				if s.Cache == nil {
					return errCacheDisabled
				}
				st, ok, err := s.Cache.LoadState(ctx)
				if err != nil {
					return err
				}
				if err := s.Cache.ClearState(ctx); err != nil {
					return err
				}
				var pruned int64
				if ok && st.ActiveCollection != "" {
					if pruned, err = s.Cache.PruneSnapshots(ctx, st.ActiveCollection, keep); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared cached state, pruned %d snapshots\n", pruned)
				return nil
			})
		},
	}
	clearCmd.Flags().IntVar(&keep, "keep", 0, "keep only the newest N snapshots of the active collection (0 keeps all)")

	cmd.AddCommand(showCmd, clearCmd)
	return cmd
}
