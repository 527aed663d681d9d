/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Command escapedash manages widget dashboards of the escape-room back office:
// it lists and edits collections, inspects templates and widget kinds, exports
// layout previews and launches the desktop dashboard.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"escapedash/internal/config"
	"escapedash/internal/crash"
	"escapedash/internal/session"
	"escapedash/internal/version"
)

const requestTimeout = 30 * time.Second

// loadSession is swapped in tests.
var loadSession = session.Load

func newRootCmd() *cobra.Command {
	var logLevel, logFormat string
	root := &cobra.Command{
		Use:           "escapedash",
		Short:         "Adaptive widget dashboards for escape-room operators",
		Long:          "escapedash manages the widget collections of the back office and runs the desktop dashboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if logLevel != "" {
				_ = os.Setenv(config.EnvLogLevel, strings.ToLower(logLevel))
			}
			if logFormat != "" {
				_ = os.Setenv(config.EnvLogFormat, strings.ToLower(logFormat))
			}
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newUICmd())
	root.AddCommand(newCollectionsCmd())
	root.AddCommand(newTemplatesCmd())
	root.AddCommand(newWidgetsCmd())
	root.AddCommand(newPreviewCmd())
	root.AddCommand(newCacheCmd())
	root.AddCommand(newTokenCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "escapedash %s\n", version.String())
		},
	}
}

// withSession opens the configured session for one command and bounds the
// backend calls by requestTimeout.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session.Session) error) error {
	s, err := loadSession()
	if err != nil {
		return err
	}
	defer s.Close()
	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()
	return fn(ctx, s)
}

func run() int {
	defer crash.Recover(nil)
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorTag(), err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run())
}
