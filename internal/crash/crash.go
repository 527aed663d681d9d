/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "escapedash/internal/log"
	"escapedash/internal/telemetry"
	"escapedash/internal/version"
)

// ReportsDirName is created under Target.DataDir for crash reports.
const ReportsDirName = "crash"

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Target is the application state worth rescuing when a panic escapes.
type Target interface {
	// DataDir is where reports are written; "" falls back to the temp dir.
	DataDir() string
	// Autosave persists whatever can still be saved and describes where.
	Autosave(ctx context.Context) (string, error)
	// Describe adds key/value lines to the report.
	Describe() map[string]string
}

// Recover captures a panic, logs it with its stack, writes a report file,
// autosaves the target and exits with status 2.
//
// Usage: defer crash.Recover(target)
func Recover(t Target) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(t, r, stack)
	if err != nil {
		l.Error("write crash report failed", slog.Any("err", err))
	}
	if t != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		where, err := t.Autosave(ctx)
		cancel()
		if err != nil {
			l.Error("crash autosave failed", slog.Any("err", err))
		} else {
			l.Info("crash autosave written", slog.String("where", where))
		}
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func reportDir(t Target) string {
	if t != nil && t.DataDir() != "" {
		dir := filepath.Join(t.DataDir(), ReportsDirName)
		if err := os.MkdirAll(dir, 0o755); err == nil {
			return dir
		}
	}
	return os.TempDir()
}

func writeReport(t Target, panicVal any, stack []byte) (string, error) {
	now := time.Now()
	path := filepath.Join(reportDir(t), fmt.Sprintf("crash-%s.log", now.Format("20060102-150405")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "escapedash crash report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if t != nil {
		for k, v := range t.Describe() {
			_, _ = fmt.Fprintf(&buf, "%s: %s\n", k, v)
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.Default().UploadCrash(buf.Bytes())
	return path, nil
}
