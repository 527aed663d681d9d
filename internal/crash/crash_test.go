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
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeTarget struct {
	dir       string
	autosaved int
	fail      bool
}

func (f *fakeTarget) DataDir() string { return f.dir }

func (f *fakeTarget) Autosave(context.Context) (string, error) {
	f.autosaved++
	if f.fail {
		return "", errors.New("disk full")
	}
	return "cache", nil
}

func (f *fakeTarget) Describe() map[string]string {
	return map[string]string{"ActiveCollection": "col-7", "Widgets": "4"}
}

func silenceStderr(t *testing.T) {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = old
		_, _ = io.Copy(io.Discard, r)
	})
}

func TestWriteReportFallsBackToTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "escapedash crash report") || !strings.Contains(s, "Panic: boom") {
		t.Fatalf("unexpected report: %s", s)
	}
}

func TestWriteReportUsesDataDir(t *testing.T) {
	tg := &fakeTarget{dir: t.TempDir()}
	path, err := writeReport(tg, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(tg.dir, ReportsDirName) {
		t.Fatalf("expected report under data dir, got %s", path)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "ActiveCollection: col-7") {
		t.Fatalf("report misses target description: %s", b)
	}
}

func TestRecoverAutosavesAndExits(t *testing.T) {
	silenceStderr(t)
	code := 0
	old := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = old }()

	for _, fail := range []bool{false, true} {
		tg := &fakeTarget{dir: t.TempDir(), fail: fail}
		func() {
			defer Recover(tg)
			panic("boom")
		}()
		if tg.autosaved != 1 {
			t.Fatalf("autosave calls = %d", tg.autosaved)
		}
		if code != 2 {
			t.Fatalf("expected exit code 2, got %d", code)
		}
		entries, _ := os.ReadDir(filepath.Join(tg.dir, ReportsDirName))
		if len(entries) != 1 || !strings.HasPrefix(entries[0].Name(), "crash-") {
			t.Fatalf("expected one crash report, got %v", entries)
		}
		code = 0
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	old := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = old }()

	tg := &fakeTarget{dir: t.TempDir()}
	func() { defer Recover(tg) }()
	if called || tg.autosaved != 0 {
		t.Fatalf("Recover acted without a panic")
	}
}
