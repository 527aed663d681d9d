/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
)

// TestInitWritesJSONFile verifies that Init with a file handler writes JSON logs
// carrying the static and contextual attributes.
func TestInitWritesJSONFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "esd_log.json")
	var console bytes.Buffer
	Init(Options{Level: "debug", Format: "json", File: fpath, Output: &console})

	l := WithOperation(WithComponent("dashsync"), "save")
	l.Info("collection updated", slog.String("collection", "c1"))

	time.Sleep(20 * time.Millisecond)

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var last string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	if m["app"] != "escapedash" {
		t.Fatalf("missing app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "dashsync" || m["op"] != "save" {
		t.Fatalf("context attrs mismatch: %v %v", m["component"], m["op"])
	}
	if m["msg"] != "collection updated" || m["collection"] != "c1" {
		t.Fatalf("record mismatch: %v", m)
	}
	if !strings.Contains(console.String(), "collection updated") {
		t.Fatalf("console handler did not receive the record: %q", console.String())
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("ESD_LOG_LEVEL", "warn")
	t.Setenv("ESD_LOG_FORMAT", "json")
	t.Setenv("ESD_LOG_SOURCE", "TRUE")
	t.Setenv("ESD_LOG_FILE", "/tmp/x.log")
	o := FromEnv()
	if o.Level != "warn" || o.Format != "json" || !o.AddSource || o.File != "/tmp/x.log" {
		t.Fatalf("unexpected options: %+v", o)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("ESD_LOG_LEVEL", "")
	t.Setenv("ESD_LOG_FORMAT", "")
	o := FromEnv()
	if o.Level != "info" || o.Format != "console" {
		t.Fatalf("unexpected defaults: %+v", o)
	}
}

func TestPrettyHandlerFormatsAttrsAndGroups(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	h := &prettyTextHandler{opts: prettyOpts{Level: slog.LevelDebug}, w: &buf}
	l := slog.New(h).WithGroup("grp").With(slog.Int("n", 42))
	l.Error("resize rejected", slog.Float64("pi", 3.14), slog.String("axis", "col width"))

	out := buf.String()
	for _, want := range []string{"ERR", "resize rejected", "grp.n=42", "grp.pi=3.14", `grp.axis="col width"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	h := &prettyTextHandler{opts: prettyOpts{Level: slog.LevelWarn}, w: &buf}
	slog.New(h).Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info record should be filtered: %q", buf.String())
	}
}

func TestPrettyHandlerAddSource(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	h := &prettyTextHandler{opts: prettyOpts{Level: slog.LevelInfo, AddSource: true}, w: &buf}
	slog.New(h).Info("layout saved")

	out := buf.String()
	if !strings.Contains(out, "layout saved") {
		t.Fatalf("output %q missing message", out)
	}
	// Source lookup is only available on toolchains whose Record has Source().
	if _, ok := any(slog.Record{}).(interface{ Source() *slog.Source }); ok && !strings.Contains(out, "src=") {
		t.Fatalf("output %q missing source", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "WARNING": slog.LevelWarn, "error": slog.LevelError, "": slog.LevelInfo}
	for in, want := range cases {
		if got := parseLevel(in).Level(); got != want {
			t.Fatalf("parseLevel(%q)=%v want %v", in, got, want)
		}
	}
}
