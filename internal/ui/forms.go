/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"escapedash/internal/domain"
	"escapedash/internal/registry"
)

// ErrUnavailable is returned by Run when the binary carries no desktop dashboard.
var ErrUnavailable = errors.New("dashboard UI not built into this binary")

// FieldKind selects the editor of a configuration option.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldNumber
	FieldBool
)

// Field is one editable option of the configure dialog.
type Field struct {
	Key   string
	Value string
	Kind  FieldKind
}

// ConfigFields lists the configurable options of def with their effective values.
func ConfigFields(def registry.Definition, eff domain.Config) []Field {
	out := make([]Field, 0, len(def.ConfigurableOptions))
	for _, k := range def.ConfigurableOptions {
		f := Field{Key: k}
		base := eff[k]
		if base == nil {
			base = def.DefaultConfig[k]
		}
		switch n := base.(type) {
		case nil:
		case bool:
			f.Kind, f.Value = FieldBool, strconv.FormatBool(n)
		case int:
			f.Kind, f.Value = FieldNumber, strconv.Itoa(n)
		case int64:
			f.Kind, f.Value = FieldNumber, strconv.FormatInt(n, 10)
		case float64:
			f.Kind, f.Value = FieldNumber, strconv.FormatFloat(n, 'f', -1, 64)
		case string:
			f.Value = n
		default:
			f.Value = fmt.Sprint(n)
		}
		out = append(out, f)
	}
	return out
}

// ParseConfig turns the dialog's text values back into a partial config.
// Blank fields are left out so the kind's default applies.
func ParseConfig(fields []Field, values map[string]string) (domain.Config, error) {
	cfg := domain.Config{}
	for _, f := range fields {
		raw := strings.TrimSpace(values[f.Key])
		if raw == "" {
			continue
		}
		switch f.Kind {
		case FieldText:
			cfg[f.Key] = raw
			continue
		case FieldBool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %q is not true or false", f.Key, raw)
			}
			cfg[f.Key] = b
			continue
		}
		if n, err := strconv.Atoi(raw); err == nil {
			if n < 0 {
				return nil, fmt.Errorf("%s: must not be negative", f.Key)
			}
			cfg[f.Key] = n
			continue
		}
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", f.Key, raw)
		}
		cfg[f.Key] = x
	}
	return cfg, nil
}
