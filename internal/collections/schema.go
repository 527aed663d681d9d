/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package collections

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"escapedash/internal/domain"
)

//go:embed layout.schema.json
var layoutSchemaJSON []byte

// ErrInvalidLayout is returned when a layout payload does not match the layout schema.
var ErrInvalidLayout = errors.New("collections: invalid layout")

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func layoutSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(layoutSchemaJSON))
	})
	return schema, schemaErr
}

// ValidateLayout checks raw layout JSON against the layout schema.
func ValidateLayout(raw []byte) error {
	s, err := layoutSchema()
	if err != nil {
		return fmt.Errorf("load layout schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidLayout, strings.Join(msgs, "; "))
}

// decodeLayout validates and decodes a layout. A missing or null layout decodes to empty.
func decodeLayout(raw []byte) (domain.Layout, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return domain.Layout{}, nil
	}
	if err := ValidateLayout(raw); err != nil {
		return nil, err
	}
	var l domain.Layout
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayout, err)
	}
	if l == nil {
		l = domain.Layout{}
	}
	return l, nil
}
