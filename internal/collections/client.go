/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package collections is the HTTP client of the widget collections service: the user's
// saved layouts, the read-only templates and the widget definition overlay.
package collections

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"escapedash/internal/domain"
	applog "escapedash/internal/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("server %s %s: %s: %s", e.Method, e.Path, e.Status, e.Body)
	}
	return fmt.Sprintf("server %s %s: %s", e.Method, e.Path, e.Status)
}

// Client talks to the collections service with a bearer token.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
	logger  *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

func WithTimeout(d time.Duration) Option { return func(c *Client) { c.client.Timeout = d } }

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.client = hc } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.logger = l } }

// NewClient creates a new client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = applog.WithComponent("collections")
	}
	return c
}

// doJSON sends body (if non-nil) as JSON and returns the raw response body.
func (c *Client) doJSON(ctx context.Context, method, path string, body any) ([]byte, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, u.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Method: method, Path: u.Path, Code: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(truncate(data, 256)))}
	}
	return data, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// listItems accepts either a bare JSON array or an object wrapping it under one of keys.
func listItems(data []byte, keys ...string) ([]jsoniter.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var items []jsoniter.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var env map[string]jsoniter.RawMessage
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	for _, k := range keys {
		if raw, ok := env[k]; ok {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, err
			}
			return items, nil
		}
	}
	return nil, fmt.Errorf("unexpected list envelope")
}

// wireCollection defers layout decoding until it has been validated.
type wireCollection struct {
	domain.Collection
	Layout jsoniter.RawMessage `json:"layout"`
}

func decodeCollection(raw []byte) (domain.Collection, error) {
	var w wireCollection
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.Collection{}, err
	}
	l, err := decodeLayout(w.Layout)
	if err != nil {
		return domain.Collection{}, fmt.Errorf("collection %q: %w", w.ID, err)
	}
	col := w.Collection
	col.Layout = l
	return col, nil
}

type wireTemplate struct {
	domain.Template
	Layout jsoniter.RawMessage `json:"layout"`
}

func decodeTemplate(raw []byte) (domain.Template, error) {
	var w wireTemplate
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.Template{}, err
	}
	l, err := decodeLayout(w.Layout)
	if err != nil {
		return domain.Template{}, fmt.Errorf("template %q: %w", w.ID, err)
	}
	t := w.Template
	t.Layout = l
	return t, nil
}

// ListCollections returns the user's collections. Entries whose layout fails validation
// are skipped and logged.
func (c *Client) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	data, err := c.doJSON(ctx, http.MethodGet, "/widgets/collections", nil)
	if err != nil {
		return nil, err
	}
	items, err := listItems(data, "collections", "data")
	if err != nil {
		return nil, fmt.Errorf("decode collections: %w", err)
	}
	out := make([]domain.Collection, 0, len(items))
	for _, raw := range items {
		col, err := decodeCollection(raw)
		if err != nil {
			c.logger.Warn("skipping collection", slog.Any("err", err))
			continue
		}
		out = append(out, col)
	}
	return out, nil
}

// GetCollection fetches one collection.
func (c *Client) GetCollection(ctx context.Context, id string) (domain.Collection, error) {
	data, err := c.doJSON(ctx, http.MethodGet, "/widgets/collections/"+url.PathEscape(id), nil)
	if err != nil {
		return domain.Collection{}, err
	}
	return decodeCollection(data)
}

// CreateCollection stores a new collection and returns it as the server recorded it.
func (c *Client) CreateCollection(ctx context.Context, draft domain.CollectionDraft) (domain.Collection, error) {
	if draft.Layout == nil {
		draft.Layout = domain.Layout{}
	}
	data, err := c.doJSON(ctx, http.MethodPost, "/widgets/collections", draft)
	if err != nil {
		return domain.Collection{}, err
	}
	return decodeCollection(data)
}

// UpdateCollection patches a collection. Nil patch fields are not sent.
func (c *Client) UpdateCollection(ctx context.Context, id string, patch domain.CollectionPatch) (domain.Collection, error) {
	data, err := c.doJSON(ctx, http.MethodPut, "/widgets/collections/"+url.PathEscape(id), patch)
	if err != nil {
		return domain.Collection{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.Collection{ID: id}, nil
	}
	return decodeCollection(data)
}

func (c *Client) DeleteCollection(ctx context.Context, id string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "/widgets/collections/"+url.PathEscape(id), nil)
	return err
}

// ActivateCollection makes id the user's active collection. The server deactivates the others.
func (c *Client) ActivateCollection(ctx context.Context, id string) (domain.Collection, error) {
	data, err := c.doJSON(ctx, http.MethodPost, "/widgets/collections/"+url.PathEscape(id)+"/activate", nil)
	if err != nil {
		return domain.Collection{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.Collection{ID: id, IsActive: true}, nil
	}
	return decodeCollection(data)
}

// ListTemplates returns the preset layouts. Invalid entries are skipped and logged.
func (c *Client) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	data, err := c.doJSON(ctx, http.MethodGet, "/widgets/templates", nil)
	if err != nil {
		return nil, err
	}
	items, err := listItems(data, "templates", "data")
	if err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	out := make([]domain.Template, 0, len(items))
	for _, raw := range items {
		t, err := decodeTemplate(raw)
		if err != nil {
			c.logger.Warn("skipping template", slog.Any("err", err))
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *Client) GetTemplate(ctx context.Context, id string) (domain.Template, error) {
	data, err := c.doJSON(ctx, http.MethodGet, "/widgets/templates/"+url.PathEscape(id), nil)
	if err != nil {
		return domain.Template{}, err
	}
	return decodeTemplate(data)
}

// ListWidgetDefinitions returns the definition overlay records.
func (c *Client) ListWidgetDefinitions(ctx context.Context) ([]domain.DefinitionRecord, error) {
	data, err := c.doJSON(ctx, http.MethodGet, "/widgets/definitions", nil)
	if err != nil {
		return nil, err
	}
	items, err := listItems(data, "definitions", "data")
	if err != nil {
		return nil, fmt.Errorf("decode definitions: %w", err)
	}
	out := make([]domain.DefinitionRecord, 0, len(items))
	for _, raw := range items {
		var rec domain.DefinitionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode definition: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// UpdateWidgetDefinition changes the overlay of one definition (admin settings).
func (c *Client) UpdateWidgetDefinition(ctx context.Context, id string, patch domain.DefinitionPatch) (domain.DefinitionRecord, error) {
	data, err := c.doJSON(ctx, http.MethodPut, "/widgets/definitions/"+url.PathEscape(id), patch)
	if err != nil {
		return domain.DefinitionRecord{}, err
	}
	var rec domain.DefinitionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.DefinitionRecord{}, fmt.Errorf("decode definition: %w", err)
	}
	return rec, nil
}
