/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package registry

import (
	"context"
	"log/slog"

	"escapedash/internal/domain"
)

// Source fetches the remote definition overlay.
type Source interface {
	ListWidgetDefinitions(ctx context.Context) ([]domain.DefinitionRecord, error)
}

// Load fetches the overlay from src and merges it over local. Any failure falls back
// to local; the error is logged at warn and never returned.
func Load(ctx context.Context, local *Registry, src Source, logger *slog.Logger) *Registry {
	if src == nil {
		return local
	}
	recs, err := src.ListWidgetDefinitions(ctx)
	if err != nil {
		if logger != nil {
			logger.Warn("widget definitions unavailable, using static catalog", slog.Any("err", err))
		}
		return local
	}
	return Merge(local, recs)
}
