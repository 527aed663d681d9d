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
	"fmt"
	"sort"
	"strings"

	"escapedash/internal/domain"
)

// Widget kinds of the escape-room dashboard.
const (
	TypeStats          = "stats"
	TypeUpcoming       = "upcoming"
	TypeTeam           = "team"
	TypeRevenue        = "revenue"
	TypeCalendar       = "calendar"
	TypeNotes          = "notes"
	TypeRevenueChart   = "revenue-chart"
	TypeOccupancyChart = "occupancy-chart"
	TypeQuarterlyStats = "quarterly-stats"
	TypeRevenueTable   = "revenue-table"
)

var builtinDefinitions = []Definition{
	{
		Type:                TypeStats,
		Title:               "Estadísticas Generales",
		Description:         "Resumen de reservas, ingresos y ocupación",
		DefaultColSpan:      48,
		DefaultRowSpan:      6,
		ConfigurableOptions: []string{"showTrends", "columns", "refreshInterval", "visibleStats"},
		DefaultConfig: domain.Config{
			"showTrends":      true,
			"columns":         4,
			"refreshInterval": 60,
			"visibleStats":    []string{"revenue", "bookings", "customers", "rooms"},
		},
	},
	{
		Type:                TypeUpcoming,
		Title:               "Próximas Sesiones",
		Description:         "Lista de las próximas sesiones programadas",
		DefaultColSpan:      24,
		DefaultRowSpan:      20,
		ConfigurableOptions: []string{"limit", "showPastSessions", "refreshInterval"},
		DefaultConfig:       domain.Config{"limit": 5, "showPastSessions": false, "refreshInterval": 30},
	},
	{
		Type:                TypeTeam,
		Title:               "Estado del Equipo",
		Description:         "Disponibilidad y estado actual de los empleados",
		DefaultColSpan:      12,
		DefaultRowSpan:      12,
		ConfigurableOptions: []string{"refreshInterval"},
		DefaultConfig:       domain.Config{"refreshInterval": 60},
	},
	{
		Type:                TypeRevenue,
		Title:               "Ingresos (Simple)",
		Description:         "Gráfico de ingresos mensuales simple",
		DefaultColSpan:      24,
		DefaultRowSpan:      12,
		ConfigurableOptions: []string{"dateRange", "refreshInterval"},
		DefaultConfig:       domain.Config{"dateRange": "month", "refreshInterval": 300},
	},
	{
		Type:                TypeCalendar,
		Title:               "Calendario",
		Description:         "Vista de calendario mensual/semanal",
		DefaultColSpan:      12,
		DefaultRowSpan:      16,
		ConfigurableOptions: []string{"defaultView", "showWeekends"},
		DefaultConfig:       domain.Config{"defaultView": "month", "showWeekends": true},
	},
	{
		Type:                TypeNotes,
		Title:               "Notas Rápidas",
		Description:         "Bloc de notas simple",
		DefaultColSpan:      12,
		DefaultRowSpan:      8,
		ConfigurableOptions: []string{"maxNotes"},
		DefaultConfig:       domain.Config{"maxNotes": 10},
	},
	{
		Type:                TypeRevenueChart,
		Title:               "Gráfico Ingresos vs Gastos",
		Description:         "Comparativa mensual de ingresos y gastos",
		DefaultColSpan:      24,
		DefaultRowSpan:      16,
		ConfigurableOptions: []string{"chartType", "showLegend", "dateRange"},
		DefaultConfig:       domain.Config{"chartType": "bar", "showLegend": true, "dateRange": "month"},
	},
	{
		Type:                TypeOccupancyChart,
		Title:               "Ocupación por Sala",
		Description:         "Distribución de reservas por sala",
		DefaultColSpan:      12,
		DefaultRowSpan:      14,
		ConfigurableOptions: []string{"showLegend", "dateRange"},
		DefaultConfig:       domain.Config{"showLegend": true, "dateRange": "month"},
	},
	{
		Type:                TypeQuarterlyStats,
		Title:               "Resumen Trimestral",
		Description:         "KPIs principales del trimestre actual",
		DefaultColSpan:      24,
		DefaultRowSpan:      12,
		ConfigurableOptions: []string{"refreshInterval"},
		DefaultConfig:       domain.Config{"refreshInterval": 300},
	},
	{
		Type:                TypeRevenueTable,
		Title:               "Registro de Transacciones",
		Description:         "Tabla detallada de ingresos con filtros",
		DefaultColSpan:      48,
		DefaultRowSpan:      20,
		ConfigurableOptions: []string{"pageSize", "sortBy", "dateRange"},
		DefaultConfig:       domain.Config{"pageSize": 10, "sortBy": "date", "dateRange": "month"},
	},
}

// Builtin returns the static catalog. Each kind renders a Placeholder summarizing its
// effective configuration.
func Builtin() *Registry {
	defs := make([]Definition, len(builtinDefinitions))
	for i, d := range builtinDefinitions {
		d.Render = placeholderFor(d.Title)
		defs[i] = d
	}
	return New(defs...)
}

func placeholderFor(title string) Renderer {
	return RenderFunc(func(cfg domain.Config) any {
		keys := make([]string, 0, len(cfg))
		for k := range cfg {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			v := cfg[k]
			if ss, ok := v.([]string); ok {
				v = strings.Join(ss, ", ")
			}
			lines = append(lines, fmt.Sprintf("%s: %v", k, v))
		}
		return Placeholder{Title: title, Lines: lines}
	})
}
