// Copyright 2026 The ZenFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InstallPrometheusExporter builds an SDK MeterProvider backed by a
// Prometheus exporter and installs it as the process-wide default, so
// everything Get() subsequently records is scrapeable. It's a convenience
// for a host that wants "just give me /metrics" without assembling the
// OpenTelemetry SDK itself; a host with its own MeterProvider should call
// otel.SetMeterProvider directly instead and skip this entirely.
func InstallPrometheusExporter() error {
	exporter, err := prometheus.New()
	if err != nil {
		return err
	}
	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return nil
}
