// Package metrics exports scheduler state to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "vramd"

var (
	GPUVRAMTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "gpu", Name: "vram_total_mb",
		Help: "Total device memory in MB",
	})
	GPUVRAMUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "gpu", Name: "vram_used_mb",
		Help: "Device memory in use as observed by the driver, in MB",
	})
	GPUVRAMFree = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "gpu", Name: "vram_free_mb",
		Help: "Device memory free as observed by the driver, in MB",
	})
	GPUUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "gpu", Name: "utilization_percent",
		Help: "GPU compute utilization",
	})
	GPUTemperature = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "gpu", Name: "temperature_celsius",
		Help: "GPU temperature",
	})
	TelemetryMock = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "gpu", Name: "telemetry_mock",
		Help: "1 when GPU telemetry is synthesized because no driver answered",
	})

	LoadedModels = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "loaded_models",
		Help: "Models in the loaded state",
	})
	CommittedVRAM = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "committed_vram_mb",
		Help: "VRAM held by loading, loaded and unloading models",
	})
	FreeBudget = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "free_budget_mb",
		Help: "VRAM available for new loads",
	})
	QueuePending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "queue", Name: "pending",
		Help: "Coordinator operations waiting in the admission queue",
	})
	QueueProcessing = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "queue", Name: "processing",
		Help: "Coordinator operations in progress",
	})
	ModelLoaded = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "model_vram_mb",
		Help: "VRAM attributed to each model table entry",
	}, []string{"provider", "model", "state"})

	LoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "loads_total",
		Help: "Load attempts by result",
	}, []string{"provider", "result"})
	UnloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "unloads_total",
		Help: "Unloads by reason",
	}, []string{"provider", "reason"})
	UnloadFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "unload_failures_total",
		Help: "Provider unload failures",
	}, []string{"provider"})
	CapacityRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "capacity_rejections_total",
		Help: "Load requests rejected for insufficient VRAM",
	})
)
