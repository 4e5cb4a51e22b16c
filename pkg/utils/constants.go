package utils

import "time"

const (
	Version          = "v0.4.0"
	CliName          = "solana-exporter"
	MetricsNamespace = "solana_exporter"

	SecondsPerDay = 86400
	DaysPerYear   = 365

	RoutineFlushTimeout = time.Duration(1 * time.Second)
)
