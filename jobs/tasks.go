// Package jobs holds the background work RetailPoint runs outside the
// request path: periodic analytics cache warmups and the low-stock scan.
package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAnalyticsWarmup pre-computes the sales summaries for every range.
	TaskAnalyticsWarmup = "analytics:warmup"
	// TaskLowStockScan reports products at or below the restock threshold.
	TaskLowStockScan = "inventory:lowstock"
)

// NewAnalyticsWarmupTask constructs the warmup task. It carries no payload.
func NewAnalyticsWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskAnalyticsWarmup, nil)
}

// NewLowStockScanTask constructs the low-stock scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil)
}
