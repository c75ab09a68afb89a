package jobs

import (
	"encoding/json"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAnalyticsWarmup recomputes cached analytics views.
	TaskAnalyticsWarmup = "analytics:warmup"
	// TaskAnalyticsCacheClear drops one vendor's cached analytics views.
	TaskAnalyticsCacheClear = "analytics:cache_clear"
)

// WarmupPayload lists the vendors to warm. An empty list means every vendor.
type WarmupPayload struct {
	VendorIDs []string `json:"vendorIds"`
}

// CacheClearPayload names the vendor whose cache is dropped.
type CacheClearPayload struct {
	VendorID string `json:"vendorId"`
}

// NewWarmupTask constructs an analytics warmup task.
func NewWarmupTask(vendorIDs ...string) (*asynq.Task, error) {
	data, err := json.Marshal(WarmupPayload{VendorIDs: compact(vendorIDs)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsWarmup, data), nil
}

// NewCacheClearTask constructs a cache clear task.
func NewCacheClearTask(vendorID string) (*asynq.Task, error) {
	data, err := json.Marshal(CacheClearPayload{VendorID: strings.TrimSpace(vendorID)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsCacheClear, data), nil
}

func compact(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
