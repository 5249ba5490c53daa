package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/cache"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/logger"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/provider"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/queue"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/service"

	"github.com/hibiken/asynq"
)

const batchManifestCacheTTL = 24 * time.Hour

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskBatchManifest, c.handleBatchManifest)
	mux.HandleFunc(queue.TaskReportSnapshot, c.handleReportSnapshot)
}

// handleBatchManifest 重建批次清单并归档到缓存
func (c *Consumer) handleBatchManifest(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_batch_manifest_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.BatchManifestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_batch_manifest_unmarshal_failed", "error", err)
		return err
	}
	if payload.BatchID == 0 {
		logger.Debugw("worker_batch_manifest_skip_invalid_payload", "batch_id", payload.BatchID)
		return nil
	}
	if c.BatchService == nil {
		logger.Warnw("worker_batch_manifest_skip_batch_service_nil", "batch_id", payload.BatchID)
		return nil
	}
	manifest, err := c.BatchService.BuildManifest(payload.BatchID)
	if err != nil {
		// 批次可能已被清除，归档任务无需重试
		if errors.Is(err, service.ErrBatchNotFound) {
			logger.Debugw("worker_batch_manifest_skip_batch_not_found", "batch_id", payload.BatchID)
			return nil
		}
		logger.Warnw("worker_batch_manifest_build_failed", "batch_id", payload.BatchID, "error", err)
		return err
	}
	cacheKey := fmt.Sprintf("batch:manifest:%d", payload.BatchID)
	if err := cache.SetJSON(ctx, cacheKey, manifest, batchManifestCacheTTL); err != nil {
		logger.Warnw("worker_batch_manifest_cache_failed", "batch_id", payload.BatchID, "error", err)
	}
	logger.Infow("worker_batch_manifest_archived",
		"batch_id", payload.BatchID,
		"total_tokens", manifest.Meta.TotalTokens)
	return nil
}

// handleReportSnapshot 刷新库存报表快照
func (c *Consumer) handleReportSnapshot(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_report_snapshot_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ReportSnapshotPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_report_snapshot_unmarshal_failed", "error", err)
		return err
	}
	if c.ReportService == nil {
		logger.Warnw("worker_report_snapshot_skip_report_service_nil")
		return nil
	}
	if err := c.ReportService.RefreshSummarySnapshot(ctx); err != nil {
		logger.Warnw("worker_report_snapshot_refresh_failed",
			"requested_by", payload.RequestedBy,
			"error", err)
		return err
	}
	logger.Infow("worker_report_snapshot_refreshed", "requested_by", payload.RequestedBy)
	return nil
}
