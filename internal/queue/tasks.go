package queue

import (
	"encoding/json"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskBatchManifest 批次清单归档任务
	TaskBatchManifest = constants.TaskBatchManifest
	// TaskReportSnapshot 库存报表快照任务
	TaskReportSnapshot = constants.TaskReportSnapshot
)

// BatchManifestPayload 批次清单归档任务载荷
type BatchManifestPayload struct {
	BatchID uint `json:"batch_id"`
}

// ReportSnapshotPayload 报表快照任务载荷
type ReportSnapshotPayload struct {
	RequestedBy uint `json:"requested_by,omitempty"`
}

// NewBatchManifestTask 创建批次清单归档任务
func NewBatchManifestTask(payload BatchManifestPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBatchManifest, body), nil
}

// NewReportSnapshotTask 创建报表快照任务
func NewReportSnapshotTask(payload ReportSnapshotPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportSnapshot, body), nil
}
