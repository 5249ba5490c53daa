package admin

import (
	"errors"
	"strings"

	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/http/response"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/queue"
	"github.com/CuckCybsacTEST/tokensapp-sub002/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminReportSummary 获取全局统计 (Admin)
func (h *Handler) GetAdminReportSummary(c *gin.Context) {
	startAt, err := parseTimeNullable(strings.TrimSpace(c.Query("start_at")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "start_at 参数无效", err)
		return
	}
	endAt, err := parseTimeNullable(strings.TrimSpace(c.Query("end_at")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "end_at 参数无效", err)
		return
	}
	forceRefresh := strings.EqualFold(c.Query("force_refresh"), "true")

	summary, err := h.ReportService.GetSummary(c.Request.Context(), service.ReportQueryInput{
		StartAt:      startAt,
		EndAt:        endAt,
		ForceRefresh: forceRefresh,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "获取统计数据失败", err)
		return
	}
	response.Success(c, summary)
}

// GetAdminBatchReport 获取批次统计 (Admin)
func (h *Handler) GetAdminBatchReport(c *gin.Context) {
	id, ok := parsePathID(c)
	if !ok {
		return
	}
	if _, err := h.BatchService.GetBatch(id); err != nil {
		if errors.Is(err, service.ErrBatchNotFound) {
			respondError(c, response.CodeNotFound, "批次不存在", nil)
			return
		}
		respondError(c, response.CodeInternal, "获取批次失败", err)
		return
	}
	report, err := h.ReportService.GetBatchReport(c.Request.Context(), id)
	if err != nil {
		respondError(c, response.CodeInternal, "获取批次统计失败", err)
		return
	}
	response.Success(c, report)
}

// TriggerAdminReportSnapshot 触发报表快照任务 (Admin)
func (h *Handler) TriggerAdminReportSnapshot(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	if h.QueueClient == nil || !h.QueueClient.Enabled() {
		respondError(c, response.CodeInternal, "队列未启用", nil)
		return
	}
	if err := h.QueueClient.EnqueueReportSnapshot(queue.ReportSnapshotPayload{RequestedBy: adminID}, 0); err != nil {
		respondError(c, response.CodeInternal, "任务投递失败", err)
		return
	}
	requestLog(c).Infow("admin_report_snapshot_enqueued", "admin_id", adminID)
	response.SuccessWithMsg(c, "快照任务已投递", nil)
}
