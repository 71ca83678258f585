package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/curatehub/curatehub/internal/distribute"
	"github.com/curatehub/curatehub/internal/model"
	"github.com/curatehub/curatehub/internal/repository"
	"github.com/curatehub/curatehub/internal/service"
	"github.com/curatehub/curatehub/pkg/response"
)

// Handler 聚合 API 依赖，main 里显式注入
type Handler struct {
	feeds   repository.FeedRepository
	subs    repository.SubmissionRepository
	history repository.ModerationRepository
	mods    *service.ModerationService
	rss     *distribute.RSSStore
}

func New(
	feeds repository.FeedRepository,
	subs repository.SubmissionRepository,
	history repository.ModerationRepository,
	mods *service.ModerationService,
	rss *distribute.RSSStore,
) *Handler {
	return &Handler{feeds: feeds, subs: subs, history: history, mods: mods, rss: rss}
}

// ListFeedSubmissions 按 feed 列投稿，可按状态过滤
// @Summary feed 下的投稿列表
// @Tags submission
// @Param id path string true "feed id"
// @Param status query string false "pending/approved/rejected"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response
// @Router /api/v1/feeds/{id}/submissions [get]
func (h *Handler) ListFeedSubmissions(c *gin.Context) {
	status := model.SubmissionStatus(c.Query("status"))
	switch status {
	case "", model.StatusPending, model.StatusApproved, model.StatusRejected:
	default:
		response.BadRequest(c, "invalid status filter")
		return
	}
	page, pageSize := pagination(c)
	list, err := h.subs.ListByFeed(c.Request.Context(), c.Param("id"), status, (page-1)*pageSize, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// GetSubmission 查询投稿及其各 feed 状态
// @Summary 查询投稿
// @Tags submission
// @Param id path string true "submission id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/submissions/{id} [get]
func (h *Handler) GetSubmission(c *gin.Context) {
	ctx := c.Request.Context()
	sub, err := h.subs.Get(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		response.NotFound(c, "submission not found")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	feeds, err := h.subs.ListFeedsFor(ctx, sub.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"submission": sub, "feeds": feeds})
}

// SubmissionHistory 审核流水
// @Summary 投稿的审核历史
// @Tags submission
// @Param id path string true "submission id"
// @Success 200 {object} response.Response
// @Router /api/v1/submissions/{id}/history [get]
func (h *Handler) SubmissionHistory(c *gin.Context) {
	list, err := h.history.ListBySubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, list)
}

type moderateRequest struct {
	SubmissionID string `json:"submission_id" binding:"required"`
	FeedID       string `json:"feed_id" binding:"required"`
	AdminID      string `json:"admin_id" binding:"required"`
	Action       string `json:"action" binding:"required,oneof=approve reject"`
	Note         string `json:"note"`
}

// Moderate 审核触发入口（平台指令之外的显式入口）
// @Summary 审核投稿
// @Tags submission
// @Accept json
// @Produce json
// @Param request body moderateRequest true "审核请求"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/moderate [post]
func (h *Handler) Moderate(c *gin.Context) {
	var req moderateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.mods.Decide(c.Request.Context(), req.SubmissionID, req.FeedID, req.AdminID,
		model.ModerationVerb(req.Action), req.Note, "")
	switch {
	case err == nil:
		response.Success(c, nil)
	case errors.Is(err, service.ErrNotApprover):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrInvalidAction):
		response.BadRequest(c, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		response.NotFound(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
