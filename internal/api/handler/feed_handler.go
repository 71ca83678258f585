package handler

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/curatehub/curatehub/internal/model"
	"github.com/curatehub/curatehub/internal/repository"
	"github.com/curatehub/curatehub/pkg/response"
)

type feedRequest struct {
	ID                string               `json:"id" binding:"required,feedslug"`
	Name              string               `json:"name" binding:"required"`
	Description       string               `json:"description"`
	Enabled           *bool                `json:"enabled"`
	Approvers         []string             `json:"approvers"`
	Stream            *model.OutputConfig  `json:"stream"`
	Recaps            []model.OutputConfig `json:"recap"`
	Sources           []model.SourceConfig `json:"sources"`
	PollingIntervalMs int                  `json:"pollingIntervalMs"`
}

func (req *feedRequest) toModel() (*model.Feed, error) {
	feed := &model.Feed{
		ID:                req.ID,
		Name:              req.Name,
		Description:       req.Description,
		Enabled:           true,
		PollingIntervalMs: req.PollingIntervalMs,
	}
	if req.Enabled != nil {
		feed.Enabled = *req.Enabled
	}
	var err error
	if feed.Approvers, err = marshalJSON(req.Approvers); err != nil {
		return nil, err
	}
	if req.Stream != nil {
		if feed.StreamOutput, err = marshalJSON(req.Stream); err != nil {
			return nil, err
		}
	}
	if len(req.Recaps) > 0 {
		if feed.RecapOutputs, err = marshalJSON(req.Recaps); err != nil {
			return nil, err
		}
	}
	if len(req.Sources) > 0 {
		if feed.Sources, err = marshalJSON(req.Sources); err != nil {
			return nil, err
		}
	}
	return feed, nil
}

func marshalJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// CreateFeed 创建 feed 配置
// @Summary 创建 feed
// @Tags feed
// @Accept json
// @Produce json
// @Param request body feedRequest true "feed 配置"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/feeds [post]
func (h *Handler) CreateFeed(c *gin.Context) {
	var req feedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	feed, err := req.toModel()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.feeds.Create(c.Request.Context(), feed); err != nil {
		response.Conflict(c, err.Error())
		return
	}
	response.Created(c, feed)
}

// GetFeed 查询单个 feed
// @Summary 查询 feed
// @Tags feed
// @Param id path string true "feed id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/feeds/{id} [get]
func (h *Handler) GetFeed(c *gin.Context) {
	feed, err := h.feeds.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		response.NotFound(c, "feed not found")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, feed)
}

// ListFeeds 分页列出 feed
// @Summary feed 列表
// @Tags feed
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response
// @Router /api/v1/feeds [get]
func (h *Handler) ListFeeds(c *gin.Context) {
	page, pageSize := pagination(c)
	list, err := h.feeds.List(c.Request.Context(), (page-1)*pageSize, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// UpdateFeed 更新 feed 配置
// @Summary 更新 feed
// @Tags feed
// @Accept json
// @Produce json
// @Param id path string true "feed id"
// @Param request body feedRequest true "feed 配置"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/feeds/{id} [put]
func (h *Handler) UpdateFeed(c *gin.Context) {
	var req feedRequest
	req.ID = c.Param("id")
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	req.ID = c.Param("id")
	feed, err := req.toModel()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.feeds.Update(c.Request.Context(), feed); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.NotFound(c, "feed not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, feed)
}

// DeleteFeed 删除 feed 配置
// @Summary 删除 feed
// @Tags feed
// @Param id path string true "feed id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/feeds/{id} [delete]
func (h *Handler) DeleteFeed(c *gin.Context) {
	err := h.feeds.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		response.NotFound(c, "feed not found")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// FeedRSS 输出 feed 的 RSS
// @Summary feed RSS 输出
// @Tags feed
// @Produce xml
// @Param id path string true "feed id"
// @Success 200 {string} string "rss xml"
// @Router /feeds/{id}/rss.xml [get]
func (h *Handler) FeedRSS(c *gin.Context) {
	feedID := c.Param("id")
	feed, err := h.feeds.Get(c.Request.Context(), feedID)
	if errors.Is(err, repository.ErrNotFound) {
		response.NotFound(c, "feed not found")
		return
	}
	if err != nil {
		response.InternalError(c, err)
		return
	}
	body, err := h.rss.Render(feed.ID, feed.Name, c.Request.Host)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	c.Data(200, "application/rss+xml; charset=utf-8", body)
}

func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
