package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/curatehub/curatehub/internal/distribute"
	"github.com/curatehub/curatehub/internal/model"
	"github.com/curatehub/curatehub/internal/transform"
	"github.com/curatehub/curatehub/pkg/logger"
)

var (
	// ErrNoDistributors 配置错误：输出管道没有任何分发目标
	ErrNoDistributors = errors.New("no distributors configured")
	// ErrAllDistributorsFailed 所有分发目标都失败才上抛；部分失败只记日志
	ErrAllDistributorsFailed = errors.New("all distributors failed")
)

// Processor 执行 transform→distribute 管道
// transform 失败降级用阶段前内容，distributor 间互相隔离
type Processor struct {
	transforms   *transform.Registry
	distributors *distribute.Registry
}

func NewProcessor(transforms *transform.Registry, distributors *distribute.Registry) *Processor {
	return &Processor{transforms: transforms, distributors: distributors}
}

// Process 处理单条已通过的内容
func (p *Processor) Process(ctx context.Context, c model.PipelineContent, cfg *model.OutputConfig) error {
	if len(cfg.Distribute) == 0 {
		return ErrNoDistributors
	}

	c = p.applyStages(ctx, cfg.Transform, c)

	var errs []error
	for _, d := range cfg.Distribute {
		if err := p.distributeOne(ctx, d, c); err != nil {
			logger.Error("distributor failed",
				zap.String("distributor", d.Plugin),
				zap.String("feed_id", c.FeedID),
				zap.String("external_id", c.ExternalID),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", d.Plugin, err))
		}
	}
	if len(errs) == len(cfg.Distribute) {
		return fmt.Errorf("%w: %w", ErrAllDistributorsFailed, errors.Join(errs...))
	}
	return nil
}

// ProcessBatch 批量变体：逐条全局 transform 后，batchTransform 作用于整个结果集，再扇出
func (p *Processor) ProcessBatch(ctx context.Context, items []model.PipelineContent, cfg *model.OutputConfig) error {
	if len(cfg.Distribute) == 0 {
		return ErrNoDistributors
	}
	if len(items) == 0 {
		return nil
	}

	transformed := make([]model.PipelineContent, 0, len(items))
	for _, item := range items {
		transformed = append(transformed, p.applyStages(ctx, cfg.Transform, item))
	}
	for _, stage := range cfg.BatchTransform {
		next, err := p.transforms.ApplyBatch(ctx, stage, transformed)
		if err != nil {
			// 降级：沿用本阶段前的结果集
			logger.Warn("batch transform failed, falling back",
				zap.String("stage", stage.Plugin), zap.Error(err))
			continue
		}
		transformed = next
	}

	var errs []error
	for _, d := range cfg.Distribute {
		if err := p.distributeMany(ctx, d, transformed); err != nil {
			logger.Error("distributor failed for batch",
				zap.String("distributor", d.Plugin), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", d.Plugin, err))
		}
	}
	if len(errs) == len(cfg.Distribute) {
		return fmt.Errorf("%w: %w", ErrAllDistributorsFailed, errors.Join(errs...))
	}
	return nil
}

// DispatchStream 审核通过后的下游处理：stream 未启用则跳过
// 调用方不应因此失败——通过状态已持久化，分发可独立重试
func (p *Processor) DispatchStream(ctx context.Context, sub *model.Submission, feed *model.Feed) {
	stream, err := feed.Stream()
	if err != nil {
		logger.Warn("invalid stream config", zap.String("feed_id", feed.ID), zap.Error(err))
		return
	}
	if stream == nil || !stream.Enabled {
		return
	}
	c := model.ContentFromSubmission(sub, feed.ID)
	if err := p.Process(ctx, c, stream); err != nil {
		logger.Error("stream processing failed after approval",
			zap.String("feed_id", feed.ID),
			zap.String("external_id", sub.ExternalID),
			zap.Error(err))
	}
}

// applyStages 按序执行 transform 链；任一阶段失败整链降级回输入内容
func (p *Processor) applyStages(ctx context.Context, stages []model.StageConfig, c model.PipelineContent) model.PipelineContent {
	out := c
	for _, stage := range stages {
		next, err := p.transforms.Apply(ctx, stage, out)
		if err != nil {
			logger.Warn("transform failed, falling back to prior content",
				zap.String("stage", stage.Plugin),
				zap.String("external_id", c.ExternalID),
				zap.Error(err))
			return c
		}
		out = next
	}
	return out
}

func (p *Processor) distributeOne(ctx context.Context, d model.DistributorConfig, c model.PipelineContent) error {
	dist, err := p.distributors.Get(d.Plugin)
	if err != nil {
		return err
	}
	// 分发目标自己的 transform 链失败时降级回全局 transform 后的内容
	dc := p.applyStages(ctx, d.Transform, c)
	return dist.Distribute(ctx, d.Config, dc)
}

func (p *Processor) distributeMany(ctx context.Context, d model.DistributorConfig, items []model.PipelineContent) error {
	dist, err := p.distributors.Get(d.Plugin)
	if err != nil {
		return err
	}
	for _, c := range items {
		dc := p.applyStages(ctx, d.Transform, c)
		if err := dist.Distribute(ctx, d.Config, dc); err != nil {
			return err
		}
	}
	return nil
}
