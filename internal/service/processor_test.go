package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curatehub/curatehub/internal/distribute"
	"github.com/curatehub/curatehub/internal/model"
	"github.com/curatehub/curatehub/internal/transform"
)

func newProcessorFixture() (*Processor, *distribute.Memory, *distribute.Memory) {
	transforms := transform.NewRegistry()
	transform.RegisterBuiltins(transforms)
	distributors := distribute.NewRegistry()
	a, b := distribute.NewMemory(), distribute.NewMemory()
	distributors.Register("a", a)
	distributors.Register("b", b)
	return NewProcessor(transforms, distributors), a, b
}

func TestProcessNoDistributors(t *testing.T) {
	p, _, _ := newProcessorFixture()
	err := p.Process(context.Background(), model.PipelineContent{Text: "x"}, &model.OutputConfig{Enabled: true})
	assert.ErrorIs(t, err, ErrNoDistributors)
}

func TestProcessOneFailingDistributorIsolated(t *testing.T) {
	p, a, b := newProcessorFixture()
	a.Fail = func(model.PipelineContent) error { return errors.New("boom") }

	cfg := &model.OutputConfig{
		Enabled:    true,
		Distribute: []model.DistributorConfig{{Plugin: "a"}, {Plugin: "b"}},
	}
	err := p.Process(context.Background(), model.PipelineContent{ExternalID: "t1", Text: "hello"}, cfg)
	require.NoError(t, err)

	// a 挂掉不拖累 b
	assert.Empty(t, a.Deliveries())
	require.Len(t, b.Deliveries(), 1)
	assert.Equal(t, "hello", b.Deliveries()[0].Text)
}

func TestProcessAllDistributorsFailed(t *testing.T) {
	p, a, b := newProcessorFixture()
	a.Fail = func(model.PipelineContent) error { return errors.New("boom a") }
	b.Fail = func(model.PipelineContent) error { return errors.New("boom b") }

	cfg := &model.OutputConfig{
		Enabled:    true,
		Distribute: []model.DistributorConfig{{Plugin: "a"}, {Plugin: "b"}},
	}
	err := p.Process(context.Background(), model.PipelineContent{Text: "hello"}, cfg)
	assert.ErrorIs(t, err, ErrAllDistributorsFailed)
}

func TestProcessTransformFailureFallsBackToOriginal(t *testing.T) {
	p, a, _ := newProcessorFixture()
	cfg := &model.OutputConfig{
		Enabled: true,
		Transform: []model.StageConfig{
			{Plugin: "prefix", Config: map[string]any{"prefix": "[x] "}},
			{Plugin: "template"}, // 缺 template 配置，必然失败
		},
		Distribute: []model.DistributorConfig{{Plugin: "a"}},
	}
	err := p.Process(context.Background(), model.PipelineContent{Text: "hello"}, cfg)
	require.NoError(t, err)

	// 链上任一阶段失败，整链降级回原始内容，前面成功的 prefix 也不保留
	require.Len(t, a.Deliveries(), 1)
	assert.Equal(t, "hello", a.Deliveries()[0].Text)
}

func TestProcessPerDistributorTransformChain(t *testing.T) {
	p, a, b := newProcessorFixture()
	cfg := &model.OutputConfig{
		Enabled: true,
		Transform: []model.StageConfig{
			{Plugin: "prefix", Config: map[string]any{"prefix": "[news] "}},
		},
		Distribute: []model.DistributorConfig{
			{Plugin: "a", Transform: []model.StageConfig{
				{Plugin: "prefix", Config: map[string]any{"prefix": "> "}},
			}},
			{Plugin: "b"},
		},
	}
	err := p.Process(context.Background(), model.PipelineContent{Text: "hello"}, cfg)
	require.NoError(t, err)

	require.Len(t, a.Deliveries(), 1)
	assert.Equal(t, "> [news] hello", a.Deliveries()[0].Text)
	require.Len(t, b.Deliveries(), 1)
	assert.Equal(t, "[news] hello", b.Deliveries()[0].Text)
}

func TestProcessBatchDigest(t *testing.T) {
	p, a, _ := newProcessorFixture()
	cfg := &model.OutputConfig{
		Enabled: true,
		BatchTransform: []model.StageConfig{
			{Plugin: "template", Config: map[string]any{"template": "- {{.Text}}", "separator": "\n"}},
		},
		Distribute: []model.DistributorConfig{{Plugin: "a"}},
	}
	items := []model.PipelineContent{{Text: "first"}, {Text: "second"}}
	err := p.ProcessBatch(context.Background(), items, cfg)
	require.NoError(t, err)

	require.Len(t, a.Deliveries(), 1)
	assert.Equal(t, "- first\n- second", a.Deliveries()[0].Text)
}

func TestProcessBatchStageFailureFallsBack(t *testing.T) {
	p, a, _ := newProcessorFixture()
	cfg := &model.OutputConfig{
		Enabled: true,
		BatchTransform: []model.StageConfig{
			{Plugin: "template"}, // 缺配置
		},
		Distribute: []model.DistributorConfig{{Plugin: "a"}},
	}
	items := []model.PipelineContent{{Text: "first"}, {Text: "second"}}
	err := p.ProcessBatch(context.Background(), items, cfg)
	require.NoError(t, err)

	// 批量阶段失败沿用阶段前结果集，逐条分发
	require.Len(t, a.Deliveries(), 2)
	assert.Equal(t, "first", a.Deliveries()[0].Text)
	assert.Equal(t, "second", a.Deliveries()[1].Text)
}

func TestProcessBatchEmpty(t *testing.T) {
	p, a, _ := newProcessorFixture()
	cfg := &model.OutputConfig{
		Enabled:    true,
		Distribute: []model.DistributorConfig{{Plugin: "a"}},
	}
	require.NoError(t, p.ProcessBatch(context.Background(), nil, cfg))
	assert.Empty(t, a.Deliveries())
}
