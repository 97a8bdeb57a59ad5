package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/item2rec/bundle"
	"github.com/rushteam/item2rec/core"
	"github.com/rushteam/item2rec/extract"
	"github.com/rushteam/item2rec/index"
	"github.com/rushteam/item2rec/model"
)

// ModelType 是本引擎在版本登记簿中使用的模型类型名。
const ModelType = "recommendation"

// Trainer 是离线训练任务：事件 → 序列 → 向量 → 索引 → 模型包。
//
// 与在线侧刻意不对称：训练失败（数据不足、存储故障）向调用方
// 大声返回错误，由调度系统告警重试；在线侧永远静默降级。
type Trainer struct {
	// Source 购买事件来源
	Source core.EventSource

	// Bundles 模型包存储；训练成功后写入新版本
	Bundles *bundle.Store

	// Registry 模型版本登记簿；nil 表示不登记
	Registry core.ModelVersionRegistry

	// Handle 训练完成后触发热加载；nil 表示仅产出不加载
	Handle *bundle.Handle

	// Config 训练超参
	Config model.Config

	// Logger 训练过程日志
	Logger zerolog.Logger
}

// TrainResult 是一次成功训练的产出摘要。
type TrainResult struct {
	Version       string  `json:"version"`
	VocabSize     int     `json:"vocab_size"`
	SequenceCount int     `json:"sequence_count"`
	SkippedEvents int     `json:"skipped_events"`
	Coverage      float64 `json:"coverage"` // 词表商品数 / 序列内出现过的商品种数
	Elapsed       time.Duration
}

// Run 执行一次完整训练，产出并持久化新版本模型包。
//
// 序列不足（< model.MinSequences）返回 DATA_INSUFFICIENT 错误，
// 已有的线上模型包不受影响。
func (t *Trainer) Run(ctx context.Context, q core.EventQuery) (*TrainResult, error) {
	start := time.Now()

	// 1. 抽取序列
	extractor := &extract.Extractor{Source: t.Source}
	sequences, stats, err := extractor.Extract(ctx, q)
	if err != nil {
		return nil, err
	}
	t.Logger.Info().
		Int("events", stats.Events).
		Int("skipped", stats.SkippedEvents).
		Int("customers", stats.Customers).
		Msg("sequence extraction finished")

	corpus := make([][]string, len(sequences))
	distinct := make(map[string]struct{})
	for i, seq := range sequences {
		corpus[i] = seq.Items
		for _, id := range seq.Items {
			distinct[id] = struct{}{}
		}
	}

	// 2. 训练向量空间
	space, err := model.Train(ctx, corpus, t.Config)
	if err != nil {
		return nil, err
	}

	// 3. 构建索引
	idx, err := index.Build(space)
	if err != nil {
		return nil, err
	}

	// 4. 组装并持久化模型包
	version := bundle.NewVersion(time.Now())
	b := &bundle.Bundle{
		Version:   version,
		Dimension: space.Dimension,
		Space:     space,
		Index:     idx,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.Bundles.Save(ctx, b); err != nil {
		return nil, err
	}

	coverage := 0.0
	if len(distinct) > 0 {
		coverage = float64(space.Size()) / float64(len(distinct))
	}

	// 5. 登记版本并接管 active 位
	if t.Registry != nil {
		rec := core.ModelVersion{
			ModelType: ModelType,
			Version:   version,
			Path:      t.Bundles.KeyPrefix,
			Metrics: map[string]float64{
				"coverage":       coverage,
				"skipped_events": float64(stats.SkippedEvents),
			},
			SampleCount:  len(sequences),
			FeatureCount: space.Dimension,
			IsActive:     true,
			CreatedAt:    b.CreatedAt,
		}
		if err := t.Registry.RecordVersion(ctx, rec); err != nil {
			return nil, err
		}
	}

	// 6. 触发热加载（可选）
	if t.Handle != nil {
		if err := t.Handle.Reload(ctx); err != nil {
			// 模型包已落盘且登记成功，热加载失败不回滚训练结果
			t.Logger.Error().Str("version", version).Err(err).
				Msg("bundle produced but hot reload failed")
		}
	}

	result := &TrainResult{
		Version:       version,
		VocabSize:     space.Size(),
		SequenceCount: len(sequences),
		SkippedEvents: stats.SkippedEvents,
		Coverage:      coverage,
		Elapsed:       time.Since(start),
	}
	t.Logger.Info().
		Str("version", result.Version).
		Int("vocab_size", result.VocabSize).
		Int("sequences", result.SequenceCount).
		Dur("elapsed", result.Elapsed).
		Msg("training finished")
	return result, nil
}

// Job 是一次异步训练任务的句柄。
type Job struct {
	done   chan struct{}
	result *TrainResult
	err    error
}

// Done 返回任务完成信号通道。
func (j *Job) Done() <-chan struct{} { return j.done }

// Result 阻塞等待任务完成并返回结果。
func (j *Job) Result() (*TrainResult, error) {
	<-j.done
	return j.result, j.err
}

// RunAsync 在后台 goroutine 中执行训练，立即返回任务句柄。
func (t *Trainer) RunAsync(ctx context.Context, q core.EventQuery) *Job {
	job := &Job{done: make(chan struct{})}
	go func() {
		defer close(job.done)
		job.result, job.err = t.Run(ctx, q)
	}()
	return job
}
