// Package model 实现 item2vec：在客户购买序列上训练商品向量。
package model

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/item2rec/core"
)

// MinSequences 是训练的硬性下限：序列数低于该值时向量空间的几何
// 在统计上没有意义，训练直接以 DATA_INSUFFICIENT 失败。
const MinSequences = 10

// Config 是 item2vec 的训练超参数。
type Config struct {
	Dimension    int     `yaml:"dimension"`     // 向量维度，默认 64
	Window       int     `yaml:"window"`        // 上下文窗口，默认 5
	MinCount     int     `yaml:"min_count"`     // 最小出现次数，默认 2
	Epochs       int     `yaml:"epochs"`        // 训练轮数，默认 10
	Negative     int     `yaml:"negative"`      // 负采样数，默认 5
	LearningRate float64 `yaml:"learning_rate"` // 初始学习率，默认 0.025
	Workers      int     `yaml:"workers"`       // 并发 worker 数，默认 GOMAXPROCS
	Seed         int64   `yaml:"seed"`          // 随机种子（0 表示固定默认种子，保证可复现）
}

// DefaultConfig 返回默认训练配置。
func DefaultConfig() Config {
	return Config{
		Dimension:    64,
		Window:       5,
		MinCount:     2,
		Epochs:       10,
		Negative:     5,
		LearningRate: 0.025,
	}
}

func (c *Config) normalize() {
	if c.Dimension <= 0 {
		c.Dimension = 64
	}
	if c.Window <= 0 {
		c.Window = 5
	}
	if c.MinCount <= 0 {
		c.MinCount = 2
	}
	if c.Epochs <= 0 {
		c.Epochs = 10
	}
	if c.Negative < 0 {
		c.Negative = 5
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.025
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
}

// Train 在购买序列上训练 skip-gram 负采样模型，产出 EmbeddingSpace。
//
// 训练目标：同一序列中窗口内共现的商品获得高点积相似度。
// 并发模型：worker 按序列分片无锁并发更新共享矩阵（word2vec 的
// 标准 hogwild 做法，少量写冲突不影响收敛）。ctx 取消会在序列
// 边界尽快退出并返回 ctx.Err()。
func Train(ctx context.Context, sequences [][]string, cfg Config) (*EmbeddingSpace, error) {
	cfg.normalize()

	if len(sequences) < MinSequences {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeDataInsufficient,
			fmt.Sprintf("model: need at least %d customer sequences, got %d", MinSequences, len(sequences)))
	}

	vocab := buildVocab(sequences, cfg.MinCount)
	if len(vocab.ranked) == 0 {
		return nil, core.NewDomainError(core.ModuleModel, core.ErrorCodeDataInsufficient,
			fmt.Sprintf("model: no item reaches min_count=%d", cfg.MinCount))
	}

	t := newTrainer(vocab, cfg)
	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		if err := t.runEpoch(ctx, sequences, epoch); err != nil {
			return nil, err
		}
	}

	return t.space(), nil
}

// vocabulary 是训练期的词表：频次统计 + 稠密位置映射。
type vocabulary struct {
	ranked []string       // 频次降序、同频字典序
	pos    map[string]int // itemID -> 稠密位置
	counts map[string]int
	total  int // 词表内 token 总量（含重复）
}

func buildVocab(sequences [][]string, minCount int) *vocabulary {
	counts := make(map[string]int)
	for _, seq := range sequences {
		for _, id := range seq {
			counts[id]++
		}
	}

	v := &vocabulary{
		pos:    make(map[string]int),
		counts: make(map[string]int),
	}
	for id, c := range counts {
		if c >= minCount {
			v.ranked = append(v.ranked, id)
			v.counts[id] = c
			v.total += c
		}
	}
	sort.Slice(v.ranked, func(i, j int) bool {
		ci, cj := v.counts[v.ranked[i]], v.counts[v.ranked[j]]
		if ci != cj {
			return ci > cj
		}
		return v.ranked[i] < v.ranked[j]
	})
	for i, id := range v.ranked {
		v.pos[id] = i
	}
	return v
}

const unigramTableSize = 1 << 17

// trainer 持有训练期的共享状态。
type trainer struct {
	cfg   Config
	vocab *vocabulary

	syn0 [][]float64 // 输入向量（训练产出）
	syn1 [][]float64 // 输出向量（负采样参数）

	unigram   []int // 负采样表（频次^0.75 加权）
	processed atomic.Int64
	totalWork int64 // 用于学习率线性衰减
}

func newTrainer(vocab *vocabulary, cfg Config) *trainer {
	t := &trainer{cfg: cfg, vocab: vocab}

	rng := rand.New(rand.NewSource(cfg.Seed + 1))
	dim := cfg.Dimension
	t.syn0 = make([][]float64, len(vocab.ranked))
	t.syn1 = make([][]float64, len(vocab.ranked))
	for i := range t.syn0 {
		vec := make([]float64, dim)
		for d := range vec {
			vec[d] = (rng.Float64() - 0.5) / float64(dim)
		}
		t.syn0[i] = vec
		t.syn1[i] = make([]float64, dim)
	}

	// 负采样表：P(w) ∝ count(w)^0.75
	t.unigram = make([]int, 0, unigramTableSize)
	var powSum float64
	for _, id := range vocab.ranked {
		powSum += math.Pow(float64(vocab.counts[id]), 0.75)
	}
	for i, id := range vocab.ranked {
		share := math.Pow(float64(vocab.counts[id]), 0.75) / powSum
		n := int(share * unigramTableSize)
		if n < 1 {
			n = 1
		}
		for j := 0; j < n; j++ {
			t.unigram = append(t.unigram, i)
		}
	}

	t.totalWork = int64(cfg.Epochs) * int64(vocab.total)
	return t
}

// runEpoch 将序列分片交给 worker 并发训练一轮。
func (t *trainer) runEpoch(ctx context.Context, sequences [][]string, epoch int) error {
	workers := t.cfg.Workers
	if workers > len(sequences) {
		workers = len(sequences)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		shard := w
		eg.Go(func() error {
			// worker 独立随机流：种子由 (seed, epoch, shard) 决定，可复现
			rng := rand.New(rand.NewSource(t.cfg.Seed*7919 + int64(epoch)*613 + int64(shard)))
			for i := shard; i < len(sequences); i += workers {
				if err := egCtx.Err(); err != nil {
					return err
				}
				t.trainSequence(sequences[i], rng)
			}
			return nil
		})
	}
	return eg.Wait()
}

func (t *trainer) trainSequence(seq []string, rng *rand.Rand) {
	// 序列先投影到词表内的稠密位置，OOV 直接剔除
	positions := make([]int, 0, len(seq))
	for _, id := range seq {
		if p, ok := t.vocab.pos[id]; ok {
			positions = append(positions, p)
		}
	}
	if len(positions) < 2 {
		return
	}

	dim := t.cfg.Dimension
	grad := make([]float64, dim)

	for center := range positions {
		alpha := t.alpha()

		// 实际窗口大小在 [1, Window] 内均匀采样（标准 skip-gram 做法）
		window := 1 + rng.Intn(t.cfg.Window)
		lo := center - window
		if lo < 0 {
			lo = 0
		}
		hi := center + window
		if hi >= len(positions) {
			hi = len(positions) - 1
		}

		for c := lo; c <= hi; c++ {
			if c == center {
				continue
			}
			t.trainPair(positions[c], positions[center], alpha, grad, rng)
		}
		t.processed.Add(1)
	}
}

// trainPair 对 (输入词 in, 目标词 target) 做一次 SGNS 更新。
func (t *trainer) trainPair(in, target int, alpha float64, grad []float64, rng *rand.Rand) {
	dim := t.cfg.Dimension
	v := t.syn0[in]
	for d := range grad {
		grad[d] = 0
	}

	for n := 0; n <= t.cfg.Negative; n++ {
		var out int
		var label float64
		if n == 0 {
			out = target
			label = 1
		} else {
			out = t.unigram[rng.Intn(len(t.unigram))]
			if out == target {
				continue
			}
			label = 0
		}

		u := t.syn1[out]
		var dot float64
		for d := 0; d < dim; d++ {
			dot += v[d] * u[d]
		}
		g := (label - sigmoid(dot)) * alpha

		for d := 0; d < dim; d++ {
			grad[d] += g * u[d]
			u[d] += g * v[d]
		}
	}

	for d := 0; d < dim; d++ {
		v[d] += grad[d]
	}
}

// alpha 返回当前学习率：随处理进度线性衰减，保底 1e-4 倍初始值。
func (t *trainer) alpha() float64 {
	done := float64(t.processed.Load()) / float64(t.totalWork)
	a := t.cfg.LearningRate * (1 - done)
	if min := t.cfg.LearningRate * 1e-4; a < min {
		a = min
	}
	return a
}

func sigmoid(x float64) float64 {
	// 截断避免 exp 溢出，同时保证输出为有限值
	if x > 8 {
		return 1
	}
	if x < -8 {
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}

// space 导出训练产出的向量空间。
func (t *trainer) space() *EmbeddingSpace {
	vectors := make(map[string][]float64, len(t.vocab.ranked))
	for i, id := range t.vocab.ranked {
		vectors[id] = t.syn0[i]
	}
	ranked := make([]string, len(t.vocab.ranked))
	copy(ranked, t.vocab.ranked)

	return &EmbeddingSpace{
		Vectors:   vectors,
		Dimension: t.cfg.Dimension,
		Ranked:    ranked,
		Counts:    t.vocab.counts,
	}
}
