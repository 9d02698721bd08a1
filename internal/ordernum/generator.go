package ordernum

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	radix "github.com/mediocregopher/radix/v3"
)

const (
	redisSeqKey = "order:seq:%s" // yyyyMMdd
	// 计数键保留 48 小时，跨天残留自动清理
	seqKeyTTLSeconds = 48 * 3600
)

// Sequencer 按日序列号分配器，同一天内的 Next 必须全局串行递增
type Sequencer interface {
	Next(ctx context.Context, day string) (int64, error)
}

// RedisSequencer 基于 Redis INCR 的按日计数，天然原子，多实例安全
type RedisSequencer struct {
	redis radix.Client
}

func NewRedisSequencer(redis radix.Client) *RedisSequencer {
	return &RedisSequencer{redis: redis}
}

func (s *RedisSequencer) Next(ctx context.Context, day string) (int64, error) {
	key := fmt.Sprintf(redisSeqKey, day)
	var seq int64
	if err := s.redis.Do(radix.Cmd(&seq, "INCR", key)); err != nil {
		return 0, fmt.Errorf("incr order sequence: %w", err)
	}
	if seq == 1 {
		_ = s.redis.Do(radix.FlatCmd(nil, "EXPIRE", key, seqKeyTTLSeconds))
	}
	return seq, nil
}

// MemorySequencer 进程内计数，单实例部署或测试用
type MemorySequencer struct {
	mu   sync.Mutex
	seqs map[string]int64
}

func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{seqs: make(map[string]int64)}
}

func (s *MemorySequencer) Next(ctx context.Context, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[day]++
	return s.seqs[day], nil
}

// Generator 订单号生成器，格式 ORD-yyyyMMdd-NNNN
type Generator struct {
	seq Sequencer
}

func NewGenerator(seq Sequencer) *Generator {
	return &Generator{seq: seq}
}

// Next 生成当日唯一订单号
func (g *Generator) Next(ctx context.Context, now time.Time) (string, error) {
	day := now.UTC().Format("20060102")
	n, err := g.seq.Next(ctx, day)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ORD-%s-%04d", day, n), nil
}

// SeedNumber 种子数据用的随机订单号（ORD-yyyyMMdd-6 位大写十六进制），
// 不占用当日序列，不用于对客订单。
func SeedNumber(now time.Time) string {
	u := uuid.New()
	return fmt.Sprintf("ORD-%s-%s",
		now.UTC().Format("20060102"),
		strings.ToUpper(hex.EncodeToString(u[:3])))
}
