package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// 编号前缀
const (
	PrefixCompany = "CMP"
	PrefixRequest = "REQ"
	PrefixTicket  = "TKT"
)

// Generator 基于Redis INCR按年生成可读编号，格式 PREFIX-YYYY-NNNNN
type Generator struct {
	redisClient *redis.Client
	now         func() time.Time
}

// NewGenerator 创建编号生成器
func NewGenerator(redisClient *redis.Client) *Generator {
	return &Generator{redisClient: redisClient, now: time.Now}
}

// Next 生成下一个编号
func (g *Generator) Next(ctx context.Context, prefix string) (string, error) {
	year := g.now().Year()
	key := fmt.Sprintf("seq:%s:%d", prefix, year)

	n, err := g.redisClient.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("生成%s编号失败: %w", prefix, err)
	}
	if n == 1 {
		// 计数器保留到次年之后
		g.redisClient.Expire(ctx, key, 400*24*time.Hour)
	}
	return Format(prefix, year, n), nil
}

// Format 组装编号
func Format(prefix string, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, n)
}
