package provider

import (
	"context"

	"github.com/John-Robertt/moviebot/internal/domain"
)

// Source 把“外部接口变化”限制在 provider 包内部；推荐流程只依赖这个接口。
//
// 约束：
// - 单页失败（非 2xx / 网络错误 / 结构不对）只跳过该页，不影响其他页
// - 结果顺序：先按页序，再按页内顺序；不去重
// - 只有 ctx 被取消时才返回 error
type Source interface {
	Discover(ctx context.Context, genreIDs string) (Result, error)
}

// Result 是一次多页抓取的汇总。
type Result struct {
	Movies   []domain.Movie
	Attempts []PageAttempt
}

// FailedPages 返回失败页数。
func (r Result) FailedPages() int {
	n := 0
	for _, a := range r.Attempts {
		if a.Err != nil {
			n++
		}
	}
	return n
}

// PageAttempt 记录单页请求的结果（用于日志与诊断，不直接展示给用户）。
type PageAttempt struct {
	Page  int
	Count int   // 该页解析出的影片数
	Err   error // nil 表示成功
}
