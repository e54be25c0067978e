package rank

import (
	"container/heap"

	"github.com/John-Robertt/moviebot/internal/domain"
)

// TopK 返回评分最高的 k 部影片（降序）。
//
// 规则：
// - 评分由 domain.Movie.Score 提取；无可用评分的影片不参与排序
// - 同分按出现顺序：先出现者排前
// - 可用影片不足 k 部时全部返回（不补齐）；k <= 0 返回空
//
// 实现：把 (-score, seq) 作为 key 建堆（O(n)），再弹出 k 次（O(k log n)）。
func TopK(movies []domain.Movie, k int) []domain.Ranked {
	if k <= 0 {
		return []domain.Ranked{}
	}

	h := make(candidates, 0, len(movies))
	for _, m := range movies {
		s, ok := m.Score()
		if !ok {
			continue
		}
		h = append(h, candidate{score: s, seq: len(h), movie: m})
	}
	heap.Init(&h)

	n := k
	if h.Len() < n {
		n = h.Len()
	}
	out := make([]domain.Ranked, 0, n)
	for i := 0; i < n; i++ {
		c := heap.Pop(&h).(candidate)
		out = append(out, domain.Ranked{Movie: c.movie, Score: c.score})
	}
	return out
}

type candidate struct {
	score float64
	seq   int
	movie domain.Movie
}

// candidates 实现 heap.Interface；堆顶是 (score 最大, seq 最小)。
type candidates []candidate

func (c candidates) Len() int { return len(c) }

func (c candidates) Less(i, j int) bool {
	if c[i].score != c[j].score {
		return c[i].score > c[j].score
	}
	return c[i].seq < c[j].seq
}

func (c candidates) Swap(i, j int) { c[i], c[j] = c[j], c[i] }

func (c *candidates) Push(x any) { *c = append(*c, x.(candidate)) }

func (c *candidates) Pop() any {
	old := *c
	n := len(old)
	x := old[n-1]
	*c = old[:n-1]
	return x
}
