package rank

import "github.com/John-Robertt/moviebot/internal/domain"

// FilterByLanguage 保留 original_language 与 code 完全相等（区分大小写）的影片，顺序不变。
// 缺少该字段的影片永远不匹配；code 为空时返回空结果。
func FilterByLanguage(movies []domain.Movie, code string) []domain.Movie {
	out := make([]domain.Movie, 0, len(movies))
	if code == "" {
		return out
	}
	for _, m := range movies {
		if m.OriginalLanguage == code {
			out = append(out, m)
		}
	}
	return out
}
