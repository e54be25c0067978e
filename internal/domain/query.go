package domain

// Query 是一次推荐周期的输入（已经过 catalog 解析）。
type Query struct {
	// GenreIDs 是逗号拼接的 provider genre id，例如 "27,10749"；为空表示不按类型过滤。
	GenreIDs string
	// Language 是 original_language 的目标代码，例如 "en"。
	Language string
}

// Ranked 是参与排序后的一条结果。
type Ranked struct {
	Movie Movie
	Score float64
}

// Recommendation 是一次推荐周期的输出。
type Recommendation struct {
	Query Query

	// Movies 按评分降序；同分按抓取顺序（先出现者在前）。长度 <= TopK。
	Movies []Ranked

	// UsedFallback 表示首轮（genre + language）为空，结果来自 language-only 的回退抓取。
	UsedFallback bool

	// Candidates 是语言过滤后的影片数量（排序前）。
	Candidates int
}
