package domain

import (
	"encoding/json"
	"testing"
)

func decodeMovie(t *testing.T, s string) Movie {
	t.Helper()
	var m Movie
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("解析 JSON 失败：%v", err)
	}
	return m
}

func TestMovieScore_FieldPriority(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		want   float64
		wantOK bool
	}{
		{"vote_average 数字", `{"vote_average":8.1}`, 8.1, true},
		{"vote_average 优先于 rating", `{"vote_average":7,"rating":9}`, 7, true},
		{"vote_average 为 0 视为假值，取 rating", `{"vote_average":0,"rating":"6.5"}`, 6.5, true},
		{"只有 imdbRating 字符串", `{"imdbRating":"7.9"}`, 7.9, true},
		{"字符串带空白", `{"rating":" 5.5 "}`, 5.5, true},
		{"null 跳过", `{"vote_average":null,"imdbRating":"8"}`, 8, true},
		{"空串跳过", `{"vote_average":"","rating":4}`, 4, true},
		{"N/A 不可解析，不再回退", `{"imdbRating":"N/A"}`, 0, false},
		{"选中字段解析失败不继续尝试", `{"vote_average":"N/A","rating":9}`, 0, false},
		{"负数排除", `{"vote_average":-1}`, 0, false},
		{"字符串 0 排除", `{"rating":"0"}`, 0, false},
		{"NaN 排除", `{"rating":"NaN"}`, 0, false},
		{"布尔不是数字", `{"rating":true}`, 0, false},
		{"对象不是数字", `{"rating":{"value":8}}`, 0, false},
		{"全部缺失", `{"title":"x"}`, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := decodeMovie(t, tc.body)
			got, ok := m.Score()
			if ok != tc.wantOK || got != tc.want {
				t.Fatalf("Score()=(%v,%v)，期望 (%v,%v)", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestMovie_DisplayDefaults(t *testing.T) {
	m := Movie{}
	if m.DisplayTitle() != DefaultTitle {
		t.Fatalf("期望默认标题 %q，实际 %q", DefaultTitle, m.DisplayTitle())
	}
	if m.Year() != "N/A" {
		t.Fatalf("期望 year=N/A，实际 %q", m.Year())
	}

	m = Movie{Title: "Alien", ReleaseDate: "1979-05-25"}
	if m.DisplayTitle() != "Alien" || m.Year() != "1979" {
		t.Fatalf("展示字段不符合预期：title=%q year=%q", m.DisplayTitle(), m.Year())
	}
}

func TestRatingValue_Constructors(t *testing.T) {
	m := Movie{IMDbRating: TextRating("7.25")}
	if got, ok := m.Score(); !ok || got != 7.25 {
		t.Fatalf("TextRating 解析失败：(%v,%v)", got, ok)
	}
	m = Movie{VoteAverage: NumberRating(9)}
	if got, ok := m.Score(); !ok || got != 9 {
		t.Fatalf("NumberRating 解析失败：(%v,%v)", got, ok)
	}
}

func TestMovie_DecodeToleratesUnexpectedFieldTypes(t *testing.T) {
	m := decodeMovie(t, `{"id":"tt0111161","title":"Odd","original_title":7,"overview":["x"],"release_date":"1994-09-23","original_language":"en","imdbRating":"9.3"}`)
	if m.Title != "Odd" || m.OriginalLanguage != "en" || m.Year() != "1994" {
		t.Fatalf("文本字段解码不符合预期：%+v", m)
	}
	if got, ok := m.Score(); !ok || got != 9.3 {
		t.Fatalf("评分解码不符合预期：(%v,%v)", got, ok)
	}

	m = decodeMovie(t, `{"title":42,"release_date":null,"original_language":{"code":"en"},"vote_average":7}`)
	if m.Title != "" || m.ReleaseDate != "" || m.OriginalLanguage != "" {
		t.Fatalf("非字符串文本字段应按缺失处理：%+v", m)
	}
	if m.DisplayTitle() != DefaultTitle {
		t.Fatalf("期望默认标题，实际 %q", m.DisplayTitle())
	}

	var bad Movie
	if err := json.Unmarshal([]byte(`"not an object"`), &bad); err == nil {
		t.Fatalf("非对象记录应返回 error")
	}
}

func TestMovie_YearCountsRunes(t *testing.T) {
	m := Movie{ReleaseDate: "２０１９年５月"}
	if got := m.Year(); got != "２０１９" {
		t.Fatalf("期望按字符截取，实际 %q", got)
	}
	m = Movie{ReleaseDate: "199"}
	if got := m.Year(); got != "199" {
		t.Fatalf("不足 4 个字符时原样返回，实际 %q", got)
	}
}
