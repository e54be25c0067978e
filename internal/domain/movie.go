package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DefaultTitle 是缺少 title 字段时的展示值。
const DefaultTitle = "Unknown"

// Movie 是 discovery 接口返回的单条影片（半结构化，字段均可缺失）。
//
// 约束：
// - 评分可能出现在 vote_average / rating / imdbRating 任一字段，且可能是数字或字符串
// - 评分的解析只在 Score() 中集中处理；其他代码不要直接读三个原始字段
// - 只保留用到的字段；其余字段（id、overview 等）类型各家不同，解码时直接忽略
type Movie struct {
	Title            string
	ReleaseDate      string
	OriginalLanguage string

	VoteAverage RatingValue
	Rating      RatingValue
	IMDbRating  RatingValue
}

// UnmarshalJSON 宽松解码：文本字段不是 JSON 字符串时按缺失处理，不让整条记录失败。
// 只有记录本身不是 JSON 对象时才返回 error。
func (m *Movie) UnmarshalJSON(b []byte) error {
	var raw struct {
		Title            json.RawMessage `json:"title"`
		ReleaseDate      json.RawMessage `json:"release_date"`
		OriginalLanguage json.RawMessage `json:"original_language"`

		VoteAverage RatingValue `json:"vote_average"`
		Rating      RatingValue `json:"rating"`
		IMDbRating  RatingValue `json:"imdbRating"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Movie{
		Title:            textField(raw.Title),
		ReleaseDate:      textField(raw.ReleaseDate),
		OriginalLanguage: textField(raw.OriginalLanguage),
		VoteAverage:      raw.VoteAverage,
		Rating:           raw.Rating,
		IMDbRating:       raw.IMDbRating,
	}
	return nil
}

func textField(b json.RawMessage) string {
	var s string
	if len(b) == 0 || json.Unmarshal(b, &s) != nil {
		return ""
	}
	return s
}

// DisplayTitle 返回用于展示的标题；缺失或为空白时为 "Unknown"。
func (m Movie) DisplayTitle() string {
	if strings.TrimSpace(m.Title) == "" {
		return DefaultTitle
	}
	return m.Title
}

// Year 取 release_date 的前 4 个字符（按 rune 计）；缺失或为空白时返回 "N/A"。
func (m Movie) Year() string {
	d := strings.TrimSpace(m.ReleaseDate)
	if d == "" {
		return "N/A"
	}
	if r := []rune(d); len(r) > 4 {
		return string(r[:4])
	}
	return d
}

// Score 按固定优先级（vote_average → rating → imdbRating）取第一个“非假值”字段并转为数字。
//
// 返回 ok=false 的情况（统一视为“无可用评分”，不参与排序）：
// - 三个字段都缺失或都是假值（null / false / 0 / "" / [] / {}）
// - 选中的字段无法转换为数字（例如 "N/A"）
// - 转换结果 <= 0，或不是有限数
//
// 注意：选中字段转换失败时不会继续尝试后面的字段。
func (m Movie) Score() (float64, bool) {
	for _, v := range [...]RatingValue{m.VoteAverage, m.Rating, m.IMDbRating} {
		if !v.truthy() {
			continue
		}
		f, ok := v.Float()
		if !ok || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// RatingValue 保存某个评分字段的原始 JSON 值（数字、字符串或其他）。
// 零值表示字段缺失。
type RatingValue struct {
	raw json.RawMessage
}

// NumberRating 构造一个数字形式的评分字段。
func NumberRating(f float64) RatingValue {
	return RatingValue{raw: json.RawMessage(strconv.FormatFloat(f, 'f', -1, 64))}
}

// TextRating 构造一个字符串形式的评分字段（例如 OMDb 的 "7.9" 或 "N/A"）。
func TextRating(s string) RatingValue {
	b, _ := json.Marshal(s)
	return RatingValue{raw: b}
}

func (v *RatingValue) UnmarshalJSON(b []byte) error {
	v.raw = append(v.raw[:0], b...)
	return nil
}

func (v RatingValue) truthy() bool {
	b := bytes.TrimSpace(v.raw)
	if len(b) == 0 {
		return false
	}
	switch string(b) {
	case "null", "false", `""`, "[]", "{}":
		return false
	}
	if isJSONNumber(b) {
		f, err := strconv.ParseFloat(string(b), 64)
		return err != nil || f != 0
	}
	if b[0] == '[' || b[0] == '{' {
		var x any
		if err := json.Unmarshal(b, &x); err == nil {
			switch t := x.(type) {
			case []any:
				return len(t) > 0
			case map[string]any:
				return len(t) > 0
			}
		}
	}
	return true
}

// Float 尝试把字段转为数字：数字直接解析，字符串去掉首尾空白后解析；其他类型一律失败。
func (v RatingValue) Float() (float64, bool) {
	b := bytes.TrimSpace(v.raw)
	if len(b) == 0 {
		return 0, false
	}
	if isJSONNumber(b) {
		f, err := strconv.ParseFloat(string(b), 64)
		return f, err == nil
	}
	if b[0] != '"' {
		return 0, false
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isJSONNumber(b []byte) bool {
	c := b[0]
	return c == '-' || (c >= '0' && c <= '9')
}
