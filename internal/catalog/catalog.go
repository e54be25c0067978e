package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// DefaultLanguage 是语言输入为空时使用的代码。
const DefaultLanguage = "en"

// ErrUnsupported 表示输入的 genre/language 名称不在静态表中。
var ErrUnsupported = errors.New("unsupported")

const (
	KindGenre    = "genre"
	KindLanguage = "language"
)

// UnresolvedError 指出哪个 token 没有命中静态表。
type UnresolvedError struct {
	Kind  string // "genre" | "language"
	Token string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unsupported %s: %q", e.Kind, e.Token)
}

func (e *UnresolvedError) Unwrap() error { return ErrUnsupported }

// Tables 是 genre/language 的只读查找表。
//
// 约束：key 一律小写；构造后不再修改（并发读安全）。
type Tables struct {
	genres    map[string]int
	languages map[string]string
}

// NewTables 复制并规范化输入表（key 转小写）。
func NewTables(genres map[string]int, languages map[string]string) Tables {
	g := make(map[string]int, len(genres))
	for k, v := range genres {
		g[normalize(k)] = v
	}
	l := make(map[string]string, len(languages))
	for k, v := range languages {
		l[normalize(k)] = v
	}
	return Tables{genres: g, languages: l}
}

// Default 返回内置的 TMDB genre 表与常用语言表。
func Default() Tables { return defaultTables }

var defaultTables = NewTables(map[string]int{
	"action":          28,
	"adventure":       12,
	"animation":       16,
	"comedy":          35,
	"crime":           80,
	"documentary":     99,
	"drama":           18,
	"family":          10751,
	"fantasy":         14,
	"history":         36,
	"horror":          27,
	"music":           10402,
	"mystery":         9648,
	"romance":         10749,
	"science fiction": 878,
	"thriller":        53,
	"war":             10752,
	"western":         37,
}, map[string]string{
	"english":   "en",
	"hindi":     "hi",
	"bengali":   "bn",
	"tamil":     "ta",
	"telugu":    "te",
	"malayalam": "ml",
	"kannada":   "kn",
	"marathi":   "mr",
	"punjabi":   "pa",
	"gujarati":  "gu",
	"french":    "fr",
	"spanish":   "es",
	"german":    "de",
	"italian":   "it",
	"korean":    "ko",
	"japanese":  "ja",
	"chinese":   "zh",
})

// GenreIDs 把 "horror-romance" 这样的输入解析为 "27,10749"。
// 全有或全无：任一 token 未命中即返回 *UnresolvedError。
func (t Tables) GenreIDs(input string) (string, error) {
	tokens := strings.Split(normalize(input), "-")
	ids := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		id, ok := t.genres[tok]
		if !ok {
			return "", &UnresolvedError{Kind: KindGenre, Token: tok}
		}
		ids = append(ids, strconv.Itoa(id))
	}
	return strings.Join(ids, ","), nil
}

// ResolveGenres 是 GenreIDs 的哨兵形式：未解析时返回空串。
func (t Tables) ResolveGenres(input string) string {
	ids, err := t.GenreIDs(input)
	if err != nil {
		return ""
	}
	return ids
}

// Language 把语言名解析为代码；空输入返回 DefaultLanguage。
func (t Tables) Language(input string) (string, error) {
	name := normalize(input)
	if name == "" {
		return DefaultLanguage, nil
	}
	code, ok := t.languages[name]
	if !ok {
		return "", &UnresolvedError{Kind: KindLanguage, Token: name}
	}
	return code, nil
}

// GenreNames 返回已支持的 genre 名称（字典序），用于重新提示。
func (t Tables) GenreNames() []string { return sortedKeys(t.genres) }

// LanguageNames 返回已支持的语言名称（字典序）。
func (t Tables) LanguageNames() []string { return sortedKeys(t.languages) }

// normalize 去掉首尾空白、折叠全角字符（中文输入法下常见的 "ｈｏｒｒｏｒ－ｒｏｍａｎｃｅ"）并转小写。
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(width.Fold.String(s)))
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
