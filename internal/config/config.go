package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingField 表示缺少必填项（api_key / api_host / base_url）。
	ErrCodeMissingField = "config_missing_field"
)

const (
	// FileName 是工作目录下默认读取的配置文件名。
	FileName = "moviebot.json"
	// EnvPrefix 是环境变量前缀，例如 MOVIEBOT_API_KEY。
	EnvPrefix = "MOVIEBOT_"
	// EnvConfigPath 指定配置文件路径（覆盖默认的 <cwd>/moviebot.json）。
	EnvConfigPath = "MOVIEBOT_CONFIG"
)

const (
	DefaultPagesToFetch     = 5
	DefaultTopK             = 5
	DefaultRequestTimeout   = 15 * time.Second
	DefaultFetchConcurrency = 1
	DefaultTypingDelay      = 20 * time.Millisecond
	DefaultLogLevel         = "warn"
)

// FileConfig 是 koanf 合并（默认值 < 配置文件 < .env < 环境变量）后的原始结构。
type FileConfig struct {
	APIKey            string        `koanf:"api_key"`
	APIHost           string        `koanf:"api_host"`
	BaseURL           string        `koanf:"base_url"`
	PagesToFetch      int           `koanf:"pages_to_fetch"`
	TopK              int           `koanf:"top_k"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
	FetchConcurrency  int           `koanf:"fetch_concurrency"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	ProxyURL          string        `koanf:"proxy_url"`
	TypingDelay       time.Duration `koanf:"typing_delay"`
	LogLevel          string        `koanf:"log_level"`
	LogFile           string        `koanf:"log_file"`
}

// EffectiveConfig 是校验并做最小规范化后的最终配置（实现层直接消费，不再做二次默认判断）。
type EffectiveConfig struct {
	APIKey  string
	APIHost string
	BaseURL string

	PagesToFetch int
	TopK         int

	RequestTimeout    time.Duration
	FetchConcurrency  int
	RequestsPerSecond float64
	ProxyURL          string

	TypingDelay time.Duration

	LogLevel string
	LogFile  string

	// Source 是实际读取到的配置文件路径；未读取文件时为空。
	Source string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeMissingField:
		return fmt.Sprintf("%s：缺少必填项 %v（可写入 %s 或设置 %s* 环境变量）", e.Code, e.Err, FileName, EnvPrefix)
	case ErrCodeInvalid:
		if e.Path != "" && e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Load 按固定顺序合并配置并校验。
//
// 合并顺序（后者覆盖前者）：
// 1) 内置默认值
// 2) 配置文件：$MOVIEBOT_CONFIG，否则 <cwd>/moviebot.json（可选，不存在不报错）
// 3) <cwd>/.env（只补充未设置的环境变量）
// 4) MOVIEBOT_* 环境变量
func Load(cwd string) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	// .env 需要在读取 MOVIEBOT_CONFIG 之前加载，它也可以指定配置文件路径。
	dotenv := filepath.Join(cwdAbs, ".env")
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Load(dotenv); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: dotenv, Err: err}
		}
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: err}
	}

	cfgPath := strings.TrimSpace(os.Getenv(EnvConfigPath))
	explicit := cfgPath != ""
	if !explicit {
		cfgPath = filepath.Join(cwdAbs, FileName)
	} else if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(cwdAbs, cfgPath)
	}

	source := ""
	if _, err := os.Stat(cfgPath); err == nil {
		if err := k.Load(file.Provider(cfgPath), json.Parser()); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		source = cfgPath
	} else if !os.IsNotExist(err) || explicit {
		// 显式指定的文件必须存在。
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: err}
	}

	var fc FileConfig
	if err := k.Unmarshal("", &fc); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: source, Err: err}
	}
	return normalize(fc, source)
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"pages_to_fetch":      DefaultPagesToFetch,
		"top_k":               DefaultTopK,
		"request_timeout":     DefaultRequestTimeout.String(),
		"fetch_concurrency":   DefaultFetchConcurrency,
		"requests_per_second": 0,
		"typing_delay":        DefaultTypingDelay.String(),
		"log_level":           DefaultLogLevel,
	}
}

// envKey 把 MOVIEBOT_API_KEY 映射为 api_key；MOVIEBOT_CONFIG 不是配置项，丢弃。
func envKey(s string) string {
	if s == EnvConfigPath {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
}

func normalize(fc FileConfig, source string) (EffectiveConfig, error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: ErrCodeInvalid, Path: source, Err: fmt.Errorf(format, args...)}
	}

	var missing []string
	apiKey := strings.TrimSpace(fc.APIKey)
	if apiKey == "" {
		missing = append(missing, "api_key")
	}
	apiHost := strings.TrimSpace(fc.APIHost)
	if apiHost == "" {
		missing = append(missing, "api_host")
	}
	baseURL := strings.TrimSpace(fc.BaseURL)
	if baseURL == "" {
		missing = append(missing, "base_url")
	}
	if len(missing) > 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingField, Path: source, Err: fmt.Errorf("%s", strings.Join(missing, ", "))}
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return EffectiveConfig{}, invalid("base_url 无效：%q", baseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return EffectiveConfig{}, invalid("base_url 必须是 http/https：%q", baseURL)
	}

	proxyURL := strings.TrimSpace(fc.ProxyURL)
	if proxyURL != "" {
		pu, err := url.Parse(proxyURL)
		if err != nil || pu.Scheme == "" || pu.Host == "" {
			return EffectiveConfig{}, invalid("proxy_url 无效：%q", proxyURL)
		}
	}

	if fc.RequestTimeout <= 0 {
		return EffectiveConfig{}, invalid("request_timeout 必须大于 0，实际 %v", fc.RequestTimeout)
	}
	if fc.TypingDelay < 0 {
		return EffectiveConfig{}, invalid("typing_delay 不能为负数，实际 %v", fc.TypingDelay)
	}
	if fc.RequestsPerSecond < 0 {
		return EffectiveConfig{}, invalid("requests_per_second 不能为负数，实际 %v", fc.RequestsPerSecond)
	}

	logLevel := strings.ToLower(strings.TrimSpace(fc.LogLevel))
	switch logLevel {
	case "debug", "info", "warn", "warning", "error":
	case "":
		logLevel = DefaultLogLevel
	default:
		return EffectiveConfig{}, invalid("log_level 只能是 debug/info/warn/error，实际 %q", fc.LogLevel)
	}

	return EffectiveConfig{
		APIKey:            apiKey,
		APIHost:           apiHost,
		BaseURL:           baseURL,
		PagesToFetch:      clamp(fc.PagesToFetch, DefaultPagesToFetch, 1, 50),
		TopK:              clamp(fc.TopK, DefaultTopK, 1, 50),
		RequestTimeout:    fc.RequestTimeout,
		FetchConcurrency:  clamp(fc.FetchConcurrency, DefaultFetchConcurrency, 1, 8),
		RequestsPerSecond: fc.RequestsPerSecond,
		ProxyURL:          proxyURL,
		TypingDelay:       fc.TypingDelay,
		LogLevel:          logLevel,
		LogFile:           strings.TrimSpace(fc.LogFile),
		Source:            source,
	}, nil
}

// clamp：0 取默认值；超出范围截断。
func clamp(v, def, lo, hi int) int {
	if v == 0 {
		v = def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
