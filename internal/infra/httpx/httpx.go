package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout 是单个请求的总超时（含读 body）。
	DefaultTimeout = 15 * time.Second
	// DefaultUserAgent 标识本客户端；discovery 接口按 API key 鉴权，不需要伪装浏览器。
	DefaultUserAgent = "moviebot/1.0"
)

// Options 描述 discovery 接口客户端的网络策略。
type Options struct {
	// Timeout 为 0 时使用 DefaultTimeout；不允许无限等待。
	Timeout time.Duration
	// ProxyURL 非空时所有请求走代理，且禁用 keep-alive。
	ProxyURL string
	// UserAgent 为空时使用 DefaultUserAgent。
	UserAgent string
}

// Transport 把“固定 UA + 代理/keep-alive 策略”固化为统一策略。
//
// provider 只负责“拼 URL + 鉴权头 + 解析 JSON”，不关心网络策略细节。
//
// 约束：不做重试；失败直接返回给调用方（由 provider 决定是否跳过该页）。
type Transport struct {
	Base *http.Transport

	// UserAgent 只在调用方未设置时写入。
	UserAgent string

	// DisableKeepAlives 决定是否对 Request 设置 Close=true。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// Clone：不污染调用方的 request。
	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" && t.UserAgent != "" {
		r.Header.Set("User-Agent", t.UserAgent)
	}
	if t.DisableKeepAlives {
		r.Close = true
	}
	return t.Base.RoundTrip(r)
}

// NewAPIClient 构造访问 discovery 接口的 HTTP client。
//
// 规则：
// - 总超时显式且有限（Options.Timeout，默认 15s）
// - proxyURL 非空：走代理，且每请求新连接
// - 固定 UA（Options.UserAgent，默认 DefaultUserAgent；调用方已设置则保留）
func NewAPIClient(opts Options) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		IdleConnTimeout:       30 * time.Second,
		MaxIdleConnsPerHost:   8,
	}

	disableKeepAlives := false
	if proxyURL := strings.TrimSpace(opts.ProxyURL); proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy url 需要 scheme 与 host")
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}

	tr := &Transport{
		Base:              base,
		UserAgent:         ua,
		DisableKeepAlives: disableKeepAlives,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}
