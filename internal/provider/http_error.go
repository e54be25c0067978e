package provider

import (
	"fmt"
	"strings"
)

// HTTPStatusError 表示 discovery 接口返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// ShapeError 表示响应体不是预期的 {"results":[...]} 结构。
type ShapeError struct {
	URL    string
	Reason string
}

func (e *ShapeError) Error() string {
	if e == nil || strings.TrimSpace(e.Reason) == "" {
		return "unexpected response shape"
	}
	return "unexpected response shape: " + strings.TrimSpace(e.Reason)
}
