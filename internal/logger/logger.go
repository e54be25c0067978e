package logger

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 描述日志输出。
type Config struct {
	// Level：debug / info / warn / error；空值为 warn。
	Level string
	// File 非空时写入滚动日志文件；为空时写 stderr。
	File string
	// FileSizeMB / FileCount / Compress 只在 File 非空时生效。
	FileSizeMB int
	FileCount  int
	Compress   bool
}

// New 按 Config 构造 logger。
//
// 交互界面占用 stdout，日志永远不写 stdout。
func New(cfg Config) (*logrus.Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	l := logrus.New()
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var out io.Writer = os.Stderr
	if f := strings.TrimSpace(cfg.File); f != "" {
		size := cfg.FileSizeMB
		if size <= 0 {
			size = 10
		}
		count := cfg.FileCount
		if count <= 0 {
			count = 3
		}
		out = &lumberjack.Logger{
			Filename:   f,
			MaxSize:    size, // megabytes
			MaxBackups: count,
			MaxAge:     28, // days
			Compress:   cfg.Compress,
		}
	}
	l.SetOutput(out)
	return l, nil
}

// ParseLevel 解析日志级别；"warning" 与 "warn" 等价。
func ParseLevel(s string) (logrus.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return logrus.WarnLevel, nil
	}
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.WarnLevel, errors.Wrapf(err, "log_level 无效：%q", s)
	}
	return lvl, nil
}

// Discard 返回丢弃所有输出的 logger（测试与未配置日志时使用）。
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
