package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/John-Robertt/moviebot/internal/app/recommend"
	"github.com/John-Robertt/moviebot/internal/catalog"
	"github.com/John-Robertt/moviebot/internal/chat"
	"github.com/John-Robertt/moviebot/internal/config"
	"github.com/John-Robertt/moviebot/internal/infra/httpx"
	"github.com/John-Robertt/moviebot/internal/logger"
	"github.com/John-Robertt/moviebot/internal/provider"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		os.Exit(1)
	}

	code := run(ctx, os.Args[1:], cwd, os.Stdin, os.Stdout, os.Stderr)
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

// run 返回进程退出码：0 正常退出；1 配置/初始化失败；2 参数错误。
func run(ctx context.Context, args []string, cwd string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		if isHelp(args[0]) && len(args) == 1 {
			printUsage(stdout)
			return 0
		}
		fmt.Fprintf(stderr, "不支持的参数：%q\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	eff, err := config.Load(cwd)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	log, err := logger.New(logger.Config{Level: eff.LogLevel, File: eff.LogFile})
	if err != nil {
		fmt.Fprintf(stderr, "初始化日志失败：%v\n", err)
		return 1
	}
	log.WithFields(logrus.Fields{
		"config":            eff.Source,
		"api_host":          eff.APIHost,
		"pages_to_fetch":    eff.PagesToFetch,
		"top_k":             eff.TopK,
		"request_timeout":   eff.RequestTimeout,
		"fetch_concurrency": eff.FetchConcurrency,
		"proxy":             eff.ProxyURL != "",
	}).Info("moviebot starting")

	client, err := httpx.NewAPIClient(httpx.Options{Timeout: eff.RequestTimeout, ProxyURL: eff.ProxyURL})
	if err != nil {
		fmt.Fprintf(stderr, "初始化 HTTP client 失败：%v\n", err)
		return 1
	}

	src, err := provider.NewDiscovery(provider.Config{
		BaseURL:           eff.BaseURL,
		APIKey:            eff.APIKey,
		APIHost:           eff.APIHost,
		Pages:             eff.PagesToFetch,
		Concurrency:       eff.FetchConcurrency,
		RequestsPerSecond: eff.RequestsPerSecond,
	}, client, log)
	if err != nil {
		fmt.Fprintf(stderr, "初始化 provider 失败：%v\n", err)
		return 1
	}

	svc := recommend.New(src, eff.TopK, log)
	sess := chat.NewSession(stdin, stdout, svc, chat.Options{
		Tables:      catalog.Default(),
		TypingDelay: eff.TypingDelay,
		Log:         log,
	})
	if err := sess.Run(ctx); err != nil {
		log.WithError(err).Error("read input failed")
		fmt.Fprintf(stderr, "读取输入失败：%v\n", err)
		return 1
	}
	return 0
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `用法：
  moviebot

交互式电影推荐：按提示输入 genre（例如 horror-romance）与语言（回车默认 English），
输入 bye / exit / quit / goodbye / q 退出。

配置（后者覆盖前者）：
  内置默认值 < %s（或 $%s 指定的文件）< .env < %s* 环境变量

必填：
  %sAPI_KEY, %sAPI_HOST, %sBASE_URL

可选：
  %sPAGES_TO_FETCH (默认 %d)   %sTOP_K (默认 %d)
  %sREQUEST_TIMEOUT (默认 %s)  %sFETCH_CONCURRENCY (默认 %d)
  %sREQUESTS_PER_SECOND        %sPROXY_URL
  %sTYPING_DELAY (默认 %s)     %sLOG_LEVEL (默认 %s)   %sLOG_FILE
`,
		config.FileName, config.EnvConfigPath, config.EnvPrefix,
		config.EnvPrefix, config.EnvPrefix, config.EnvPrefix,
		config.EnvPrefix, config.DefaultPagesToFetch, config.EnvPrefix, config.DefaultTopK,
		config.EnvPrefix, config.DefaultRequestTimeout, config.EnvPrefix, config.DefaultFetchConcurrency,
		config.EnvPrefix, config.EnvPrefix,
		config.EnvPrefix, config.DefaultTypingDelay, config.EnvPrefix, config.DefaultLogLevel, config.EnvPrefix,
	)
}
