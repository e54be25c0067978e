package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/John-Robertt/moviebot/internal/domain"
	"github.com/John-Robertt/moviebot/internal/logger"
)

const (
	// DefaultPages 是每次抓取的固定页数。
	DefaultPages = 5

	headerAPIKey  = "x-rapidapi-key"
	headerAPIHost = "x-rapidapi-host"

	maxBodyBytes = 8 << 20
)

// Config 描述 discovery 接口的访问参数。
type Config struct {
	BaseURL string
	APIKey  string
	APIHost string

	// Pages 为 0 时使用 DefaultPages。
	Pages int
	// Concurrency <= 1 表示逐页串行；> 1 时并发抓取，但结果仍按页序拼接。
	Concurrency int
	// RequestsPerSecond <= 0 表示不限速。
	RequestsPerSecond float64
}

// Discovery 是基于 RapidAPI 风格 discovery 接口（?page=N&with_genres=IDS）的 Source 实现。
type Discovery struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	log     logrus.FieldLogger
}

var _ Source = (*Discovery)(nil)

// NewDiscovery 构造 Discovery。c 为 nil 时使用带默认超时的 client；log 为 nil 时丢弃日志。
func NewDiscovery(cfg Config, c *http.Client, log logrus.FieldLogger) (*Discovery, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, errors.Wrap(err, "base url 无效")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("base url 必须是 http/https：%q", cfg.BaseURL)
	}
	if cfg.Pages <= 0 {
		cfg.Pages = DefaultPages
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if c == nil {
		c = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = logger.Discard()
	}

	d := &Discovery{cfg: cfg, client: c, log: log}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return d, nil
}

// Discover 抓取 1..Pages 页并按页序拼接 results。
//
// genreIDs 为空时不带 with_genres 参数。单页失败只记录在 Attempts 中；
// 只有 ctx 取消时返回 error（此时 Result 仍包含已完成页的数据）。
func (d *Discovery) Discover(ctx context.Context, genreIDs string) (Result, error) {
	genreIDs = strings.TrimSpace(genreIDs)
	started := time.Now()

	pages := make([][]domain.Movie, d.cfg.Pages)
	attempts := make([]PageAttempt, d.cfg.Pages)

	if d.cfg.Concurrency <= 1 || d.cfg.Pages == 1 {
		for i := 0; i < d.cfg.Pages; i++ {
			if ctx.Err() != nil {
				break
			}
			pages[i], attempts[i] = d.page(ctx, i+1, genreIDs)
		}
	} else {
		// worker pool：每个 worker 只写自己负责的下标，拼接顺序由下标决定。
		workers := d.cfg.Concurrency
		if workers > d.cfg.Pages {
			workers = d.cfg.Pages
		}
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					pages[i], attempts[i] = d.page(ctx, i+1, genreIDs)
				}
			}()
		}
	feed:
		for i := 0; i < d.cfg.Pages; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				break feed
			}
		}
		close(jobs)
		wg.Wait()
	}

	var res Result
	for i := range pages {
		if attempts[i].Page == 0 {
			// ctx 取消后未发出的页。
			continue
		}
		res.Movies = append(res.Movies, pages[i]...)
		res.Attempts = append(res.Attempts, attempts[i])
	}

	d.log.WithFields(logrus.Fields{
		"genres":       genreIDs,
		"pages":        len(res.Attempts),
		"failed_pages": res.FailedPages(),
		"movies":       len(res.Movies),
		"took":         time.Since(started).Round(time.Millisecond),
	}).Info("discover done")

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func (d *Discovery) page(ctx context.Context, page int, genreIDs string) ([]domain.Movie, PageAttempt) {
	movies, err := d.fetchPage(ctx, page, genreIDs)
	if err != nil {
		d.log.WithFields(logrus.Fields{"page": page, "genres": genreIDs}).WithError(err).Debug("page skipped")
		return nil, PageAttempt{Page: page, Err: err}
	}
	return movies, PageAttempt{Page: page, Count: len(movies)}
}

func (d *Discovery) fetchPage(ctx context.Context, page int, genreIDs string) ([]domain.Movie, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limiter")
		}
	}

	u := d.pageURL(page, genreIDs)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set(headerAPIKey, d.cfg.APIKey)
	req.Header.Set(headerAPIHost, d.cfg.APIHost)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "page %d", page)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}

	var body struct {
		Results *[]json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, &ShapeError{URL: u, Reason: err.Error()}
	}
	if body.Results == nil {
		return nil, &ShapeError{URL: u, Reason: "missing results array"}
	}
	return d.decodeMovies(page, *body.Results), nil
}

// decodeMovies 逐条解码；单条无法解码时只跳过该条，同页其他影片保留。
func (d *Discovery) decodeMovies(page int, items []json.RawMessage) []domain.Movie {
	movies := make([]domain.Movie, 0, len(items))
	for i, raw := range items {
		var m domain.Movie
		if err := json.Unmarshal(raw, &m); err != nil {
			d.log.WithFields(logrus.Fields{"page": page, "index": i}).WithError(err).Debug("movie skipped")
			continue
		}
		movies = append(movies, m)
	}
	return movies
}

func (d *Discovery) pageURL(page int, genreIDs string) string {
	u, _ := url.Parse(strings.TrimSpace(d.cfg.BaseURL))
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	if genreIDs != "" {
		q.Set("with_genres", genreIDs)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
