package recommend

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/John-Robertt/moviebot/internal/domain"
	"github.com/John-Robertt/moviebot/internal/logger"
	"github.com/John-Robertt/moviebot/internal/provider"
	"github.com/John-Robertt/moviebot/internal/rank"
)

var (
	// ErrNoResults 表示 genre+language 与 language-only 两轮过滤后都没有影片。
	ErrNoResults = errors.New("no movies found")
	// ErrNoRatedMovies 表示有匹配语言的影片，但没有一部有可用评分。
	ErrNoRatedMovies = errors.New("no rated movies")
)

// Service 执行一次推荐周期：fetch → filter →（为空时）language-only 回退 → rank。
type Service struct {
	source provider.Source
	topK   int
	log    logrus.FieldLogger
}

// New 构造 Service。topK <= 0 时取 5。
func New(src provider.Source, topK int, log logrus.FieldLogger) *Service {
	if topK <= 0 {
		topK = 5
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{source: src, topK: topK, log: log}
}

// Recommend 与 RecommendWithObserver 相同，但不发事件。
func (s *Service) Recommend(ctx context.Context, q domain.Query) (domain.Recommendation, error) {
	return s.RecommendWithObserver(ctx, q, nil)
}

// RecommendWithObserver 执行一次推荐周期。
//
// 错误：
// - ErrNoResults：两轮都没有匹配语言的影片（genre 为空时只跑一轮）
// - ErrNoRatedMovies：有候选但都没有可用评分
// - ctx 取消：返回 ctx.Err()（可用 errors.Is 判断）
func (s *Service) RecommendWithObserver(ctx context.Context, q domain.Query, obs Observer) (domain.Recommendation, error) {
	rec := domain.Recommendation{Query: q}
	log := s.log.WithFields(logrus.Fields{"genres": q.GenreIDs, "language": q.Language})

	movies, err := s.fetchFiltered(ctx, PhaseFetch, q.GenreIDs, q.Language, obs)
	if err != nil {
		return rec, err
	}

	if len(movies) == 0 && q.GenreIDs != "" {
		log.Info("no movies for genre+language, retrying with language only")
		movies, err = s.fetchFiltered(ctx, PhaseFallback, "", q.Language, obs)
		if err != nil {
			return rec, err
		}
		rec.UsedFallback = true
	}
	if len(movies) == 0 {
		return rec, ErrNoResults
	}
	rec.Candidates = len(movies)

	started := time.Now()
	rec.Movies = rank.TopK(movies, s.topK)
	if obs != nil {
		obs.OnPhaseDone(PhaseRank, map[string]any{
			"candidates": len(movies),
			"ranked":     len(rec.Movies),
			"top_k":      s.topK,
		}, time.Since(started))
	}
	if len(rec.Movies) == 0 {
		return rec, ErrNoRatedMovies
	}

	log.WithFields(logrus.Fields{
		"candidates": rec.Candidates,
		"ranked":     len(rec.Movies),
		"fallback":   rec.UsedFallback,
	}).Info("recommendation ready")
	return rec, nil
}

func (s *Service) fetchFiltered(ctx context.Context, phase, genreIDs, lang string, obs Observer) ([]domain.Movie, error) {
	if obs != nil {
		obs.OnPhaseStart(phase)
	}
	started := time.Now()

	res, err := s.source.Discover(ctx, genreIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(err, phase)
	}
	movies := rank.FilterByLanguage(res.Movies, lang)

	if obs != nil {
		obs.OnPhaseDone(phase, map[string]any{
			"pages":        len(res.Attempts),
			"failed_pages": res.FailedPages(),
			"fetched":      len(res.Movies),
			"matched":      len(movies),
		}, time.Since(started))
	}
	return movies, nil
}
