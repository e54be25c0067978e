package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/John-Robertt/moviebot/internal/app/recommend"
	"github.com/John-Robertt/moviebot/internal/catalog"
	"github.com/John-Robertt/moviebot/internal/domain"
	"github.com/John-Robertt/moviebot/internal/logger"
)

const (
	msgGreeting  = "\n🤖 Hello! I am your Movie Recommendation Bot 🎬"
	msgAbilities = "I can suggest movies based on genre and language.\nType 'exit' to quit anytime.\n"
	msgNote      = "📌 NOTE:\nSome regional movies may be missing due to\nlimited metadata in public movie APIs.\n"

	promptGenre    = "👤 Enter genre(s) (e.g. horror-romance) or 'exit': "
	promptLanguage = "👤 Enter language (press Enter for English): "

	msgSearching   = "\n🔍 Let me find some movies for you...\n"
	msgNoGenre     = "⚠️ Couldn't find movies with that genre."
	msgLangOnly    = "🔄 Trying with language only...\n"
	msgNoResults   = "❌ No movies found. Try different preferences.\n"
	msgNoRated     = "❌ Found some movies, but none has a usable rating. Try different preferences.\n"
	msgFetchFailed = "❌ Something went wrong while fetching movies. Please try again.\n"
	msgHeader      = "🏆 Here are my recommendations:\n"
	msgMore        = "\n🎯 Want more recommendations? Just ask!\n"
	msgGoodbye     = "👋 Goodbye! Happy watching 🍿"
)

// exitTokens 大小写不敏感。
var exitTokens = map[string]struct{}{
	"bye":     {},
	"exit":    {},
	"quit":    {},
	"goodbye": {},
	"q":       {},
}

// IsExit 判断输入是否为退出指令。
func IsExit(input string) bool {
	_, ok := exitTokens[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

// State 是交互循环的状态。
type State int

const (
	StateAwaitGenre State = iota
	StateAwaitLanguage
	StateFetching
	StateDisplaying
	StateEnd
)

func (s State) String() string {
	switch s {
	case StateAwaitGenre:
		return "AWAIT_GENRE"
	case StateAwaitLanguage:
		return "AWAIT_LANGUAGE"
	case StateFetching:
		return "FETCHING"
	case StateDisplaying:
		return "DISPLAYING"
	case StateEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// Recommender 是 chat 需要的推荐能力（*recommend.Service 满足它）。
type Recommender interface {
	RecommendWithObserver(ctx context.Context, q domain.Query, obs recommend.Observer) (domain.Recommendation, error)
}

// Options 控制 Session 的展示与依赖。零值可用。
type Options struct {
	Tables      catalog.Tables
	TypingDelay time.Duration
	// Sleep 仅用于测试注入；nil 时使用 time.Sleep。
	Sleep func(time.Duration)
	Log   logrus.FieldLogger
	// NewCycleID 为每个推荐周期生成日志关联 id；nil 时使用 uuid。
	NewCycleID func() string
}

// Session 驱动一次交互会话：读取输入 → 解析 → 推荐 → 展示，直到退出。
type Session struct {
	in     io.Reader
	tw     *Typewriter
	rec    Recommender
	tables catalog.Tables
	log    logrus.FieldLogger
	newID  func() string

	state State
	// cycleLog 只在 FETCHING 期间有效，供 Observer 回调使用。
	cycleLog logrus.FieldLogger
}

var _ recommend.Observer = (*Session)(nil)

// NewSession 构造 Session。opts.Tables 为零值时使用 catalog.Default()。
func NewSession(in io.Reader, out io.Writer, rec Recommender, opts Options) *Session {
	tables := opts.Tables
	if len(tables.GenreNames()) == 0 {
		tables = catalog.Default()
	}
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}
	newID := opts.NewCycleID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Session{
		in:     in,
		tw:     NewTypewriter(out, opts.TypingDelay, opts.Sleep),
		rec:    rec,
		tables: tables,
		log:    log,
		newID:  newID,
		state:  StateAwaitGenre,
	}
}

// State 返回当前状态（Run 返回后为 StateEnd）。
func (s *Session) State() State { return s.state }

type line struct {
	text string
	err  error
}

// Run 执行交互循环。
//
// 退出指令、stdin EOF、ctx 取消都会输出告别语并正常返回 nil；
// 只有读取 stdin 出错时返回 error。
func (s *Session) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	lines := s.readLines(done)

	s.tw.Say(msgGreeting)
	s.tw.Say(msgAbilities)
	s.tw.Say(msgNote)

	var q domain.Query
	for {
		switch s.state {
		case StateAwaitGenre:
			s.tw.Prompt(promptGenre)
			input, ok, err := s.next(ctx, lines)
			if err != nil {
				return err
			}
			if !ok || IsExit(input) {
				s.end()
				return nil
			}
			ids, rerr := s.tables.GenreIDs(input)
			if rerr != nil {
				s.log.WithField("input", input).WithError(rerr).Debug("genre unresolved")
				s.tw.Say("❌ Unsupported genre. Please try again.")
				s.tw.Say("Supported genres: " + strings.Join(s.tables.GenreNames(), ", ") + "\n")
				continue
			}
			q = domain.Query{GenreIDs: ids}
			s.transition(StateAwaitLanguage)

		case StateAwaitLanguage:
			s.tw.Prompt(promptLanguage)
			input, ok, err := s.next(ctx, lines)
			if err != nil {
				return err
			}
			if !ok || IsExit(input) {
				s.end()
				return nil
			}
			code, rerr := s.tables.Language(input)
			if rerr != nil {
				s.log.WithField("input", input).WithError(rerr).Debug("language unresolved")
				s.tw.Say("❌ Unsupported language. Please try again.")
				s.tw.Say("Supported languages: " + strings.Join(s.tables.LanguageNames(), ", ") + "\n")
				continue
			}
			q.Language = code
			s.transition(StateFetching)

		case StateFetching:
			rec, ok := s.fetch(ctx, q)
			if ctx.Err() != nil {
				s.end()
				return nil
			}
			if !ok {
				s.transition(StateAwaitGenre)
				continue
			}
			s.transition(StateDisplaying)
			s.display(rec)
			s.transition(StateAwaitGenre)

		default:
			return nil
		}
	}
}

func (s *Session) fetch(ctx context.Context, q domain.Query) (domain.Recommendation, bool) {
	s.cycleLog = s.log.WithFields(logrus.Fields{
		"cycle":    s.newID(),
		"genres":   q.GenreIDs,
		"language": q.Language,
	})
	defer func() { s.cycleLog = nil }()

	s.tw.Say(msgSearching)
	started := time.Now()
	rec, err := s.rec.RecommendWithObserver(ctx, q, s)
	log := s.cycleLog.WithField("took", time.Since(started).Round(time.Millisecond))

	switch {
	case err == nil:
		log.WithField("results", len(rec.Movies)).Info("cycle done")
		return rec, true
	case ctx.Err() != nil:
		log.Info("cycle canceled")
	case errors.Is(err, recommend.ErrNoResults):
		log.Info("no results")
		s.tw.Say(msgNoResults)
	case errors.Is(err, recommend.ErrNoRatedMovies):
		log.WithField("candidates", rec.Candidates).Info("no rated movies")
		s.tw.Say(msgNoRated)
	default:
		log.WithError(err).Error("cycle failed")
		s.tw.Say(msgFetchFailed)
	}
	return rec, false
}

func (s *Session) display(rec domain.Recommendation) {
	s.tw.Say(msgHeader)
	for i, r := range rec.Movies {
		s.tw.Say(FormatLine(i+1, r))
	}
	s.tw.Say(msgMore)
}

// FormatLine 渲染一条推荐："1. Title (2019) ⭐ 8.5"。
func FormatLine(idx int, r domain.Ranked) string {
	return fmt.Sprintf("%d. %s (%s) ⭐ %s", idx, r.Movie.DisplayTitle(), r.Movie.Year(), strconv.FormatFloat(r.Score, 'f', -1, 64))
}

// OnPhaseStart 在回退开始前提示用户。
func (s *Session) OnPhaseStart(name string) {
	if name == recommend.PhaseFallback {
		s.tw.Say(msgNoGenre)
		s.tw.Say(msgLangOnly)
	}
}

func (s *Session) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	log := s.cycleLog
	if log == nil {
		log = s.log
	}
	log.WithFields(logrus.Fields(fields)).WithField("phase", name).WithField("took", dur.Round(time.Millisecond)).Debug("phase done")
}

func (s *Session) transition(to State) {
	s.log.WithFields(logrus.Fields{"from": s.state.String(), "to": to.String()}).Debug("state")
	s.state = to
}

func (s *Session) end() {
	// 提示符后没有换行，先补一行再告别。
	s.tw.Prompt("\n")
	s.tw.Say(msgGoodbye)
	s.transition(StateEnd)
}

// next 阻塞等待下一行输入。ok=false 表示 EOF 或 ctx 取消。
func (s *Session) next(ctx context.Context, lines <-chan line) (string, bool, error) {
	select {
	case <-ctx.Done():
		return "", false, nil
	case l, open := <-lines:
		if !open {
			return "", false, nil
		}
		if l.err != nil {
			return "", false, l.err
		}
		return l.text, true, nil
	}
}

// readLines 在独立 goroutine 中读取输入，使等待输入时也能响应 ctx 取消。
//
// done 关闭后 goroutine 不再发送，但若此时正阻塞在 Scan 上，会一直等到 in 返回数据、EOF 或出错。
// 对 os.Stdin 而言这只在进程退出前发生，可以接受；传入可关闭的 reader（例如 io.Pipe）可让它立即退出。
func (s *Session) readLines(done <-chan struct{}) <-chan line {
	out := make(chan line)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(s.in)
		for sc.Scan() {
			select {
			case out <- line{text: strings.TrimRight(sc.Text(), "\r")}:
			case <-done:
				return
			}
		}
		if err := sc.Err(); err != nil {
			select {
			case out <- line{err: err}:
			case <-done:
			}
		}
	}()
	return out
}
