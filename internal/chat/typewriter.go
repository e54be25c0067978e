package chat

import (
	"bufio"
	"io"
	"time"
)

// Typewriter 逐字输出机器人台词；delay <= 0 时整行直接写出。
type Typewriter struct {
	w     *bufio.Writer
	delay time.Duration
	sleep func(time.Duration)
}

// NewTypewriter 构造 Typewriter。sleep 为 nil 时使用 time.Sleep。
func NewTypewriter(w io.Writer, delay time.Duration, sleep func(time.Duration)) *Typewriter {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Typewriter{w: bufio.NewWriter(w), delay: delay, sleep: sleep}
}

// Say 输出一行台词（末尾自动补换行）。
func (t *Typewriter) Say(msg string) {
	if t.delay <= 0 {
		_, _ = t.w.WriteString(msg)
		_ = t.w.WriteByte('\n')
		_ = t.w.Flush()
		return
	}
	for _, r := range msg {
		_, _ = t.w.WriteRune(r)
		_ = t.w.Flush()
		t.sleep(t.delay)
	}
	_ = t.w.WriteByte('\n')
	_ = t.w.Flush()
}

// Prompt 输出输入提示，不带动画、不换行。
func (t *Typewriter) Prompt(msg string) {
	_, _ = t.w.WriteString(msg)
	_ = t.w.Flush()
}
