package chat

import (
	"bytes"
	"testing"
	"time"
)

func TestTypewriter_SleepsPerRune(t *testing.T) {
	var out bytes.Buffer
	var slept []time.Duration
	tw := NewTypewriter(&out, 20*time.Millisecond, func(d time.Duration) { slept = append(slept, d) })

	tw.Say("hi 🍿")

	if out.String() != "hi 🍿\n" {
		t.Fatalf("输出不符合预期：%q", out.String())
	}
	if len(slept) != 4 {
		t.Fatalf("期望按 rune 暂停 4 次，实际 %d", len(slept))
	}
	for _, d := range slept {
		if d != 20*time.Millisecond {
			t.Fatalf("暂停时长不符合预期：%v", d)
		}
	}
}

func TestTypewriter_ZeroDelayAndPrompt(t *testing.T) {
	var out bytes.Buffer
	tw := NewTypewriter(&out, 0, func(time.Duration) { t.Fatalf("delay=0 时不应 sleep") })

	tw.Say("line")
	tw.Prompt("> ")

	if out.String() != "line\n> " {
		t.Fatalf("输出不符合预期：%q", out.String())
	}
}
