package normalizer

import (
	"fmt"
	"strings"
	"testing"
)

var sampleTexts = map[string]string{
	"short": "I'm a volunteer firefighter, AMA! (Ask me anything.)",
	"medium": `Hi Reddit! I spent 12 years working night shifts at a 24/7 diner.
People ask me about the weirdest orders, the regulars, and what happens at 3:00am.
Proof: posted to the mods. Ask away -- I'll be here until ~9pm EST.`,
	"long": strings.Repeat(`Thanks for all the questions, everyone!!! A few answers:
(1) yes, the pie was made in-house; (2) no, we never "reused" coffee; [3] tips were
split 50/50 with the kitchen. @everyone asking about the ghost: it's *real*. `, 20),
}

func BenchmarkNormalize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Normalize(text)
			}
		})
	}
}

func BenchmarkNormalizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = Normalize(text)
		}
	})
}

func BenchmarkNormalizeVaryingSize(b *testing.B) {
	base := "What's the best (and worst) part of the job? 10/10 would ask again. "
	for _, size := range []int{10, 100, 500, 1000, 5000} {
		text := strings.Repeat(base, size/len(base)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = Normalize(text)
			}
		})
	}
}
