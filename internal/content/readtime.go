package content

import (
	"math"
	"strings"
)

// Read-time bounds.
const (
	DefaultWordsPerMinute = 200
	MinWordsPerMinute     = 60
	MaxWordsPerMinute     = 1200
	MinReadMinutes        = 1
	MaxReadMinutes        = 120
)

// WordCount counts whitespace-delimited, non-empty tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// EstimateReadTime returns whole minutes needed to read text at
// wordsPerMinute. The rate is clamped to [60,1200]; the result is clamped
// to [1,120], so an empty text still reads in one minute.
func EstimateReadTime(text string, wordsPerMinute int) int {
	return ReadMinutes(WordCount(text), wordsPerMinute)
}

// ReadMinutes is EstimateReadTime for callers that already hold a word
// count.
func ReadMinutes(words, wordsPerMinute int) int {
	wpm := clamp(wordsPerMinute, MinWordsPerMinute, MaxWordsPerMinute)
	minutes := int(math.Round(float64(words) / float64(wpm)))
	return clamp(minutes, MinReadMinutes, MaxReadMinutes)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
