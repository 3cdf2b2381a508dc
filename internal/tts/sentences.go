package tts

import "strings"

// SplitSentences splits text on sentence-final punctuation, including the
// full-width forms used in Chinese text. Empty sentences are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, r := range text {
		current.WriteRune(r)
		switch r {
		case '.', '!', '?', '\n', '。', '！', '？', '；':
			flush()
		}
	}
	flush()

	return sentences
}
