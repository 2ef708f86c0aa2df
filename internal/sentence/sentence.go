package sentence

import "strings"

// Extract splits off the first complete sentence from accumulated text.
// A sentence is terminated by '.', '?' or '!'. The character immediately
// following the terminator is skipped, on the assumption that sentences are
// separated by a single space. When the terminator is followed by something
// else (e.g. "Wait..."), that character is dropped as well; downstream
// consumers rely on this trimming, so it stays as is.
//
// When no terminator is present the whole input is returned as the sentence
// with complete=false, and the caller should keep accumulating.
func Extract(text string) (sentence, remainder string, complete bool) {
	i := strings.IndexAny(text, ".?!")
	if i < 0 {
		return text, "", false
	}

	sentence = text[:i+1]
	if i+2 <= len(text) {
		remainder = text[i+2:]
	}
	return sentence, remainder, true
}
