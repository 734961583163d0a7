package globs

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// CountTokens estimates the token count of s using the cl100k_base
// encoding. If the encoder cannot be loaded (e.g. no network access to
// fetch its BPE ranks on first use), it falls back to the byte-length
// approximation used elsewhere in this package.
func CountTokens(s string) int {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			enc = e
		}
	})
	if enc == nil {
		return approxTokenCount(s)
	}
	return len(enc.Encode(s, nil, nil))
}
