package moderation

import (
	"bufio"
	"os"
	"strings"
)

// LoadWords reads one censored word per line from path. Blank lines and
// '#' comments are skipped, duplicates are collapsed. An empty path is
// allowed and yields no words: moderation then runs as a pass-through.
func LoadWords(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	seen := make(map[string]struct{})
	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		lower := strings.ToLower(word)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		words = append(words, lower)
	}
	return words, scanner.Err()
}
