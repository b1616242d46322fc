package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"
)

// maxSuggestionDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxSuggestionDistance = 3

// knownKeys are the valid top-level keys in the config files.
var knownKeys = map[string]bool{
	"sync": true, "base_dir": true, "account": true,
	"consumer_key": true, "consumer_secret": true,
	"access_token": true, "access_token_secret": true,
	"mac_photos_library_location": true,
	"force_refresh":               true, "dry_run": true, "test_upload": true,
	"log_level": true,
}

// knownKeysList is the sorted slice form for deterministic suggestions
// when two candidates have the same edit distance.
var knownKeysList = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with a suggestion for each unknown key.
func checkUnknownKeys(path string, md *toml.MetaData) error {
	var errs []error

	for _, key := range md.Undecoded() {
		name := key.String()

		if suggestion := closestMatch(name); suggestion != "" {
			errs = append(errs, fmt.Errorf("config: unknown key %q in %s (did you mean %q?)", name, path, suggestion))
		} else {
			errs = append(errs, fmt.Errorf("config: unknown key %q in %s", name, path))
		}
	}

	return errors.Join(errs...)
}

// closestMatch finds the closest known key by edit distance, or "" when
// nothing is within maxSuggestionDistance.
func closestMatch(unknown string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1

	for _, k := range knownKeysList {
		if d := editDistance(unknown, k); d < bestDist {
			bestDist = d
			best = k
		}
	}

	return best
}

// editDistance computes the Levenshtein distance between two strings
// using the single-row optimization.
func editDistance(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 0; i < len(a); i++ {
		curr[0] = i + 1

		for j := 0; j < len(b); j++ {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = minOf(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}

func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
