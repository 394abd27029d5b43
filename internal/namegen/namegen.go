// Package namegen produces human-readable session names such as
// "caching-greedy-trie". Names are not unique; the session id is.
package namegen

import (
	"fmt"
	"math/rand"
)

var verbs = []string{
	"browsing", "caching", "crawling", "fetching", "hosting", "indexing",
	"linking", "parsing", "pinging", "polling", "posting", "routing",
	"serving", "streaming", "syncing", "tracking",
}

var adjectives = []string{
	"adaptive", "amortized", "balanced", "bounded", "concurrent", "dynamic",
	"eager", "greedy", "heuristic", "iterative", "lazy", "optimal",
	"parallel", "recursive", "sorted", "stable",
}

var nouns = []string{
	"array", "bitmap", "buffer", "deque", "graph", "hashmap",
	"heap", "list", "matrix", "queue", "ring", "set",
	"stack", "tree", "trie", "vector",
}

// Generate returns a "<verb>-<adjective>-<noun>" name.
func Generate() string {
	return fmt.Sprintf("%s-%s-%s",
		verbs[rand.Intn(len(verbs))],
		adjectives[rand.Intn(len(adjectives))],
		nouns[rand.Intn(len(nouns))],
	)
}
