//go:build ignore

// Generates a synthetic markdown vault for benchmarking and manual testing.
// Usage: go run scripts/generate-test-vault.go -notes 1000 -output testdata/vault
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numNotes  = flag.Int("notes", 1000, "Number of notes to generate")
	outputDir = flag.String("output", "testdata/vault", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	linkRatio = flag.Float64("links", 0.6, "Fraction of notes that link to others")
)

var folders = []string{
	"inbox", "projects", "areas/health", "areas/finance",
	"resources/books", "resources/articles", "archive", "daily",
}

var topics = []string{
	"spaced repetition", "deep work", "zettelkasten", "habit stacking",
	"compound interest", "protein synthesis", "garden planning",
	"distributed systems", "vector search", "gradient descent",
	"sourdough starters", "trail running", "watercolor technique",
}

var tags = []string{
	"learning", "health", "finance", "review", "evergreen",
	"fleeting", "project", "reference", "someday",
}

var sentences = []string{
	"The core idea connects back to how memory consolidates during rest.",
	"Small consistent inputs beat sporadic bursts of effort over time.",
	"This pattern shows up across unrelated fields once you look for it.",
	"Worth revisiting after the next review cycle to check if it held up.",
	"The mechanism only works when the feedback loop stays short.",
	"Most explanations skip the boring middle step, which is the whole trick.",
	"Contrast this with the naive approach, which falls over at scale.",
	"A good test: can you explain it without using the original jargon?",
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	titles := make([]string, *numNotes)
	paths := make([]string, *numNotes)
	for i := range titles {
		topic := topics[rng.Intn(len(topics))]
		titles[i] = fmt.Sprintf("%s %03d", titleCase(topic), i)
		folder := folders[rng.Intn(len(folders))]
		paths[i] = filepath.Join(folder, slugify(titles[i])+".md")
	}

	for i, path := range paths {
		full := filepath.Join(*outputDir, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			fatal(err)
		}
		if err := os.WriteFile(full, note(rng, i, titles), 0o644); err != nil {
			fatal(err)
		}
	}
	fmt.Printf("generated %d notes under %s\n", *numNotes, *outputDir)
}

func note(rng *rand.Rand, i int, titles []string) []byte {
	var b strings.Builder

	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %s\n", titles[i])
	fmt.Fprintf(&b, "tags: [%s, %s]\n", tags[rng.Intn(len(tags))], tags[rng.Intn(len(tags))])
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", titles[i])

	for p := 0; p < 2+rng.Intn(4); p++ {
		for s := 0; s < 2+rng.Intn(3); s++ {
			b.WriteString(sentences[rng.Intn(len(sentences))])
			b.WriteString(" ")
		}
		b.WriteString("\n\n")
	}

	if rng.Float64() < *linkRatio && len(titles) > 1 {
		for l := 0; l < 1+rng.Intn(3); l++ {
			fmt.Fprintf(&b, "Related: [[%s]]\n", titles[rng.Intn(len(titles))])
		}
	}
	return []byte(b.String())
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func slugify(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), " ", "-")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
