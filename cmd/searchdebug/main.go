// searchdebug runs the retrieval pipeline against a live SearxNG instance
// and prints the ranked documents. Manual debugging tool, not part of the
// library surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mkarvo/websift/internal/fetch"
	"github.com/mkarvo/websift/internal/pipeline"
	"github.com/mkarvo/websift/internal/robots"
	"github.com/mkarvo/websift/internal/score"
	"github.com/mkarvo/websift/internal/search"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		searxURL   string
		redisAddr  string
		maxResults int
		minResults int
		adaptive   bool
		verbose    bool
		timeout    time.Duration
	)
	flag.StringVar(&searxURL, "searx.url", os.Getenv("SEARX_URL"), "SearxNG base URL")
	flag.StringVar(&redisAddr, "redis.addr", os.Getenv("REDIS_ADDR"), "Optional Redis address for the courtesy-policy cache")
	flag.IntVar(&maxResults, "max", 5, "Maximum documents to return")
	flag.IntVar(&minResults, "min", 2, "Minimum-yield floor")
	flag.BoolVar(&adaptive, "adaptive", true, "Adapt source count to query difficulty")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Overall run deadline")
	flag.Parse()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	query := strings.Join(flag.Args(), " ")
	if query == "" {
		fmt.Fprintln(os.Stderr, "usage: searchdebug [flags] <query>")
		os.Exit(2)
	}
	if searxURL == "" {
		searxURL = "http://localhost:8888"
	}

	checker := &robots.Checker{UserAgent: "websift/1.0"}
	if redisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: redisAddr})
		checker.Cache = robots.NewRedisCache(client, time.Hour)
	}
	scorer, err := score.NewScorer()
	if err != nil {
		log.Fatal().Err(err).Msg("load scoring lists")
	}

	pl := &pipeline.Pipeline{
		Provider: &search.SearxNG{BaseURL: searxURL, UserAgent: "websift/1.0"},
		Fallback: &search.NewsFeeds{Feeds: []string{
			"https://feeds.bbci.co.uk/news/world/rss.xml",
			"https://www.theguardian.com/world/rss",
		}},
		Robots:  checker,
		Fetcher: &fetch.Client{MaxConcurrent: 8},
		Scorer:  scorer,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	opts := pipeline.DefaultOptions()
	opts.MaxResults = maxResults
	opts.MinResults = minResults
	opts.FixedTarget = !adaptive

	docs, err := pl.Search(ctx, query, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("search failed")
	}
	if len(docs) == 0 {
		fmt.Println("no documents found")
		return
	}
	for i, d := range docs {
		fmt.Printf("%d. [%.2f] %s\n   %s\n   %s\n", i+1, d.QualityScore, d.Title, d.URL, snippet(d.Text, 160))
	}
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
