package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ballotline/scraper-core/pkg/batch"
	"github.com/ballotline/scraper-core/pkg/cache"
	"github.com/ballotline/scraper-core/pkg/logging"
	"github.com/ballotline/scraper-core/pkg/session"
)

func main() {
	// Configuration from environment
	port := getEnv("PORT", "8080")
	baseURL := getEnv("REMOTE_BASE_URL", "https://records.example.com")
	username := getEnv("BOT_USERNAME", "")
	password := getEnv("BOT_PASSWORD", "")
	snapshotPath := getEnv("CACHE_SNAPSHOT", "")
	redisURL := getEnv("REDIS_URL", "")
	logLevel := getEnv("LOG_LEVEL", "info")

	logging.Setup(logging.Config{Level: logging.LogLevel(logLevel), Output: os.Stderr})

	// Snapshot persistence: Redis when available, else a JSON side file,
	// else none. The cache works the same either way.
	var store cache.SnapshotStore
	if redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		store = cache.NewRedisStore(redisClient, "scraper:cache:snapshot")
		log.Printf("Cache snapshots persisted to Redis at %s", redisURL)
	} else if snapshotPath != "" {
		store = cache.NewFileStore(snapshotPath)
		log.Printf("Cache snapshots persisted to %s", snapshotPath)
	}

	recordCache, err := cache.New(cache.Config{
		MaxSize:    2000,
		DefaultTTL: 10 * time.Minute,
		Store:      store,
	})
	if err != nil {
		log.Fatalf("Failed to create cache: %v", err)
	}
	defer recordCache.Close()

	pool, err := session.NewPool(session.DefaultConfig(session.Credentials{
		Username: username,
		Password: password,
	}))
	if err != nil {
		log.Fatalf("Failed to create session pool: %v", err)
	}
	defer pool.Close()

	svc := &service{
		cache:   recordCache,
		pool:    pool,
		baseURL: strings.TrimRight(baseURL, "/"),
	}

	http.HandleFunc("/health", healthHandler)
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/profiles", svc.profilesHandler)
	http.HandleFunc("/races", svc.racesHandler)

	addr := ":" + port
	log.Printf("Starting fetchd on %s (remote %s)", addr, baseURL)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// service wires the cache, session pool and batch executor together:
// cache first, then one authenticated session per category driving a
// batched fetch, with results written back into the cache.
type service struct {
	cache   *cache.Cache
	pool    *session.Pool
	baseURL string
}

// record is one fetched or cached page in a reply.
type record struct {
	ID        string `json:"id"`
	HTML      string `json:"html,omitempty"`
	FromCache bool   `json:"fromCache"`
}

// fetchReply reports partial success explicitly: processed/found/error
// counts are the normal outcome, not an exception.
type fetchReply struct {
	Processed int      `json:"processed"`
	Found     int      `json:"found"`
	Errors    []string `json:"errors,omitempty"`
	Records   []record `json:"records"`
}

func (s *service) profilesHandler(w http.ResponseWriter, r *http.Request) {
	ids := splitParam(r.URL.Query().Get("ids"))
	if len(ids) == 0 {
		http.Error(w, "missing ids parameter", http.StatusBadRequest)
		return
	}

	s.serveRecords(w, r, ids, "profiles", s.baseURL+"/members", func(id string) (string, string, string) {
		return cache.ProfileKey(id), s.baseURL + "/profiles/" + id, "#member-record"
	}, batch.ProfileOptions[string, string]())
}

func (s *service) racesHandler(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	races := splitParam(r.URL.Query().Get("races"))
	if state == "" || len(races) == 0 {
		http.Error(w, "missing state or races parameter", http.StatusBadRequest)
		return
	}

	s.serveRecords(w, r, races, "races", s.baseURL+"/elections", func(race string) (string, string, string) {
		return cache.RaceKey(state, race), s.baseURL + "/races/" + state + "/" + race, "#race-results"
	}, batch.RaceOptions[string, string]())
}

// serveRecords answers one request: cache hits immediately, misses through
// a batched session fetch, successes written back with the default TTL.
func (s *service) serveRecords(
	w http.ResponseWriter,
	r *http.Request,
	items []string,
	category, seedURL string,
	plan func(item string) (key, url, waitCondition string),
	opts batch.Options[string, string],
) {
	reply := fetchReply{Processed: len(items), Records: []record{}}

	var misses []string
	for _, item := range items {
		key, _, _ := plan(item)
		if value, ok := s.cache.Get(key); ok {
			if html, ok := value.(string); ok {
				reply.Found++
				reply.Records = append(reply.Records, record{ID: item, HTML: html, FromCache: true})
				continue
			}
		}
		misses = append(misses, item)
	}

	if len(misses) > 0 {
		// One authenticated session serves the whole batch. An auth
		// failure aborts every fetch for the category: there is no
		// session to attempt any of them with.
		sess, err := s.pool.Authenticate(r.Context(), category, seedURL)
		if err != nil {
			http.Error(w, fmt.Sprintf("authentication failed: %v", err), http.StatusBadGateway)
			return
		}

		worker := func(ctx context.Context, item string) (string, error) {
			_, url, waitCondition := plan(item)
			page, err := s.pool.Navigate(ctx, sess, url, waitCondition)
			if err != nil {
				return "", err
			}
			return page.HTML, nil
		}

		result := batch.Run(r.Context(), misses, worker, opts)

		for i, item := range misses {
			if result.Results[i] == nil {
				continue
			}
			html := *result.Results[i]
			key, _, _ := plan(item)
			s.cache.Set(key, html, 0)

			reply.Found++
			reply.Records = append(reply.Records, record{ID: item, HTML: html})
		}
		for _, itemErr := range result.Errors {
			reply.Errors = append(reply.Errors, itemErr.Error())
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
