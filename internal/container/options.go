package container

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/serroba/ratelimit-go/internal/store"
)

// Event transports.
const (
	EventsNone    = "none"
	EventsChannel = "channel"
	EventsRedis   = "redis"
)

// Options is read by humacli from flags and SERVICE_* environment variables.
type Options struct {
	Port               int    `default:"8888" help:"Port to listen on" short:"p"`
	StoreType          string `default:"memory" help:"Rate limit store: memory, redis, mongo or postgres" short:"s"`
	RedisAddr          string `default:"localhost:6379" help:"Redis server address" short:"r"`
	MongoURI           string `default:"mongodb://localhost:27017" help:"MongoDB connection URI"`
	MongoDatabase      string `default:"ratelimit" help:"MongoDB database name"`
	PostgresURL        string `default:"postgres://localhost:5432/ratelimit" help:"Postgres connection URL"`
	Max                int    `default:"100" help:"Requests allowed per window" short:"m"`
	Window             int    `default:"60" help:"Window length in seconds" short:"w"`
	Dialect            string `default:"legacy" help:"Header dialect: legacy, draft-6, draft-7 or draft-8" short:"d"`
	Skip               string `default:"" help:"Comma separated keys that are never limited"`
	SkipFailedRequests bool   `default:"false" help:"Do not count requests answered with a status >= 400"`
	Message            string `default:"" help:"Rejection message, replaces the retry hint"`
	StatusCode         int    `default:"429" help:"Status of rejected requests"`
	KeyHeader          string `default:"" help:"Header identifying clients instead of their IP"`
	APIKeyHeader       string `default:"X-API-Key" help:"Header carrying the client API key"`
	TierHeader         string `default:"X-Tier" help:"Header carrying the client tier"`
	LogsDirectory      string `default:"" help:"Directory of the daily request log, disabled when empty"`
	LogFormat          string `default:"console" help:"Log format: console or json"`
	PolicyFile         string `default:"" help:"YAML quota policy file"`
	Events             string `default:"none" help:"Decision event transport: none, channel or redis"`
}

// SkipKeys returns the comma separated Skip list, trimmed and without blanks.
func (o *Options) SkipKeys() []string {
	var keys []string

	for _, key := range strings.Split(o.Skip, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}

	return keys
}

// needsRedis reports whether any component talks to Redis.
func (o *Options) needsRedis() bool {
	return store.Backend(o.StoreType) == store.BackendRedis || o.Events == EventsRedis
}

// LoadEnv loads .env files into the environment before options are parsed.
// Variables that are already set win; missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return nil
}
