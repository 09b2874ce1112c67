package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type CacheCfg struct {
	Driver     string
	Key        string
	RedisAddr  string
	SQLitePath string
	MemorySize int
	OpTimeout  time.Duration
}

type StatusEventsCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	Queue   int
}

type Config struct {
	BackendURL        string
	LogLevel          string
	LogConsole        bool
	LogSampleN        int
	Cache             CacheCfg
	ResolveMaxRetries int
	ResolveBackoff    time.Duration
	StatusAddr        string
	MetricsEnabled    bool
	StatusEvents      StatusEventsCfg
	WatchFilter       string
	StubAddr          string
}

func FromEnv() Config {
	retries := getint("RESOLVE_MAX_RETRIES", 5)
	if retries < 0 {
		retries = 0
	}

	return Config{
		BackendURL: strings.TrimRight(getenv("BACKEND_URL", "http://localhost:8000"), "/"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		LogSampleN: getint("LOG_SAMPLE_N", 0),
		Cache: CacheCfg{
			Driver:     strings.ToLower(getenv("CACHE_DRIVER", "sqlite")),
			Key:        getenv("CACHE_KEY", "layers:last-known"),
			RedisAddr:  getenv("REDIS_ADDR", "localhost:6379"),
			SQLitePath: getenv("CACHE_SQLITE_PATH", defaultSQLitePath()),
			MemorySize: getint("CACHE_MEMORY_SIZE", 16),
			OpTimeout:  getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		},
		ResolveMaxRetries: retries,
		ResolveBackoff:    getduration("RESOLVE_BACKOFF_STEP", 1500*time.Millisecond),
		StatusAddr:        getenv("STATUS_ADDR", ""),
		MetricsEnabled:    getbool("METRICS_ENABLED", false),
		StatusEvents: StatusEventsCfg{
			Enabled: getbool("STATUS_EVENTS_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "report-client-status"),
			Queue:   getint("STATUS_EVENTS_QUEUE", 256),
		},
		WatchFilter: getenv("WATCH_FILTER", ""),
		StubAddr:    getenv("STUB_ADDR", ":8000"),
	}
}

// BrokerList splits a comma separated broker list.
func (c StatusEventsCfg) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func defaultSQLitePath() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		return "layer-report-client.db"
	}
	return dir + string(os.PathSeparator) + "layer-report-client.db"
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
