package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/geoitems/internal/geohash"
)

type GeocodeCfg struct {
	URL       string
	APIKey    string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

type EventsCfg struct {
	Enabled bool
	Brokers []string
	Topic   string
	Queue   int
}

type Config struct {
	Addr       string
	LogLevel   string
	LogConsole bool
	LogSampleN int

	RedisAddr string
	TableName string

	GeohashPrecision    int
	PartitionBits       int
	CoverMaxCells       int
	DefaultRadiusMeters float64
	ScanWorkers         int
	ScanPageSize        int
	StoreOpTimeout      time.Duration

	Geocode GeocodeCfg
	Events  EventsCfg
}

func FromEnv() Config {
	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		LogSampleN: getint("LOG_SAMPLE_N", 0),

		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
		TableName: getenv("TABLE_NAME", "items"),

		GeohashPrecision:    getint("GEOHASH_PRECISION", geohash.MaxPrecision),
		PartitionBits:       getint("PARTITION_BITS", 10),
		CoverMaxCells:       getint("COVER_MAX_CELLS", geohash.DefaultMaxCells),
		DefaultRadiusMeters: getfloat("DEFAULT_RADIUS_M", 5000),
		ScanWorkers:         getint("SCAN_WORKERS", 16),
		ScanPageSize:        getint("SCAN_PAGE_SIZE", 500),
		StoreOpTimeout:      getduration("STORE_OP_TIMEOUT", time.Second),

		Geocode: GeocodeCfg{
			URL:       getenv("GEOCODER_URL", "https://api.geocod.io"),
			APIKey:    getenv("GEOCODE_API_KEY", ""),
			Timeout:   getduration("GEOCODE_TIMEOUT", 3*time.Second),
			CacheSize: getint("GEOCODE_CACHE_SIZE", 1024),
			CacheTTL:  getduration("GEOCODE_CACHE_TTL", time.Hour),
		},
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: getlist("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "geoitems.items"),
			Queue:   getint("EVENTS_QUEUE", 1024),
		},
	}
}

// Validate reports every inconsistent setting at once.
func (c Config) Validate() error {
	var errs []error
	if err := geohash.ValidatePartitionBits(c.GeohashPrecision, c.PartitionBits); err != nil {
		errs = append(errs, err)
	}
	if c.PartitionBits > geohash.MaxPartitionBits {
		errs = append(errs, fmt.Errorf("PARTITION_BITS %d above %d", c.PartitionBits, geohash.MaxPartitionBits))
	}
	if c.CoverMaxCells < geohash.MinMaxCells {
		errs = append(errs, fmt.Errorf("COVER_MAX_CELLS %d below %d", c.CoverMaxCells, geohash.MinMaxCells))
	}
	if !(c.DefaultRadiusMeters > 0) {
		errs = append(errs, fmt.Errorf("DEFAULT_RADIUS_M %v must be positive", c.DefaultRadiusMeters))
	}
	if c.ScanWorkers < 1 {
		errs = append(errs, fmt.Errorf("SCAN_WORKERS %d must be positive", c.ScanWorkers))
	}
	if c.ScanPageSize < 1 {
		errs = append(errs, fmt.Errorf("SCAN_PAGE_SIZE %d must be positive", c.ScanPageSize))
	}
	if c.StoreOpTimeout <= 0 || c.Geocode.Timeout <= 0 {
		errs = append(errs, errors.New("STORE_OP_TIMEOUT and GEOCODE_TIMEOUT must be positive"))
	}
	if strings.TrimSpace(c.TableName) == "" {
		errs = append(errs, errors.New("TABLE_NAME is empty"))
	}
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		errs = append(errs, errors.New("EVENTS_ENABLED requires KAFKA_BROKERS"))
	}
	return errors.Join(errs...)
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

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

// parse "a:9092, b:9092" into a list, dropping blanks
func getlist(k, def string) []string {
	var out []string
	for p := range strings.SplitSeq(getenv(k, def), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
