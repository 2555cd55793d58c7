package config

import (
	"math"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Addr != ":8090" || cfg.TableName != "items" {
		t.Fatalf("addr=%q table=%q", cfg.Addr, cfg.TableName)
	}
	if cfg.GeohashPrecision != 26 || cfg.PartitionBits != 10 || cfg.DefaultRadiusMeters != 5000 {
		t.Fatalf("geohash defaults: %+v", cfg)
	}
	if cfg.Events.Enabled {
		t.Fatal("events should be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("GEOHASH_PRECISION", "20")
	t.Setenv("PARTITION_BITS", "8")
	t.Setenv("SCAN_WORKERS", "3")
	t.Setenv("STORE_OP_TIMEOUT", "250ms")
	t.Setenv("EVENTS_ENABLED", "yes")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("LOG_CONSOLE", "true")
	t.Setenv("DEFAULT_RADIUS_M", "not-a-number")

	cfg := FromEnv()
	if cfg.GeohashPrecision != 20 || cfg.PartitionBits != 8 || cfg.ScanWorkers != 3 {
		t.Fatalf("ints not applied: %+v", cfg)
	}
	if cfg.StoreOpTimeout != 250*time.Millisecond {
		t.Fatalf("timeout=%v", cfg.StoreOpTimeout)
	}
	if !cfg.Events.Enabled || !slices.Equal(cfg.Events.Brokers, []string{"k1:9092", "k2:9092"}) {
		t.Fatalf("events=%+v", cfg.Events)
	}
	if !cfg.LogConsole {
		t.Fatal("LOG_CONSOLE not applied")
	}
	if cfg.DefaultRadiusMeters != 5000 {
		t.Fatalf("unparseable value should fall back to default, got %v", cfg.DefaultRadiusMeters)
	}
}

func TestValidate_RejectsInconsistentSettings(t *testing.T) {
	cfg := FromEnv()
	cfg.GeohashPrecision = 4
	cfg.PartitionBits = 9
	cfg.ScanWorkers = 0
	cfg.TableName = " "

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"partition bits", "SCAN_WORKERS", "TABLE_NAME"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestValidate_RejectsNonPositiveDefaultRadius(t *testing.T) {
	for _, r := range []float64{0, -1, math.NaN()} {
		cfg := FromEnv()
		cfg.DefaultRadiusMeters = r
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "DEFAULT_RADIUS_M") {
			t.Fatalf("radius %v: want DEFAULT_RADIUS_M error, got %v", r, err)
		}
	}
}
