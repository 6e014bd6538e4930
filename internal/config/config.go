package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SOONDEX"

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	Input             string
	Out               string
	Errors            string
	Checkpoint        string
	CheckpointEnabled bool
	PGDSN             string
	BatchSize         uint64
	MaxRetries        int
	RetryBackoff      time.Duration
	MetricsFile       string
	LogLevel          string

	ProgramID         string
	DefaultRewardRate uint64
	ProtocolFee       uint64
	ProtocolFeeMint   string
	ProtocolWallet    string
	MaxFeeRate        uint64
	MaxRewardRate     uint64
	RatioToleranceBps uint64
	VolumeWindow      int64
	MaxOpenOrders     int
}

// ReportConfig holds configuration for the report command.
type ReportConfig struct {
	Input         string
	Window        string
	PGDSN         string
	BatchSize     int
	StateFile     string
	RecomputeFrom string
	LogLevel      string
}

// DeriveConfig holds configuration for the derive command.
type DeriveConfig struct {
	ProgramID string
	Mints     []string
	Owners    []string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"out":                 "./data/events.jsonl",
		"errors":              "./data/replay_errors.jsonl",
		"checkpoint":          "./data/checkpoint.json",
		"checkpoint-enabled":  true,
		"batch-size":          uint64(500),
		"max-retries":         5,
		"retry-backoff":       500 * time.Millisecond,
		"log-level":           "info",
		"default-reward-rate": uint64(1),
		"max-fee-rate":        uint64(5_000),
		"max-reward-rate":     uint64(10_000),
		"ratio-tolerance-bps": uint64(100),
		"volume-window":       int64(86_400),
		"max-open-orders":     1_000,
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{
		Input:             v.GetString("in"),
		Out:               v.GetString("out"),
		Errors:            v.GetString("errors"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PGDSN:             v.GetString("pg-dsn"),
		BatchSize:         v.GetUint64("batch-size"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		MetricsFile:       v.GetString("metrics-file"),
		LogLevel:          v.GetString("log-level"),
		ProgramID:         v.GetString("program-id"),
		DefaultRewardRate: v.GetUint64("default-reward-rate"),
		ProtocolFee:       v.GetUint64("protocol-fee"),
		ProtocolFeeMint:   v.GetString("protocol-fee-mint"),
		ProtocolWallet:    v.GetString("protocol-wallet"),
		MaxFeeRate:        v.GetUint64("max-fee-rate"),
		MaxRewardRate:     v.GetUint64("max-reward-rate"),
		RatioToleranceBps: v.GetUint64("ratio-tolerance-bps"),
		VolumeWindow:      v.GetInt64("volume-window"),
		MaxOpenOrders:     v.GetInt("max-open-orders"),
	}, nil
}

// LoadReport merges config file, environment variables, and flags into ReportConfig.
func LoadReport(cfgFile string, flags *pflag.FlagSet) (ReportConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"batch-size": 1000,
		"log-level":  "info",
		"window":     "1h",
	})
	if err != nil {
		return ReportConfig{}, err
	}

	return ReportConfig{
		Input:         v.GetString("in"),
		Window:        v.GetString("window"),
		PGDSN:         v.GetString("pg-dsn"),
		BatchSize:     v.GetInt("batch-size"),
		StateFile:     v.GetString("state-file"),
		RecomputeFrom: v.GetString("recompute-from"),
		LogLevel:      v.GetString("log-level"),
	}, nil
}

// LoadDerive merges config file, environment variables, and flags into DeriveConfig.
func LoadDerive(cfgFile string, flags *pflag.FlagSet) (DeriveConfig, error) {
	v, err := load(cfgFile, flags, nil)
	if err != nil {
		return DeriveConfig{}, err
	}

	return DeriveConfig{
		ProgramID: v.GetString("program-id"),
		Mints:     getStringSlice(v, "mint"),
		Owners:    getStringSlice(v, "owner"),
	}, nil
}

func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("soondex")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// ParseTimestamp parses unix seconds or an RFC3339 time. Empty input is 0.
func ParseTimestamp(input string) (int64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}
	if isNumeric(input) {
		return strconv.ParseInt(input, 10, 64)
	}
	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return tm.Unix(), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	switch typed := v.Get(key).(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return cleanStrings(strings.Split(typed, ","))
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
