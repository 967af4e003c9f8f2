// scope-capture acquires waveforms from an oscilloscope (or the built-in
// mock), logs per-segment measurements, and optionally dumps the scaled
// data as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rjboer/GoScope/internal/logging"
	"github.com/rjboer/GoScope/internal/measure"
	"github.com/rjboer/GoScope/internal/scope"
	"github.com/rjboer/GoScope/wavedesc"
)

func main() {
	const configPath = "scope.json"

	persistentCfg, err := loadOrCreateConfig(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	cfg, err := parseConfig(os.Args[1:], os.LookupEnv, persistentCfg)
	if err != nil {
		log.Fatalf("parse config: %v", err)
	}
	if err := saveConfig(configPath, persistentFromCLI(cfg)); err != nil {
		log.Fatalf("save config: %v", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		log.Fatalf("configure logging: %v", err)
	}
	logging.SetDefault(logger)

	channels, err := parseChannels(cfg.channels)
	if err != nil {
		log.Fatalf("parse channels: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := selectBackend(cfg)
	if err != nil {
		log.Fatalf("select backend: %v", err)
	}

	if err := backend.Init(ctx, scope.Config{
		Address:      cfg.addr,
		Timeout:      time.Duration(cfg.timeoutSec * float64(time.Second)),
		TriggerMode:  cfg.triggerMode,
		NumSamples:   cfg.numSamples,
		SegmentCount: cfg.segmentCount,
		SampleRate:   cfg.sampleRate,
		ToneFreq:     cfg.toneFreq,
	}); err != nil {
		log.Fatalf("init scope: %v", err)
	}
	defer backend.Close()

	idn, err := backend.Identify(ctx)
	if err != nil {
		log.Fatalf("identify scope: %v", err)
	}
	logger.Info("instrument", logging.Field{Key: "idn", Value: idn})

	if cfg.waitTrigger {
		logger.Info("waiting for trigger")
		if err := backend.WaitTrigger(ctx); err != nil {
			log.Fatalf("wait for trigger: %v", err)
		}
	}

	waves, err := backend.AcquireAll(ctx, channels)
	if err != nil {
		log.Fatalf("acquire: %v", err)
	}

	for _, ch := range channels {
		reportWaveform(logger, ch, waves[ch])
	}

	if cfg.dumpPath != "" {
		if err := dumpWaveforms(cfg.dumpPath, waves); err != nil {
			log.Fatalf("dump waveforms: %v", err)
		}
		logger.Info("waveforms dumped", logging.Field{Key: "path", Value: cfg.dumpPath})
	}
}

func reportWaveform(logger logging.Logger, channel int, w *wavedesc.Waveform) {
	for i, seg := range w.Segments {
		s := measure.Summarize(seg.Amplitude)
		logger.Info("segment measurements",
			logging.Field{Key: "channel", Value: channel},
			logging.Field{Key: "segment", Value: i},
			logging.Field{Key: "origin_s", Value: seg.TimeOrigin},
			logging.Field{Key: "vpp", Value: s.PeakToPeak},
			logging.Field{Key: "vrms", Value: s.RMS},
			logging.Field{Key: "vmean", Value: s.Mean},
			logging.Field{Key: "freq_hz", Value: measure.DominantFrequency(seg.Amplitude, w.Descriptor.HorizInterval)})
	}
}

// dumpSegment is the JSON shape written for each decoded segment.
type dumpSegment struct {
	TimeOrigin float64   `json:"time_origin_s"`
	Time       []float64 `json:"time_s"`
	Volt       []float64 `json:"volt"`
}

func dumpWaveforms(path string, waves map[int]*wavedesc.Waveform) error {
	out := make(map[string][]dumpSegment, len(waves))
	for ch, w := range waves {
		segs := make([]dumpSegment, len(w.Segments))
		for i, seg := range w.Segments {
			segs[i] = dumpSegment{TimeOrigin: seg.TimeOrigin, Time: seg.Time, Volt: seg.Amplitude}
		}
		out[fmt.Sprintf("C%d", ch)] = segs
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

type cliConfig struct {
	addr         string
	backend      string
	channels     string
	triggerMode  string
	waitTrigger  bool
	timeoutSec   float64
	numSamples   int
	segmentCount int
	sampleRate   float64
	toneFreq     float64
	logLevel     string
	logFormat    string
	dumpPath     string
}

type persistentConfig struct {
	Addr         string  `json:"addr"`
	Backend      string  `json:"backend"`
	Channels     string  `json:"channels"`
	TriggerMode  string  `json:"trigger_mode"`
	WaitTrigger  bool    `json:"wait_trigger"`
	TimeoutSec   float64 `json:"timeout_sec"`
	NumSamples   int     `json:"num_samples"`
	SegmentCount int     `json:"segment_count"`
	SampleRate   float64 `json:"sample_rate"`
	ToneFreq     float64 `json:"tone_freq"`
	LogLevel     string  `json:"log_level"`
	LogFormat    string  `json:"log_format"`
	DumpPath     string  `json:"dump_path"`
}

func parseConfig(args []string, lookup func(string) (string, bool), defaults persistentConfig) (cliConfig, error) {
	cfg := cliConfig{}
	fs := flag.NewFlagSet("scope-capture", flag.ContinueOnError)
	fs.StringVar(&cfg.addr, "addr", envString(lookup, "SCOPE_ADDR", defaults.Addr), "Oscilloscope raw SCPI address (host:port)")
	fs.StringVar(&cfg.backend, "backend", envString(lookup, "SCOPE_BACKEND", defaults.Backend), "Scope backend (mock|lecroy)")
	fs.StringVar(&cfg.channels, "channels", envString(lookup, "SCOPE_CHANNELS", defaults.Channels), "Comma-separated channel numbers, e.g. 1,2")
	fs.StringVar(&cfg.triggerMode, "trigger-mode", envString(lookup, "SCOPE_TRIGGER_MODE", defaults.TriggerMode), "Trigger mode (AUTO|NORM|SINGLE|STOP)")
	fs.BoolVar(&cfg.waitTrigger, "wait-trigger", defaults.WaitTrigger, "Wait for a completed acquisition before reading")
	fs.Float64Var(&cfg.timeoutSec, "timeout", envFloat(lookup, "SCOPE_TIMEOUT", defaults.TimeoutSec), "I/O timeout in seconds")
	fs.IntVar(&cfg.numSamples, "num-samples", envInt(lookup, "SCOPE_NUM_SAMPLES", defaults.NumSamples), "Mock: samples per segment")
	fs.IntVar(&cfg.segmentCount, "segments", envInt(lookup, "SCOPE_SEGMENTS", defaults.SegmentCount), "Mock: segments per acquisition")
	fs.Float64Var(&cfg.sampleRate, "sample-rate", envFloat(lookup, "SCOPE_SAMPLE_RATE", defaults.SampleRate), "Mock: sample rate in Hz")
	fs.Float64Var(&cfg.toneFreq, "tone-freq", envFloat(lookup, "SCOPE_TONE_FREQ", defaults.ToneFreq), "Mock: tone frequency in Hz")
	fs.StringVar(&cfg.logLevel, "log-level", envString(lookup, "SCOPE_LOG_LEVEL", defaults.LogLevel), "Log level (debug|info|warn|error)")
	fs.StringVar(&cfg.logFormat, "log-format", envString(lookup, "SCOPE_LOG_FORMAT", defaults.LogFormat), "Log format (text|json)")
	fs.StringVar(&cfg.dumpPath, "dump", envString(lookup, "SCOPE_DUMP", defaults.DumpPath), "Optional path for a JSON dump of the scaled waveforms")

	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}
	return cfg, nil
}

func persistentFromCLI(cfg cliConfig) persistentConfig {
	return persistentConfig{
		Addr:         cfg.addr,
		Backend:      cfg.backend,
		Channels:     cfg.channels,
		TriggerMode:  cfg.triggerMode,
		WaitTrigger:  cfg.waitTrigger,
		TimeoutSec:   cfg.timeoutSec,
		NumSamples:   cfg.numSamples,
		SegmentCount: cfg.segmentCount,
		SampleRate:   cfg.sampleRate,
		ToneFreq:     cfg.toneFreq,
		LogLevel:     cfg.logLevel,
		LogFormat:    cfg.logFormat,
		DumpPath:     cfg.dumpPath,
	}
}

func loadOrCreateConfig(path string) (persistentConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultPersistentConfig()
			if saveErr := saveConfig(path, cfg); saveErr != nil {
				return persistentConfig{}, saveErr
			}
			return cfg, nil
		}
		return persistentConfig{}, err
	}
	defer f.Close()

	var cfg persistentConfig
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return persistentConfig{}, err
	}
	return cfg, nil
}

func saveConfig(path string, cfg persistentConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func defaultPersistentConfig() persistentConfig {
	return persistentConfig{
		Addr:         "192.168.1.10:5025",
		Backend:      "mock",
		Channels:     "1",
		TriggerMode:  "AUTO",
		TimeoutSec:   5,
		NumSamples:   1000,
		SegmentCount: 1,
		SampleRate:   1e9,
		ToneFreq:     1e6,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

func buildLogger(cfg cliConfig) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.logLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.logFormat)
	if err != nil {
		return nil, err
	}
	return logging.New(level, format, os.Stderr), nil
}

func parseChannels(spec string) ([]int, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, fmt.Errorf("no channels configured")
	}
	var channels []int
	for _, part := range strings.Split(spec, ",") {
		ch, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid channel %q", part)
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

func selectBackend(cfg cliConfig) (scope.Scope, error) {
	switch cfg.backend {
	case "mock":
		return scope.NewMock(), nil
	case "lecroy":
		return scope.NewLeCroy(), nil
	default:
		return nil, fmt.Errorf("unknown backend %s", cfg.backend)
	}
}

func envFloat(lookup func(string) (string, bool), key string, def float64) float64 {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}

func envInt(lookup func(string) (string, bool), key string, def int) int {
	if val, ok := lookup(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envString(lookup func(string) (string, bool), key, def string) string {
	if val, ok := lookup(key); ok {
		return val
	}
	return def
}
