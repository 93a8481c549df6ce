package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	TraceStdout  bool   `yaml:"trace_stdout"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	Port    int    `yaml:"port"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Audio       AudioConfig      `yaml:"audio"`
	STT         STTConfig        `yaml:"stt"`
	LLM         LLMConfig        `yaml:"llm"`
	Summary     SummaryConfig    `yaml:"summary"`
	Bus         BusConfig        `yaml:"bus"`
	EventStore  EventStoreConfig `yaml:"event_store"`
}

type AudioConfig struct {
	Source        string `yaml:"source"` // microphone, file
	FilePath      string `yaml:"file_path"`
	Realtime      bool   `yaml:"realtime"`
	SampleRate    int    `yaml:"sample_rate"`
	Channels      int    `yaml:"channels"`
	FrameSize     int    `yaml:"frame_size"`
	QueueCapacity int    `yaml:"queue_capacity"` // 0 = unbounded
}

type STTConfig struct {
	Mode            string   `yaml:"mode"` // vosk, exec, mock
	ModelPath       string   `yaml:"model_path"`
	Command         string   `yaml:"command"`
	Language        string   `yaml:"language"`
	Words           bool     `yaml:"words"`
	WindowMS        int      `yaml:"window_ms"`
	PartialEveryMS  int      `yaml:"partial_every_ms"`
	MockPhrases     []string `yaml:"mock_phrases"`
	MockFramesEvery int      `yaml:"mock_frames_per_phrase"`
}

type LLMConfig struct {
	Mode        string  `yaml:"mode"` // mock, ollama, exec
	Endpoint    string  `yaml:"endpoint"`
	Command     string  `yaml:"command"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type SummaryConfig struct {
	WordTrigger      int `yaml:"word_trigger"`
	TimeTriggerSecs  int `yaml:"time_trigger_seconds"`
	TimeTriggerWords int `yaml:"time_trigger_min_words"`
	MaxChunkWords    int `yaml:"max_chunk_words"`
	RetainWords      int `yaml:"retain_words"`
	MinSummaryWords  int `yaml:"min_summary_words"`
	TimeoutMS        int `yaml:"timeout_ms"`
}

type BusConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Embedded        bool     `yaml:"embedded"`
	Port            int      `yaml:"port"`
	StoreDir        string   `yaml:"store_dir"`
	Servers         []string `yaml:"servers"`
	Username        string   `yaml:"username"`
	Password        string   `yaml:"password"`
	Token           string   `yaml:"token"`
	TLSInsecure     bool     `yaml:"tls_insecure"`
	ConnectTimeout  int      `yaml:"connect_timeout_ms"`
	PublishPartials bool     `yaml:"publish_partials"`
}

type EventStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

// DefaultVoskModelPath is used when stt.mode is vosk and no model path is set.
const DefaultVoskModelPath = "models/vosk-model-small-en-us-0.15"

func Default() Config {
	return Config{
		RuntimeName: "loqa-captions",
		Environment: "development",
		HTTP: HTTPConfig{
			Enabled: false,
			Bind:    "127.0.0.1",
			Port:    9464,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "warn",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Audio: AudioConfig{
			Source:     "microphone",
			Realtime:   true,
			SampleRate: 16000,
			Channels:   1,
			FrameSize:  8000,
		},
		STT: STTConfig{
			Mode:            "vosk",
			WindowMS:        3000,
			PartialEveryMS:  1000,
			MockFramesEvery: 4,
		},
		LLM: LLMConfig{
			Mode:        "ollama",
			Endpoint:    "http://localhost:11434",
			Model:       "llama3.2:latest",
			MaxTokens:   130,
			Temperature: 0,
		},
		Summary: SummaryConfig{
			WordTrigger:      120,
			TimeTriggerSecs:  45,
			TimeTriggerWords: 5,
			MaxChunkWords:    250,
			RetainWords:      30,
			MinSummaryWords:  20,
		},
		Bus: BusConfig{
			Enabled:        false,
			Embedded:       false,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		EventStore: EventStoreConfig{
			Path:          "./data/loqa-captions.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
			MaxSessions:   1000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	applyModeDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyModeDefaults fills settings whose default depends on the selected
// backend.
func applyModeDefaults(cfg *Config) {
	if cfg.STT.Mode == "vosk" && cfg.STT.ModelPath == "" {
		cfg.STT.ModelPath = DefaultVoskModelPath
	}
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "LOQA_RUNTIME_NAME")
	overrideString(&cfg.Environment, "LOQA_RUNTIME_ENVIRONMENT")
	overrideBool(&cfg.HTTP.Enabled, "LOQA_HTTP_ENABLED")
	overrideString(&cfg.HTTP.Bind, "LOQA_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "LOQA_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "LOQA_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "LOQA_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "LOQA_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Telemetry.TraceStdout, "LOQA_TELEMETRY_TRACE_STDOUT")
	overrideString(&cfg.Audio.Source, "LOQA_AUDIO_SOURCE")
	overrideString(&cfg.Audio.FilePath, "LOQA_AUDIO_FILE_PATH")
	overrideBool(&cfg.Audio.Realtime, "LOQA_AUDIO_REALTIME")
	overrideInt(&cfg.Audio.SampleRate, "LOQA_AUDIO_SAMPLE_RATE")
	overrideInt(&cfg.Audio.Channels, "LOQA_AUDIO_CHANNELS")
	overrideInt(&cfg.Audio.FrameSize, "LOQA_AUDIO_FRAME_SIZE")
	overrideInt(&cfg.Audio.QueueCapacity, "LOQA_AUDIO_QUEUE_CAPACITY")
	overrideString(&cfg.STT.Mode, "LOQA_STT_MODE")
	overrideString(&cfg.STT.ModelPath, "LOQA_STT_MODEL_PATH")
	overrideString(&cfg.STT.Command, "LOQA_STT_COMMAND")
	overrideString(&cfg.STT.Language, "LOQA_STT_LANGUAGE")
	overrideBool(&cfg.STT.Words, "LOQA_STT_WORDS")
	overrideInt(&cfg.STT.WindowMS, "LOQA_STT_WINDOW_MS")
	overrideInt(&cfg.STT.PartialEveryMS, "LOQA_STT_PARTIAL_EVERY_MS")
	overrideStringSlice(&cfg.STT.MockPhrases, "LOQA_STT_MOCK_PHRASES")
	overrideInt(&cfg.STT.MockFramesEvery, "LOQA_STT_MOCK_FRAMES_PER_PHRASE")
	overrideString(&cfg.LLM.Mode, "LOQA_LLM_MODE")
	overrideString(&cfg.LLM.Endpoint, "LOQA_LLM_ENDPOINT")
	overrideString(&cfg.LLM.Command, "LOQA_LLM_COMMAND")
	overrideString(&cfg.LLM.Model, "LOQA_LLM_MODEL")
	overrideInt(&cfg.LLM.MaxTokens, "LOQA_LLM_MAX_TOKENS")
	overrideFloat(&cfg.LLM.Temperature, "LOQA_LLM_TEMPERATURE")
	overrideInt(&cfg.Summary.WordTrigger, "LOQA_SUMMARY_WORD_TRIGGER")
	overrideInt(&cfg.Summary.TimeTriggerSecs, "LOQA_SUMMARY_TIME_TRIGGER_SECONDS")
	overrideInt(&cfg.Summary.TimeTriggerWords, "LOQA_SUMMARY_TIME_TRIGGER_MIN_WORDS")
	overrideInt(&cfg.Summary.MaxChunkWords, "LOQA_SUMMARY_MAX_CHUNK_WORDS")
	overrideInt(&cfg.Summary.RetainWords, "LOQA_SUMMARY_RETAIN_WORDS")
	overrideInt(&cfg.Summary.MinSummaryWords, "LOQA_SUMMARY_MIN_SUMMARY_WORDS")
	overrideInt(&cfg.Summary.TimeoutMS, "LOQA_SUMMARY_TIMEOUT_MS")
	overrideBool(&cfg.Bus.Enabled, "LOQA_BUS_ENABLED")
	overrideBool(&cfg.Bus.Embedded, "LOQA_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "LOQA_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "LOQA_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "LOQA_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "LOQA_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "LOQA_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "LOQA_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "LOQA_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "LOQA_BUS_CONNECT_TIMEOUT_MS")
	overrideBool(&cfg.Bus.PublishPartials, "LOQA_BUS_PUBLISH_PARTIALS")
	overrideString(&cfg.EventStore.Path, "LOQA_EVENT_STORE_PATH")
	overrideString(&cfg.EventStore.RetentionMode, "LOQA_EVENT_STORE_RETENTION_MODE")
	overrideInt(&cfg.EventStore.RetentionDays, "LOQA_EVENT_STORE_RETENTION_DAYS")
	overrideInt(&cfg.EventStore.MaxSessions, "LOQA_EVENT_STORE_MAX_SESSIONS")
	overrideBool(&cfg.EventStore.VacuumOnStart, "LOQA_EVENT_STORE_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Enabled && (cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535) {
		return errors.New("http.port must be between 1 and 65535")
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}

	switch cfg.Audio.Source {
	case "microphone":
	case "file":
		if cfg.Audio.FilePath == "" {
			return errors.New("audio.file_path must be set when source=file")
		}
	default:
		return errors.New("audio.source must be one of microphone|file")
	}
	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.Channels != 1 {
		return errors.New("audio.channels must be 1 (mono)")
	}
	if cfg.Audio.FrameSize <= 0 {
		return errors.New("audio.frame_size must be positive")
	}
	if cfg.Audio.QueueCapacity < 0 {
		return errors.New("audio.queue_capacity must be >= 0")
	}

	switch cfg.STT.Mode {
	case "vosk":
	case "exec":
		if cfg.STT.Command == "" {
			return errors.New("stt.command must be set when mode=exec")
		}
		if cfg.STT.WindowMS <= 0 {
			return errors.New("stt.window_ms must be positive when mode=exec")
		}
	case "mock":
		if cfg.STT.MockFramesEvery <= 0 {
			return errors.New("stt.mock_frames_per_phrase must be positive")
		}
	default:
		return errors.New("stt.mode must be one of vosk|exec|mock")
	}

	switch cfg.LLM.Mode {
	case "mock", "ollama", "exec":
	default:
		return errors.New("llm.mode must be one of mock|ollama|exec")
	}
	if cfg.LLM.Mode == "ollama" && cfg.LLM.Endpoint == "" {
		return errors.New("llm.endpoint must be set when mode=ollama")
	}
	if cfg.LLM.Mode == "exec" && cfg.LLM.Command == "" {
		return errors.New("llm.command must be set when mode=exec")
	}
	if cfg.LLM.MaxTokens < 0 {
		return errors.New("llm.max_tokens must be >= 0")
	}

	if cfg.Summary.WordTrigger <= 0 {
		return errors.New("summary.word_trigger must be positive")
	}
	if cfg.Summary.TimeTriggerSecs <= 0 {
		return errors.New("summary.time_trigger_seconds must be positive")
	}
	if cfg.Summary.TimeTriggerWords < 0 {
		return errors.New("summary.time_trigger_min_words must be >= 0")
	}
	if cfg.Summary.MaxChunkWords <= 0 {
		return errors.New("summary.max_chunk_words must be positive")
	}
	if cfg.Summary.RetainWords < 0 {
		return errors.New("summary.retain_words must be >= 0")
	}
	if cfg.Summary.RetainWords >= cfg.Summary.WordTrigger {
		return errors.New("summary.retain_words must be smaller than summary.word_trigger")
	}
	if cfg.Summary.TimeoutMS < 0 {
		return errors.New("summary.timeout_ms must be >= 0")
	}

	if cfg.Bus.Enabled {
		if cfg.Bus.Embedded {
			if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
				return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}

	switch cfg.EventStore.RetentionMode {
	case "ephemeral":
	case "session", "persistent":
		if cfg.EventStore.Path == "" {
			return errors.New("event_store.path must not be empty")
		}
	default:
		return errors.New("event_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.EventStore.RetentionDays < 0 {
		return errors.New("event_store.retention_days must be >= 0")
	}
	return nil
}

// Validate checks a config assembled or modified outside Load.
func (c Config) Validate() error {
	return validate(c)
}
