package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type DefinitionsConfig struct {
	Questions []QuestionDefinition `mapstructure:"questions" yaml:"questions"`
}

type QuestionDefinition struct {
	ID        int    `mapstructure:"id" yaml:"id"`
	Question  string `mapstructure:"question" yaml:"question"`
	Category  string `mapstructure:"category" yaml:"category"`
	TimeLimit int    `mapstructure:"time_limit" yaml:"time_limit"` // seconds
	Tips      string `mapstructure:"tips" yaml:"tips"`
}

type QuestionReference struct {
	Ref       int  `mapstructure:"ref" yaml:"ref"`
	TimeLimit *int `mapstructure:"time_limit,omitempty" yaml:"time_limit,omitempty"`
}

type GlobalsConfig struct {
	StorePath string             `mapstructure:"store_path" yaml:"store_path"`
	Output    GlobalOutputConfig `mapstructure:"output" yaml:"output"`
}

type GlobalOutputConfig struct {
	RecordingsDirectory string `mapstructure:"recordings_directory" yaml:"recordings_directory"`
}

type RootConfig struct {
	ActiveConfig string                    `mapstructure:"active_config" yaml:"active_config"`
	Globals      *GlobalsConfig            `mapstructure:"globals,omitempty" yaml:"globals,omitempty"`
	Capture      *CaptureConfig            `mapstructure:"capture,omitempty" yaml:"capture,omitempty"`
	Definitions  *DefinitionsConfig        `mapstructure:"definitions,omitempty" yaml:"definitions,omitempty"`
	Configs      map[string]*ConfigProfile `mapstructure:"configs" yaml:"configs"`
}

// Config is a resolved profile.
type Config struct {
	Settings  SettingsConfig `mapstructure:"settings" yaml:"settings"`
	Questions []Question     `mapstructure:"questions" yaml:"questions"`
	Timing    TimingConfig   `mapstructure:"timing" yaml:"timing"`
	Capture   CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Output    OutputConfig   `mapstructure:"output" yaml:"output"`
	StorePath string         `mapstructure:"store_path" yaml:"store_path"`

	// Internal field to track inheritance information for the questions command
	Inheritance *InheritanceInfo `mapstructure:"-" yaml:"-"`
}

type ConfigProfile struct {
	Settings  SettingsConfig      `mapstructure:"settings" yaml:"settings"`
	Questions []QuestionReference `mapstructure:"questions" yaml:"questions"`
	Timing    TimingConfig        `mapstructure:"timing" yaml:"timing"`
	Capture   CaptureConfig       `mapstructure:"capture" yaml:"capture"`
	Output    OutputConfig        `mapstructure:"output" yaml:"output"`
}

type InheritanceInfo struct {
	Settings struct {
		InterviewType string // "inherited" or "profile-specific"
		Difficulty    string
		Duration      string
	}
	Questions string
	Capture   struct {
		Backend  string
		MimeType string
	}
	Output struct {
		Directory string
	}
}

// Question is a resolved question with its effective time limit.
type Question struct {
	ID        int    `mapstructure:"id" yaml:"id" json:"id"`
	Text      string `mapstructure:"question" yaml:"question" json:"question"`
	Category  string `mapstructure:"category" yaml:"category" json:"category"`
	TimeLimit int    `mapstructure:"time_limit" yaml:"time_limit" json:"time_limit"`
	Tips      string `mapstructure:"tips" yaml:"tips" json:"tips,omitempty"`
}

// Limit returns the time limit as a duration.
func (q Question) Limit() time.Duration {
	return time.Duration(q.TimeLimit) * time.Second
}

type SettingsConfig struct {
	InterviewType string `mapstructure:"interview_type" yaml:"interview_type"`
	Difficulty    string `mapstructure:"difficulty" yaml:"difficulty"`
	Duration      int    `mapstructure:"duration" yaml:"duration"` // minutes
	IncludeVideo  *bool  `mapstructure:"include_video,omitempty" yaml:"include_video,omitempty"`
	IncludeAudio  *bool  `mapstructure:"include_audio,omitempty" yaml:"include_audio,omitempty"`
}

// VideoEnabled reports include_video, true when unset.
func (s SettingsConfig) VideoEnabled() bool {
	return s.IncludeVideo == nil || *s.IncludeVideo
}

// AudioEnabled reports include_audio, true when unset.
func (s SettingsConfig) AudioEnabled() bool {
	return s.IncludeAudio == nil || *s.IncludeAudio
}

type TimingConfig struct {
	TickMs             int `mapstructure:"tick_ms" yaml:"tick_ms"`
	AutoAdvanceDelayMs int `mapstructure:"auto_advance_delay_ms" yaml:"auto_advance_delay_ms"`
	ProcessingDelayMs  int `mapstructure:"processing_delay_ms" yaml:"processing_delay_ms"`
}

func (t TimingConfig) Tick() time.Duration {
	return time.Duration(t.TickMs) * time.Millisecond
}

func (t TimingConfig) AutoAdvanceDelay() time.Duration {
	return time.Duration(t.AutoAdvanceDelayMs) * time.Millisecond
}

func (t TimingConfig) ProcessingDelay() time.Duration {
	return time.Duration(t.ProcessingDelayMs) * time.Millisecond
}

type CaptureConfig struct {
	Backend             string `mapstructure:"backend" yaml:"backend"` // "ffmpeg", "none"
	FFmpegBinary        string `mapstructure:"ffmpeg_binary" yaml:"ffmpeg_binary"`
	VideoDevice         string `mapstructure:"video_device" yaml:"video_device"`
	AudioSource         string `mapstructure:"audio_source" yaml:"audio_source"`
	Width               int    `mapstructure:"width" yaml:"width"`
	Height              int    `mapstructure:"height" yaml:"height"`
	FacingMode          string `mapstructure:"facing_mode" yaml:"facing_mode"`
	SampleRate          int    `mapstructure:"sample_rate" yaml:"sample_rate"`
	EchoCancellation    *bool  `mapstructure:"echo_cancellation,omitempty" yaml:"echo_cancellation,omitempty"`
	NoiseSuppression    *bool  `mapstructure:"noise_suppression,omitempty" yaml:"noise_suppression,omitempty"`
	MimeType            string `mapstructure:"mime_type" yaml:"mime_type"`
	TimesliceMs         int    `mapstructure:"timeslice_ms" yaml:"timeslice_ms"`
	ProbeTimeoutSeconds int    `mapstructure:"probe_timeout_seconds" yaml:"probe_timeout_seconds"`
}

// EchoCancellationEnabled reports echo_cancellation, true when unset.
func (c CaptureConfig) EchoCancellationEnabled() bool {
	return c.EchoCancellation == nil || *c.EchoCancellation
}

// NoiseSuppressionEnabled reports noise_suppression, true when unset.
func (c CaptureConfig) NoiseSuppressionEnabled() bool {
	return c.NoiseSuppression == nil || *c.NoiseSuppression
}

func (c CaptureConfig) Timeslice() time.Duration {
	return time.Duration(c.TimesliceMs) * time.Millisecond
}

type OutputConfig struct {
	Directory      string `mapstructure:"directory" yaml:"directory"`
	SaveRecordings bool   `mapstructure:"save_recordings" yaml:"save_recordings"`
}

var (
	InterviewTypes = []string{"general", "technical", "behavioral", "leadership", "sales"}
	Difficulties   = []string{"beginner", "intermediate", "advanced", "expert"}
)

// DefaultQuestions is the built-in question bank.
var DefaultQuestions = []QuestionDefinition{
	{
		ID:        1,
		Question:  "Tell me about yourself and your background.",
		Category:  "General",
		TimeLimit: 120,
		Tips:      "Keep it concise, focus on relevant experience, and connect it to the role you're applying for.",
	},
	{
		ID:        2,
		Question:  "What interests you most about this position?",
		Category:  "Motivation",
		TimeLimit: 90,
		Tips:      "Research the company and role beforehand. Show genuine enthusiasm and align your interests with the job requirements.",
	},
	{
		ID:        3,
		Question:  "Describe a challenging project you worked on and how you overcame obstacles.",
		Category:  "Behavioral",
		TimeLimit: 180,
		Tips:      "Use the STAR method (Situation, Task, Action, Result) to structure your response clearly.",
	},
	{
		ID:        4,
		Question:  "Where do you see yourself in 5 years?",
		Category:  "Career Goals",
		TimeLimit: 120,
		Tips:      "Show ambition while demonstrating commitment to the company. Align your goals with potential career paths at the organization.",
	},
	{
		ID:        5,
		Question:  "Do you have any questions for me?",
		Category:  "Closing",
		TimeLimit: 60,
		Tips:      "Always have thoughtful questions prepared. Ask about company culture, growth opportunities, or specific aspects of the role.",
	},
}

var defaultConfig = Config{
	Settings: SettingsConfig{
		InterviewType: "general",
		Difficulty:    "intermediate",
		Duration:      30,
	},
	Timing: TimingConfig{
		TickMs:             1000,
		AutoAdvanceDelayMs: 1000,
		ProcessingDelayMs:  2000,
	},
	Capture: CaptureConfig{
		Backend:             "ffmpeg",
		FFmpegBinary:        "ffmpeg",
		VideoDevice:         "/dev/video0",
		AudioSource:         "default",
		Width:               1280,
		Height:              720,
		FacingMode:          "user",
		SampleRate:          44100,
		MimeType:            "video/webm;codecs=vp9,opus",
		TimesliceMs:         1000,
		ProbeTimeoutSeconds: 10,
	},
	Output: OutputConfig{
		Directory: filepath.Join(os.Getenv("HOME"), "Videos", "Rehearse"),
	},
	StorePath: filepath.Join(os.Getenv("HOME"), ".local", "share", "rehearse", "sessions.db"),
}

// Default returns the built-in configuration used when no config file is
// given.
func Default() *Config {
	cfg := defaultConfig
	cfg.Questions = nil
	for _, def := range DefaultQuestions {
		cfg.Questions = append(cfg.Questions, questionFromDefinition(def))
	}
	return &cfg
}

func LoadWithProfile(configFile, profile string) (*Config, error) {
	if configFile == "" {
		return nil, fmt.Errorf("no config file specified, use --config flag")
	}

	// Validate configuration format first
	rootConfig, err := ValidateConfigurationFormat(configFile)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	// Determine which config to use
	configName := profile
	if configName == "" {
		configName = rootConfig.ActiveConfig
	}
	if configName == "" {
		configName = "default"
	}

	selectedProfile, exists := rootConfig.Configs[configName]
	if !exists {
		return nil, fmt.Errorf("configuration profile '%s' not found", configName)
	}

	selectedConfig, err := convertProfileToConfig(selectedProfile, rootConfig.Definitions)
	if err != nil {
		return nil, fmt.Errorf("error resolving configuration profile '%s': %w", configName, err)
	}

	if configName != "default" {
		if defaultProfile, exists := rootConfig.Configs["default"]; exists {
			defaultCfg, err := convertProfileToConfig(defaultProfile, rootConfig.Definitions)
			if err != nil {
				return nil, fmt.Errorf("error resolving default configuration: %w", err)
			}
			selectedConfig = mergeConfigs(defaultCfg, selectedConfig)
		}
	}

	// Global capture settings sit under every profile
	if rootConfig.Capture != nil {
		selectedConfig.Capture = mergeCapture(*rootConfig.Capture, selectedConfig.Capture)
	}

	// A profile chain without question refs asks every defined question
	if len(selectedConfig.Questions) == 0 {
		for _, def := range rootConfig.Definitions.Questions {
			selectedConfig.Questions = append(selectedConfig.Questions, questionFromDefinition(def))
		}
	}

	// Globals take precedence over profile values
	if rootConfig.Globals != nil {
		if rootConfig.Globals.Output.RecordingsDirectory != "" {
			selectedConfig.Output.Directory = rootConfig.Globals.Output.RecordingsDirectory
		}
		if rootConfig.Globals.StorePath != "" {
			selectedConfig.StorePath = rootConfig.Globals.StorePath
		}
	}

	applyDefaults(selectedConfig)

	selectedConfig.Output.Directory = expandPath(selectedConfig.Output.Directory)
	selectedConfig.StorePath = expandPath(selectedConfig.StorePath)

	if err := validateSettings(selectedConfig.Settings, "settings"); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return selectedConfig, nil
}

// UpdateActiveConfig updates the active_config field in the config file
func UpdateActiveConfig(configFile, newActiveConfig string) error {
	if configFile == "" {
		return fmt.Errorf("no config file specified")
	}

	// Create a new viper instance to avoid interfering with the global one
	v := viper.New()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	v.Set("active_config", newActiveConfig)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configFile, err)
	}

	return nil
}

// ListProfiles returns the profile names and the active profile of a config
// file.
func ListProfiles(configFile string) ([]string, string, error) {
	rootConfig, err := ValidateConfigurationFormat(configFile)
	if err != nil {
		return nil, "", err
	}
	var names []string
	for name := range rootConfig.Configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, rootConfig.ActiveConfig, nil
}

// convertProfileToConfig converts a ConfigProfile to Config by resolving question references
func convertProfileToConfig(profile *ConfigProfile, definitions *DefinitionsConfig) (*Config, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile cannot be nil")
	}

	config := &Config{
		Settings: profile.Settings,
		Timing:   profile.Timing,
		Capture:  profile.Capture,
		Output:   profile.Output,
	}

	for i, qRef := range profile.Questions {
		if qRef.Ref == 0 {
			return nil, fmt.Errorf("questions[%d]: 'ref' is required", i)
		}

		var definition *QuestionDefinition
		if definitions != nil {
			for j := range definitions.Questions {
				if definitions.Questions[j].ID == qRef.Ref {
					definition = &definitions.Questions[j]
					break
				}
			}
		}

		if definition == nil {
			return nil, fmt.Errorf("questions[%d]: reference '%d' not found in definitions", i, qRef.Ref)
		}

		question := questionFromDefinition(*definition)
		if qRef.TimeLimit != nil {
			question.TimeLimit = *qRef.TimeLimit
		}
		config.Questions = append(config.Questions, question)
	}

	return config, nil
}

func questionFromDefinition(def QuestionDefinition) Question {
	return Question{
		ID:        def.ID,
		Text:      def.Question,
		Category:  def.Category,
		TimeLimit: def.TimeLimit,
		Tips:      def.Tips,
	}
}

// mergeConfigs resolves a profile against the default profile:
// - Questions: the profile's list replaces the default list; an empty list inherits it
// - Every other setting uses the profile value or falls back to the default
func mergeConfigs(base, profile *Config) *Config {
	result := &Config{Inheritance: &InheritanceInfo{}}

	if base != nil {
		result.Settings = base.Settings
		result.Questions = base.Questions
		result.Timing = base.Timing
		result.Capture = base.Capture
		result.Output = base.Output
		result.StorePath = base.StorePath

		result.Inheritance.Settings.InterviewType = "inherited"
		result.Inheritance.Settings.Difficulty = "inherited"
		result.Inheritance.Settings.Duration = "inherited"
		result.Inheritance.Questions = "inherited"
		result.Inheritance.Capture.Backend = "inherited"
		result.Inheritance.Capture.MimeType = "inherited"
		result.Inheritance.Output.Directory = "inherited"
	}

	if profile == nil {
		return result
	}

	if profile.Settings.InterviewType != "" {
		result.Settings.InterviewType = profile.Settings.InterviewType
		result.Inheritance.Settings.InterviewType = "profile-specific"
	}
	if profile.Settings.Difficulty != "" {
		result.Settings.Difficulty = profile.Settings.Difficulty
		result.Inheritance.Settings.Difficulty = "profile-specific"
	}
	if profile.Settings.Duration != 0 {
		result.Settings.Duration = profile.Settings.Duration
		result.Inheritance.Settings.Duration = "profile-specific"
	}
	if profile.Settings.IncludeVideo != nil {
		result.Settings.IncludeVideo = profile.Settings.IncludeVideo
	}
	if profile.Settings.IncludeAudio != nil {
		result.Settings.IncludeAudio = profile.Settings.IncludeAudio
	}

	if len(profile.Questions) > 0 {
		result.Questions = profile.Questions
		result.Inheritance.Questions = "profile-specific"
	}

	if profile.Timing.TickMs != 0 {
		result.Timing.TickMs = profile.Timing.TickMs
	}
	if profile.Timing.AutoAdvanceDelayMs != 0 {
		result.Timing.AutoAdvanceDelayMs = profile.Timing.AutoAdvanceDelayMs
	}
	if profile.Timing.ProcessingDelayMs != 0 {
		result.Timing.ProcessingDelayMs = profile.Timing.ProcessingDelayMs
	}

	if profile.Capture.Backend != "" {
		result.Inheritance.Capture.Backend = "profile-specific"
	}
	if profile.Capture.MimeType != "" {
		result.Inheritance.Capture.MimeType = "profile-specific"
	}
	result.Capture = mergeCapture(result.Capture, profile.Capture)

	if profile.Output.Directory != "" {
		result.Output.Directory = profile.Output.Directory
		result.Inheritance.Output.Directory = "profile-specific"
	}
	// save_recordings: profile value always takes precedence if the profile is loaded
	result.Output.SaveRecordings = profile.Output.SaveRecordings

	if profile.StorePath != "" {
		result.StorePath = profile.StorePath
	}

	return result
}

// mergeCapture overlays the non-zero fields of override onto base.
func mergeCapture(base, override CaptureConfig) CaptureConfig {
	result := base
	if override.Backend != "" {
		result.Backend = override.Backend
	}
	if override.FFmpegBinary != "" {
		result.FFmpegBinary = override.FFmpegBinary
	}
	if override.VideoDevice != "" {
		result.VideoDevice = override.VideoDevice
	}
	if override.AudioSource != "" {
		result.AudioSource = override.AudioSource
	}
	if override.Width != 0 {
		result.Width = override.Width
	}
	if override.Height != 0 {
		result.Height = override.Height
	}
	if override.FacingMode != "" {
		result.FacingMode = override.FacingMode
	}
	if override.SampleRate != 0 {
		result.SampleRate = override.SampleRate
	}
	if override.EchoCancellation != nil {
		result.EchoCancellation = override.EchoCancellation
	}
	if override.NoiseSuppression != nil {
		result.NoiseSuppression = override.NoiseSuppression
	}
	if override.MimeType != "" {
		result.MimeType = override.MimeType
	}
	if override.TimesliceMs != 0 {
		result.TimesliceMs = override.TimesliceMs
	}
	if override.ProbeTimeoutSeconds != 0 {
		result.ProbeTimeoutSeconds = override.ProbeTimeoutSeconds
	}
	return result
}

// applyDefaults fills every unset value from the built-in defaults.
func applyDefaults(cfg *Config) {
	d := defaultConfig

	if cfg.Settings.InterviewType == "" {
		cfg.Settings.InterviewType = d.Settings.InterviewType
	}
	if cfg.Settings.Difficulty == "" {
		cfg.Settings.Difficulty = d.Settings.Difficulty
	}
	if cfg.Settings.Duration == 0 {
		cfg.Settings.Duration = d.Settings.Duration
	}
	if cfg.Timing.TickMs == 0 {
		cfg.Timing.TickMs = d.Timing.TickMs
	}
	if cfg.Timing.AutoAdvanceDelayMs == 0 {
		cfg.Timing.AutoAdvanceDelayMs = d.Timing.AutoAdvanceDelayMs
	}
	if cfg.Timing.ProcessingDelayMs == 0 {
		cfg.Timing.ProcessingDelayMs = d.Timing.ProcessingDelayMs
	}
	cfg.Capture = mergeCapture(d.Capture, cfg.Capture)
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = d.Output.Directory
	}
	if cfg.StorePath == "" {
		cfg.StorePath = d.StorePath
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// ValidateConfigurationFormat validates the configuration file format and returns parsed config
func ValidateConfigurationFormat(configFile string) (*RootConfig, error) {
	v := viper.New()
	v.SetConfigFile(configFile)

	// Set environment variable prefix
	v.SetEnvPrefix("REHEARSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var rootConfig RootConfig
	if err := v.Unmarshal(&rootConfig); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateDefinitions(rootConfig.Definitions); err != nil {
		return nil, fmt.Errorf("invalid definitions: %w", err)
	}

	for configName, configProfile := range rootConfig.Configs {
		if configProfile == nil {
			return nil, fmt.Errorf("invalid config '%s': profile is empty", configName)
		}
		if err := validateQuestionReferences(configProfile.Questions, rootConfig.Definitions); err != nil {
			return nil, fmt.Errorf("invalid config '%s': %w", configName, err)
		}
		if err := validateSettings(configProfile.Settings, "settings"); err != nil {
			return nil, fmt.Errorf("invalid config '%s': %w", configName, err)
		}
		if err := validateTiming(configProfile.Timing); err != nil {
			return nil, fmt.Errorf("invalid config '%s': %w", configName, err)
		}
	}

	return &rootConfig, nil
}

// validateDefinitions validates the definitions section
func validateDefinitions(definitions *DefinitionsConfig) error {
	if definitions == nil {
		return fmt.Errorf("definitions section is required")
	}

	if len(definitions.Questions) == 0 {
		return fmt.Errorf("definitions.questions cannot be empty")
	}

	seenIDs := make(map[int]bool)

	for i, def := range definitions.Questions {
		prefix := fmt.Sprintf("definitions.questions[%d]", i)
		if def.ID <= 0 {
			return fmt.Errorf("%s: 'id' is required and must be > 0", prefix)
		}
		if seenIDs[def.ID] {
			return fmt.Errorf("%s: duplicate ID '%d'", prefix, def.ID)
		}
		seenIDs[def.ID] = true

		if strings.TrimSpace(def.Question) == "" {
			return fmt.Errorf("%s: 'question' is required", prefix)
		}
		if def.TimeLimit <= 0 {
			return fmt.Errorf("%s: 'time_limit' must be > 0, got: %d", prefix, def.TimeLimit)
		}
	}

	return nil
}

// validateQuestionReferences validates question references in a config profile
func validateQuestionReferences(questions []QuestionReference, definitions *DefinitionsConfig) error {
	for i, qRef := range questions {
		prefix := fmt.Sprintf("questions[%d]", i)

		if qRef.Ref == 0 {
			return fmt.Errorf("%s: 'ref' is required", prefix)
		}

		found := false
		if definitions != nil {
			for _, def := range definitions.Questions {
				if def.ID == qRef.Ref {
					found = true
					break
				}
			}
		}

		if !found {
			return fmt.Errorf("%s: references undefined question definition '%d'", prefix, qRef.Ref)
		}

		if qRef.TimeLimit != nil && *qRef.TimeLimit <= 0 {
			return fmt.Errorf("%s: time_limit override must be > 0, got %d", prefix, *qRef.TimeLimit)
		}
	}

	return nil
}

// validateSettings checks the enumerated settings. Empty values are allowed
// and resolved from defaults later.
func validateSettings(s SettingsConfig, prefix string) error {
	if s.InterviewType != "" && !oneOf(s.InterviewType, InterviewTypes) {
		return fmt.Errorf("%s: 'interview_type' must be one of %v, got: %s", prefix, InterviewTypes, s.InterviewType)
	}
	if s.Difficulty != "" && !oneOf(s.Difficulty, Difficulties) {
		return fmt.Errorf("%s: 'difficulty' must be one of %v, got: %s", prefix, Difficulties, s.Difficulty)
	}
	if s.Duration < 0 {
		return fmt.Errorf("%s: 'duration' must be >= 0, got: %d", prefix, s.Duration)
	}
	return nil
}

func validateTiming(t TimingConfig) error {
	if t.TickMs < 0 {
		return fmt.Errorf("timing: 'tick_ms' must be >= 0, got: %d", t.TickMs)
	}
	if t.AutoAdvanceDelayMs < 0 {
		return fmt.Errorf("timing: 'auto_advance_delay_ms' must be >= 0, got: %d", t.AutoAdvanceDelayMs)
	}
	if t.ProcessingDelayMs < 0 {
		return fmt.Errorf("timing: 'processing_delay_ms' must be >= 0, got: %d", t.ProcessingDelayMs)
	}
	return nil
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}
