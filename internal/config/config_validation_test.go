package config

import (
	"os"
	"testing"
)

func TestValidateConfigurationFormat_ValidConfig(t *testing.T) {
	validConfig := `
active_config: test

definitions:
  questions:
    - id: 1
      question: Tell me about yourself and your background.
      category: General
      time_limit: 120
      tips: Keep it concise.

    - id: 2
      question: What interests you most about this position?
      category: Motivation
      time_limit: 90

configs:
  test:
    settings:
      interview_type: technical
      difficulty: advanced
      duration: 45
      include_video: false
    questions:
      - ref: 1
        time_limit: 60
      - ref: 2
    output:
      directory: ~/Videos/Test
`

	configFile := createTempConfig(t, validConfig)
	defer os.Remove(configFile)

	rootConfig, err := ValidateConfigurationFormat(configFile)
	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}

	if rootConfig == nil {
		t.Fatal("Expected non-nil root config")
	}

	if rootConfig.ActiveConfig != "test" {
		t.Errorf("Expected active_config 'test', got '%s'", rootConfig.ActiveConfig)
	}

	if len(rootConfig.Definitions.Questions) != 2 {
		t.Errorf("Expected 2 question definitions, got %d", len(rootConfig.Definitions.Questions))
	}

	profile, exists := rootConfig.Configs["test"]
	if !exists {
		t.Fatal("Expected 'test' config to exist")
	}
	if len(profile.Questions) != 2 {
		t.Errorf("Expected 2 question references, got %d", len(profile.Questions))
	}
	if profile.Questions[0].TimeLimit == nil || *profile.Questions[0].TimeLimit != 60 {
		t.Error("Expected time_limit override of 60 on first reference")
	}
	if profile.Questions[1].TimeLimit != nil {
		t.Error("Expected no time_limit override on second reference")
	}
	if profile.Settings.VideoEnabled() {
		t.Error("Expected include_video false")
	}
	if !profile.Settings.AudioEnabled() {
		t.Error("Expected include_audio to default to true")
	}
}

func TestValidateConfigurationFormat_MissingDefinitions(t *testing.T) {
	invalidConfig := `
active_config: test
configs:
  test:
    questions:
      - ref: 1
`

	configFile := createTempConfig(t, invalidConfig)
	defer os.Remove(configFile)

	_, err := ValidateConfigurationFormat(configFile)
	if err == nil {
		t.Error("Expected error for missing definitions section")
	}

	if !containsSubstring(err.Error(), "definitions section is required") {
		t.Errorf("Expected error about missing definitions, got: %v", err)
	}
}

func TestValidateConfigurationFormat_EmptyDefinitions(t *testing.T) {
	invalidConfig := `
active_config: test
definitions:
  questions: []
configs:
  test:
    settings:
      difficulty: beginner
`

	configFile := createTempConfig(t, invalidConfig)
	defer os.Remove(configFile)

	_, err := ValidateConfigurationFormat(configFile)
	if err == nil {
		t.Error("Expected error for empty definitions")
	}
}

func TestValidateConfigurationFormat_InvalidReference(t *testing.T) {
	invalidConfig := `
definitions:
  questions:
    - id: 1
      question: First
      time_limit: 120
configs:
  test:
    questions:
      - ref: 9
`

	configFile := createTempConfig(t, invalidConfig)
	defer os.Remove(configFile)

	_, err := ValidateConfigurationFormat(configFile)
	if err == nil {
		t.Fatal("Expected error for invalid reference")
	}

	if !containsSubstring(err.Error(), "references undefined question definition '9'") {
		t.Errorf("Expected error about undefined reference, got: %v", err)
	}
}

func TestValidateConfigurationFormat_DuplicateDefinitionIDs(t *testing.T) {
	invalidConfig := `
definitions:
  questions:
    - id: 1
      question: First
      time_limit: 120
    - id: 1
      question: Again
      time_limit: 60
configs:
  test:
    questions:
      - ref: 1
`

	configFile := createTempConfig(t, invalidConfig)
	defer os.Remove(configFile)

	_, err := ValidateConfigurationFormat(configFile)
	if err == nil {
		t.Fatal("Expected error for duplicate IDs")
	}

	if !containsSubstring(err.Error(), "duplicate ID '1'") {
		t.Errorf("Expected error about duplicate ID, got: %v", err)
	}
}

func TestValidateConfigurationFormat_InvalidQuestionDefinition(t *testing.T) {
	testCases := []struct {
		name          string
		definition    string
		expectedError string
	}{
		{
			name: "missing id",
			definition: `
    - question: No id
      time_limit: 60`,
			expectedError: "'id' is required",
		},
		{
			name: "missing question",
			definition: `
    - id: 1
      time_limit: 60`,
			expectedError: "'question' is required",
		},
		{
			name: "zero time limit",
			definition: `
    - id: 1
      question: Too fast
      time_limit: 0`,
			expectedError: "'time_limit' must be > 0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			invalidConfig := `
definitions:
  questions:` + tc.definition + `
configs:
  test:
    settings:
      difficulty: beginner
`

			configFile := createTempConfig(t, invalidConfig)
			defer os.Remove(configFile)

			_, err := ValidateConfigurationFormat(configFile)
			if err == nil {
				t.Fatalf("Expected error for %s", tc.name)
			}

			if !containsSubstring(err.Error(), tc.expectedError) {
				t.Errorf("Expected error containing '%s', got: %v", tc.expectedError, err)
			}
		})
	}
}

func TestValidateConfigurationFormat_InvalidProfile(t *testing.T) {
	testCases := []struct {
		name          string
		profile       string
		expectedError string
	}{
		{
			name: "negative time limit override",
			profile: `
    questions:
      - ref: 1
        time_limit: -5`,
			expectedError: "time_limit override must be > 0",
		},
		{
			name: "unknown interview type",
			profile: `
    settings:
      interview_type: poetry`,
			expectedError: "'interview_type' must be one of",
		},
		{
			name: "unknown difficulty",
			profile: `
    settings:
      difficulty: impossible`,
			expectedError: "'difficulty' must be one of",
		},
		{
			name: "negative tick",
			profile: `
    timing:
      tick_ms: -1`,
			expectedError: "'tick_ms' must be >= 0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			invalidConfig := `
definitions:
  questions:
    - id: 1
      question: First
      time_limit: 120
configs:
  test:` + tc.profile + `
`

			configFile := createTempConfig(t, invalidConfig)
			defer os.Remove(configFile)

			_, err := ValidateConfigurationFormat(configFile)
			if err == nil {
				t.Fatalf("Expected error for %s", tc.name)
			}

			if !containsSubstring(err.Error(), tc.expectedError) {
				t.Errorf("Expected error containing '%s', got: %v", tc.expectedError, err)
			}
		})
	}
}

func TestConvertProfileToConfig_ValidProfile(t *testing.T) {
	definitions := &DefinitionsConfig{
		Questions: []QuestionDefinition{
			{ID: 1, Question: "First", Category: "General", TimeLimit: 120, Tips: "Be brief"},
			{ID: 2, Question: "Second", Category: "Closing", TimeLimit: 60},
		},
	}

	override := 30
	profile := &ConfigProfile{
		Settings: SettingsConfig{InterviewType: "leadership"},
		Questions: []QuestionReference{
			{Ref: 2},
			{Ref: 1, TimeLimit: &override},
		},
	}

	cfg, err := convertProfileToConfig(profile, definitions)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(cfg.Questions) != 2 {
		t.Fatalf("Expected 2 questions, got %d", len(cfg.Questions))
	}
	if cfg.Questions[0].ID != 2 || cfg.Questions[0].TimeLimit != 60 {
		t.Errorf("Expected question 2 first with definition limit, got %+v", cfg.Questions[0])
	}
	if cfg.Questions[1].TimeLimit != 30 {
		t.Errorf("Expected override limit 30, got %d", cfg.Questions[1].TimeLimit)
	}
	if cfg.Questions[1].Tips != "Be brief" {
		t.Errorf("Expected tips to be carried, got %q", cfg.Questions[1].Tips)
	}
	if definitions.Questions[0].TimeLimit != 120 {
		t.Error("Expected definitions to be left untouched by overrides")
	}
	if cfg.Settings.InterviewType != "leadership" {
		t.Errorf("Expected settings carried over, got %+v", cfg.Settings)
	}
}

func TestConvertProfileToConfig_MissingReference(t *testing.T) {
	definitions := &DefinitionsConfig{
		Questions: []QuestionDefinition{{ID: 1, Question: "First", TimeLimit: 120}},
	}
	profile := &ConfigProfile{Questions: []QuestionReference{{Ref: 4}}}

	_, err := convertProfileToConfig(profile, definitions)
	if err == nil {
		t.Fatal("Expected error for missing reference")
	}

	if !containsSubstring(err.Error(), "reference '4' not found") {
		t.Errorf("Expected error about missing reference, got: %v", err)
	}
}

func TestConvertProfileToConfig_EmptyRef(t *testing.T) {
	profile := &ConfigProfile{Questions: []QuestionReference{{}}}

	_, err := convertProfileToConfig(profile, &DefinitionsConfig{})
	if err == nil {
		t.Fatal("Expected error for empty reference")
	}

	if !containsSubstring(err.Error(), "'ref' is required") {
		t.Errorf("Expected error about required ref, got: %v", err)
	}
}

func containsSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// Helper function to create temporary config file for testing
func createTempConfig(t *testing.T, content string) string {
	tmpfile, err := os.CreateTemp("", "rehearse-test-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	if err := tmpfile.Close(); err != nil {
		t.Fatalf("Failed to close temp file: %v", err)
	}

	return tmpfile.Name()
}
