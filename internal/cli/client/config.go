package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	envToken  = "DOCINTEL_SERVICE_TOKEN"
	envAPIURL = "DOCINTEL_API_URL"

	defaultAPIURL = "http://localhost:8000"
)

// GlobalConfig represents the stored connection settings in config.json
type GlobalConfig struct {
	Token  string `json:"token,omitempty"`
	APIURL string `json:"api_url"`
}

var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "docintel"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetConfigPath returns the full path to the config.json file
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads and parses the global config.json file
// Returns nil config (not error) if file doesn't exist
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveGlobalConfig writes the config to config.json with 0600 permissions
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configDir, err := getConfigDirFunc()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DeleteGlobalConfig removes the config.json file
func DeleteGlobalConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}

	return nil
}

// CredentialSource represents where a setting came from
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnv          CredentialSource = "env"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceDefault      CredentialSource = "default"
	SourceNone         CredentialSource = "none"
)

// Connection is a resolved API URL and optional service token.
type Connection struct {
	APIURL      string
	Token       string
	URLSource   CredentialSource
	TokenSource CredentialSource
}

// ResolveConnection applies the cascade flag -> env -> global config -> default
// to the API URL and the token independently.
func ResolveConnection(flagToken, flagAPIURL string) (*Connection, error) {
	conn := &Connection{
		APIURL:      flagAPIURL,
		Token:       flagToken,
		URLSource:   SourceFlag,
		TokenSource: SourceFlag,
	}

	if conn.APIURL == "" {
		conn.APIURL, conn.URLSource = os.Getenv(envAPIURL), SourceEnv
	}
	if conn.Token == "" {
		conn.Token, conn.TokenSource = os.Getenv(envToken), SourceEnv
	}

	if conn.APIURL == "" || conn.Token == "" {
		global, err := LoadGlobalConfig()
		if err != nil {
			return nil, err
		}
		if global != nil {
			if conn.APIURL == "" && global.APIURL != "" {
				conn.APIURL, conn.URLSource = global.APIURL, SourceGlobalConfig
			}
			if conn.Token == "" && global.Token != "" {
				conn.Token, conn.TokenSource = global.Token, SourceGlobalConfig
			}
		}
	}

	if conn.APIURL == "" {
		conn.APIURL, conn.URLSource = defaultAPIURL, SourceDefault
	}
	if conn.Token == "" {
		conn.TokenSource = SourceNone
	}

	return conn, nil
}
