package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/healthtrack/internal/constants"
)

const (
	defaultProfile = "default"
	configDirName  = ".healthtrack"
	configFileName = "config.yml"
	masked         = "***"
	notAvailable   = "N/A"
)

// Config represents the CLI configuration.
type Config struct {
	CurrentProfile string                    `json:"current_profile,omitempty" mapstructure:"current_profile" yaml:"current_profile,omitempty"`
	Output         string                    `json:"output,omitempty"          mapstructure:"output"          yaml:"output,omitempty"`
	Profiles       map[string]*ProfileConfig `json:"profiles,omitempty"        mapstructure:"profiles"        yaml:"profiles,omitempty"`
}

// ProfileConfig is the configuration of one API account.
type ProfileConfig struct {
	BaseURL   string `json:"base_url"             mapstructure:"base_url"   yaml:"base_url"`
	Token     string `json:"token,omitempty"      mapstructure:"token"      yaml:"token,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty" mapstructure:"expires_at" yaml:"expires_at,omitempty"`
	UserAgent string `json:"user_agent,omitempty" mapstructure:"user_agent" yaml:"user_agent,omitempty"`
	// RateLimit caps requests per second; zero disables throttling.
	RateLimit   float64 `json:"rate_limit,omitempty"   mapstructure:"rate_limit"   yaml:"rate_limit,omitempty"`
	PageSize    int     `json:"page_size,omitempty"    mapstructure:"page_size"    yaml:"page_size,omitempty"`
	NATSURL     string  `json:"nats_url,omitempty"     mapstructure:"nats_url"     yaml:"nats_url,omitempty"`
	NATSSubject string  `json:"nats_subject,omitempty" mapstructure:"nats_subject" yaml:"nats_subject,omitempty"`
	NATSToken   string  `json:"nats_token,omitempty"   mapstructure:"nats_token"   yaml:"nats_token,omitempty"`
}

// TokenExpiry parses ExpiresAt. An empty or malformed value means no expiry.
func (p *ProfileConfig) TokenExpiry() time.Time {
	if p.ExpiresAt == "" {
		return time.Time{}
	}

	expiresAt, err := time.Parse(time.RFC3339, p.ExpiresAt)
	if err != nil {
		return time.Time{}
	}

	return expiresAt
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage healthtrack CLI configuration including profiles and settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the CLI configuration with tokens masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := maskedConfig(loadConfig())

			switch viper.GetString("output") {
			case constants.FormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(config)
			case constants.FormatYAML:
				return yaml.NewEncoder(os.Stdout).Encode(config)
			default:
				return displayConfigTable(config)
			}
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long: `Set a configuration value. Global keys: output, current_profile.
Profile keys (applied to the active profile): base_url, token, expires_at,
user_agent, rate_limit, page_size, nats_url, nats_subject, nats_token.`,
		Args: cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			err := setConfigValue(config, activeProfileName(config), args[0], args[1])
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s\n", args[0])

			return nil
		},
	}
}

func setConfigValue(config *Config, profileName, key, value string) error {
	switch key {
	case "output":
		config.Output = value

		return nil
	case "current_profile":
		config.CurrentProfile = value

		return nil
	}

	handler, ok := profileConfigHandlers()[key]
	if !ok {
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return handler(ensureProfile(config, profileName), value)
}

func profileConfigHandlers() map[string]func(*ProfileConfig, string) error {
	return map[string]func(*ProfileConfig, string) error{
		"base_url":     func(p *ProfileConfig, v string) error { p.BaseURL = v; return nil },
		"token":        func(p *ProfileConfig, v string) error { p.Token = v; return nil },
		"user_agent":   func(p *ProfileConfig, v string) error { p.UserAgent = v; return nil },
		"nats_url":     func(p *ProfileConfig, v string) error { p.NATSURL = v; return nil },
		"nats_subject": func(p *ProfileConfig, v string) error { p.NATSSubject = v; return nil },
		"nats_token":   func(p *ProfileConfig, v string) error { p.NATSToken = v; return nil },
		"expires_at": func(p *ProfileConfig, v string) error {
			if v != "" {
				_, err := time.Parse(time.RFC3339, v)
				if err != nil {
					return fmt.Errorf("invalid expires_at %q: %w", v, err)
				}
			}

			p.ExpiresAt = v

			return nil
		},
		"rate_limit": func(p *ProfileConfig, v string) error {
			rate, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid rate_limit %q: %w", v, err)
			}

			p.RateLimit = rate

			return nil
		},
		"page_size": func(p *ProfileConfig, v string) error {
			size, err := strconv.Atoi(v)
			if err != nil || size <= 0 {
				return fmt.Errorf("%w: %q", constants.ErrInvalidPageSize, v)
			}

			p.PageSize = size

			return nil
		},
	}
}

func loadConfig() *Config {
	config := &Config{
		CurrentProfile: viper.GetString("current_profile"),
		Output:         viper.GetString("output"),
	}

	_ = viper.UnmarshalKey("profiles", &config.Profiles)

	if config.Profiles == nil {
		config.Profiles = make(map[string]*ProfileConfig)
	}

	return config
}

// activeProfileName returns the --profile flag, then the current profile, then "default".
func activeProfileName(config *Config) string {
	if name := viper.GetString("profile"); name != "" {
		return name
	}

	if config.CurrentProfile != "" {
		return config.CurrentProfile
	}

	return defaultProfile
}

func ensureProfile(config *Config, name string) *ProfileConfig {
	if config.Profiles == nil {
		config.Profiles = make(map[string]*ProfileConfig)
	}

	profile, ok := config.Profiles[name]
	if !ok {
		profile = &ProfileConfig{}
		config.Profiles[name] = profile
	}

	if config.CurrentProfile == "" {
		config.CurrentProfile = name
	}

	return profile
}

func configFilePath() (string, error) {
	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(home, configDirName)

	err = os.MkdirAll(configDir, constants.ConfigDirPerm)
	if err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(configDir, configFileName), nil
}

func saveConfigStruct(config *Config) error {
	configFile, err := configFilePath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Keep the in-process view in sync for commands that reload.
	viper.Set("current_profile", config.CurrentProfile)
	viper.Set("profiles", profilesAsMap(config.Profiles))

	return nil
}

func profilesAsMap(profiles map[string]*ProfileConfig) map[string]interface{} {
	out := make(map[string]interface{}, len(profiles))

	for name, profile := range profiles {
		data, err := yaml.Marshal(profile)
		if err != nil {
			continue
		}

		var fields map[string]interface{}
		if yaml.Unmarshal(data, &fields) == nil {
			out[name] = fields
		}
	}

	return out
}

func maskedConfig(config *Config) *Config {
	out := &Config{
		CurrentProfile: config.CurrentProfile,
		Output:         config.Output,
		Profiles:       make(map[string]*ProfileConfig, len(config.Profiles)),
	}

	for name, profile := range config.Profiles {
		copied := *profile
		if copied.Token != "" {
			copied.Token = masked
		}

		if copied.NATSToken != "" {
			copied.NATSToken = masked
		}

		out.Profiles[name] = &copied
	}

	return out
}

func displayConfigTable(config *Config) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Profile", "Current", "Base URL", "Token", "Expires", "NATS")

	names := make([]string, 0, len(config.Profiles))
	for name := range config.Profiles {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		profile := config.Profiles[name]

		current := ""
		if name == config.CurrentProfile {
			current = "*"
		}

		_ = table.Append(name, current, formatConfigValue(profile.BaseURL), formatConfigValue(profile.Token),
			formatConfigValue(profile.ExpiresAt), formatConfigValue(profile.NATSURL))
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func formatConfigValue(value string) string {
	if value == "" {
		return notAvailable
	}

	return value
}
