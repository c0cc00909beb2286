package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "mentormatch"
)

type Config struct {
	Data      *DataConfig      `mapstructure:"data"`
	Scorer    *ScorerConfig    `mapstructure:"scorer"`
	Overrides *OverridesConfig `mapstructure:"overrides"`
	Export    *ExportConfig    `mapstructure:"export"`
	AI        *AIConfig        `mapstructure:"ai"`
}

// DataConfig points at the four CSV exports: an application file and an
// optional interview file per population.
type DataConfig struct {
	MentorsApplication string `mapstructure:"mentors-application"`
	MentorsInterview   string `mapstructure:"mentors-interview"`
	MenteesApplication string `mapstructure:"mentees-application"`
	MenteesInterview   string `mapstructure:"mentees-interview"`
}

type ScorerConfig struct {
	URL                   string             `mapstructure:"url"`
	AgeMaxDifference      int                `mapstructure:"age-max-difference"`
	GeographicMaxDistance int                `mapstructure:"geographic-max-distance"`
	Importance            map[string]float64 `mapstructure:"importance"`
}

type OverridesConfig struct {
	Store string `mapstructure:"store"`
}

type ExportConfig struct {
	File string `mapstructure:"file"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "mentormatch pairs mentors and mentees from CSV exports using a scoring service and manual overrides",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is mentormatch.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for run command now. If there is no config, we can skip initialization
	if runCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
