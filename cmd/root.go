package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "skill-interviewer"
)

type Config struct {
	// Bank is the path to the YAML question catalog.
	Bank string `mapstructure:"bank"`
	// Candidate is the display name recorded on the session and report.
	Candidate string `mapstructure:"candidate"`
	// ReportFile, when set, receives the markdown hiring report.
	ReportFile string           `mapstructure:"report-file"`
	Interview  *InterviewConfig `mapstructure:"interview"`
	AI         *AIConfig        `mapstructure:"ai"`
}

type InterviewConfig struct {
	FailStreak      int `mapstructure:"fail-streak"`
	HardPassTarget  int `mapstructure:"hard-pass-target"`
	MaxQuestions    int `mapstructure:"max-questions"`
	GradeTimeoutSec int `mapstructure:"grade-timeout-seconds"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	// MaxRetries bounds transport-level retries against the Gemini API.
	MaxRetries int `mapstructure:"max-retries"`
	// MaxValidationRetries bounds re-grades after an out-of-contract payload.
	MaxValidationRetries int `mapstructure:"max-validation-retries"`
	MaxLogLength         int `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "skill-interviewer conducts an adaptive, rubric-graded skill interview in the terminal",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("gemini-api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is skill-interviewer.yaml in current directory)")
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
