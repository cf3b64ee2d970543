package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/svetlov/skill-interviewer/internal/ai/gemini"
	"github.com/svetlov/skill-interviewer/internal/bank"
	"github.com/svetlov/skill-interviewer/internal/interview"
	"github.com/svetlov/skill-interviewer/internal/logger"
	"github.com/svetlov/skill-interviewer/internal/report"
	"github.com/svetlov/skill-interviewer/internal/runner"
	"github.com/svetlov/skill-interviewer/internal/secrets"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"

	defaultCandidate = "candidate"
)

var startPrompt = promptui.Select{
	Label: "Start the interview?",
	Items: []string{PromptYes, PromptNo},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one adaptive interview session",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before starting the interview")
	runCmd.Flags().StringP("candidate", "c", "", "candidate name recorded on the session and the report")
	runCmd.Flags().StringP("bank", "b", "", "path to the question catalog")

	viper.BindPFlag("candidate", runCmd.Flags().Lookup("candidate"))
	viper.BindPFlag("bank", runCmd.Flags().Lookup("bank"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	zlog.Info("starting the skill-interviewer", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	zlog.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		zlog.Fatal("config is required")
	}

	if strings.TrimSpace(config.Bank) == "" {
		zlog.Fatal("question catalog path is required under 'bank' or via the --bank flag")
	}

	candidate := strings.TrimSpace(config.Candidate)
	if candidate == "" {
		candidate = defaultCandidate
	}

	questionBank, err := bank.Load(config.Bank)
	if err != nil {
		// A malformed catalog is a startup error, never a runtime one.
		zlog.Fatal("loading question catalog", zap.Error(err))
	}

	zlog.Info("loaded question catalog",
		zap.Int("questions", questionBank.Len()),
		zap.Strings("topics", questionBank.Topics()),
	)

	scorer, narrator, err := prepareStrategies(ctx, config.AI, zlog)
	if err != nil {
		zlog.Fatal(
			"preparing grading backend",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE environment variable or the 'ai.gemini.api-key-file' key in the configuration file"),
		)
	}

	if cmd.Flag("auto-approve").Value.String() == "false" {
		_, choice, err := startPrompt.Run()
		if err != nil {
			zlog.Fatal("exiting", zap.Error(err))
		}
		if choice != PromptYes {
			zlog.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	session := interview.NewSession(candidate)
	engine := engineFromConfig(config.Interview)

	r := &runner.Runner{
		Picker:       bank.NewPicker(questionBank, time.Now().UnixNano()),
		Scorer:       scorer,
		Engine:       engine,
		IO:           &consoleIO{},
		Logger:       zlog,
		GradeTimeout: gradeTimeout(config.Interview),
	}

	if err := r.Run(ctx, session); err != nil {
		// The session is terminal either way; an aborted run still gets
		// an operator report from whatever turns were recorded.
		zlog.Error("interview ended abnormally", zap.Error(err))
	}

	deliverReport(context.WithoutCancel(ctx), config, session, narrator, zlog)
}

func engineFromConfig(cfg *InterviewConfig) *interview.Engine {
	engine := interview.NewEngine()
	if cfg == nil {
		return engine
	}

	if cfg.FailStreak > 0 {
		engine.FailStreak = cfg.FailStreak
	}
	if cfg.HardPassTarget > 0 {
		engine.HardPassTarget = cfg.HardPassTarget
	}
	if cfg.MaxQuestions > 0 {
		engine.MaxQuestions = cfg.MaxQuestions
	}

	return engine
}

func gradeTimeout(cfg *InterviewConfig) time.Duration {
	if cfg == nil || cfg.GradeTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(cfg.GradeTimeoutSec) * time.Second
}

func prepareStrategies(ctx context.Context, cfg *AIConfig, zlog *zap.Logger) (interview.ScoringStrategy, interview.ReportingStrategy, error) {
	provider := "gemini"
	geminiCfg := &GeminiConfig{}

	if cfg != nil {
		if p := strings.TrimSpace(strings.ToLower(cfg.Provider)); p != "" {
			provider = p
		}
		if cfg.Gemini != nil {
			geminiCfg = cfg.Gemini
		}
	}

	if provider != "gemini" {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: geminiCfg.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil && strings.TrimSpace(viper.GetString("gemini-api-key-file")) != "" {
		apiKey, err = secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: viper.GetString("gemini-api-key-file"),
		})
	}
	if err != nil {
		return nil, nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, geminiCfg.Model, geminiCfg.MaxRetries, zlog)
	if err != nil {
		return nil, nil, err
	}

	aiLogger := logger.WithAIFields(zlog, provider, generator.Model())
	grader := gemini.NewGrader(generator, aiLogger, geminiCfg.MaxValidationRetries, geminiCfg.MaxLogLength)
	narrator := gemini.NewNarrator(generator, aiLogger, geminiCfg.MaxLogLength)

	return grader, narrator, nil
}

func deliverReport(ctx context.Context, config *Config, session *interview.Session, narrator interview.ReportingStrategy, zlog *zap.Logger) {
	rep, err := report.Generate(ctx, session, narrator, zlog)
	if err != nil {
		zlog.Fatal("generating hiring report", zap.Error(err))
	}

	filename, err := rep.DumpToTmpFile()
	if err != nil {
		zlog.Warn("dumping report to file", zap.Error(err))
	} else {
		zlog.Info("hiring report dumped", zap.String("filename", filename))
	}

	if path := strings.TrimSpace(config.ReportFile); path != "" {
		if err := os.WriteFile(path, []byte(rep.Markdown()), 0o600); err != nil {
			zlog.Warn("writing markdown report", zap.String("filename", path), zap.Error(err))
		} else {
			zlog.Info("markdown report written", zap.String("filename", path))
		}
	}

	zlog.Info("interview session complete",
		zap.String(logger.FieldSession, session.ID),
		zap.String("status", session.Status.String()),
		zap.String("recommendation", string(rep.Recommendation)),
		zap.Int("turns", rep.Turns),
		zap.Float64("mean_score", rep.MeanScore),
	)

	zlog.Debug("hiring report", zap.String("markdown", rep.Markdown()))
}

// consoleIO is the candidate-facing channel: questions and generic notices
// on stdout, answers read interactively. Nothing written here ever carries
// per-turn evaluation.
type consoleIO struct{}

func (c *consoleIO) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Println()
	fmt.Println(question)
	fmt.Println()

	prompt := promptui.Prompt{Label: "Your answer"}
	answer, err := prompt.Run()
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	return answer, nil
}

func (c *consoleIO) Notify(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(message)
	return nil
}
