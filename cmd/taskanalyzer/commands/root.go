// Package commands implements the taskanalyzer CLI.
package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/benvon/task-analyzer/internal/logger"
	"github.com/benvon/task-analyzer/internal/models"
	"github.com/benvon/task-analyzer/internal/services/analysis"
	"github.com/benvon/task-analyzer/internal/settings"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app carries state shared by every subcommand. Values resolve from flags,
// then TASK_ANALYZER_* environment variables, then the config file.
type app struct {
	v *viper.Viper
}

// NewRootCmd builds the taskanalyzer command tree
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "taskanalyzer",
		Short: "Score and rank tasks",
		Long: "taskanalyzer scores tasks by urgency, importance, effort and dependencies, " +
			"ranks them with a weighting strategy and suggests what to work on today.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default .taskanalyzer.yaml in the working or home directory)")
	pf.String("settings", "", "settings file (.yaml or .toml) with timezone, holidays, CORS and rate limit")
	pf.String("today", "", "reference date as YYYY-MM-DD instead of the current date")
	pf.String("timezone", "", "IANA timezone that decides the current date")
	pf.BoolP("verbose", "v", false, "log to stderr")

	root.AddCommand(
		a.newAnalyzeCmd(),
		a.newSuggestCmd(),
		a.newOrderCmd(),
		newStrategiesCmd(),
		newPatternsCmd(),
		newFatigueCmd(),
		a.newPlanCmd(),
		a.newSettingsCmd(),
	)
	return root
}

func (a *app) initConfig(cmd *cobra.Command) error {
	pf := cmd.Root().PersistentFlags()
	if err := a.v.BindPFlags(pf); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	cfgFile, _ := pf.GetString("config")
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName(".taskanalyzer")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
	}

	a.v.SetEnvPrefix("TASK_ANALYZER")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// stringOpt prefers an explicitly set flag, then viper, then the flag default.
func (a *app) stringOpt(cmd *cobra.Command, name string) string {
	if cmd.Flags().Changed(name) || !a.v.IsSet(name) {
		s, _ := cmd.Flags().GetString(name)
		return s
	}
	return a.v.GetString(name)
}

func (a *app) intOpt(cmd *cobra.Command, name string) int {
	if cmd.Flags().Changed(name) || !a.v.IsSet(name) {
		n, _ := cmd.Flags().GetInt(name)
		return n
	}
	return a.v.GetInt(name)
}

func (a *app) floatOpt(cmd *cobra.Command, name string) float64 {
	if cmd.Flags().Changed(name) || !a.v.IsSet(name) {
		f, _ := cmd.Flags().GetFloat64(name)
		return f
	}
	return a.v.GetFloat64(name)
}

func (a *app) logger() (*zap.Logger, error) {
	if a.v.GetBool("verbose") {
		return logger.NewDevelopmentLogger(true)
	}
	return zap.NewNop(), nil
}

// loadSettings reads the settings file, or the defaults when none is set.
// --timezone overrides the file.
func (a *app) loadSettings() (settings.Settings, error) {
	s := settings.Default()
	if path := a.v.GetString("settings"); path != "" {
		loaded, err := settings.LoadOrDefault(path)
		if err != nil {
			return settings.Settings{}, err
		}
		s = *loaded
	}
	if tz := a.v.GetString("timezone"); tz != "" {
		s.Timezone = tz
	}
	return s, nil
}

// service builds an analysis service over the current settings. With
// --today the clock is pinned to midday of that date.
func (a *app) service() (*analysis.Service, error) {
	log, err := a.logger()
	if err != nil {
		return nil, err
	}
	s, err := a.loadSettings()
	if err != nil {
		return nil, err
	}
	store, err := settings.NewStaticStore(s)
	if err != nil {
		return nil, err
	}

	opts := []analysis.Option{analysis.WithLogger(log)}
	if today := a.v.GetString("today"); today != "" {
		d, err := models.ParseDate(today)
		if err != nil {
			return nil, err
		}
		loc := store.Snapshot().Location
		pinned := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc)
		opts = append(opts, analysis.WithClock(func() time.Time { return pinned }))
	}
	return analysis.New(store, opts...), nil
}
