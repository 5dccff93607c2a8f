package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/benvon/task-analyzer/internal/models"
	"github.com/benvon/task-analyzer/internal/settings"
	"github.com/benvon/task-analyzer/internal/validation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage the settings file",
		Long:  "Show, validate or edit the settings file named by --settings (YAML or TOML).",
	}
	cmd.AddCommand(a.newSettingsShowCmd())
	cmd.AddCommand(a.newSettingsValidateCmd())
	cmd.AddCommand(a.newRatelimitCmd())
	cmd.AddCommand(a.newCorsCmd())
	cmd.AddCommand(a.newHolidaysCmd())
	return cmd
}

func (a *app) settingsPath() (string, error) {
	path := a.v.GetString("settings")
	if path == "" {
		return "", fmt.Errorf("--settings is required")
	}
	return path, nil
}

// updateSettings loads the file (or the defaults when it does not exist yet),
// applies fn and saves the result.
func (a *app) updateSettings(fn func(s *settings.Settings) error) error {
	path, err := a.settingsPath()
	if err != nil {
		return err
	}
	s, err := settings.LoadOrDefault(path)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if err := fn(s); err != nil {
		return err
	}
	if err := settings.Save(path, s); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (a *app) newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSettings()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			s.Normalize()
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(s); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func (a *app) newSettingsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the settings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.settingsPath()
			if err != nil {
				return err
			}
			s, err := settings.Load(path)
			if err != nil {
				return err
			}
			if _, err := s.Calendar(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (%d holidays, timezone %s).\n", path, len(s.Holidays), s.Timezone)
			return nil
		},
	}
}

func (a *app) newRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long:  "List or update the API rate limit (e.g. 5-S, 100-M).",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List current rate limit configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSettings()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			s.Normalize()
			fmt.Fprintln(cmd.OutOrStdout(), "Rate limit configuration:")
			fmt.Fprintf(cmd.OutOrStdout(), "  Rate: %s\n", s.RateLimit.Rate)
			return nil
		},
	})

	var rate string
	set := &cobra.Command{
		Use:   "set",
		Short: "Set rate limit configuration",
		Long:  "Update the rate limit (e.g. 5-S, 100-M, 1000-H). Running servers pick it up on save.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rate = strings.TrimSpace(rate)
			if err := validation.ValidateRate(rate); err != nil {
				return err
			}
			err := a.updateSettings(func(s *settings.Settings) error {
				s.RateLimit.Rate = rate
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Rate limit configuration updated.")
			return nil
		},
	}
	set.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 5-S, 100-M, 1000-H) (required)")
	cmd.AddCommand(set)
	return cmd
}

func (a *app) newCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS configuration",
		Long:  "List or update CORS allowed origins and options.",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List current CORS configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSettings()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(s.CORS.AllowedOrigins) == 0 {
				fmt.Fprintln(out, "No CORS origins configured; the server falls back to FRONTEND_URL.")
				return nil
			}
			fmt.Fprintln(out, "CORS configuration:")
			fmt.Fprintf(out, "  Allowed origins: %s\n", strings.Join(s.CORS.AllowedOrigins, ","))
			fmt.Fprintf(out, "  Allow credentials: %v\n", s.CORS.AllowCredentials)
			fmt.Fprintf(out, "  Max-Age: %d\n", s.CORS.MaxAge)
			return nil
		},
	})

	var (
		origins    string
		allowCreds bool
		maxAge     int
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Set CORS configuration",
		Long:  "Update CORS allowed origins (comma-separated).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			origins = strings.TrimSpace(origins)
			if origins == "" {
				return fmt.Errorf("--origins is required (comma-separated list)")
			}
			var list []string
			for _, o := range strings.Split(origins, ",") {
				if o = strings.TrimSpace(o); o != "" {
					list = append(list, o)
				}
			}
			err := a.updateSettings(func(s *settings.Settings) error {
				s.CORS.AllowedOrigins = list
				s.CORS.AllowCredentials = allowCreds
				if cmd.Flags().Changed("max-age") {
					s.CORS.MaxAge = maxAge
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "CORS configuration updated.")
			return nil
		},
	}
	set.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins (required)")
	set.Flags().BoolVar(&allowCreds, "allow-credentials", false, "Allow credentials")
	set.Flags().IntVar(&maxAge, "max-age", settings.DefaultCORSMaxAge, "Preflight cache max age in seconds")
	cmd.AddCommand(set)
	return cmd
}

func (a *app) newHolidaysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Manage the holiday calendar",
		Long:  "Holidays are skipped when counting working days until a due date.",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List holidays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadSettings()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			s.Normalize()
			for _, h := range s.Holidays {
				fmt.Fprintln(cmd.OutOrStdout(), h)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add DATE...",
		Short: "Add holidays (YYYY-MM-DD)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, d := range args {
				if _, err := models.ParseDate(d); err != nil {
					return err
				}
			}
			err := a.updateSettings(func(s *settings.Settings) error {
				s.Holidays = append(s.Holidays, args...)
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d holiday(s).\n", len(args))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove DATE...",
		Short: "Remove holidays",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed := 0
			err := a.updateSettings(func(s *settings.Settings) error {
				before := len(s.Holidays)
				s.Holidays = slices.DeleteFunc(s.Holidays, func(h string) bool {
					return slices.Contains(args, h)
				})
				removed = before - len(s.Holidays)
				if removed == 0 {
					return fmt.Errorf("none of %s is a configured holiday", strings.Join(args, ", "))
				}
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d holiday(s).\n", removed)
			return nil
		},
	})
	return cmd
}
