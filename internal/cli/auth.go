package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// parseAnswers turns repeated "question=answer" flags into request pairs
func parseAnswers(values []string) ([]map[string]string, error) {
	answers := make([]map[string]string, 0, len(values))
	for _, v := range values {
		q, a, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(q) == "" || strings.TrimSpace(a) == "" {
			return nil, fmt.Errorf("invalid security answer %q, expected question=answer", v)
		}
		answers = append(answers, map[string]string{"question": q, "answer": a})
	}
	return answers, nil
}

func newRegisterCmd() *cobra.Command {
	var user, pass string
	var security []string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		Example: `  tacmap register --user alice --pass pw123 \
    --security "first pet=rex" --security "home town=springfield"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, err := parseAnswers(security)
			if err != nil {
				return err
			}
			if pass == "" {
				if pass, err = promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
					return err
				}
			}

			req := map[string]any{
				"username":          user,
				"password":          pass,
				"securityQuestions": answers,
			}
			var result RegisterResult

			if err := client.Post("/api/v1/auth/register", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (prompted when omitted)")
	cmd.Flags().StringArrayVar(&security, "security", nil, "Security question and answer as question=answer (at least two)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newLoginCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login and save the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if pass == "" {
				var err error
				if pass, err = promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
					return err
				}
			}

			req := map[string]string{
				"username": user,
				"password": pass,
			}
			var result LoginResult

			if err := client.Post("/api/v1/auth/login", req, &result); err != nil {
				return err
			}

			if err := cfg.SaveToken(result.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End every session of the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SuccessResult

			if err := client.Post("/api/v1/auth/logout", nil, &result); err != nil {
				return err
			}

			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user behind the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SessionResult

			if err := client.Get("/api/v1/auth/session", &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}
}

func newRecoverCmd() *cobra.Command {
	var user string
	var security []string

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Check security answers for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, err := parseAnswers(security)
			if err != nil {
				return err
			}

			req := map[string]any{
				"username": user,
				"answers":  answers,
			}
			var result SuccessResult

			if err := client.Post("/api/v1/auth/recovery/verify", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			if !result.Success {
				return fmt.Errorf("security answers did not match")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringArrayVar(&security, "security", nil, "Security question and answer as question=answer")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func newTOTPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "totp",
		Short: "Two-factor authentication commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "enable",
		Short: "Generate a TOTP secret for the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TOTPEnrollment

			if err := client.Post("/api/v1/auth/totp/enable", nil, &result); err != nil {
				return err
			}

			// the data URL is only useful to a browser
			result.QRCode = ""
			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify <code>",
		Short: "Check a six digit authenticator code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result SuccessResult

			if err := client.Post("/api/v1/auth/totp/verify", map[string]string{"code": args[0]}, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			if !result.Success {
				return fmt.Errorf("code rejected")
			}
			return nil
		},
	})

	return cmd
}
