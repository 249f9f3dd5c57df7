package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/app"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/auth"
	"github.com/cmlabs-hris/school-attendance-go/internal/domain/notification"
	"github.com/cmlabs-hris/school-attendance-go/internal/pkg/jwt"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				if err := a.DB.Migrate(ctx); err != nil {
					return err
				}
				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Print(map[string]bool{"migrated": true}, func(w io.Writer) {
					printf(w, "schema applied\n")
				})
			})
		},
	}
}

// NewSweepCommand creates the sweep-absences command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "sweep-absences",
		Short: "Mark absentees once for one or all tenants",
		Long: `Runs the absence sweep once. Tenants whose cutoff plus the configured delay
has not passed yet, or that have no schedule today, are reported as skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				var (
					results []attendance.SweepResult
					err     error
				)
				if tenantID != "" {
					results, err = a.Jobs.SweepTenants(ctx, tenantID)
				} else {
					results, err = a.Jobs.SweepAbsences(ctx)
				}

				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				if printErr := out.Print(results, func(w io.Writer) {
					for _, r := range results {
						if r.Skipped {
							printf(w, "%s %s skipped: %s\n", r.TenantID, r.Date, r.Reason)
							continue
						}
						printf(w, "%s %s marked %d absent\n", r.TenantID, r.Date, r.Marked)
					}
				}); printErr != nil {
					return printErr
				}
				return err
			})
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "only sweep this tenant id")

	return cmd
}

// NewRelayCommand creates the relay command.
func NewRelayCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Run one outbox relay pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				result, err := a.Jobs.RelayOutbox(ctx)
				if err != nil {
					return err
				}

				out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return out.Print(result, func(w io.Writer) {
					printRelay(w, result)
				})
			})
		},
	}
}

func printRelay(w io.Writer, r notification.RelayResult) {
	printf(w, "claimed %d, sent %d, failed %d, skipped %d\n", r.Claimed, r.Sent, r.Failed, r.Skipped)
}

type tokenOutput struct {
	Token     string    `json:"token"`
	TenantID  string    `json:"tenant_id"`
	UserID    string    `json:"user_id"`
	Role      auth.Role `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		tenantID string
		userID   string
		role     string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for a device or operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.LoadConfig()
			if err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}

			claims := auth.Claims{TenantID: tenantID, UserID: userID, Role: auth.Role(role)}
			token, expiresAt, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration).GenerateAccessToken(claims)
			if err != nil {
				return err
			}

			result := tokenOutput{
				Token:     token,
				TenantID:  claims.TenantID,
				UserID:    claims.UserID,
				Role:      claims.Role,
				ExpiresAt: time.Unix(expiresAt, 0).UTC(),
			}
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Print(result, func(w io.Writer) {
				printf(w, "%s\n", token)
			})
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant id (required)")
	cmd.Flags().StringVar(&userID, "user", "", "user or device id (required)")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleScanner), "scanner|operator|admin")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
