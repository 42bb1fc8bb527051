package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/reimbursement-service/internal/config"
	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/service"
)

// UserCreateOptions holds flags for users create.
type UserCreateOptions struct {
	*RootOptions
	Username string
	Password string
	Role     string
}

// NewUsersCommand groups account administration.
func NewUsersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserCreateCommand(rootOpts))
	return cmd
}

func newUserCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UserCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account with an explicit role",
		Long: `Create an account with an explicit role.

Self-registration over HTTP only creates employees; managers are created here.

Example:
  reimburse users create --username bob --password s3cret --role Manager`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Username, "username", "", "account username (required)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "account password (required)")
	cmd.Flags().StringVar(&opts.Role, "role", string(domain.RoleEmployee), "Employee or Manager")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runUserCreate(cmd *cobra.Command, opts *UserCreateOptions) error {
	role, ok := domain.ParseRole(opts.Role)
	if !ok {
		return fmt.Errorf("invalid role %q: must be Employee or Manager", opts.Role)
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if cfg.Store.Driver == config.StoreDriverMemory {
		return fmt.Errorf("users create needs a persistent store; set STORE_DRIVER or --store")
	}
	logger := newLogger(cfg)
	defer logger.Sync() //nolint:errcheck

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := openRuntime(ctx, cfg, logger, cfg.Postgres.RunMigrations)
	if err != nil {
		return err
	}
	defer rt.Close()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: rt.users})
	user, err := authService.CreateUser(ctx, opts.Username, opts.Password, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s %s\n", user.Role, user.Username)
	return nil
}
