package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"oshikatsu/internal/auth"
	"oshikatsu/internal/config"
	"oshikatsu/internal/db"
	apperrors "oshikatsu/internal/errors"
	"oshikatsu/internal/logging"
	"oshikatsu/internal/model"
	"oshikatsu/internal/repository"
	"oshikatsu/internal/service"
)

const defaultSeedTimeout = 60 * time.Second

type seedOptions struct {
	configFile  string
	fixturePath string
	timeout     time.Duration
}

// NewSeedCmd creates the seed command.
func NewSeedCmd() *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a user with their groups and members from a JSON fixture",
		Long: `Creates the fixture's user (or logs in when the username exists) and then
its groups and members through the regular services. Rows that already
exist are skipped, so the command can be run repeatedly.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configFile, "config", "", "YAML config file (defaults to $CONFIG_FILE)")
	cmd.Flags().StringVarP(&opts.fixturePath, "file", "f", "seed.json", "fixture file")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultSeedTimeout, "timeout for the whole run")
	cmd.Flags().String("database.driver", "", "database driver (mysql or postgres)")
	cmd.Flags().String("database.dsn", "", "database DSN")
	cmd.Flags().Bool("database.reset", false, "drop and recreate all tables before seeding")

	return cmd
}

// loadConfig layers the config file and then the command line flags into
// koanf. Environment variables still take precedence inside config.FromKoanf.
func loadConfig(configFile string, flags *pflag.FlagSet) (*config.Config, error) {
	k := koanf.New(".")
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_INVALID").With("path", configFile).Wrap(err)
		}
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	cfg, err := config.FromKoanf(k)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return cfg, nil
}

func runSeed(cmd *cobra.Command, opts *seedOptions) error {
	cfg, err := loadConfig(opts.configFile, cmd.Flags())
	if err != nil {
		return err
	}

	f, err := os.Open(opts.fixturePath)
	if err != nil {
		return oops.Code("FIXTURE_OPEN_FAILED").With("path", opts.fixturePath).Wrap(err)
	}
	defer f.Close()
	fx, err := loadFixture(f)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	gormDB, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("driver", cfg.DBDriver).Wrap(err)
	}
	cmd.Println("Running migrations...")
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		return oops.Code("MIGRATION_FAILED").Wrap(err)
	}

	userRepo := repository.NewUserRepository(gormDB)
	groupRepo := repository.NewGroupRepository(gormDB)
	validator := auth.NewPasswordValidator(cfg.PasswordPolicy)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	tokens := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)

	s := &seeder{
		auth:    service.NewAuthService(userRepo, validator, hasher, tokens, logger),
		groups:  service.NewGroupService(groupRepo, logger),
		members: service.NewMemberService(repository.NewMemberRepository(gormDB), groupRepo, logger),
		logger:  logger,
		out:     cmd.OutOrStdout(),
	}
	stats, err := s.run(ctx, fx)
	if err != nil {
		return err
	}
	cmd.Printf("Seeded %s: %d groups created (%d existing), %d members created (%d existing)\n",
		fx.User.Username, stats.groupsCreated, stats.groupsSkipped, stats.membersCreated, stats.membersSkipped)
	return nil
}

type seedStats struct {
	groupsCreated  int
	groupsSkipped  int
	membersCreated int
	membersSkipped int
}

type seeder struct {
	auth    service.AuthService
	groups  service.GroupService
	members service.MemberService
	logger  *zap.Logger
	out     io.Writer
}

func (s *seeder) run(ctx context.Context, fx *fixture) (seedStats, error) {
	var stats seedStats

	session, err := s.session(ctx, fx.User)
	if err != nil {
		return stats, err
	}

	for _, g := range fx.Groups {
		group, created, err := s.group(ctx, session, g)
		if err != nil {
			return stats, err
		}
		if created {
			stats.groupsCreated++
		} else {
			stats.groupsSkipped++
		}

		for _, m := range g.Members {
			changes, err := m.changes()
			if err != nil {
				return stats, err
			}
			_, err = s.members.Create(ctx, session, group.ID, changes)
			switch {
			case err == nil:
				stats.membersCreated++
			case errors.Is(err, apperrors.ErrMemberAlreadyExists):
				stats.membersSkipped++
			default:
				return stats, oops.Code("SEED_MEMBER_FAILED").
					With("group", g.Name).With("member", m.Name).Wrap(err)
			}
		}
	}
	return stats, nil
}

// session registers the fixture user, falling back to a login when the
// username is already taken.
func (s *seeder) session(ctx context.Context, u fixtureUser) (auth.Session, error) {
	result, err := s.auth.Register(ctx, u.Username, u.Email, u.Password)
	if errors.Is(err, apperrors.ErrUsernameTaken) {
		fmt.Fprintf(s.out, "User %s already exists, logging in\n", u.Username)
		result, err = s.auth.Login(ctx, u.Username, u.Password)
	}
	if err != nil {
		return auth.Session{}, oops.Code("SEED_USER_FAILED").With("username", u.Username).Wrap(err)
	}
	return auth.Session{
		UserID:      result.UserID,
		Principal:   result.Username,
		Authorities: auth.DefaultAuthorities(),
	}, nil
}

func (s *seeder) group(ctx context.Context, session auth.Session, g fixtureGroup) (*model.Group, bool, error) {
	created, err := s.groups.Create(ctx, session, g.changes())
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, apperrors.ErrGroupAlreadyExists) {
		return nil, false, oops.Code("SEED_GROUP_FAILED").With("group", g.Name).Wrap(err)
	}

	existing, err := s.groups.FindExact(ctx, session, g.Name)
	if err != nil {
		return nil, false, oops.Code("SEED_GROUP_FAILED").With("group", g.Name).Wrap(err)
	}
	s.logger.Debug("group already exists", zap.String("group", g.Name))
	return existing, false, nil
}
