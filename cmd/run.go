package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/example/teetime-sniper/internal/booking"
	"github.com/example/teetime-sniper/internal/claim"
	"github.com/example/teetime-sniper/internal/config"
	"github.com/example/teetime-sniper/internal/credentials"
	"github.com/example/teetime-sniper/internal/crypto"
	"github.com/example/teetime-sniper/internal/db"
	"github.com/example/teetime-sniper/internal/engine"
	"github.com/example/teetime-sniper/internal/kenna"
	"github.com/example/teetime-sniper/internal/localtime"
	"github.com/example/teetime-sniper/internal/logging"
	"github.com/example/teetime-sniper/internal/migrate"
	"github.com/example/teetime-sniper/internal/schedules"
	"github.com/example/teetime-sniper/internal/session"
)

func newRunCmd() *cobra.Command {
	var (
		taskName    string
		taskFile    string
		credName    string
		memoryStore bool
		dryRun      bool
	)

	c := &cobra.Command{
		Use:   "run",
		Short: "Run the acquisition loops for a task and finalize the cart on success",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			logger := logging.Setup(cfg.DevMode)
			ctx := cmd.Context()

			zone, err := localtime.ParseZone(cfg.AuthorityZone)
			if err != nil {
				return err
			}

			var (
				scheds []booking.Schedule
				repo   *schedules.Repo
			)
			switch {
			case taskFile != "":
				if scheds, err = schedules.LoadFile(taskFile); err != nil {
					return err
				}
			case taskName != "":
				d, err := openDB(ctx, cfg)
				if err != nil {
					return err
				}
				defer d.Close()
				repo = schedules.NewRepo(d)
				if scheds, err = repo.ListByTask(ctx, taskName); err != nil {
					return err
				}
				if cfg.LoginUsername == "" && credName != "" {
					aead, err := newAEAD(cfg)
					if err != nil {
						return err
					}
					cred, err := credentials.NewRepo(d, aead).Get(ctx, credName)
					if err != nil {
						return fmt.Errorf("load credentials %q: %w", credName, err)
					}
					cfg.LoginUsername, cfg.LoginPassword = cred.Username, cred.Password
				}
			default:
				return fmt.Errorf("either --task or --file is required")
			}
			if len(scheds) == 0 {
				return fmt.Errorf("no schedules to run")
			}

			store, closeStore, err := newClaimStore(ctx, cfg, memoryStore)
			if err != nil {
				return err
			}
			defer closeStore()
			if memoryStore {
				logger.Warn().Msg("in-memory claim store: not safe with workers in other processes")
			}

			client := kenna.New(cfg.APIBaseURL, cfg.VenueAlias)

			var finalizer booking.Finalizer = client
			if dryRun {
				finalizer = nil
			}

			orch := &engine.Orchestrator{
				Session:   newSessionProvider(cfg, logger),
				Source:    client,
				Claims:    store,
				Finalizer: finalizer,
				NewCommitter: func(s booking.Schedule) booking.Committer {
					return client.Committer(kenna.CommitConfig{Players: s.Players, Holes: s.Holes})
				},
				Limiter: rate.NewLimiter(rate.Limit(cfg.FetchRate), cfg.FetchBurst),
				Logger:  logger,
				Config: engine.Config{
					AuthorityZone: zone,
					Lookahead:     time.Duration(cfg.LookaheadDays) * 24 * time.Hour,
					MaxAttempts:   cfg.MaxAttempts,
					ClaimTTL:      cfg.ClaimTTL,
				},
			}

			report, err := orch.Run(ctx, scheds)
			if err != nil {
				return err
			}

			if repo != nil {
				for i, res := range report.Results {
					if err := repo.RecordResult(ctx, taskName, res, report.Errs[i]); err != nil {
						logger.Warn().Err(err).Str("schedule", res.ScheduleID).Msg("record result failed")
					}
				}
			}

			for i, res := range report.Results {
				status := string(res.State)
				if report.Errs[i] != nil {
					status = "error: " + report.Errs[i].Error()
				}
				fmt.Fprintf(os.Stdout, "schedule=%s state=%s claimed=%d attempts=%d\n",
					res.ScheduleID, status, len(res.Claimed), res.Attempts)
			}
			fmt.Fprintf(os.Stdout, "success=%v\n", report.Success)
			return nil
		},
	}

	c.Flags().StringVar(&taskName, "task", "", "task name (schedules loaded from the database)")
	c.Flags().StringVar(&taskFile, "file", "", "YAML task file (schedules loaded without a database)")
	c.Flags().StringVar(&credName, "credentials", "", "stored credentials name for the browser login")
	c.Flags().BoolVar(&memoryStore, "memory-store", false, "use the in-process claim store instead of Redis")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "claim and commit but never finalize the cart")
	return c
}

func openDB(ctx context.Context, cfg config.Config) (*db.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for database-backed tasks")
	}
	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := migrate.Up(ctx, d); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func newAEAD(cfg config.Config) (*crypto.AEAD, error) {
	key, err := cfg.CredentialKey()
	if err != nil {
		return nil, err
	}
	return crypto.New(key)
}

func newClaimStore(ctx context.Context, cfg config.Config, memory bool) (claim.Store, func(), error) {
	if memory {
		return claim.NewMemoryStore(), func() {}, nil
	}
	rs, err := claim.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return rs, func() { _ = rs.Close() }, nil
}

func newSessionProvider(cfg config.Config, logger zerolog.Logger) session.Provider {
	if cfg.AuthToken != "" || cfg.CartID != "" {
		return session.Static{AuthToken: cfg.AuthToken, CartID: cfg.CartID}
	}
	return session.NewBrowser(session.BrowserConfig{
		LoginURL:    cfg.LoginURL,
		TeeSheetURL: cfg.TeeSheetURL,
		Username:    cfg.LoginUsername,
		Password:    cfg.LoginPassword,
		Headless:    cfg.Headless,
	}, logger)
}
