// Command inkctl keeps an inkpress session on disk and checks it the way the
// dashboard does.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hugh/inkpress/internal/session"
	"github.com/hugh/inkpress/pkg/config"
	"github.com/hugh/inkpress/pkg/crypto"
	"github.com/hugh/inkpress/pkg/util"
	"github.com/joho/godotenv"
)

const dashboardPath = "/dashboard"

const usage = `usage: inkctl <command> [flags]

commands:
  register  -username -email -password -role [-tenant]
  login     -identifier -password
  whoami
  watch     [-interval 5m]
  logout
`

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, cmd string, args []string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	client := session.NewClient(cfg.Session.APIBaseURL, store)

	switch cmd {
	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		role := fs.String("role", "Contributor", `role name, e.g. "Tenant Admin"`)
		tenantName := fs.String("tenant", "", "tenant name (Tenant Admin only)")
		_ = fs.Parse(args)

		s, err := client.Register(ctx, session.RegisterRequest{
			Username:   *username,
			Email:      *email,
			Password:   *password,
			Role:       *role,
			TenantName: *tenantName,
		})
		if err != nil {
			return err
		}
		printSession(s)
		return nil

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		identifier := fs.String("identifier", "", "email or username")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)

		s, err := client.Login(ctx, *identifier, *password)
		if err != nil {
			return err
		}
		printSession(s)
		return nil

	case "whoami":
		guard := session.NewGuard(client, session.WithLogger(logger))
		state, err := guard.Verify(ctx, dashboardPath)
		if err != nil {
			return err
		}
		if state != session.StateAuthenticated {
			return errors.New("not logged in")
		}
		printIdentity(guard.User())
		return nil

	case "watch":
		fs := flag.NewFlagSet("watch", flag.ExitOnError)
		interval := fs.Duration("interval", cfg.Session.VerifyInterval(), "re-verification interval")
		_ = fs.Parse(args)

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		guard := session.NewGuard(client,
			session.WithLogger(logger),
			session.WithOnUnauthenticated(func() {
				fmt.Println("session ended, log in again")
				cancel()
			}),
		)
		logger.Info("watching session", "interval", interval.String())
		guard.Run(ctx, dashboardPath, *interval)
		return nil

	case "logout":
		if err := client.Logout(ctx); err != nil {
			logger.Warn("server logout failed, local session cleared anyway", "error", err)
		}
		fmt.Println("logged out")
		return nil
	}

	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

// openStore uses ENCRYPTION_KEY when set, otherwise a key file kept next to
// the session file.
func openStore(cfg *config.Config) (*session.FileStore, error) {
	var enc *crypto.Encryptor
	var err error
	if cfg.Encryption.Key != "" {
		enc, err = crypto.NewEncryptor(cfg.Encryption.Key)
	} else {
		enc, err = crypto.LoadOrCreateKey(cfg.Session.File + ".key")
	}
	if err != nil {
		return nil, fmt.Errorf("loading session key: %w", err)
	}
	return session.NewFileStore(cfg.Session.File, enc), nil
}

func printSession(s *session.Session) {
	printIdentity(s.User)
	fmt.Println("dashboard:", session.DashboardPath(s.Role))
	if session.TokenExpired(s.JWT, time.Now()) {
		fmt.Println("warning: token is already expired")
	}
}

func printIdentity(u *session.Identity) {
	if u == nil {
		return
	}
	fmt.Printf("%s <%s> (id %d, role %s)\n", u.Username, u.Email, u.ID, u.RoleName())
	if u.Tenant != nil {
		fmt.Printf("tenant: %s [%s]\n", u.Tenant.Name, u.Tenant.Slug)
	}
}
