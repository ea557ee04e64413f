// Command admin runs operator tasks against the configured store and
// identity provider.
//
//	admin seed-categories
//	admin grant-admin <email>
//	admin migrate-status
//	admin issue-token <uid> <email> [role]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/auth"
	"github.com/khanofemperia/gethsemane-sub001/internal/cache"
	"github.com/khanofemperia/gethsemane-sub001/internal/config"
	"github.com/khanofemperia/gethsemane-sub001/internal/database"
	"github.com/khanofemperia/gethsemane-sub001/internal/logger"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository/firestore"
	"github.com/khanofemperia/gethsemane-sub001/internal/service"
)

var errUsage = errors.New("usage: admin <seed-categories | grant-admin <email> | migrate-status | issue-token <uid> <email> [role]>")

func main() {
	ttl := flag.Duration("ttl", time.Hour, "lifetime of tokens minted by issue-token")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewWithDefaults()
	defer log.Sync()

	if err := run(context.Background(), cfg, log, flag.Args(), *ttl); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatal("Command failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string, ttl time.Duration) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "seed-categories":
		return seedCategories(ctx, cfg, log)

	case "grant-admin":
		if len(args) != 2 {
			return errUsage
		}
		sessions, err := auth.NewFirebaseSessions(ctx, cfg.Firebase)
		if err != nil {
			return err
		}
		if err := sessions.GrantAdmin(ctx, args[1]); err != nil {
			return err
		}
		log.Info("Admin role granted", zap.String("email", args[1]), zap.String("granted_through", auth.GrantedThroughCLI))
		return nil

	case "migrate-status":
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		return database.MigrationStatus(ctx, db.DB(), "migrations")

	case "issue-token":
		if len(args) < 3 || len(args) > 4 {
			return errUsage
		}
		role := ""
		if len(args) == 4 {
			role = args[3]
		}
		sessions, err := auth.NewJWTSessions(cfg.Session.JWTSecret)
		if err != nil {
			return err
		}
		token, err := sessions.IssueIDToken(args[1], args[2], role, ttl)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	return errUsage
}

func seedCategories(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	var categories repository.CategoryRepository
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		categories = repository.NewCategoryRepository(db.DB())
	default:
		client, err := database.NewFirestore(ctx, cfg.Firebase)
		if err != nil {
			return err
		}
		defer client.Close()
		categories = firestore.NewCategoryRepositoryFS(client)
	}

	written, err := service.NewCategoryService(categories, cache.Noop{}, log).SeedCategories(ctx)
	if err != nil {
		return err
	}
	log.Info("Categories reconciled", zap.Int("written", written))
	return nil
}
