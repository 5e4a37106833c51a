package main

import (
	"context"
	"fmt"
	"os"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sawirricardo/remix-realworld/internal/account"
	"github.com/sawirricardo/remix-realworld/internal/content"
	"github.com/sawirricardo/remix-realworld/internal/db"
	"github.com/sawirricardo/remix-realworld/internal/models"
	"github.com/sawirricardo/remix-realworld/internal/session"
	"github.com/sawirricardo/remix-realworld/internal/social"
	"github.com/sawirricardo/remix-realworld/internal/storage"
	"github.com/sawirricardo/remix-realworld/pkg/config"
	"github.com/sawirricardo/remix-realworld/pkg/logging"
)

const (
	demoEmail    = "test@example.com"
	demoPassword = "password"
)

type options struct {
	users    int
	articles int
	seed     int64
}

func main() {
	opts := options{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with a demo user and fake content",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
		SilenceUsage: true,
	}
	cmd.Flags().IntVar(&opts.users, "users", 10, "number of fake users")
	cmd.Flags().IntVar(&opts.articles, "articles", 10, "articles per fake user")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "faker seed, 0 for random")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		return err
	}
	defer logging.GetLogger().Sync()
	logger := logging.WithComponent("seed")

	database, err := db.New(&cfg.Database, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		return err
	}

	store := db.NewStore(database.DB)
	sessions := session.NewManager(&cfg.Session, nil)
	contentSvc := content.NewService(store, nil, &cfg.Content)
	accounts := account.NewService(store, sessions, contentSvc)
	engine := social.NewEngine(store)

	faker := gofakeit.New(opts.seed)

	demo, err := ensureDemoUser(ctx, store, accounts)
	if err != nil {
		return err
	}

	tags := []string{"test", "test2"}
	for i := 0; i < opts.users; i++ {
		password := faker.Password(true, true, true, false, false, 12)
		grant, err := accounts.Register(ctx, account.RegisterInput{
			Name:                 faker.Username(),
			Email:                faker.Email(),
			Password:             password,
			PasswordConfirmation: password,
		})
		if err != nil {
			logger.Warn("Skipping fake user", zap.Error(err))
			continue
		}
		user := grant.User

		if _, err := accounts.UpdateSettings(ctx, user, account.SettingsInput{
			Name:  user.Name,
			Email: user.Email,
			Bio:   faker.Sentence(8),
			Image: "https://via.placeholder.com/150x150.png?text=" + user.Name[:1],
		}); err != nil {
			return fmt.Errorf("failed to update fake user: %w", err)
		}

		for j := 0; j < opts.articles; j++ {
			article, err := contentSvc.CreateArticle(ctx, user, content.ArticleInput{
				Title:    truncate(faker.Sentence(5), 100),
				Excerpt:  truncate(faker.Sentence(8), 100),
				Content:  truncate(faker.Paragraph(1, 4, 12, " "), 1000),
				TagNames: []string{tags[faker.Number(0, len(tags)-1)]},
			})
			if err != nil {
				return fmt.Errorf("failed to create article: %w", err)
			}

			for k := 0; k < 2; k++ {
				if _, err := contentSvc.CreateComment(ctx, demo, article.Slug, content.CommentInput{
					Content: faker.Paragraph(1, 2, 10, " "),
				}); err != nil {
					return fmt.Errorf("failed to create comment: %w", err)
				}
			}

			if faker.Bool() {
				if _, err := engine.ToggleFavorite(ctx, demo, article.Slug); err != nil {
					return fmt.Errorf("failed to favorite article: %w", err)
				}
			}
		}

		if faker.Bool() {
			if _, err := engine.ToggleFollow(ctx, demo, user.Name); err != nil {
				return fmt.Errorf("failed to follow user: %w", err)
			}
		}
	}

	logger.Info("Seed complete",
		zap.String("demo_email", demoEmail),
		zap.Int("users", opts.users),
		zap.Int("articles_per_user", opts.articles))
	return nil
}

// ensureDemoUser returns the fixed demo account, creating it on first run
func ensureDemoUser(ctx context.Context, store storage.Users, accounts *account.Service) (*models.User, error) {
	existing, err := store.UserByEmail(ctx, demoEmail)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	grant, err := accounts.Register(ctx, account.RegisterInput{
		Name:                 "Test",
		Email:                demoEmail,
		Password:             demoPassword,
		PasswordConfirmation: demoPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create demo user: %w", err)
	}
	return grant.User, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
