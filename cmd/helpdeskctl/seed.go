package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"helpdesk/internal/repository"
	"helpdesk/internal/seed"
	"helpdesk/internal/service"
	"helpdesk/pkg/database"
	"helpdesk/pkg/sanitize"
	"helpdesk/pkg/sequence"
)

func newSeedCmd() *cobra.Command {
	var (
		file    string
		migrate bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load fixture data from a YAML file",
		Long: `Create the platform admin, active companies with their admins and agents,
announcements of every type and help-center articles described in a fixtures file.

Existing users (by email) and active companies (by name) are skipped.

Examples:
  helpdeskctl seed --file cmd/helpdeskctl/fixtures.example.yaml
  helpdeskctl seed --file fixtures.yaml --migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixtures, err := seed.Load(file)
			if err != nil {
				return err
			}

			db, err := database.NewMySQLConnection(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if migrate {
				if err := database.Migrate(cmd.Context(), db); err != nil {
					return err
				}
			}

			redisClient, err := database.NewRedisClient(cfg.Redis)
			if err != nil {
				return err
			}
			defer redisClient.Close()

			sanitizer := sanitize.New()
			followerRepo := repository.NewFollowerRepository(db)
			articleRepo := repository.NewArticleRepository(db)
			seeder := seed.NewSeeder(
				repository.NewUserRepository(db),
				repository.NewCompanyRepository(db),
				articleRepo,
				sequence.NewGenerator(redisClient),
				service.NewAnnouncementService(repository.NewAnnouncementRepository(db), followerRepo, redisClient, sanitizer, log),
				service.NewArticleService(articleRepo, followerRepo, redisClient, sanitizer, log),
				log,
			)

			res, err := seeder.Run(cmd.Context(), fixtures)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users: %d, companies: %d, announcements: %d, articles: %d\n",
				res.Users, res.Companies, res.Announcements, res.Articles)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "fixtures YAML file")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before seeding")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
