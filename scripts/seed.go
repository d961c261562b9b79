package main

import (
	"context"
	"fmt"
	"os"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"github.com/urfave/cli/v2"
	"github.com/zatekoja/sewa/internal/adapters/database"
	"github.com/zatekoja/sewa/internal/application/services"
	"github.com/zatekoja/sewa/internal/areagraph"
	"github.com/zatekoja/sewa/internal/domain/entities"
	"github.com/zatekoja/sewa/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/sewa/internal/infrastructure/observability"
	"github.com/zatekoja/sewa/migrations"
	"github.com/zatekoja/sewa/pkg/config"
)

// seedNamespace keeps generated ids stable across runs
var seedNamespace = uuid.MustParse("6f1c2a0e-8a4b-4d7e-9b1a-3c5d7e9f1a2b")

type seedService struct {
	category string
	name     string
	price    float64
	tags     []string
}

var catalog = []seedService{
	{"plumbing", "Leaking tap and pipe repair", 800, []string{"leak", "tap", "pipe"}},
	{"plumbing", "Water tank cleaning", 2500, []string{"tank", "water", "cleaning"}},
	{"electrician", "House wiring inspection", 1500, []string{"wiring", "inspection", "safety"}},
	{"electrician", "Inverter and battery installation", 3000, []string{"inverter", "battery", "backup"}},
	{"cleaning", "Deep home cleaning", 4000, []string{"home", "deep", "sanitize"}},
	{"tutoring", "SEE mathematics tutoring", 1200, []string{"see", "math", "exam"}},
	{"beauty", "Bridal makeup at home", 6000, []string{"bridal", "makeup", "wedding"}},
	{"appliance", "Washing machine repair", 1800, []string{"washing", "machine", "repair"}},
}

var workersFlag = &cli.IntFlag{
	Name:  "workers",
	Usage: "Concurrent provider rescoring workers",
	Value: 4,
}

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "sewa-seed",
		Usage: "Prepare a Sewa database for local development",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply pending schema migrations",
				Action: migrateCommand,
			},
			{
				Name:   "seed",
				Usage:  "Apply migrations and load one provider per locality",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "reset",
						Usage:   "Truncate providers, listings and bookings first",
						EnvVars: []string{"RESET_DB"},
					},
					workersFlag,
				},
			},
			{
				Name:   "rescore",
				Usage:  "Recompute smart scores of all approved providers",
				Action: rescoreCommand,
				Flags:  []cli.Flag{workersFlag},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

type env struct {
	pg    *postgres.Client
	graph *areagraph.Graph
}

func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	observability.InitLogger("sewa-seed", cfg.Env, cfg.LogLevel)

	graph, err := areagraph.Default()
	if err != nil {
		return nil, fmt.Errorf("invalid locality catalog: %w", err)
	}
	pg, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	return &env{pg: pg, graph: graph}, nil
}

func migrateCommand(c *cli.Context) error {
	ctx := c.Context
	e, err := connect(ctx)
	if err != nil {
		return err
	}
	defer e.pg.Close()

	if err := migrations.Apply(ctx, e.pg.DB()); err != nil {
		return err
	}
	files, err := migrations.Files()
	if err != nil {
		return err
	}
	observability.GetLogger().Info().Strs("files", files).Msg("migrations applied")
	return nil
}

func seedCommand(c *cli.Context) error {
	ctx := c.Context
	e, err := connect(ctx)
	if err != nil {
		return err
	}
	defer e.pg.Close()
	logger := observability.GetLogger()

	if err := migrations.Apply(ctx, e.pg.DB()); err != nil {
		return err
	}

	if c.Bool("reset") {
		logger.Warn().Msg("truncating tables before seeding")
		if _, err := e.pg.DB().ExecContext(ctx, `TRUNCATE TABLE bookings, listings, providers RESTART IDENTITY CASCADE`); err != nil {
			return fmt.Errorf("failed to reset tables: %w", err)
		}
	}

	db := goqu.New("postgres", e.pg.DB())
	seeded := 0
	for i, locality := range e.graph.Localities() {
		if err := seedLocality(ctx, db, i, locality); err != nil {
			logger.Error().Err(err).Str("locality", locality.Slug).Msg("failed to seed locality")
			continue
		}
		seeded++
	}

	summary, err := rescore(ctx, e, c.Int("workers"))
	if err != nil {
		return err
	}
	logger.Info().
		Int("localities", seeded).
		Int("rescored", summary.Total-len(summary.Failed)).
		Msg("seeding completed")
	return nil
}

func rescoreCommand(c *cli.Context) error {
	ctx := c.Context
	e, err := connect(ctx)
	if err != nil {
		return err
	}
	defer e.pg.Close()

	summary, err := rescore(ctx, e, c.Int("workers"))
	if err != nil {
		return err
	}
	observability.GetLogger().Info().
		Int("providers", summary.Total).
		Strs("failed", summary.Failed).
		Msg("rescore completed")
	return nil
}

func rescore(ctx context.Context, e *env, workers int) (services.RescoreSummary, error) {
	scores := services.NewProviderScoreService(database.NewProviderAdapter(e.pg), e.graph, nil)
	return scores.RescoreAll(ctx, workers)
}

// seedLocality inserts one provider at the locality centre and two listings
// drawn from neighbouring catalog entries
func seedLocality(ctx context.Context, db *goqu.Database, i int, locality entities.Locality) error {
	providerID := uuid.NewSHA1(seedNamespace, []byte("provider:"+locality.Slug)).String()
	svc := catalog[i%len(catalog)]

	_, err := db.Insert("providers").
		Prepared(true).
		Rows(goqu.Record{
			"id":                    providerID,
			"name":                  fmt.Sprintf("%s %s Sewa", locality.DisplayName, svc.category),
			"latitude":              locality.Location.Latitude,
			"longitude":             locality.Location.Longitude,
			"primary_locality_slug": locality.Slug,
			"service_radius_km":     5.0,
			"cv_score":              0.45 + float64(i%6)*0.09,
			"experience_years":      1 + i%12,
			"skill_tags":            pq.StringArray(append([]string{svc.category}, svc.tags...)),
			"approved":              i%7 != 6,
		}).
		OnConflict(goqu.DoNothing()).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("provider: %w", err)
	}

	for j := 0; j < 2; j++ {
		entry := catalog[(i+j)%len(catalog)]
		_, err := db.Insert("listings").
			Prepared(true).
			Rows(goqu.Record{
				"id":                     uuid.NewSHA1(seedNamespace, []byte(fmt.Sprintf("listing:%s:%d", locality.Slug, j))).String(),
				"provider_id":            providerID,
				"name":                   entry.name,
				"description":            fmt.Sprintf("%s in and around %s", entry.name, locality.DisplayName),
				"category":               entry.category,
				"price":                  entry.price,
				"tags":                   pq.StringArray(entry.tags),
				"rating":                 3.5 + float64((i+j)%4)*0.4,
				"published_review_count": (i * 3) % 17,
				"approved":               true,
				"pinned":                 i%11 == 0 && j == 0,
			}).
			OnConflict(goqu.DoNothing()).
			Executor().
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("listing %d: %w", j, err)
		}
	}
	return nil
}
