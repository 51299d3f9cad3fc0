// seed applies the embedded migrations and loads users, locations and counters
// from a YAML file. Existing users (by email) and locations (by slug) are
// left untouched, so the same file can be applied repeatedly.
//
//	seed --migrate --file seed.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/pflag"
	"github.com/waitless/waitless-backend-go/internal/config"
	"github.com/waitless/waitless-backend-go/internal/domain/counter"
	"github.com/waitless/waitless-backend-go/internal/domain/location"
	"github.com/waitless/waitless-backend-go/internal/domain/user"
	"github.com/waitless/waitless-backend-go/internal/fixtures"
	"github.com/waitless/waitless-backend-go/internal/pkg/database"
	"github.com/waitless/waitless-backend-go/internal/pkg/slug"
	"github.com/waitless/waitless-backend-go/internal/repository/postgresql"
	"github.com/waitless/waitless-backend-go/migrations"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		migrate  bool
		seedFile string
	)

	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.BoolVar(&migrate, "migrate", false, "apply pending migrations before seeding")
	flagSet.StringVarP(&seedFile, "file", "f", "", "YAML seed file")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if !migrate && seedFile == "" {
		return errors.New("nothing to do: pass --migrate and/or --file")
	}

	// Parse before connecting so a bad file fails fast.
	var seed fixtures.Seed
	if seedFile != "" {
		f, err := os.Open(seedFile)
		if err != nil {
			return err
		}
		seed, err = fixtures.LoadSeed(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", seedFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	if migrate {
		version, err := migrations.Up(cfg.DatabaseURL())
		if err != nil {
			return err
		}
		slog.Info("Schema up to date", "version", version)
	}

	if seedFile == "" {
		return nil
	}

	s := &seeder{
		users:     postgresql.NewUserRepository(db),
		locations: postgresql.NewLocationRepository(db),
		counters:  postgresql.NewCounterRepository(db),
	}
	return postgresql.NewTransactor(db).WithinTransaction(ctx, func(txCtx context.Context) error {
		return s.apply(txCtx, seed)
	})
}

type seeder struct {
	users     user.UserRepository
	locations location.LocationRepository
	counters  counter.CounterRepository
}

func (s *seeder) apply(ctx context.Context, seed fixtures.Seed) error {
	// Staff rows need their location, so they are created last.
	staffLocation := make(map[string]int)
	for i, l := range seed.Locations {
		for _, email := range l.Staff {
			staffLocation[email] = i
		}
	}

	ids := make(map[string]string, len(seed.Users))
	for _, u := range seed.Users {
		if user.Role(strings.ToLower(u.Role)) == user.RoleStaff {
			continue
		}
		id, err := s.ensureUser(ctx, u, nil)
		if err != nil {
			return err
		}
		ids[u.Email] = id
	}

	locationIDs := make([]string, len(seed.Locations))
	for i, l := range seed.Locations {
		id, err := s.ensureLocation(ctx, ids[l.Owner], l)
		if err != nil {
			return err
		}
		locationIDs[i] = id
	}

	for _, u := range seed.Users {
		if user.Role(strings.ToLower(u.Role)) != user.RoleStaff {
			continue
		}
		var locationID *string
		if i, ok := staffLocation[u.Email]; ok {
			locationID = &locationIDs[i]
		}
		if _, err := s.ensureUser(ctx, u, locationID); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) ensureUser(ctx context.Context, u fixtures.SeedUser, locationID *string) (string, error) {
	existing, err := s.users.GetByEmail(ctx, u.Email)
	if err == nil {
		slog.Info("User exists, skipping", "email", u.Email)
		return existing.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("lookup %s: %w", u.Email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	passwordHash := string(hash)

	created, err := s.users.Create(ctx, user.User{
		Email:        u.Email,
		FullName:     u.FullName,
		PasswordHash: &passwordHash,
		Role:         user.Role(strings.ToLower(u.Role)),
		LocationID:   locationID,
	})
	if err != nil {
		return "", fmt.Errorf("create user %s: %w", u.Email, err)
	}
	slog.Info("User created", "email", created.Email, "role", created.Role)
	return created.ID, nil
}

func (s *seeder) ensureLocation(ctx context.Context, ownerID string, l fixtures.SeedLocation) (string, error) {
	locSlug := l.Slug
	if locSlug == "" {
		locSlug = slug.Make(l.Name)
	}
	timezone := l.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	existing, err := s.locations.GetBySlug(ctx, locSlug)
	if err == nil {
		slog.Info("Location exists, skipping", "slug", locSlug)
		return existing.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("lookup location %s: %w", locSlug, err)
	}

	created, err := s.locations.Create(ctx, location.Location{
		OwnerID:  ownerID,
		Name:     l.Name,
		Slug:     locSlug,
		Address:  l.Address,
		Timezone: timezone,
		IsActive: true,
	})
	if err != nil {
		return "", fmt.Errorf("create location %s: %w", locSlug, err)
	}

	counters := fixtures.GetDefaultCounters(created.ID)
	if len(l.Counters) > 0 {
		counters = counters[:0]
		for _, c := range l.Counters {
			req := counter.CreateCounterRequest{
				LocationID:     created.ID,
				Name:           c.Name,
				Prefix:         c.Prefix,
				CapacityPerDay: c.CapacityPerDay,
				OpenTime:       c.OpenTime,
				CloseTime:      c.CloseTime,
			}
			if err := req.Validate(); err != nil {
				return "", fmt.Errorf("counter %s/%s: %w", locSlug, c.Prefix, err)
			}
			counters = append(counters, counter.Counter{
				LocationID:     created.ID,
				Name:           req.Name,
				Prefix:         req.Prefix,
				CapacityPerDay: req.CapacityPerDay,
				OpenTime:       req.OpenTime,
				CloseTime:      req.CloseTime,
				IsActive:       true,
			})
		}
	}
	for _, c := range counters {
		if _, err := s.counters.Create(ctx, c); err != nil {
			return "", fmt.Errorf("create counter %s/%s: %w", locSlug, c.Prefix, err)
		}
	}

	slog.Info("Location created", "slug", created.Slug, "counters", len(counters))
	return created.ID, nil
}
