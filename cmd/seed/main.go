package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/hackgods/testing-registration/internal/api"
	"github.com/hackgods/testing-registration/internal/auth"
	"github.com/hackgods/testing-registration/internal/config"
	"github.com/hackgods/testing-registration/internal/db"
	"github.com/hackgods/testing-registration/internal/hashid"
	"github.com/hackgods/testing-registration/internal/logger"
	redisclient "github.com/hackgods/testing-registration/internal/redis"
	"github.com/hackgods/testing-registration/internal/registration"
)

func main() {
	providers := flag.Int("providers", 3, "place providers to create")
	placesPer := flag.Int("places", 4, "places per provider")
	employees := flag.Int("employees", 500, "employees imported per provider")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{MaxConns: int32(cfg.PostgresMaxConns), MinConns: int32(cfg.PostgresMinConns)})
	if err != nil {
		zl.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		zl.Fatal("ensure schema", zap.Error(err))
	}

	rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		zl.Fatal("connect redis", zap.Error(err))
	}
	defer rdb.Close()

	hasher, err := hashid.New([]byte(cfg.EmployeeHashKey))
	if err != nil {
		zl.Fatal("employee hash key", zap.Error(err))
	}

	repo := registration.NewPgRepository(pool)
	importer := registration.NewImporter(repo, hasher, redisclient.NewRedisLocker(rdb, cfg.LockTTL), registration.Options{
		PhonePrefix:   cfg.DefaultPhonePrefix,
		ImportWorkers: cfg.ImportWorkers,
	}, zl.Named("import"), nil)

	faker := gofakeit.New(0)
	for i := 0; i < *providers; i++ {
		pp, err := seedProvider(ctx, repo, faker, i, *placesPer)
		if err != nil {
			zl.Fatal("seed provider", zap.Error(err))
		}

		admin := auth.Caller{
			Email:           pp.MainEmail,
			PlaceProviderID: pp.ID,
			Roles: map[string][]auth.Capability{
				pp.ID: {auth.PlaceProviderAdmin, auth.RegistrationManager, auth.MedicTester},
			},
		}
		n, err := importer.Import(ctx, admin, employeeRows(faker, *employees))
		if err != nil {
			zl.Fatal("import employees", zap.String("place_provider_id", pp.ID), zap.Error(err))
		}
		zl.Info("provider seeded",
			zap.String("place_provider_id", pp.ID),
			zap.String("company_id", pp.CompanyID),
			zap.Int("employees", n),
		)

		if cfg.JWTSecret != "" {
			token, err := api.SignCallerToken(cfg.JWTSecret, admin, 24*time.Hour)
			if err != nil {
				zl.Fatal("sign admin token", zap.Error(err))
			}
			fmt.Printf("%s\t%s\n", pp.ID, token)
		}
	}

	zl.Info("seed complete")
}

func seedProvider(ctx context.Context, repo *registration.PgRepository, faker *gofakeit.Faker, n, places int) (*registration.PlaceProvider, error) {
	pp := &registration.PlaceProvider{
		ID:          fmt.Sprintf("PR%d", n+1),
		CompanyID:   faker.Numerify("########"),
		CompanyName: faker.Company(),
		MainEmail:   faker.Email(),
		Public:      true,
	}
	if err := repo.SetPlaceProvider(ctx, pp); err != nil {
		return nil, err
	}

	products := []registration.Product{
		{Code: "AG", Name: "Antigen test", PlaceProviderID: pp.ID},
		{Code: "PCR", Name: "PCR test", PlaceProviderID: pp.ID},
		{Code: "AG-EMP", Name: "Employee antigen test", PlaceProviderID: pp.ID, EmployeesRegistration: true},
	}
	for i := range products {
		if err := repo.SetProduct(ctx, &products[i]); err != nil {
			return nil, err
		}
	}

	for i := 0; i < places; i++ {
		place := &registration.Place{
			ID:              fmt.Sprintf("%s-P%d", pp.ID, i+1),
			Name:            faker.City() + " " + faker.RandomString([]string{"hall", "tent", "clinic"}),
			Address:         faker.Street() + ", " + faker.City(),
			PlaceProviderID: pp.ID,
			IsDriveIn:       faker.Bool(),
			IsWalkIn:        true,
		}
		if err := repo.SetPlace(ctx, place); err != nil {
			return nil, err
		}
	}
	return pp, nil
}

func employeeRows(faker *gofakeit.Faker, count int) []registration.EmployeeRow {
	rows := make([]registration.EmployeeRow, 0, count)
	for i := 0; i < count; i++ {
		personType := registration.PersonIDCard
		rc, passport := faker.Numerify("######/####"), ""
		if faker.Number(1, 20) == 1 {
			personType = registration.PersonForeign
			rc, passport = "", faker.Regex("[A-Z]{2}[0-9]{6}")
		}
		rows = append(rows, registration.EmployeeRow{
			EmployeeNumber: fmt.Sprintf("E%05d", i+1),
			Registration: registration.Registration{
				FirstName:     faker.FirstName(),
				LastName:      faker.LastName(),
				BirthDayDay:   ptr(faker.Number(1, 28)),
				BirthDayMonth: ptr(faker.Number(1, 12)),
				BirthDayYear:  ptr(faker.Number(1955, 2004)),
				City:          faker.City(),
				Street:        faker.Street(),
				StreetNo:      faker.Numerify("##"),
				ZIP:           faker.Zip(),
				Phone:         faker.Numerify("09## ### ###"),
				Email:         faker.Email(),
				PersonType:    personType,
				RC:            rc,
				Passport:      passport,
			},
		})
	}
	return rows
}

func ptr[T any](v T) *T { return &v }
