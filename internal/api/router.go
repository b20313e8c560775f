package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/testing-registration/internal/auth"
	"github.com/hackgods/testing-registration/internal/registration"
)

type RegistrationService interface {
	Register(ctx context.Context, v *registration.Visitor) (*registration.Visitor, error)
	RegisterWithCompanyRegistration(ctx context.Context, req registration.CompanyRegistrationRequest) (*registration.Visitor, error)
	RegisterEmployeeByManager(ctx context.Context, caller auth.Caller, req registration.EmployeeByManagerRequest) (*registration.Visitor, error)
	RegisterByManager(ctx context.Context, caller auth.Caller, v *registration.Visitor) (*registration.Visitor, error)
	LoadVisitorByEmployeeNumber(ctx context.Context, caller auth.Caller, employeeNumber string) (*registration.Visitor, error)
}

type QueueService interface {
	Enqueue(ctx context.Context, code, pass, captchaToken string) (bool, error)
}

type EmployeeImporter interface {
	Import(ctx context.Context, caller auth.Caller, rows []registration.EmployeeRow) (int, error)
}

type CatalogService interface {
	ListPlaces(ctx context.Context) ([]registration.Place, error)
	UpsertPlace(ctx context.Context, caller auth.Caller, p registration.Place) (*registration.Place, error)
	DeletePlace(ctx context.Context, caller auth.Caller, placeID string) (*registration.Place, error)
	RegisterPlaceProvider(ctx context.Context, pp registration.PlaceProvider) (*registration.PlaceProvider, error)
	ListPublicProviders(ctx context.Context) ([]registration.PlaceProvider, error)
	SetProduct(ctx context.Context, caller auth.Caller, p registration.Product) (*registration.Product, error)
}

// Keys are the QR payload encryption keys handed out to clients.
type Keys struct {
	Public  string
	Private string
}

type RouterConfig struct {
	Registration RegistrationService
	Queue        QueueService
	Importer     EmployeeImporter
	Catalog      CatalogService
	Keys         Keys
	JWTSecret    string
	Postgres     Check
	Redis        Check
	Metrics      http.Handler
	Log          *zap.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(CallerMiddleware(cfg.JWTSecret))

		r.Route("/visitor", func(r chi.Router) {
			r.Post("/register", registerHandler(cfg.Registration, cfg.Log))
			r.Post("/register-with-company-registration", registerWithCompanyHandler(cfg.Registration, cfg.Log))
			r.Post("/register-employee-by-manager", registerEmployeeByManagerHandler(cfg.Registration, cfg.Log))
			r.Post("/register-by-manager", registerByManagerHandler(cfg.Registration, cfg.Log))
			r.Post("/load-by-employee-number", loadByEmployeeNumberHandler(cfg.Registration, cfg.Log))
			r.Post("/enqueued", enqueueHandler(cfg.Queue, cfg.Log))
			r.Post("/upload-employees", uploadEmployeesHandler(cfg.Importer, cfg.Log))
			r.Get("/public-key", publicKeyHandler(cfg.Keys))
			r.Get("/private-key", privateKeyHandler(cfg.Keys))
		})

		r.Get("/places", listPlacesHandler(cfg.Catalog, cfg.Log))
		r.Post("/places", upsertPlaceHandler(cfg.Catalog, cfg.Log))
		r.Delete("/places/{id}", deletePlaceHandler(cfg.Catalog, cfg.Log))

		r.Get("/place-providers", listProvidersHandler(cfg.Catalog, cfg.Log))
		r.Post("/place-providers", registerProviderHandler(cfg.Catalog, cfg.Log))

		r.Post("/products", setProductHandler(cfg.Catalog, cfg.Log))
	})

	return r
}
