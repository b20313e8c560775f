package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/testing-registration/internal/auth"
	"github.com/hackgods/testing-registration/internal/registration"
)

// Visitor endpoints

func registerHandler(svc RegistrationService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var v registration.Visitor
		if !decodeJSON(w, r, &v) {
			return
		}

		saved, err := svc.Register(r.Context(), &v)
		if err != nil {
			handleEngineError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func registerWithCompanyHandler(svc RegistrationService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registration.CompanyRegistrationRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		saved, err := svc.RegisterWithCompanyRegistration(r.Context(), req)
		if err != nil {
			handleEngineError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func registerEmployeeByManagerHandler(svc RegistrationService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registration.EmployeeByManagerRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		saved, err := svc.RegisterEmployeeByManager(r.Context(), CallerFromContext(r.Context()), req)
		if err != nil {
			handleEngineError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func registerByManagerHandler(svc RegistrationService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var v registration.Visitor
		if !decodeJSON(w, r, &v) {
			return
		}

		saved, err := svc.RegisterByManager(r.Context(), CallerFromContext(r.Context()), &v)
		if err != nil {
			handleEngineError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func loadByEmployeeNumberHandler(svc RegistrationService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoadByEmployeeNumberRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		v, err := svc.LoadVisitorByEmployeeNumber(r.Context(), CallerFromContext(r.Context()), req.EmployeeNumber)
		if err != nil {
			handleEngineError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func enqueueHandler(svc QueueService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EnqueueRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		ok, err := svc.Enqueue(r.Context(), req.Code, req.Pass, req.Token)
		if err != nil {
			handleEngineError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, EnqueueResponse{Enqueued: ok})
	}
}

func uploadEmployeesHandler(svc EmployeeImporter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rows []registration.EmployeeRow
		if !decodeJSON(w, r, &rows) {
			return
		}

		n, err := svc.Import(r.Context(), CallerFromContext(r.Context()), rows)
		if err != nil {
			handleEngineError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, ImportResponse{Imported: n})
	}
}

func publicKeyHandler(keys Keys) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, KeyResponse{Key: keys.Public})
	}
}

// privateKeyHandler serves the decryption key to medic testers scanning QR codes.
func privateKeyHandler(keys Keys) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := CallerFromContext(r.Context())
		if !auth.HasMedicTesterRole(caller, caller.PlaceProviderID) {
			writeError(w, http.StatusForbidden, string(registration.KindAuthorization), "MedicTester role required")
			return
		}
		writeJSON(w, http.StatusOK, KeyResponse{Key: keys.Private})
	}
}

// Catalog endpoints

func listPlacesHandler(svc CatalogService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		places, err := svc.ListPlaces(r.Context())
		if err != nil {
			handleEngineError(w, r, log, err)
			return
		}
		if places == nil {
			places = []registration.Place{}
		}
		writeJSON(w, http.StatusOK, places)
	}
}

func upsertPlaceHandler(svc CatalogService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p registration.Place
		if !decodeJSON(w, r, &p) {
			return
		}

		saved, err := svc.UpsertPlace(r.Context(), CallerFromContext(r.Context()), p)
		if err != nil {
			handleEngineError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func deletePlaceHandler(svc CatalogService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := svc.DeletePlace(r.Context(), CallerFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			handleEngineError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, deleted)
	}
}

func listProvidersHandler(svc CatalogService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providers, err := svc.ListPublicProviders(r.Context())
		if err != nil {
			handleEngineError(w, r, log, err)
			return
		}
		if providers == nil {
			providers = []registration.PlaceProvider{}
		}
		writeJSON(w, http.StatusOK, providers)
	}
}

func registerProviderHandler(svc CatalogService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var pp registration.PlaceProvider
		if !decodeJSON(w, r, &pp) {
			return
		}

		saved, err := svc.RegisterPlaceProvider(r.Context(), pp)
		if err != nil {
			handleEngineError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

func setProductHandler(svc CatalogService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p registration.Product
		if !decodeJSON(w, r, &p) {
			return
		}

		saved, err := svc.SetProduct(r.Context(), CallerFromContext(r.Context()), p)
		if err != nil {
			handleEngineError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}
