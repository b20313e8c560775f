package registration

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hackgods/testing-registration/internal/auth"
	redisclient "github.com/hackgods/testing-registration/internal/redis"
)

// EmployeeRow is one normalized row of an employer's HR export.
type EmployeeRow struct {
	EmployeeNumber string `json:"employeeNumber"`
	Registration
}

// Importer reconciles HR exports with existing records. A re-imported
// employee keeps the id and Created time of the first import.
type Importer struct {
	repo     Repository
	hasher   Hasher
	locker   redisclient.Locker
	recorder Recorder
	opts     Options
	log      *zap.Logger
}

func NewImporter(repo Repository, hasher Hasher, locker redisclient.Locker, opts Options, log *zap.Logger, recorder Recorder) *Importer {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Importer{
		repo:     repo,
		hasher:   hasher,
		locker:   locker,
		recorder: recorder,
		opts:     opts,
		log:      log,
	}
}

// Import upserts rows for the caller's place provider and returns how many
// were written. Rows are independent; the first failure stops the import,
// rows already written stay written.
func (im *Importer) Import(ctx context.Context, caller auth.Caller, rows []EmployeeRow) (int, error) {
	if !auth.IsPlaceProviderAdmin(caller, caller.PlaceProviderID) {
		return 0, authorizationDenied(string(auth.PlaceProviderAdmin))
	}
	provider, err := loadProvider(ctx, im.repo, caller.PlaceProviderID)
	if err != nil {
		return 0, err
	}

	rows = lastRowPerEmployee(rows)
	for _, row := range rows {
		if row.EmployeeNumber == "" {
			return 0, validationFailed("employeeNumber", ReasonEmployeeIDMissing)
		}
	}

	workers := im.opts.ImportWorkers
	if workers < 1 {
		workers = 1
	}

	var imported atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, row := range rows {
		g.Go(func() error {
			if err := im.importRow(gctx, provider, row); err != nil {
				return err
			}
			imported.Add(1)
			return nil
		})
	}
	err = g.Wait()

	n := int(imported.Load())
	im.recorder.EmployeesImported(n)
	im.log.Info("employee import finished",
		zap.String("place_provider_id", provider.ID),
		zap.Int("rows", len(rows)),
		zap.Int("imported", n),
		zap.Error(err),
	)
	return n, err
}

func (im *Importer) importRow(ctx context.Context, provider *PlaceProvider, row EmployeeRow) error {
	hash := im.hasher.Hash(provider.CompanyID, row.EmployeeNumber)

	err := im.locker.WithLock(ctx, "import:"+hash, func(lockCtx context.Context) error {
		reg := row.Registration
		reg.Phone = normalizePhone(reg.Phone, im.opts.PhonePrefix)
		if reg.PersonType == "" {
			reg.PersonType = PersonIDCard
		}

		identifiers := []CompanyIdentifier{{
			CompanyID:   provider.CompanyID,
			CompanyName: provider.CompanyName,
			EmployeeID:  row.EmployeeNumber,
		}}

		old, err := resolveEmployee(lockCtx, im.repo, hash)
		switch {
		case err == nil:
			reg.ID = old.ID
			reg.Created = old.Created
			for _, ci := range old.CompanyIdentifiers {
				if ci.CompanyID != provider.CompanyID {
					identifiers = append(identifiers, ci)
				}
			}
		case KindOf(err) == KindNotFound:
			reg.ID = uuid.New()
			reg.Created = im.opts.now()
		default:
			return err
		}
		reg.CompanyIdentifiers = identifiers

		hashes := make([]string, 0, len(identifiers))
		for _, ci := range identifiers {
			hashes = append(hashes, im.hasher.Hash(ci.CompanyID, ci.EmployeeID))
		}

		if _, err := im.repo.SetRegistration(lockCtx, &reg, hashes); err != nil {
			return storeFailure("set registration", err)
		}
		return nil
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		return conflict(ReasonEmployeeImportConflict, err)
	}
	return err
}

// lastRowPerEmployee keeps the last row for every employee number so that a
// single import never races itself on one hash key.
func lastRowPerEmployee(rows []EmployeeRow) []EmployeeRow {
	last := make(map[string]int, len(rows))
	for i, row := range rows {
		last[row.EmployeeNumber] = i
	}
	out := make([]EmployeeRow, 0, len(last))
	for i, row := range rows {
		if last[row.EmployeeNumber] == i {
			out = append(out, row)
		}
	}
	return out
}

// normalizePhone drops spaces and slashes and turns local numbers starting
// with 0 into international ones.
func normalizePhone(phone, prefix string) string {
	phone = strings.NewReplacer(" ", "", "/", "").Replace(phone)
	if prefix != "" && len(phone) > 5 && len(phone) <= 10 && strings.HasPrefix(phone, "0") {
		return prefix + phone[1:]
	}
	return phone
}
