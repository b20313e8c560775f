package registration

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const admissionCodeDigits = 9

// QueueTracker marks a booking as physically present in the queue.
type QueueTracker struct {
	repo     Repository
	captcha  captchaGate
	recorder Recorder
	log      *zap.Logger
}

func NewQueueTracker(repo Repository, captcha CaptchaVerifier, opts Options, log *zap.Logger, recorder Recorder) *QueueTracker {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &QueueTracker{
		repo:     repo,
		captcha:  captchaGate{enabled: opts.CaptchaEnabled, verifier: captcha},
		recorder: recorder,
		log:      log,
	}
}

// Enqueue marks the visitor with the given admission code as queued. pass is
// the last four characters of the visitor's personal identifier.
func (q *QueueTracker) Enqueue(ctx context.Context, code, pass, captchaToken string) (bool, error) {
	if code == "" {
		return false, validationFailed("code", ReasonCodeMissing)
	}
	if pass == "" {
		return false, validationFailed("pass", ReasonSuffixMissing)
	}
	if err := q.captcha.check(ctx, &captchaToken); err != nil {
		return false, err
	}

	digits := FormatBarCode(code)
	if !isAdmissionCode(digits) {
		return false, validationFailed("code", ReasonCodeInvalid)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return false, validationFailed("code", ReasonCodeInvalid)
	}

	ok, err := q.repo.EnqueueByCode(ctx, n, pass)
	if err != nil {
		return false, storeFailure("enqueue visitor", err)
	}
	q.recorder.VisitorEnqueued(ok)
	if !ok {
		return false, notFound("visitor", digits, ErrVisitorNotFound)
	}
	q.log.Info("visitor enqueued", zap.Int64("code", n))
	return true, nil
}

// FormatBarCode strips the separators printed in barcode text, e.g.
// "123-456-789" becomes "123456789". Anything else is left for parsing to reject.
func FormatBarCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, code)
}

// isAdmissionCode reports whether s is exactly nine ASCII digits.
func isAdmissionCode(s string) bool {
	if len(s) != admissionCodeDigits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
