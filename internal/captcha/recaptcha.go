// Package captcha verifies reCAPTCHA responses submitted with public registrations.
package captcha

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Recaptcha calls the siteverify endpoint.
type Recaptcha struct {
	client    *resty.Client
	secret    string
	verifyURL string
	minScore  float64
}

func NewRecaptcha(secret, verifyURL string, minScore float64) *Recaptcha {
	client := resty.New().
		SetTimeout(5 * time.Second).
		SetHeader("Accept", "application/json")

	return &Recaptcha{
		client:    client,
		secret:    secret,
		verifyURL: verifyURL,
		minScore:  minScore,
	}
}

// IsCaptchaPassed returns an error only when the verifier could not be
// reached or answered garbage. A rejected token is (false, nil).
func (r *Recaptcha) IsCaptchaPassed(ctx context.Context, token string) (bool, error) {
	var out siteVerifyResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"secret":   r.secret,
			"response": token,
		}).
		SetResult(&out).
		Post(r.verifyURL)
	if err != nil {
		return false, fmt.Errorf("call siteverify: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("siteverify returned %s", resp.Status())
	}

	if !out.Success {
		return false, nil
	}
	// v2 responses carry no score
	if out.Action != "" && out.Score < r.minScore {
		return false, nil
	}
	return true, nil
}
