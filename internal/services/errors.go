package services

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable is returned when Ditto did not become ready within the probe budget.
	ErrBackendUnavailable = errors.New("ditto backend unavailable")

	// ErrBrokerUnavailable is returned when the broker container has no network address in time.
	ErrBrokerUnavailable = errors.New("mqtt broker unavailable")

	// ErrSigningFailed is returned when a step of the certificate signing exchange exits non-zero.
	ErrSigningFailed = errors.New("certificate signing failed")

	// ErrUnexpectedStatus is wrapped by ProvisioningError when Ditto answers with a status the step does not accept.
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrInvalidDevice is returned for device IDs that cannot name a twin.
	ErrInvalidDevice = errors.New("invalid device")
)

// ProvisioningError reports a rejected Ditto call of one provisioning step.
type ProvisioningError struct {
	Step       string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProvisioningError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %v (status %d): %s", e.Step, e.Err, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

func unexpectedStatus(step string, statusCode int, body []byte) error {
	return &ProvisioningError{
		Step:       step,
		StatusCode: statusCode,
		Body:       string(body),
		Err:        ErrUnexpectedStatus,
	}
}
