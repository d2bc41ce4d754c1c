package middleware

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/nonplanar/pkg/domain"
)

// errNoEnvelope is returned when a stored job lacks the expected payload.
var errNoEnvelope = errors.New("job is missing its payload envelope")

// seal builds an opaque job that keeps only what listing and monitoring need
// (ID, kind, status, stats and timing) and carries the encoded job under key.
func seal(job *domain.Job, key string, encode func([]byte) ([]byte, error)) (*domain.Job, error) {
	plain, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	payload, err := encode(plain)
	if err != nil {
		return nil, err
	}

	envelope := domain.NewJob(job.ID, job.Kind)
	envelope.Status = job.Status
	envelope.Stats = job.Stats
	envelope.CreatedAt = job.CreatedAt
	envelope.Duration = job.Duration
	envelope.Params[key] = base64.StdEncoding.EncodeToString(payload)
	return envelope, nil
}

// open reverses seal.
func open(envelope *domain.Job, key string, decode func([]byte) ([]byte, error)) (*domain.Job, error) {
	encoded, ok := envelope.Params[key].(string)
	if !ok {
		return nil, errNoEnvelope
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload base64: %w", err)
	}
	plain, err := decode(payload)
	if err != nil {
		return nil, err
	}
	var job domain.Job
	if err := json.Unmarshal(plain, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}
