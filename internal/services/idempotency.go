package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/test-stack-api/internal/repo"
)

// Idempotency identifies a create request by the route it was sent to and
// the client-supplied key. A zero value disables replay protection.
type Idempotency struct {
	Scope string
	Key   string
}

func (i Idempotency) enabled() bool { return i.Key != "" }

// requestHash fingerprints a validated payload.
func requestHash(payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// createOnce runs create at most once per live (scope, key).
//
// A retry with the same payload loads and returns the stored resource with
// replayed=true. A retry with a different payload fails with
// ErrIdempotencyKeyReused. The resource row and its idempotency record are
// written in one transaction; when a concurrent request wins the insert the
// stored record is consulted instead.
func createOnce[T any](
	ctx context.Context,
	db *gorm.DB,
	ttl time.Duration,
	idem Idempotency,
	payload any,
	load func(ctx context.Context, db *gorm.DB, id string) (*T, error),
	create func(ctx context.Context, db *gorm.DB) (*T, string, error),
) (out *T, replayed bool, err error) {
	if !idem.enabled() {
		out, _, err = create(ctx, db)
		return out, false, err
	}

	hash, err := requestHash(payload)
	if err != nil {
		return nil, false, err
	}

	if out, err := replay(ctx, db, idem, hash, load); err == nil {
		return out, true, nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, false, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, id, err := create(ctx, tx)
		if err != nil {
			return err
		}
		if _, err := repo.CreateIdempotency(ctx, tx, repo.IdempotencyRecord{
			Scope:       idem.Scope,
			Key:         idem.Key,
			RequestHash: hash,
			ResourceID:  id,
			Status:      http.StatusCreated,
		}, ttl); err != nil {
			return err
		}
		out = v
		return nil
	})
	if errors.Is(err, repo.ErrDuplicate) {
		out, err = replay(ctx, db, idem, hash, load)
		return out, err == nil, err
	}
	if err != nil {
		return nil, false, err
	}
	return out, false, nil
}

// replay returns the resource stored for idem, repo.ErrNotFound when no live
// record exists, or ErrIdempotencyKeyReused on a payload mismatch.
func replay[T any](
	ctx context.Context,
	db *gorm.DB,
	idem Idempotency,
	hash string,
	load func(ctx context.Context, db *gorm.DB, id string) (*T, error),
) (*T, error) {
	rec, err := repo.GetIdempotency(ctx, db, idem.Scope, idem.Key, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if rec.RequestHash != hash {
		return nil, ErrIdempotencyKeyReused
	}
	v, err := load(ctx, db, rec.ResourceID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("idempotency record %s points at missing resource %s", rec.ID, rec.ResourceID)
	}
	return v, err
}
