// internal/domain/idempotency/coordinator.go
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/backoffice-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// BeginResult is the outcome of the begin protocol. On a hit the caller must
// replay the cached response verbatim and never re-invoke the guarded
// operation.
type BeginResult struct {
	Hit          bool
	StatusCode   int
	ResponseBody string
}

// Coordinator implements the begin/complete/fail protocol on top of the Store.
// It guarantees at most one effective execution per scope, resolving races
// through the store's unique constraint: the insert either wins or loses, and
// the loser re-reads the winner's record.
//
// Idempotency is a best-effort safety net, not a correctness gate: unexpected
// storage errors are logged and treated as a miss (fail-open) rather than
// blocking the request.
type Coordinator struct {
	store  *Store
	keyTTL time.Duration
	logger *logrus.Logger
}

// NewCoordinator creates a new idempotency coordinator
func NewCoordinator(store *Store, keyTTL time.Duration, logger *logrus.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		keyTTL: keyTTL,
		logger: logger,
	}
}

// Begin looks up or creates the record for the scope. The only error it
// returns is a Conflict for a key reused with a different request hash;
// anything else degrades to {Hit: false}.
func (c *Coordinator) Begin(scope Scope, requestHash string) (BeginResult, error) {
	record, err := c.store.Find(scope)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.createPending(scope, requestHash)
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", scope.Key).
			Warn("Idempotency lookup failed, proceeding without dedup")
		return BeginResult{Hit: false}, nil
	}

	return c.resolveExisting(scope, requestHash, record)
}

func (c *Coordinator) createPending(scope Scope, requestHash string) (BeginResult, error) {
	_, err := c.store.CreatePending(scope, requestHash, time.Now().UTC().Add(c.keyTTL))
	if err == nil {
		return BeginResult{Hit: false}, nil
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Lost the insert race to a concurrent identical request; the row
		// exists now, so resolve against it.
		record, findErr := c.store.Find(scope)
		if findErr != nil {
			c.logger.WithError(findErr).WithField("key", scope.Key).
				Warn("Idempotency re-read after insert race failed, proceeding without dedup")
			return BeginResult{Hit: false}, nil
		}
		return c.resolveExisting(scope, requestHash, record)
	}

	c.logger.WithError(err).WithField("key", scope.Key).
		Warn("Idempotency record creation failed, proceeding without dedup")
	return BeginResult{Hit: false}, nil
}

func (c *Coordinator) resolveExisting(scope Scope, requestHash string, record *Key) (BeginResult, error) {
	if record.IsExpired(time.Now().UTC()) {
		// Expiry is the scope's reset mechanism: drop the stale row and start
		// over with a fresh pending record.
		if err := c.store.DeleteByID(record.ID); err != nil {
			c.logger.WithError(err).WithField("key", scope.Key).
				Warn("Failed to evict expired idempotency record, proceeding without dedup")
			return BeginResult{Hit: false}, nil
		}
		return c.createPending(scope, requestHash)
	}

	if record.RequestHash != requestHash {
		return BeginResult{}, apperrors.Conflict(
			"idempotency key reused with a different request payload",
			map[string]interface{}{
				"key":           scope.Key,
				"expected_hash": record.RequestHash,
				"received_hash": requestHash,
			},
		)
	}

	if record.IsCompleted() {
		return BeginResult{
			Hit:          true,
			StatusCode:   *record.StatusCode,
			ResponseBody: *record.ResponseBody,
		}, nil
	}

	// Pending: another execution is in flight or crashed before completing.
	// Fail open rather than deadlocking on a crashed writer, at the cost of a
	// theoretical duplicate execution in that narrow window.
	return BeginResult{Hit: false}, nil
}

// Complete records the final response for future replays. Best effort: by the
// time it runs the guarded operation has already committed, so storage errors
// are logged and swallowed.
func (c *Coordinator) Complete(scope Scope, statusCode int, responseBody string) {
	if err := c.store.Complete(scope, statusCode, responseBody); err != nil {
		c.logger.WithError(err).WithField("key", scope.Key).
			Warn("Failed to persist idempotency response")
	}
}

// Fail evicts the record so the client may retry with the same key. Best
// effort, same as Complete.
func (c *Coordinator) Fail(scope Scope) {
	if err := c.store.Delete(scope); err != nil {
		c.logger.WithError(err).WithField("key", scope.Key).
			Warn("Failed to evict idempotency record")
	}
}

// CleanupExpired deletes all records past their TTL and returns the count.
func (c *Coordinator) CleanupExpired() (int64, error) {
	return c.store.DeleteExpired(time.Now().UTC())
}

// HashRequest computes the content fingerprint of a request body. The body is
// canonicalized by re-serializing with sorted object keys, so two bodies that
// differ only in key order hash identically. Non-JSON bodies are hashed raw.
func HashRequest(body []byte) string {
	canonical := body
	if len(body) > 0 {
		var decoded interface{}
		if err := json.Unmarshal(body, &decoded); err == nil {
			if encoded, err := json.Marshal(decoded); err == nil {
				canonical = encoded
			}
		}
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
