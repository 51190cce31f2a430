package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

var (
	ErrMergeFailed           = errors.New("certificate merge failed")
	ErrNoMatchingCertificate = errors.New("no matching certificate")
)

// Certificate is a read-only view of a machine trust store entry.
type Certificate struct {
	Thumbprint    string
	Subject       string
	NotBefore     time.Time
	HasPrivateKey bool
}

type TrustStore interface {
	List(ctx context.Context) ([]Certificate, error)
	Merge(ctx context.Context, certPath string) error
}

// Archiver keeps a copy of the installed certificate outside the host, for
// recovery. Optional; archive failures are not fatal to a run.
type Archiver interface {
	Archive(ctx context.Context, certPath string) error
}

// Accept merges an operator-supplied signed certificate into the trust
// store. The path is checked first so a bad path never reaches the store.
func Accept(ctx context.Context, ts TrustStore, certPath string) error {
	if _, err := os.Stat(certPath); err != nil {
		return fmt.Errorf("signed certificate %q: %w", certPath, err)
	}
	if err := ts.Merge(ctx, certPath); err != nil {
		return fmt.Errorf("%w: %v", ErrMergeFailed, err)
	}
	return nil
}

// Select picks, among entries whose subject contains cn and which have a
// usable private key, the one with the newest NotBefore. Re-running the
// workflow leaves stale certificates for the same subject in the store;
// always preferring the newest avoids binding an old key.
func Select(certs []Certificate, cn string) (*Certificate, error) {
	var matches []Certificate
	for _, c := range certs {
		if c.HasPrivateKey && strings.Contains(c.Subject, cn) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no certificate for %q with a private key", ErrNoMatchingCertificate, cn)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].NotBefore.After(matches[j].NotBefore)
	})
	return &matches[0], nil
}
