package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	certs    []Certificate
	listErr  error
	mergeErr error

	merged []string
}

// List implements TrustStore.
func (f *fakeStore) List(ctx context.Context) ([]Certificate, error) {
	return f.certs, f.listErr
}

// Merge implements TrustStore.
func (f *fakeStore) Merge(ctx context.Context, certPath string) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.merged = append(f.merged, certPath)
	return nil
}

func TestSelect(t *testing.T) {
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)
	t3 := t2.Add(24 * time.Hour)

	tests := map[string]struct {
		certs          []Certificate
		cn             string
		wantThumbprint string
		wantErr        error
	}{
		"newest of three wins": {
			certs: []Certificate{
				{Thumbprint: "T1", Subject: "CN=x, O=org", NotBefore: t1, HasPrivateKey: true},
				{Thumbprint: "T3", Subject: "CN=x, O=org", NotBefore: t3, HasPrivateKey: true},
				{Thumbprint: "T2", Subject: "CN=x, O=org", NotBefore: t2, HasPrivateKey: true},
			},
			cn:             "x",
			wantThumbprint: "T3",
		},
		"no private key excluded": {
			certs: []Certificate{
				{Thumbprint: "T3", Subject: "CN=x", NotBefore: t3, HasPrivateKey: false},
				{Thumbprint: "T1", Subject: "CN=x", NotBefore: t1, HasPrivateKey: true},
			},
			cn:             "x",
			wantThumbprint: "T1",
		},
		"other subjects excluded": {
			certs: []Certificate{
				{Thumbprint: "T3", Subject: "CN=other", NotBefore: t3, HasPrivateKey: true},
				{Thumbprint: "T1", Subject: "CN=x", NotBefore: t1, HasPrivateKey: true},
			},
			cn:             "x",
			wantThumbprint: "T1",
		},
		"empty store": {
			cn:      "x",
			wantErr: ErrNoMatchingCertificate,
		},
		"only key-less matches": {
			certs: []Certificate{
				{Thumbprint: "T1", Subject: "CN=x", NotBefore: t1, HasPrivateKey: false},
			},
			cn:      "x",
			wantErr: ErrNoMatchingCertificate,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			have, err := Select(tc.certs, tc.cn)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantThumbprint, have.Thumbprint)
		})
	}
}

func TestAccept(t *testing.T) {
	certPath := filepath.Join(t.TempDir(), "signed.cer")
	require.NoError(t, os.WriteFile(certPath, []byte("cert"), 0o600))

	fs := &fakeStore{}
	require.NoError(t, Accept(context.Background(), fs, certPath))
	assert.Equal(t, []string{certPath}, fs.merged)
}

func TestAcceptMissingFile(t *testing.T) {
	fs := &fakeStore{}
	err := Accept(context.Background(), fs, filepath.Join(t.TempDir(), "nope.cer"))

	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, fs.merged, "store must not be touched when the path is invalid")
}

func TestAcceptMergeError(t *testing.T) {
	certPath := filepath.Join(t.TempDir(), "signed.cer")
	require.NoError(t, os.WriteFile(certPath, []byte("cert"), 0o600))

	fs := &fakeStore{mergeErr: errors.New("key mismatch")}
	err := Accept(context.Background(), fs, certPath)

	require.ErrorIs(t, err, ErrMergeFailed)
	assert.ErrorContains(t, err, "key mismatch")
}
