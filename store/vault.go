package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/devon-mar/pkiutil"
	vault "github.com/hashicorp/vault/api"
)

const (
	EnvVaultKVMount      = "VAULT_KV_MOUNT"
	EnvVaultKVCertsPath  = "VAULT_KV_CERTS_PATH"
	EnvVaultCertAuth     = "VAULT_CERT_AUTH"
	EnvVaultCertAuthRole = "VAULT_CERT_AUTH_ROLE"

	VaultKVKeyCert     = "tls.crt"
	VaultKVKeyNotAfter = "not_after"
)

// VaultArchive stores a copy of each installed certificate in a Vault KVv2
// mount, keyed by common name. The private key stays in the machine key
// store and is never archived.
type VaultArchive struct {
	kvMount   string
	certsPath string

	client *vault.Client
}

// VaultArchiveConfigured reports whether the archive env vars are set.
func VaultArchiveConfigured() bool {
	return os.Getenv(EnvVaultKVMount) != ""
}

func NewVaultArchive() (*VaultArchive, error) {
	va := &VaultArchive{}
	var err error
	va.kvMount, err = readEnv(EnvVaultKVMount)
	if err != nil {
		return nil, err
	}
	va.certsPath, err = readEnv(EnvVaultKVCertsPath)
	if err != nil {
		return nil, err
	}
	va.certsPath = cleanPath(va.certsPath)

	va.client, err = vault.NewClient(vault.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if va.client.Token() == "" {
		if m := os.Getenv(EnvVaultCertAuth); m != "" {
			_, err := va.client.Auth().Login(
				context.Background(),
				&vaultCertAuth{Mount: m, Role: os.Getenv(EnvVaultCertAuthRole)},
			)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, errors.New("no Vault auth method configured")
		}
	}
	return va, nil
}

// Archive implements Archiver.
func (a *VaultArchive) Archive(ctx context.Context, certPath string) error {
	b, err := os.ReadFile(certPath)
	if err != nil {
		return err
	}
	c, err := pkiutil.ParseCertificate(b)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	data := map[string]interface{}{
		VaultKVKeyCert:     string(b),
		VaultKVKeyNotAfter: c.NotAfter.UTC().Format(time.RFC3339),
	}
	_, err = a.client.KVv2(a.kvMount).Put(ctx, a.certsPath+"/"+c.Subject.CommonName, data)
	return err
}

func readEnv(name string) (string, error) {
	val := os.Getenv(name)
	if val == "" {
		return "", fmt.Errorf("%s is empty", name)
	}
	return val, nil
}

type vaultCertAuth struct {
	Mount string
	Role  string
}

func (a *vaultCertAuth) Login(ctx context.Context, client *vault.Client) (*vault.Secret, error) {
	data := map[string]interface{}{"name": a.Role}

	path := "auth/" + a.Mount + "/login"

	resp, err := client.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return nil, fmt.Errorf("error authenticating with TLS: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("empty response from TLS auth")
	}
	return resp, nil
}

func cleanPath(p string) string {
	return strings.TrimSuffix(p, "/")
}
