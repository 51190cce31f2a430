package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// listScript enumerates the machine personal store. NotBefore is emitted in
// round-trip ("o") format so it parses unambiguously regardless of host
// locale. The @() wrapper forces a JSON array even for a single entry.
const listScript = `ConvertTo-Json -InputObject @(Get-ChildItem Cert:\LocalMachine\My | ` +
	`Select-Object Thumbprint,Subject,HasPrivateKey,@{n='NotBefore';e={$_.NotBefore.ToUniversalTime().ToString('o')}})`

type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// MachineStore is the machine-scoped trust store, queried through PowerShell
// and written through certreq.
type MachineStore struct {
	run runner
}

func NewMachineStore() *MachineStore {
	return &MachineStore{run: execRun}
}

// List implements TrustStore.
func (s *MachineStore) List(ctx context.Context) ([]Certificate, error) {
	out, err := s.run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", listScript)
	if err != nil {
		return nil, fmt.Errorf("querying machine store: %v: %s", err, bytes.TrimSpace(out))
	}
	return parseStoreJSON(out)
}

// Merge implements TrustStore.
func (s *MachineStore) Merge(ctx context.Context, certPath string) error {
	out, err := s.run(ctx, "certreq", "-accept", "-q", "-machine", certPath)
	if err != nil {
		return fmt.Errorf("certreq -accept: %v: %s", err, bytes.TrimSpace(out))
	}
	return nil
}

func parseStoreJSON(b []byte) ([]Certificate, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}

	type entry struct {
		Thumbprint    string `json:"Thumbprint"`
		Subject       string `json:"Subject"`
		HasPrivateKey bool   `json:"HasPrivateKey"`
		NotBefore     string `json:"NotBefore"`
	}

	var entries []entry
	if err := json.Unmarshal(b, &entries); err != nil {
		// Older PowerShell unwraps single-element arrays.
		var single entry
		if err2 := json.Unmarshal(b, &single); err2 != nil {
			return nil, fmt.Errorf("error parsing store listing: %w", err)
		}
		entries = []entry{single}
	}

	certs := make([]Certificate, 0, len(entries))
	for _, e := range entries {
		nb, err := time.Parse(time.RFC3339Nano, e.NotBefore)
		if err != nil {
			return nil, fmt.Errorf("error parsing NotBefore for %s: %w", e.Thumbprint, err)
		}
		certs = append(certs, Certificate{
			Thumbprint:    e.Thumbprint,
			Subject:       e.Subject,
			NotBefore:     nb,
			HasPrivateKey: e.HasPrivateKey,
		})
	}
	return certs, nil
}
