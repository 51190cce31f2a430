package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

var ErrGenerationFailed = errors.New("certificate request generation failed")

// Artifact is the generated signing request. The private key never appears
// here; it stays in the machine key store and is only referenced again when
// the signed certificate is merged back.
type Artifact struct {
	CSR []byte
}

type Generator interface {
	Generate(ctx context.Context, descriptorPath string) (*Artifact, error)
}

type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ToolGenerator wraps the OS request tool (certreq).
type ToolGenerator struct {
	run runner
}

func NewToolGenerator() *ToolGenerator {
	return &ToolGenerator{run: execRun}
}

// Generate invokes certreq with the descriptor and reads the resulting
// request back. Both the descriptor and the request file are removed before
// returning, on success and on every failure path, so subject details never
// linger in temp storage.
func (g *ToolGenerator) Generate(ctx context.Context, descriptorPath string) (*Artifact, error) {
	csrPath := strings.TrimSuffix(descriptorPath, ".inf") + ".req"
	defer func() {
		for _, p := range []string{descriptorPath, csrPath} {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.WithError(err).Warnf("error removing temp artifact %s", p)
			}
		}
	}()

	out, err := g.run(ctx, "certreq", "-new", "-f", "-q", "-machine", descriptorPath, csrPath)
	if err != nil {
		return nil, fmt.Errorf("%w: certreq: %v: %s", ErrGenerationFailed, err, bytes.TrimSpace(out))
	}

	csr, err := os.ReadFile(csrPath)
	if err != nil {
		return nil, fmt.Errorf("%w: no request artifact produced: %v", ErrGenerationFailed, err)
	}
	return &Artifact{CSR: csr}, nil
}
