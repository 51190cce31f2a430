package main

import (
	"context"
	"errors"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"certbind/bind"
	"certbind/request"
	"certbind/store"
)

var exitFunc func(int) = os.Exit

// errWorkflow signals a failure that run() already logged; it keeps cobra
// from printing anything on top while still producing exit code 1.
var errWorkflow = errors.New("workflow failed")

func main() {
	log.SetLevel(log.DebugLevel)
	code := 0
	if err := newRootCmd().Execute(); err != nil {
		code = 1
	}
	exitFunc(code)
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "certbind",
		Short: "Request, install and bind a TLS certificate for the management console",
		Long: "certbind collects the certificate subject and SANs, generates a PKCS#10\n" +
			"request against the machine key store, waits for the operator to bring back\n" +
			"the CA-signed certificate, merges it into the machine trust store and\n" +
			"rebinds the console service's TLS listener to it.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromEnv()
			if err != nil {
				log.WithError(err).Error("config error")
				return errWorkflow
			}
			if run(cmd.Context(), cfg, newSurveyConsole(), defaultDeps()) != 0 {
				return errWorkflow
			}
			return nil
		},
	}
}

type rebinder interface {
	Rebind(ctx context.Context, thumbprint, ip string, port int) error
}

// deps are the capability factories behind each workflow step, injectable
// so run() is testable without the OS tooling.
type deps struct {
	elevated     func(ctx context.Context) error
	newGenerator func() request.Generator
	newStore     func() store.TrustStore
	newBinder    func(service string) rebinder
	newArchiver  func() (store.Archiver, error)
}

func defaultDeps() deps {
	return deps{
		elevated:     ensureElevated,
		newGenerator: func() request.Generator { return request.NewToolGenerator() },
		newStore:     func() store.TrustStore { return store.NewMachineStore() },
		newBinder: func(service string) rebinder {
			return &bind.Binder{
				Listener: bind.NewNetshListener(),
				Services: bind.NewWindowsServiceController(),
				Service:  service,
			}
		},
		newArchiver: func() (store.Archiver, error) {
			if !store.VaultArchiveConfigured() {
				return nil, nil
			}
			return store.NewVaultArchive()
		},
	}
}

// run walks the workflow in order: collect, build, generate, accept, select,
// bind. Every failure is terminal; each step needs the operator to fix
// something before trying again.
func run(ctx context.Context, cfg *config, con console, d deps) int {
	if err := d.elevated(ctx); err != nil {
		log.WithError(err).Error("privilege check failed")
		return 1
	}

	identity, err := con.Identity()
	if err != nil {
		log.WithError(err).Error("error collecting subject")
		return 1
	}
	sans, err := con.SANs()
	if err != nil {
		log.WithError(err).Error("error collecting SANs")
		return 1
	}
	log.Infof("Collected %d SAN(s) for %s", len(sans), identity.CommonName)

	desc := request.Build(identity, sans, request.DefaultKeyPolicy())
	descPath, err := desc.WriteTemp()
	if err != nil {
		log.WithError(err).Error("error writing request descriptor")
		return 1
	}

	artifact, err := d.newGenerator().Generate(ctx, descPath)
	if err != nil {
		log.WithError(err).Error("error generating certificate request")
		return 1
	}
	log.Info("Certificate request generated")

	if err := con.Export(artifact.CSR); err != nil {
		log.WithError(err).Error("error exporting certificate request")
		return 1
	}

	certPath, err := con.CertificatePath()
	if err != nil {
		log.WithError(err).Error("error reading certificate path")
		return 1
	}

	ts := d.newStore()
	if err := store.Accept(ctx, ts, certPath); err != nil {
		log.WithError(err).Error("error installing certificate")
		return 1
	}
	log.Info("Certificate merged into the machine store")

	if archiver, err := d.newArchiver(); err != nil {
		log.WithError(err).Warn("error initializing certificate archive")
	} else if archiver != nil {
		if err := archiver.Archive(ctx, certPath); err != nil {
			log.WithError(err).Warn("error archiving certificate")
		}
	}

	certs, err := ts.List(ctx)
	if err != nil {
		log.WithError(err).Error("error listing the machine store")
		return 1
	}
	selected, err := store.Select(certs, identity.CommonName)
	if err != nil {
		log.WithError(err).Error("error selecting certificate")
		return 1
	}
	log.Infof("Selected certificate %s (issued %s)", selected.Thumbprint, selected.NotBefore.Format("2006-01-02 15:04:05"))

	binder := d.newBinder(cfg.service)
	if err := binder.Rebind(ctx, selected.Thumbprint, cfg.ip, cfg.port); err != nil {
		log.WithError(err).Error("error binding certificate")
		return 1
	}
	log.Infof("Certificate bound to %s:%d", cfg.ip, cfg.port)
	return 0
}
