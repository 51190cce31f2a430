package bind

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

var ErrBindFailed = errors.New("listener binding failed")

// Listener manages the TLS certificate bound to an ip:port.
type Listener interface {
	// Unbind removes any existing binding. Nothing bound is not an error.
	Unbind(ctx context.Context, ip string, port int) error
	Bind(ctx context.Context, ip string, port int, thumbprint string) error
}

// ServiceController stops and starts the hosting service. Stop tolerates
// the service already being stopped.
type ServiceController interface {
	Stop(ctx context.Context, name string) error
	Start(ctx context.Context, name string) error
}

// Binder rebinds the hosting service's TLS listener to a certificate.
type Binder struct {
	Listener Listener
	Services ServiceController
	Service  string
}

// Rebind stops the service, swaps the port binding to the given thumbprint,
// and starts the service again. If the bind step fails the service is still
// started so the host isn't left unreachable, and the bind error is
// returned. Safe to run repeatedly: the unbind of an unbound port is a
// no-op, and delete-then-add leaves exactly one binding.
func (b *Binder) Rebind(ctx context.Context, thumbprint, ip string, port int) error {
	log.Infof("Stopping service %s", b.Service)
	if err := b.Services.Stop(ctx, b.Service); err != nil {
		return fmt.Errorf("stopping %s: %w", b.Service, err)
	}

	if err := b.Listener.Unbind(ctx, ip, port); err != nil {
		// best effort; the add below is what matters
		log.WithError(err).Warnf("error unbinding %s:%d", ip, port)
	}

	log.Infof("Binding certificate %s to %s:%d", thumbprint, ip, port)
	bindErr := b.Listener.Bind(ctx, ip, port, thumbprint)

	log.Infof("Starting service %s", b.Service)
	if err := b.Services.Start(ctx, b.Service); err != nil {
		if bindErr != nil {
			log.WithError(err).Errorf("error restarting %s after failed bind", b.Service)
		} else {
			return fmt.Errorf("starting %s: %w", b.Service, err)
		}
	}

	if bindErr != nil {
		return fmt.Errorf("%w: %v", ErrBindFailed, bindErr)
	}
	return nil
}
