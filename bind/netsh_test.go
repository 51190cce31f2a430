package bind

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetshListenerBind(t *testing.T) {
	var gotArgs []string
	l := &NetshListener{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "netsh", name)
		gotArgs = args
		return nil, nil
	}}

	require.NoError(t, l.Bind(context.Background(), "0.0.0.0", 9443, "AAA111"))
	assert.Equal(t, []string{
		"http", "add", "sslcert", "ipport=0.0.0.0:9443", "certhash=AAA111", "appid=" + AppID,
	}, gotArgs)
}

func TestNetshListenerUnbindNothingBound(t *testing.T) {
	l := &NetshListener{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("SSL Certificate deletion failed, Error: 2\nThe system cannot find the file specified.\n"),
			errors.New("exit status 1")
	}}

	assert.NoError(t, l.Unbind(context.Background(), "0.0.0.0", 9443))
}

func TestNetshListenerUnbindError(t *testing.T) {
	l := &NetshListener{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("Access is denied."), errors.New("exit status 1")
	}}

	assert.Error(t, l.Unbind(context.Background(), "0.0.0.0", 9443))
}

func TestServiceControllerStopAlreadyStopped(t *testing.T) {
	c := &WindowsServiceController{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("The Console service is not started.\n"), errors.New("exit status 2")
	}}

	assert.NoError(t, c.Stop(context.Background(), "console"))
}

func TestServiceControllerStopError(t *testing.T) {
	c := &WindowsServiceController{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("System error 5 has occurred."), errors.New("exit status 2")
	}}

	assert.Error(t, c.Stop(context.Background(), "console"))
}

func TestServiceControllerStart(t *testing.T) {
	var gotArgs []string
	c := &WindowsServiceController{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "net", name)
		gotArgs = args
		return nil, nil
	}}

	require.NoError(t, c.Start(context.Background(), "console"))
	assert.Equal(t, []string{"start", "console"}, gotArgs)
}
