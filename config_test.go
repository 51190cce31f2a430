package main

import (
	"reflect"
	"testing"
)

func TestConfigFromEnv(t *testing.T) {
	tests := map[string]struct {
		service string
		port    string
		ip      string

		want      *config
		wantError bool
	}{
		"empty env": {
			wantError: true,
		},
		"defaults": {
			service: "ManagementConsole",
			want:    &config{service: "ManagementConsole", port: defaultPort, ip: defaultIP},
		},
		"custom port and ip": {
			service: "ManagementConsole",
			port:    "8443",
			ip:      "10.0.0.5",
			want:    &config{service: "ManagementConsole", port: 8443, ip: "10.0.0.5"},
		},
		"port not a number": {
			service:   "ManagementConsole",
			port:      "https",
			wantError: true,
		},
		"port out of range": {
			service:   "ManagementConsole",
			port:      "70000",
			wantError: true,
		},
		"port zero": {
			service:   "ManagementConsole",
			port:      "0",
			wantError: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(envService, tc.service)
			t.Setenv(envPort, tc.port)
			t.Setenv(envIP, tc.ip)

			have, err := configFromEnv()
			if err == nil && tc.wantError {
				t.Error("expected an error")
			} else if err != nil && !tc.wantError {
				t.Errorf("expected no error but got: %v", err)
			}
			if !reflect.DeepEqual(have, tc.want) {
				t.Errorf("got %#v, want %#v", have, tc.want)
			}
		})
	}
}
