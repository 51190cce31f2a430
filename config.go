package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

const (
	envService = "CB_SERVICE"
	envPort    = "CB_PORT"
	envIP      = "CB_IP"

	defaultPort = 9443
	defaultIP   = "0.0.0.0"
)

type config struct {
	service string
	port    int
	ip      string
}

func configFromEnv() (*config, error) {
	cfg := &config{
		service: os.Getenv(envService),
		port:    defaultPort,
		ip:      defaultIP,
	}

	if p := os.Getenv(envPort); p != "" {
		var err error
		cfg.port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", envPort, err)
		}
	}
	if ip := os.Getenv(envIP); ip != "" {
		cfg.ip = ip
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *config) validate() error {
	if c.service == "" {
		return errors.New(envService + " is empty")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port %d", c.port)
	}
	return nil
}
