package mpc

import (
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestDefaultConfigValid(t *testing.T) {
	test.That(t, DefaultConfig().Validate(), test.ShouldBeNil)
}

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"one step", func(cfg *Config) { cfg.Steps = 1 }},
		{"zero steps", func(cfg *Config) { cfg.Steps = 0 }},
		{"zero interval", func(cfg *Config) { cfg.Interval = 0 }},
		{"negative interval", func(cfg *Config) { cfg.Interval = -0.05 }},
		{"zero steer bound", func(cfg *Config) { cfg.MaxSteer = 0 }},
		{"zero accel bound", func(cfg *Config) { cfg.MaxAccel = 0 }},
		{"zero wheel geometry", func(cfg *Config) { cfg.CoGToFrontAxle = 0 }},
		{"zero timeout", func(cfg *Config) { cfg.SolveTimeout = 0 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, errors.Is(err, ErrInvalidConfig), test.ShouldBeTrue)
		})
	}
}

func TestNewMPCRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Steps = 1
	_, err := NewMPC(cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrInvalidConfig), test.ShouldBeTrue)
}

func TestConfigImmutablePerController(t *testing.T) {
	cfg := DefaultConfig()
	controller, err := NewMPC(cfg, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	cfg.Steps = 2
	cfg.SolveTimeout = time.Nanosecond
	test.That(t, controller.Config().Steps, test.ShouldEqual, 25)
	test.That(t, controller.Config().SolveTimeout, test.ShouldEqual, 500*time.Millisecond)
}
