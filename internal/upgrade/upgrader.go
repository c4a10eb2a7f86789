// Package upgrade drives the in-service upgrade lifecycle of a single
// service: fetch, validate, submit, wait for the upgraded state, finalize,
// and wait for the service to return to active.
package upgrade

import (
	"context"
	"time"

	uperrors "github.com/systmms/upshift/internal/errors"
	"github.com/systmms/upshift/internal/logging"
	"github.com/systmms/upshift/internal/rancher"
)

// ControlPlane is the API surface the upgrader needs from the control plane
// client. It is satisfied by *rancher.Client.
type ControlPlane interface {
	FindService(ctx context.Context, name string) (*rancher.Service, error)
	UpgradeService(ctx context.Context, svc *rancher.Service, strategy rancher.InServiceStrategy) (*rancher.Service, error)
	FinishUpgrade(ctx context.Context, svc *rancher.Service) error
}

var _ ControlPlane = (*rancher.Client)(nil)

// Request describes one upgrade session. It is immutable for the duration of
// the session.
type Request struct {
	Service string // Service name (required)
	Image   string // Image repository (required)
	Tag     string // Image tag (optional)

	// Env is merged over the service's existing environment; request values
	// win on key collision.
	Env map[string]string

	BatchSize      int64 // Instances replaced per step (default: 1)
	IntervalMillis int64 // Delay between steps (default: 30000)

	// StartFirst starts a replacement instance before stopping its
	// predecessor. Nil means the default (true).
	StartFirst *bool
}

// Options holds the timing budgets of an upgrade session. Each wait phase has
// its own deadline, measured from the moment the phase begins.
type Options struct {
	PollInterval    time.Duration // Default: 20s
	UpgradedTimeout time.Duration // Default: 3m
	ActiveTimeout   time.Duration // Default: 3m

	// Now and Sleep are injectable for tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) withDefaults() Options {
	if o.PollInterval == 0 {
		o.PollInterval = 20 * time.Second
	}
	if o.UpgradedTimeout == 0 {
		o.UpgradedTimeout = 3 * time.Minute
	}
	if o.ActiveTimeout == 0 {
		o.ActiveTimeout = 3 * time.Minute
	}
	return o
}

// Upgrader orchestrates upgrade sessions. Sessions share no mutable state, so
// one Upgrader may run concurrent sessions; two sessions targeting the same
// service name are not serialized and callers must coordinate that externally.
type Upgrader struct {
	cp      ControlPlane
	logger  *logging.Logger
	opts    Options
	metrics *Metrics
}

// New creates an Upgrader.
func New(cp ControlPlane, logger *logging.Logger, opts Options) *Upgrader {
	return &Upgrader{
		cp:      cp,
		logger:  logger,
		opts:    opts.withDefaults(),
		metrics: NewMetrics(),
	}
}

// Run performs one upgrade session and returns the final, active service
// descriptor. A session either completes with an active descriptor or fails
// with exactly one error from the taxonomy in internal/errors.
func (u *Upgrader) Run(ctx context.Context, req Request) (*rancher.Service, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	started := time.Now()
	u.metrics.RecordStarted(req.Service)

	svc, err := u.run(ctx, req)
	if err != nil {
		u.metrics.RecordCompleted(req.Service, "failure", time.Since(started))
		return nil, err
	}

	u.metrics.RecordCompleted(req.Service, "success", time.Since(started))
	return svc, nil
}

func (u *Upgrader) run(ctx context.Context, req Request) (*rancher.Service, error) {
	svc, err := u.cp.FindService(ctx, req.Service)
	if err != nil {
		return nil, err
	}

	if svc.State != rancher.StateActive {
		if !svc.HasAction(rancher.ActionUpgrade) {
			return nil, uperrors.PreconditionError{Service: req.Service, State: svc.State}
		}
		// The state label disagrees but the platform offers the action, so
		// proceed best-effort.
		u.logger.Warn("service '%s' is '%s', not 'active'; the upgrade action is offered, proceeding anyway", req.Service, svc.State)
	}

	strategy := buildStrategy(svc, req)

	u.logger.Info("submitting upgrade of service '%s' to %s", req.Service, strategy.LaunchConfig["imageUuid"])
	if _, err := u.cp.UpgradeService(ctx, svc, strategy); err != nil {
		return nil, err
	}

	upgraded, err := u.waitForUpgraded(ctx, req.Service)
	if err != nil {
		return nil, err
	}

	u.logger.Info("service '%s' upgraded, finalizing", req.Service)
	if err := u.cp.FinishUpgrade(ctx, upgraded); err != nil {
		return nil, err
	}

	active, err := u.waitForActive(ctx, req.Service)
	if err != nil {
		return nil, err
	}

	u.logger.Info("service '%s' is active", req.Service)
	return active, nil
}

// waitForUpgraded polls until the service leaves 'upgrading' for 'upgraded'.
// Any other state is a hard stop: it distinguishes a broken rollout from a
// slow one.
func (u *Upgrader) waitForUpgraded(ctx context.Context, name string) (*rancher.Service, error) {
	poller := &Poller{
		Interval: u.opts.PollInterval,
		Timeout:  u.opts.UpgradedTimeout,
		Now:      u.opts.Now,
		Sleep:    u.opts.Sleep,
	}

	var last *rancher.Service
	err := poller.Wait(ctx, "upgraded", func(ctx context.Context) (bool, error) {
		svc, err := u.cp.FindService(ctx, name)
		if err != nil {
			return false, err
		}
		last = svc
		u.metrics.RecordPollTick("upgraded")

		switch svc.State {
		case rancher.StateUpgrading:
			u.logger.Debug("service '%s' still upgrading", name)
			return false, nil
		case rancher.StateUpgraded:
			return true, nil
		default:
			return false, uperrors.UnexpectedStateError{Service: name, State: svc.State}
		}
	})
	if err != nil {
		return nil, err
	}
	return last, nil
}

// waitForActive polls until the service reports 'active'. This phase only
// knows active versus not-yet; any other state keeps polling until the
// deadline.
func (u *Upgrader) waitForActive(ctx context.Context, name string) (*rancher.Service, error) {
	poller := &Poller{
		Interval: u.opts.PollInterval,
		Timeout:  u.opts.ActiveTimeout,
		Now:      u.opts.Now,
		Sleep:    u.opts.Sleep,
	}

	var last *rancher.Service
	err := poller.Wait(ctx, "active", func(ctx context.Context) (bool, error) {
		svc, err := u.cp.FindService(ctx, name)
		if err != nil {
			return false, err
		}
		last = svc
		u.metrics.RecordPollTick("active")

		if svc.State != rancher.StateActive {
			u.logger.Debug("service '%s' is '%s', waiting for 'active'", name, svc.State)
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return last, nil
}

func validate(req Request) error {
	if req.Service == "" {
		return uperrors.ValidationError{Field: "service"}
	}
	if req.Image == "" {
		return uperrors.ValidationError{Field: "image"}
	}
	if req.BatchSize < 0 {
		return uperrors.ValidationError{Field: "batchSize", Message: "must not be negative"}
	}
	if req.IntervalMillis < 0 {
		return uperrors.ValidationError{Field: "intervalMillis", Message: "must not be negative"}
	}
	return nil
}

// buildStrategy computes the submit payload: a copy of the service's launch
// config with the new image reference set and the requested environment
// merged over the existing one. Secondary launch configs pass through
// unmodified.
func buildStrategy(svc *rancher.Service, req Request) rancher.InServiceStrategy {
	launchConfig := make(map[string]interface{}, len(svc.LaunchConfig)+2)
	for k, v := range svc.LaunchConfig {
		launchConfig[k] = v
	}

	launchConfig["imageUuid"] = imageUUID(req.Image, req.Tag)
	launchConfig["environment"] = mergeEnvironment(launchConfig["environment"], req.Env)

	batchSize := req.BatchSize
	if batchSize == 0 {
		batchSize = 1
	}
	intervalMillis := req.IntervalMillis
	if intervalMillis == 0 {
		intervalMillis = 30000
	}
	startFirst := true
	if req.StartFirst != nil {
		startFirst = *req.StartFirst
	}

	return rancher.InServiceStrategy{
		BatchSize:              batchSize,
		IntervalMillis:         intervalMillis,
		StartFirst:             startFirst,
		LaunchConfig:           launchConfig,
		SecondaryLaunchConfigs: svc.SecondaryLaunchConfigs,
	}
}

// imageUUID builds the platform image reference, "docker:repo" or
// "docker:repo:tag".
func imageUUID(image, tag string) string {
	uuid := "docker:" + image
	if tag != "" {
		uuid += ":" + tag
	}
	return uuid
}

// mergeEnvironment merges the requested overrides over the existing
// environment mapping. Request values win on key collision. The existing
// value comes from decoded JSON, so it is a map[string]interface{} or absent.
func mergeEnvironment(existing interface{}, overrides map[string]string) map[string]interface{} {
	merged := make(map[string]interface{})

	if env, ok := existing.(map[string]interface{}); ok {
		for k, v := range env {
			merged[k] = v
		}
	}
	for k, v := range overrides {
		merged[k] = v
	}

	return merged
}
