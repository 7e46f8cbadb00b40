package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jathurchan/seatlicense/clock"
	"github.com/jathurchan/seatlicense/logger"
	"github.com/jathurchan/seatlicense/protocol"
)

// Operation names used in errors and logs.
const (
	opGetVersion  = "get_version"
	opGetUserName = "get_username"
	opValidate    = "validate"
	opLogout      = "logout"
	opSend        = "send"
)

// machineIDTimeout bounds interface discovery on first use.
const machineIDTimeout = 2 * time.Second

type licenseClient struct {
	config  Config
	dialer  Dialer
	prober  Prober
	limiter *requestLimiter
	clock   clock.Clock
	rand    clock.Rand
	logger  logger.Logger

	interfaces  interfaceLister
	machineOnce sync.Once
	machineID   string
}

// New creates a client with the given configuration and default dependencies.
func New(config Config) (LicenseClient, error) {
	return NewClientBuilder(config.Address).WithConfig(config).Build()
}

func newLicenseClient(config Config, deps dependencies) (*licenseClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &licenseClient{
		config:     config,
		dialer:     deps.dialer,
		prober:     deps.prober,
		limiter:    newRequestLimiter(config.MinRequestInterval),
		clock:      deps.clock,
		rand:       deps.rand,
		logger:     deps.logger.WithComponent("license-client"),
		interfaces: deps.interfaces,
	}
	if id := strings.TrimSpace(config.MachineID); id != "" {
		c.machineOnce.Do(func() { c.machineID = id })
	}
	return c, nil
}

// Config returns the client configuration.
func (c *licenseClient) Config() Config {
	return c.config
}

// MachineID returns the machine id, discovering it on first use.
func (c *licenseClient) MachineID() string {
	c.machineOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), machineIDTimeout)
		defer cancel()
		c.machineID = discoverMachineID(ctx, c.interfaces)
		if c.machineID == FallbackMachineID {
			c.logger.Warnw("no usable network interface, using fallback machine id")
		}
	})
	return c.machineID
}

// GetVersion returns the version string the server reports.
func (c *licenseClient) GetVersion(ctx context.Context) (string, error) {
	return c.execute(ctx, opGetVersion, protocol.GetVersion(), 1)
}

// CheckVersion reports whether the server version equals expected.
func (c *licenseClient) CheckVersion(ctx context.Context, expected string) (bool, error) {
	version, err := c.GetVersion(ctx)
	if err != nil {
		return false, err
	}
	return version == expected, nil
}

// GetUserName returns the user the license key is issued to.
func (c *licenseClient) GetUserName(ctx context.Context, licenseKey string) (string, error) {
	cmd, err := c.keyedCommand(opGetUserName, licenseKey, protocol.GetUserName)
	if err != nil {
		return "", err
	}
	resp, err := c.execute(ctx, opGetUserName, cmd, 1)
	if err != nil {
		return "", err
	}
	if resp == protocol.ResponseUserNotFound {
		return "", NewClientError(opGetUserName, ErrUserNotFound, nil)
	}
	return resp, nil
}

// IsValidLicense asks the server to claim a seat for this machine.
func (c *licenseClient) IsValidLicense(ctx context.Context, licenseKey string) (bool, error) {
	cmd, err := c.keyedCommand(opValidate, licenseKey, protocol.Validate)
	if err != nil {
		return false, err
	}
	resp, err := c.execute(ctx, opValidate, cmd, c.config.RetryPolicy.MaxAttempts)
	if err != nil {
		return false, err
	}

	switch {
	case protocol.IsTrue(resp):
		return true, nil
	case protocol.IsFalse(resp):
		return false, nil
	default:
		c.logger.Warnw("unexpected validation response", "response", resp)
		return false, NewClientError(opValidate, ErrUnexpectedResponse, errors.New(resp))
	}
}

// Activate validates the license and reports a denial as ErrInvalidLicense.
func (c *licenseClient) Activate(ctx context.Context, licenseKey string) error {
	ok, err := c.IsValidLicense(ctx, licenseKey)
	if err != nil {
		return err
	}
	if !ok {
		return NewClientError(opValidate, ErrInvalidLicense, nil)
	}
	return nil
}

// ClearMacAddress releases this machine's seat on the license.
func (c *licenseClient) ClearMacAddress(ctx context.Context, licenseKey string) error {
	cmd, err := c.keyedCommand(opLogout, licenseKey, protocol.Logout)
	if err != nil {
		return err
	}
	resp, err := c.execute(ctx, opLogout, cmd, 1)
	if err != nil {
		return err
	}

	switch resp {
	case protocol.ResponseLogoutSuccess:
		return nil
	case protocol.ResponseLicenseNotFound:
		return NewClientError(opLogout, ErrLicenseNotFound, nil)
	case protocol.ResponseMacNotFound:
		return NewClientError(opLogout, ErrMachineNotFound, nil)
	case protocol.ResponseErrorLoadingStores:
		return NewClientError(opLogout, ErrServerStore, nil)
	default:
		return NewClientError(opLogout, ErrUnexpectedResponse, errors.New(resp))
	}
}

// Send issues one raw request line and returns the raw response. The line
// must decode as a known command.
func (c *licenseClient) Send(ctx context.Context, line string) (string, error) {
	if strings.TrimSpace(line) == "" {
		return "", NewClientError(opSend, ErrEmptyMessage, nil)
	}
	cmd, err := protocol.Decode(line)
	if err != nil {
		return "", NewClientError(opSend, ErrInvalidRequest, err)
	}
	return c.execute(ctx, opSend, cmd, 1)
}

func (c *licenseClient) keyedCommand(op, licenseKey string, build func(key, mac string) protocol.Command) (protocol.Command, error) {
	key := strings.TrimSpace(licenseKey)
	if key == "" {
		return protocol.Command{}, NewClientError(op, ErrEmptyLicenseKey, nil)
	}
	mac := c.MachineID()
	if mac == "" {
		return protocol.Command{}, NewClientError(op, ErrEmptyMessage, nil)
	}
	cmd := build(key, mac)
	if err := cmd.Validate(); err != nil {
		return protocol.Command{}, NewClientError(op, ErrInvalidRequest, err)
	}
	return cmd, nil
}

// execute waits for the rate limiter, then sends cmd up to maxAttempts times
// while failures are retryable. A transport failure that survives is
// classified with the connectivity probe.
func (c *licenseClient) execute(ctx context.Context, op string, cmd protocol.Command, maxAttempts int) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", NewClientError(op, nil, err)
	}

	start := c.clock.Now()
	policy := c.config.RetryPolicy
	policy.MaxAttempts = max(maxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		resp, err := c.roundTrip(ctx, cmd)
		if err == nil {
			c.logger.Debugw("request completed",
				"op", op, "attempt", attempt, "duration", c.clock.Since(start))
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return "", NewClientError(op, nil, ctx.Err())
		}
		if !policy.ShouldRetry(attempt, err) {
			break
		}

		backoff := policy.Backoff(attempt, c.rand)
		c.logger.Debugw("retrying request",
			"op", op, "attempt", attempt, "backoff", backoff, "error", err)

		select {
		case <-ctx.Done():
			return "", NewClientError(op, nil, ctx.Err())
		case <-c.clock.After(backoff):
		}
	}

	return "", c.classify(ctx, op, lastErr)
}

// classify turns a final transport failure into ErrNoConnectivity when the
// host is offline and ErrUnexpected otherwise. The cause stays reachable
// through errors.Is.
func (c *licenseClient) classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, ErrResponseTooLarge) || errors.Is(err, ErrInvalidRequest) {
		return NewClientError(op, ErrUnexpected, err)
	}
	if !c.prober.Online(ctx) {
		c.logger.Warnw("license server unreachable and host offline", "op", op, "error", err)
		return NewClientError(op, ErrNoConnectivity, err)
	}
	c.logger.Errorw("license server unreachable", "op", op, "address", c.config.Address, "error", err)
	return NewClientError(op, ErrUnexpected, err)
}
