package client

import (
	"net"
	"time"

	"github.com/jathurchan/seatlicense/clock"
	"github.com/jathurchan/seatlicense/logger"
	psnet "github.com/shirou/gopsutil/v4/net"
)

type dependencies struct {
	dialer     Dialer
	prober     Prober
	clock      clock.Clock
	rand       clock.Rand
	logger     logger.Logger
	interfaces interfaceLister
}

// ClientBuilder provides a fluent API for constructing license clients.
//
// Example:
//
//	c, err := client.NewClientBuilder("10.0.0.5:4053").
//	    WithTimeouts(time.Second, 2*time.Second).
//	    Build()
type ClientBuilder struct {
	config Config
	deps   dependencies
}

// NewClientBuilder returns a builder for a client of the server at address.
// An empty address keeps DefaultAddress.
func NewClientBuilder(address string) *ClientBuilder {
	b := &ClientBuilder{config: DefaultConfig()}
	if address != "" {
		b.config.Address = address
	}
	return b
}

// WithConfig replaces the whole configuration. An empty Address keeps the current one.
func (b *ClientBuilder) WithConfig(config Config) *ClientBuilder {
	address := b.config.Address
	b.config = config
	if b.config.Address == "" {
		b.config.Address = address
	}
	return b
}

// WithTimeouts sets the connect and read/write timeouts. Non-positive values keep the current ones.
func (b *ClientBuilder) WithTimeouts(connect, io time.Duration) *ClientBuilder {
	if connect > 0 {
		b.config.ConnectTimeout = connect
	}
	if io > 0 {
		b.config.IOTimeout = io
	}
	return b
}

// WithRetryPolicy sets a custom retry policy.
func (b *ClientBuilder) WithRetryPolicy(policy RetryPolicy) *ClientBuilder {
	b.config.RetryPolicy = policy
	return b
}

// WithMinRequestInterval sets the minimum spacing between requests. Zero disables it.
func (b *ClientBuilder) WithMinRequestInterval(d time.Duration) *ClientBuilder {
	if d >= 0 {
		b.config.MinRequestInterval = d
	}
	return b
}

// WithMachineID fixes the machine id instead of discovering it.
func (b *ClientBuilder) WithMachineID(id string) *ClientBuilder {
	b.config.MachineID = id
	return b
}

// WithDialer sets the dialer used to reach the server.
func (b *ClientBuilder) WithDialer(d Dialer) *ClientBuilder {
	if d != nil {
		b.deps.dialer = d
	}
	return b
}

// WithProber sets the connectivity prober.
func (b *ClientBuilder) WithProber(p Prober) *ClientBuilder {
	if p != nil {
		b.deps.prober = p
	}
	return b
}

// WithLogger sets the logger.
func (b *ClientBuilder) WithLogger(l logger.Logger) *ClientBuilder {
	if l != nil {
		b.deps.logger = l
	}
	return b
}

// WithClock sets the clock used for retry backoff.
func (b *ClientBuilder) WithClock(c clock.Clock) *ClientBuilder {
	if c != nil {
		b.deps.clock = c
	}
	return b
}

// WithRand sets the source of backoff jitter.
func (b *ClientBuilder) WithRand(r clock.Rand) *ClientBuilder {
	if r != nil {
		b.deps.rand = r
	}
	return b
}

// Build validates the configuration and returns the client.
func (b *ClientBuilder) Build() (LicenseClient, error) {
	deps := b.deps
	if deps.dialer == nil {
		deps.dialer = &net.Dialer{}
	}
	if deps.prober == nil {
		if b.config.ProbeAddress == "" {
			deps.prober = staticProber(true)
		} else {
			deps.prober = NewDNSProber(b.config.ProbeAddress, b.config.ProbeTimeout)
		}
	}
	if deps.clock == nil {
		deps.clock = clock.NewStandardClock()
	}
	if deps.rand == nil {
		deps.rand = clock.NewStandardRand()
	}
	if deps.logger == nil {
		deps.logger = logger.NewNoOpLogger()
	}
	if deps.interfaces == nil {
		deps.interfaces = psnet.InterfacesWithContext
	}
	c, err := newLicenseClient(b.config, deps)
	if err != nil {
		return nil, err
	}
	return c, nil
}
