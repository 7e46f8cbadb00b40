package client

import (
	"context"
	"time"

	"github.com/miekg/dns"
)

// Prober reports whether the host has general internet connectivity.
type Prober interface {
	Online(ctx context.Context) bool
}

// DNSProber considers the host online when a DNS server answers a query,
// whatever the answer's rcode.
type DNSProber struct {
	server  string
	name    string
	timeout time.Duration
	client  *dns.Client
}

// NewDNSProber returns a prober querying server (host:port) over UDP.
func NewDNSProber(server string, timeout time.Duration) *DNSProber {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &DNSProber{
		server:  server,
		name:    dns.Fqdn("google.com"),
		timeout: timeout,
		client:  &dns.Client{Net: "udp", Timeout: timeout},
	}
}

// Online sends one A query and reports whether any reply arrived.
func (p *DNSProber) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := new(dns.Msg)
	msg.SetQuestion(p.name, dns.TypeA)
	msg.RecursionDesired = true

	reply, _, err := p.client.ExchangeContext(ctx, msg, p.server)
	return err == nil && reply != nil
}

type staticProber bool

func (s staticProber) Online(context.Context) bool { return bool(s) }
