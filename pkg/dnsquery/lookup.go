// Package dnsquery asks a single nameserver for the current answer of a record.
package dnsquery

import (
	"context"
	"net"
	"sort"
	"time"

	"github.com/miekg/dns"
	"github.com/pkg/errors"
)

const defaultTimeout = 5 * time.Second

var ErrUnsupportedType = errors.New("unsupported record type")

// Lookup returns the A or AAAA answers for name from server (host:port), sorted.
// An NXDOMAIN or empty answer is not an error and yields no addresses.
func Lookup(ctx context.Context, server, name, recordType string) ([]string, error) {
	var qtype uint16
	switch recordType {
	case "A":
		qtype = dns.TypeA
	case "AAAA":
		qtype = dns.TypeAAAA
	default:
		return nil, errors.Wrap(ErrUnsupportedType, recordType)
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	client := &dns.Client{Timeout: defaultTimeout}
	resp, _, err := client.ExchangeContext(ctx, msg, server)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s for %s %s", server, name, recordType)
	}
	switch resp.Rcode {
	case dns.RcodeSuccess, dns.RcodeNameError:
	default:
		return nil, errors.Errorf("query %s for %s %s: %s", server, name, recordType, dns.RcodeToString[resp.Rcode])
	}

	var answers []string
	for _, rr := range resp.Answer {
		switch v := rr.(type) {
		case *dns.A:
			if qtype == dns.TypeA {
				answers = append(answers, v.A.String())
			}
		case *dns.AAAA:
			if qtype == dns.TypeAAAA {
				answers = append(answers, v.AAAA.String())
			}
		}
	}
	sort.Strings(answers)
	return answers, nil
}
