// Package discovery locates LXI instruments on the local network via
// mDNS / DNS-SD. LXI-conformant scopes advertise both a device service
// and, when the raw SCPI socket is enabled, a scpi-raw service.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// services browsed in order; results are merged and deduplicated.
var services = []string{"_scpi-raw._tcp", "_lxi._tcp"}

// Host represents a discovered instrument endpoint.
type Host struct {
	Instance  string // advertised name, e.g. "LeCroy WaveRunner 8104"
	Hostname  string // DNS hostname, e.g. "lcry0001.local."
	Service   string // service type the host was found under
	Addresses []net.IP
	Port      int
	TXT       []string
}

// Discover performs a blocking mDNS browse for LXI instrument services and
// returns cleaned, deduplicated host entries.
func Discover(timeoutSeconds int) ([]Host, error) {
	resultMap := make(map[string]Host)

	for _, service := range services {
		hosts, err := browse(service, timeoutSeconds)
		if err != nil {
			return nil, fmt.Errorf("browse %s: %w", service, err)
		}
		for _, h := range hosts {
			key := fmt.Sprintf("%s|%d", h.Hostname, h.Port)
			if _, seen := resultMap[key]; !seen {
				resultMap[key] = h
			}
		}
	}

	out := make([]Host, 0, len(resultMap))
	for _, h := range resultMap {
		out = append(out, h)
	}
	return out, nil
}

func browse(service string, timeoutSeconds int) ([]Host, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("resolver error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var hosts []Host

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case e, ok := <-entries:
				if !ok {
					return
				}
				if e == nil {
					continue
				}
				addrs := make([]net.IP, 0, len(e.AddrIPv4)+len(e.AddrIPv6))
				addrs = append(addrs, e.AddrIPv4...)
				addrs = append(addrs, e.AddrIPv6...)

				hosts = append(hosts, Host{
					Instance:  cleanInstance(e.Instance),
					Hostname:  e.HostName,
					Service:   service,
					Addresses: addrs,
					Port:      e.Port,
					TXT:       append([]string{}, e.Text...),
				})
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, service, "local.", entries); err != nil {
		return nil, err
	}

	<-done
	return hosts, nil
}

// cleanInstance removes zeroconf escape sequences: "\ " => " ".
func cleanInstance(s string) string {
	return strings.ReplaceAll(s, `\ `, " ")
}
