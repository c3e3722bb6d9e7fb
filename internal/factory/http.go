package factory

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"

	"github.com/openshift-assisted/inventory-sync/internal/backend"
	"github.com/openshift-assisted/inventory-sync/internal/common"
	"github.com/openshift-assisted/inventory-sync/internal/config"
	"github.com/openshift-assisted/inventory-sync/internal/log"
)

const dnsRefreshInterval = 5 * time.Minute

// CreateHTTPClient returns a client resolving host names through a refreshed DNS cache.
func CreateHTTPClient(conf config.Backend) (*http.Client, common.CloseFunc) {
	resolver := &dnscache.Resolver{}
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(dnsRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				resolver.Refresh(true)
				log.Logger().V(3).Info("DNS cache refreshed")
			}
		}
	}()

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(address)
		if err != nil {
			return nil, err
		}

		ips, err := resolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}

		var lastErr error

		for _, ip := range ips {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}

			lastErr = err
		}

		if lastErr == nil {
			lastErr = &net.DNSError{Err: "no IP addresses found", Name: host}
		}

		return nil, lastErr
	}

	ret := &http.Client{
		Transport: transport,
		Timeout:   conf.Timeout,
	}

	shutdown := func(context.Context) error {
		close(stop)
		transport.CloseIdleConnections()

		return nil
	}

	return ret, shutdown
}

// CreateBackendClient returns the back end API client.
func CreateBackendClient(conf config.Backend) (*backend.Client, common.CloseFunc, error) {
	if conf.URL == "" {
		return nil, nil, fmt.Errorf("missing back end url")
	}

	httpClient, shutdown := CreateHTTPClient(conf)

	ret := backend.NewClient(conf.URL, conf.Creds.Token, httpClient, log.Component("backend", ""))

	return ret, shutdown, nil
}
