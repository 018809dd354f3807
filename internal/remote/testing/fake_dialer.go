// Package testing provides test doubles for the remote package.
package testing

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/rileyhilliard/rollout/pkg/sshutil"
	sstesting "github.com/rileyhilliard/rollout/pkg/sshutil/testing"
)

// FakeDialer hands out mock SSH clients by host name. Every login to the
// same host gets the same mock, so they share one virtual filesystem.
type FakeDialer struct {
	mu      sync.Mutex
	clients map[string]*sstesting.MockClient
	failing map[string]error

	// Dialed records every target passed to Dial, in order.
	Dialed []string
}

// NewFakeDialer creates a dialer with no hosts.
func NewFakeDialer() *FakeDialer {
	return &FakeDialer{
		clients: make(map[string]*sstesting.MockClient),
		failing: make(map[string]error),
	}
}

// AddHost registers a reachable host and returns its mock client.
func (d *FakeDialer) AddHost(name string) *sstesting.MockClient {
	d.mu.Lock()
	defer d.mu.Unlock()

	client := sstesting.NewMockClient(name)
	d.clients[name] = client
	return client
}

// AddFailingHost registers a host whose connections fail with err.
// A nil err gets a generic SSH error.
func (d *FakeDialer) AddFailingHost(name string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err == nil {
		err = errors.New(errors.ErrSSH,
			fmt.Sprintf("Can't connect to %s", name),
			"Check that the host is up and reachable")
	}
	d.failing[name] = err
}

// Client returns the mock registered for name, or nil.
func (d *FakeDialer) Client(name string) *sstesting.MockClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clients[name]
}

// Dial implements remote.Dialer. The target may carry a "user@" prefix.
func (d *FakeDialer) Dial(target string) (sshutil.SSHClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Dialed = append(d.Dialed, target)

	host := target
	if i := strings.LastIndex(target, "@"); i >= 0 {
		host = target[i+1:]
	}

	if err, ok := d.failing[host]; ok {
		return nil, err
	}
	if client, ok := d.clients[host]; ok {
		return client, nil
	}
	return nil, errors.New(errors.ErrSSH,
		fmt.Sprintf("Unknown host %s", host),
		"Register it with AddHost")
}

// DialCount returns how many times Dial was called.
func (d *FakeDialer) DialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Dialed)
}

// Hosts returns the registered reachable hosts, sorted.
func (d *FakeDialer) Hosts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	names := make([]string, 0, len(d.clients))
	for name := range d.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
