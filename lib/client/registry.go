// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// DefaultInstance is the name of the unnamed instance.
const DefaultInstance = "$default_instance"

// NormalizeInstanceName maps "" to DefaultInstance and lowercases
// everything else.
func NormalizeInstanceName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultInstance
	}
	return strings.ToLower(name)
}

// DatabaseFile returns the database file name of instance.
func DatabaseFile(instance string) string {
	instance = NormalizeInstanceName(instance)
	if instance == DefaultInstance {
		return "eventq.db"
	}
	var builder strings.Builder
	for _, r := range instance {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteByte('_')
		}
	}
	return "eventq_" + builder.String() + ".db"
}

// Registry owns named client instances. Instances share the base
// Config and Options and differ in their database file.
type Registry struct {
	dir     string
	config  Config
	options Options

	mu      sync.Mutex
	clients map[string]*Client
}

// NewRegistry returns a registry storing databases under dir.
// config.DatabasePath and options.Store are ignored.
func NewRegistry(dir string, config Config, options Options) *Registry {
	options.Store = nil
	return &Registry{
		dir:     dir,
		config:  config,
		options: options,
		clients: make(map[string]*Client),
	}
}

// Open returns the client named name, opening it on first use.
func (r *Registry) Open(ctx context.Context, name string) (*Client, error) {
	name = NormalizeInstanceName(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[name]; ok {
		return client, nil
	}

	config := r.config
	config.DatabasePath = filepath.Join(r.dir, DatabaseFile(name))
	options := r.options
	if options.Logger != nil {
		options.Logger = options.Logger.With("instance", name)
	}
	client, err := Open(ctx, config, options)
	if err != nil {
		return nil, fmt.Errorf("client: opening instance %s: %w", name, err)
	}
	r.clients[name] = client
	return client, nil
}

// Get returns the open client named name.
func (r *Registry) Get(name string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	client, ok := r.clients[NormalizeInstanceName(name)]
	return client, ok
}

// Names returns the open instance names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// Close closes and forgets the client named name. Closing an unknown
// name is a no-op.
func (r *Registry) Close(name string) error {
	name = NormalizeInstanceName(name)
	r.mu.Lock()
	client, ok := r.clients[name]
	delete(r.clients, name)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return client.Close()
}

// CloseAll closes every client.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*Client)
	r.mu.Unlock()

	var errs []error
	for name, client := range clients {
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing instance %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
