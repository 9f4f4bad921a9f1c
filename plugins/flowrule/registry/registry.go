// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package registry

import (
	"sort"
	"sync"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/contiv/flowrule/plugins/flowrule/api"
)

// Registry keeps track of southbound providers and of their bindings
// to devices, implementing api.ProviderRegistry.
// Devices without a binding (or bound to a provider that was unregistered
// since) are served by the fallback provider.
type Registry struct {
	log      logging.Logger
	fallback api.SelfHealingProvider

	mu        sync.RWMutex
	providers map[api.ProviderID]api.Provider
	bindings  map[api.DeviceID]api.ProviderID
}

// NewRegistry is a constructor for Registry.
func NewRegistry(fallback api.SelfHealingProvider, log logging.Logger) *Registry {
	return &Registry{
		log:       log,
		fallback:  fallback,
		providers: make(map[api.ProviderID]api.Provider),
		bindings:  make(map[api.DeviceID]api.ProviderID),
	}
}

// Register adds a specialized provider.
func (r *Registry) Register(provider api.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if provider.ID() == r.fallback.ID() {
		return errors.Errorf("provider ID %s is reserved for the fallback provider", provider.ID())
	}
	if _, registered := r.providers[provider.ID()]; registered {
		return errors.Errorf("provider %s is already registered", provider.ID())
	}
	r.providers[provider.ID()] = provider
	r.log.Infof("Registered flow rule provider %s with capabilities %s",
		provider.ID(), provider.Capabilities())
	return nil
}

// Unregister removes a specialized provider. Devices bound to it fall back
// to the fallback provider.
func (r *Registry) Unregister(id api.ProviderID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, id)
	for device, bound := range r.bindings {
		if bound == id {
			delete(r.bindings, device)
		}
	}
	r.log.Infof("Unregistered flow rule provider %s", id)
}

// Bind selects the provider that programs the device.
func (r *Registry) Bind(device api.DeviceID, id api.ProviderID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, registered := r.providers[id]; !registered {
		return errors.Errorf("provider %s is not registered", id)
	}
	r.bindings[device] = id
	r.log.Debugf("Device %s bound to provider %s", device, id)
	return nil
}

// Unbind removes the device binding, the device is then served
// by the fallback provider.
func (r *Registry) Unbind(device api.DeviceID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, device)
}

// ProviderFor returns the provider bound to the device or the fallback.
func (r *Registry) ProviderFor(device api.DeviceID) api.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, bound := r.bindings[device]; bound {
		if provider, registered := r.providers[id]; registered {
			return provider
		}
	}
	return r.fallback
}

// Fallback returns the fallback provider.
func (r *Registry) Fallback() api.SelfHealingProvider {
	return r.fallback
}

// IsFallback returns true if the given provider is the fallback.
func (r *Registry) IsFallback(provider api.Provider) bool {
	return provider != nil && provider.ID() == r.fallback.ID()
}

// GetProviders returns IDs of all registered specialized providers.
func (r *Registry) GetProviders() []api.ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []api.ProviderID
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
