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

package remote

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ligato/cn-infra/config"
)

// DefaultEndpoint is the address of the agent REST API used when none is configured.
const DefaultEndpoint = "localhost:9191"

// HTTPClient wraps http.Client with configured authorization and url base
type HTTPClient struct {
	// Config for this client
	Config *HTTPClientConfig

	http *http.Client
}

// HTTPClientConfig is configuration for http client
type HTTPClientConfig struct {
	// Endpoint is host:port of the flow rule agent
	Endpoint string `json:"endpoint"`
	// Basic authorization for client
	BasicAuth string `json:"basic-auth"`
	// If https or http should be used
	UseHTTPS bool `json:"use-https"`
	// Timeout of a single request
	Timeout time.Duration `json:"timeout"`
}

// CreateHTTPClient uses environment variable FLOWCTL_CONFIG or the given config
// file to establish connection.
func CreateHTTPClient(configFile string) (*HTTPClient, error) {
	if configFile == "" {
		configFile = os.Getenv("FLOWCTL_CONFIG")
	}

	cfg := &HTTPClientConfig{}
	if configFile != "" {
		if err := config.ParseConfigFromYamlFile(configFile, cfg); err != nil {
			return nil, err
		}
	}
	return NewHTTPClient(cfg), nil
}

// NewHTTPClient returns client for the given configuration, filling in defaults.
func NewHTTPClient(cfg *HTTPClientConfig) *HTTPClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPClient{
		Config: cfg,
		http: &http.Client{
			Transport: &http.Transport{},
			Timeout:   cfg.Timeout,
		},
	}
}

// URL returns the full url of the given path.
func (client *HTTPClient) URL(path string) string {
	scheme := "http://"
	if client.Config.UseHTTPS {
		scheme = "https://"
	}
	return scheme + client.Config.Endpoint + "/" + strings.TrimPrefix(path, "/")
}

// Get creates http get request using correct authentication.
func (client *HTTPClient) Get(path string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, client.URL(path), nil)
	if err != nil {
		return nil, err
	}
	if err := client.authorize(req); err != nil {
		return nil, err
	}
	return client.http.Do(req)
}

// Post creates http post request using correct authentication.
func (client *HTTPClient) Post(path string, body string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodPost, client.URL(path), bytes.NewBufferString(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := client.authorize(req); err != nil {
		return nil, err
	}
	return client.http.Do(req)
}

func (client *HTTPClient) authorize(req *http.Request) error {
	if len(client.Config.BasicAuth) == 0 {
		return nil
	}
	fields := strings.Split(client.Config.BasicAuth, ":")
	if len(fields) != 2 {
		return fmt.Errorf("invalid format of basic auth entry '%v' expected 'user:pass'", client.Config.BasicAuth)
	}
	req.SetBasicAuth(fields[0], fields[1])
	return nil
}
