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

package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
)

func TestDevicesCommand(t *testing.T) {
	RegisterTestingT(t)
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requested = append(requested, req.Method+" "+req.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"device":"of:1","provider":"memory","entries":3,"role":"MASTER"}]`))
	}))
	defer server.Close()

	out := &bytes.Buffer{}
	rootCmd := NewRootCmd()
	rootCmd.SetOutput(out)
	rootCmd.SetArgs([]string{"devices", "--endpoint", strings.TrimPrefix(server.URL, "http://")})
	Expect(rootCmd.Execute()).To(Succeed())
	Expect(requested).To(Equal([]string{"GET /flowrules/devices"}))
	Expect(out.String()).To(ContainSubstring("memory"))
}

func TestCommandArgs(t *testing.T) {
	RegisterTestingT(t)
	rootCmd := NewRootCmd()
	rootCmd.SetOutput(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"device"})
	Expect(rootCmd.Execute()).NotTo(Succeed())
}
