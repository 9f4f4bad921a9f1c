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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/contiv/flowrule/plugins/flowctl/cmdimpl"
	"github.com/contiv/flowrule/plugins/flowctl/remote"
)

type options struct {
	configFile string
	endpoint   string
	output     string
}

// NewRootCmd builds the flowctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:          "flowctl",
		Short:        "Inspect flow rules installed by the flow rule agent",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "client config file")
	rootCmd.PersistentFlags().StringVarP(&opts.endpoint, "endpoint", "e", "", "agent REST endpoint (host:port)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", cmdimpl.FormatTable, "output format: table, yaml or json")

	var state string
	cmdDevice := &cobra.Command{
		Use:   "device DEVICE-ID",
		Short: "Display flow entries of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			return cmdimpl.PrintDeviceEntries(cmd.OutOrStdout(), client, args[0], state, opts.output)
		},
	}
	cmdDevice.Flags().StringVarP(&state, "state", "s", "", "display only entries in this state")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "devices",
			Short: "Display flow table summary of all devices",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := opts.client()
				if err != nil {
					return err
				}
				return cmdimpl.PrintDevices(cmd.OutOrStdout(), client, opts.output)
			},
		},
		cmdDevice,
		&cobra.Command{
			Use:   "app APP-ID",
			Short: "Display flow entries of an application",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := opts.client()
				if err != nil {
					return err
				}
				return cmdimpl.PrintAppEntries(cmd.OutOrStdout(), client, args[0], opts.output)
			},
		},
		&cobra.Command{
			Use:   "purge DEVICE-ID",
			Short: "Remove all flow entries of a device from the agent",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := opts.client()
				if err != nil {
					return err
				}
				return cmdimpl.PurgeDevice(cmd.OutOrStdout(), client, args[0], opts.output)
			},
		},
	)
	return rootCmd
}

func (o *options) client() (*remote.HTTPClient, error) {
	client, err := remote.CreateHTTPClient(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.endpoint != "" {
		client.Config.Endpoint = o.endpoint
	}
	return client, nil
}

// Execute will execute the command flowctl
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
