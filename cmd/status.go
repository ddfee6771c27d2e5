// Copyright 2025 AI Redefined Inc. <dev+slipscan@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/slipscan/slipscan/services/api"
	"github.com/slipscan/slipscan/status"
)

const (
	statusURLKey     = "url"
	statusURLEnv     = "SLIPSCAN_API_URL"
	statusTimeoutKey = "timeout"
)

var statusViper = viper.New()

var statusCmd = &cobra.Command{
	Use:          "status",
	Short:        "Request the status of a running slipscan api service",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := status.NewClient(
			statusViper.GetString(statusURLKey),
			statusViper.GetDuration(statusTimeoutKey),
		)
		return status.Run(client)
	},
}

func init() {
	statusViper.SetDefault(statusURLKey, fmt.Sprintf("http://localhost:%d", api.DefaultOptions.Port))
	_ = statusViper.BindEnv(statusURLKey, statusURLEnv)
	statusCmd.Flags().String(
		statusURLKey,
		statusViper.GetString(statusURLKey),
		"Base url of the api service to probe",
	)

	statusViper.SetDefault(statusTimeoutKey, status.DefaultTimeout)
	statusCmd.Flags().Duration(
		statusTimeoutKey,
		statusViper.GetDuration(statusTimeoutKey),
		"Time budget for the whole health request",
	)

	// Don't sort alphabetically, keep insertion order
	statusCmd.Flags().SortFlags = false

	// Bind "cobra" flags defined in the CLI with viper
	_ = statusViper.BindPFlags(statusCmd.Flags())
}
