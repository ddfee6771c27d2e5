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

package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/slipscan/slipscan/cmd/services/utils"
	"github.com/slipscan/slipscan/services/api"
	"github.com/slipscan/slipscan/version"
)

// apiViper represents the configuration of the api command
var apiViper = viper.New()

const apiPortKey = "port"
const apiPortEnv = "SLIPSCAN_API_PORT"
const apiCredentialsFileKey = "credentials_file"
const apiCredentialsFileEnv = "SLIPSCAN_API_CREDENTIALS_FILE"
const apiDatabaseKey = "database"
const apiDatabaseEnv = "SLIPSCAN_API_DATABASE"
const apiOcrCacheSizeKey = "ocr_cache_size"
const apiOcrCacheSizeEnv = "SLIPSCAN_API_OCR_CACHE_SIZE"
const apiTimeZoneKey = "time_zone"
const apiTimeZoneEnv = "SLIPSCAN_API_TIME_ZONE"
const apiMaxUploadSizeKey = "max_upload_size"
const apiMaxUploadSizeEnv = "SLIPSCAN_API_MAX_UPLOAD_SIZE"
const apiMemoryMaxSlipsKey = "memory_max_slips"
const apiMemoryMaxSlipsEnv = "SLIPSCAN_API_MEMORY_MAX_SLIPS"
const apiOpenAPIFileKey = "openapi_file"

// apiCmd represents the api service command
var apiCmd = &cobra.Command{
	Use:     "api",
	Aliases: []string{"server"},
	Short:   "Run the slip parsing api",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _args []string) error {
		err := configureLog(servicesViper)
		if err != nil {
			return err
		}

		options := api.DefaultOptions
		options.Port = apiViper.GetUint(apiPortKey)
		options.CredentialsFile = apiViper.GetString(apiCredentialsFileKey)
		options.CacheSize = apiViper.GetInt(apiOcrCacheSizeKey)
		options.TimeZone = apiViper.GetString(apiTimeZoneKey)
		options.MaxUploadSize = apiViper.GetInt64(apiMaxUploadSizeKey)
		options.MemoryMaxSlips = apiViper.GetInt(apiMemoryMaxSlipsKey)
		if apiViper.IsSet(apiDatabaseKey) {
			options.Storage = api.SQLite
			options.DatabasePath = apiViper.GetString(apiDatabaseKey)
		}

		if outputFile := apiViper.GetString(apiOpenAPIFileKey); outputFile != "" {
			return api.DumpOpenAPISpec(options, outputFile)
		}

		log.WithFields(logrus.Fields{
			"version": version.Version,
			"hash":    version.Hash,
		}).Info("starting the api service")

		ctx := utils.ContextWithUserTermination(context.Background())

		err = api.Run(ctx, options)
		if err != nil {
			if err == context.Canceled {
				log.Info("interrupted by user")
				return nil
			}
			return err
		}
		return nil
	},
}

func init() {
	apiViper.SetDefault(apiPortKey, api.DefaultOptions.Port)
	// The hosting platform assigns the listening port through PORT
	_ = apiViper.BindEnv(apiPortKey, apiPortEnv, "PORT")
	apiCmd.Flags().Uint(
		apiPortKey,
		apiViper.GetUint(apiPortKey),
		"The http port to listen on",
	)

	apiViper.SetDefault(apiCredentialsFileKey, api.DefaultOptions.CredentialsFile)
	_ = apiViper.BindEnv(apiCredentialsFileKey, apiCredentialsFileEnv, "GOOGLE_APPLICATION_CREDENTIALS")
	apiCmd.Flags().String(
		apiCredentialsFileKey,
		apiViper.GetString(apiCredentialsFileKey),
		"Path to the Google Cloud service account key file used by the text recognizer",
	)

	_ = apiViper.BindEnv(apiDatabaseKey, apiDatabaseEnv)
	apiCmd.Flags().String(
		apiDatabaseKey,
		apiViper.GetString(apiDatabaseKey),
		"Path to a sqlite database storing parsed slips, defaults to an in-memory storage",
	)

	apiViper.SetDefault(apiOcrCacheSizeKey, api.DefaultOptions.CacheSize)
	_ = apiViper.BindEnv(apiOcrCacheSizeKey, apiOcrCacheSizeEnv)
	apiCmd.Flags().Int(
		apiOcrCacheSizeKey,
		apiViper.GetInt(apiOcrCacheSizeKey),
		"Number of text recognition results kept in the deduplication cache, 0 disables it",
	)

	apiViper.SetDefault(apiTimeZoneKey, api.DefaultOptions.TimeZone)
	_ = apiViper.BindEnv(apiTimeZoneKey, apiTimeZoneEnv)
	apiCmd.Flags().String(
		apiTimeZoneKey,
		apiViper.GetString(apiTimeZoneKey),
		"Time zone used to anchor slip timestamps that only carry a time of day",
	)

	apiViper.SetDefault(apiMaxUploadSizeKey, api.DefaultOptions.MaxUploadSize)
	_ = apiViper.BindEnv(apiMaxUploadSizeKey, apiMaxUploadSizeEnv)
	apiCmd.Flags().Int64(
		apiMaxUploadSizeKey,
		apiViper.GetInt64(apiMaxUploadSizeKey),
		"Largest accepted slip image upload in bytes",
	)

	apiViper.SetDefault(apiMemoryMaxSlipsKey, api.DefaultOptions.MemoryMaxSlips)
	_ = apiViper.BindEnv(apiMemoryMaxSlipsKey, apiMemoryMaxSlipsEnv)
	apiCmd.Flags().Int(
		apiMemoryMaxSlipsKey,
		apiViper.GetInt(apiMemoryMaxSlipsKey),
		"Number of slips the in-memory storage keeps before evicting the oldest",
	)

	apiCmd.Flags().String(
		apiOpenAPIFileKey,
		"",
		"Generate the service openapi specification to this file and exit",
	)

	// Don't sort alphabetically, keep insertion order
	apiCmd.Flags().SortFlags = false

	// Bind "cobra" flags defined in the CLI with viper
	_ = apiViper.BindPFlags(apiCmd.Flags())
}
