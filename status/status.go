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

package status

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-resty/resty/v2"
	"github.com/ryanuber/columnize"
)

// DefaultTimeout bounds the whole health request round trip.
const DefaultTimeout = 10 * time.Second

// healthReport mirrors the api service /health response.
type healthReport struct {
	Status     string    `json:"status"`
	Recognizer string    `json:"recognizer"`
	Storage    string    `json:"storage"`
	StartedAt  time.Time `json:"started_at"`
}

// NormalizeURL fills in the scheme when the configured url omits it, so that
// "localhost:8000" works as well as "http://localhost:8000".
func NormalizeURL(url string) string {
	if !strings.Contains(url, "://") {
		return "http://" + url
	}
	return url
}

// NewClient returns a client ready to query the api service at the given url.
func NewClient(url string, timeout time.Duration) *resty.Client {
	client := resty.New()
	client.SetBaseURL(NormalizeURL(url))
	client.SetTimeout(timeout)
	return client
}

// Run requests /health from the api service and prints a short report. It
// returns an error when the service is unreachable or unhealthy, which makes
// the exit code usable as a container health check.
func Run(client *resty.Client) error {
	health := healthReport{}

	resp, err := client.R().
		SetResult(&health).
		Get("/health")
	if err != nil {
		return fmt.Errorf("unable to reach the api service at [%s]: %w", client.BaseURL, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf(
			"the api service at [%s] answered [%d] to the health request",
			client.BaseURL,
			resp.StatusCode(),
		)
	}
	if health.Status != "ok" {
		return fmt.Errorf("the api service at [%s] reports status %q", client.BaseURL, health.Status)
	}

	started := "N/A"
	if !health.StartedAt.IsZero() {
		started = humanize.Time(health.StartedAt)
	}

	var output []string
	output = append(output, strings.Join([]string{"URL", "STATUS", "RECOGNIZER", "STORAGE", "STARTED"}, "|"))
	output = append(output, strings.Join([]string{client.BaseURL, health.Status, health.Recognizer, health.Storage, started}, "|"))
	fmt.Println(columnize.SimpleFormat(output))

	return nil
}
