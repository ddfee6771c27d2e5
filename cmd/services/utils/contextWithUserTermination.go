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

package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "cmd")

// ContextWithUserTermination returns a context canceled on the first SIGINT or
// SIGTERM, leaving time for a graceful shutdown. A second signal exits right
// away.
func ContextWithUserTermination(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	// using a buffered channel cf. https://link.medium.com/M8dPZv9Wuob
	interruptChan := make(chan os.Signal, 2)
	signal.Notify(interruptChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-interruptChan
		log.Debug("termination signal received")
		cancel()
		<-interruptChan
		log.Warn("second termination signal received, exiting now")
		signal.Stop(interruptChan)
		os.Exit(1)
	}()

	return ctx
}
