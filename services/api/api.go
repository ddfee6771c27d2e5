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

// Package api runs the slip parsing http service.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/slipscan/slipscan/services/api/backend"
	"github.com/slipscan/slipscan/services/api/backend/memory"
	"github.com/slipscan/slipscan/services/api/backend/sqlite"
	"github.com/slipscan/slipscan/services/api/httpserver"
	"github.com/slipscan/slipscan/services/ocr"
	"github.com/slipscan/slipscan/services/slip"
	"github.com/slipscan/slipscan/services/utils"
)

var log = logrus.WithField("component", "api")

// StorageType selects where parsed slips are recorded.
type StorageType int

const (
	Memory StorageType = iota
	SQLite
)

type Options struct {
	Port uint
	// CustomListener takes precedence over Port when set, mostly useful for
	// tests needing an ephemeral port.
	CustomListener net.Listener
	// CustomEngine takes precedence over the Google Cloud Vision engine when
	// set.
	CustomEngine    ocr.Engine
	Storage         StorageType
	DatabasePath    string
	CredentialsFile string
	CacheSize       int
	TimeZone        string
	MaxUploadSize   int64
	MemoryMaxSlips  int
}

var DefaultOptions = Options{
	Port:            8000,
	CustomListener:  nil,
	CustomEngine:    nil,
	Storage:         Memory,
	DatabasePath:    ".slipscan/slips.db",
	CredentialsFile: "",
	CacheSize:       128,
	TimeZone:        slip.DefaultTimeZone,
	MaxUploadSize:   10 * 1024 * 1024,
	MemoryMaxSlips:  memory.DefaultMaxSlips,
}

// createEngine builds the text recognition engine. An unreachable Google
// Cloud Vision backend is not fatal, the service runs degraded with image
// parsing unavailable.
func createEngine(ctx context.Context, options Options) ocr.Engine {
	if options.CustomEngine != nil {
		return options.CustomEngine
	}

	visionEngine, err := ocr.NewVisionEngine(ctx, options.CredentialsFile)
	if err != nil {
		log.WithField("error", err).Warning(
			"unable to initialize the text recognizer, image parsing will be unavailable",
		)
		return nil
	}

	engine, err := ocr.NewCachedEngine(visionEngine, options.CacheSize)
	if err != nil {
		log.WithField("error", err).Warning("unable to initialize the recognition cache")
		return visionEngine
	}
	return engine
}

func createStorage(options Options) (backend.Backend, string, error) {
	if options.Storage == SQLite {
		log.WithField("path", options.DatabasePath).Info("using a sqlite storage backend")
		if dir := filepath.Dir(options.DatabasePath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, "", fmt.Errorf("unable to create the database directory [%s]: %v", dir, err)
			}
		}
		storage, err := sqlite.CreateSQLiteBackend(options.DatabasePath)
		if err != nil {
			return nil, "", err
		}
		return storage, "sqlite", nil
	}

	log.Info("using an in-memory storage, parsed slips won't survive a restart")
	storage, err := memory.CreateMemoryBackend(options.MemoryMaxSlips)
	if err != nil {
		return nil, "", err
	}
	return storage, "memory", nil
}

func Run(ctx context.Context, options Options) error {
	location, err := time.LoadLocation(options.TimeZone)
	if err != nil {
		return fmt.Errorf("unable to load time zone [%s]: %v", options.TimeZone, err)
	}

	engine := createEngine(ctx, options)

	storage, storageName, err := createStorage(options)
	if err != nil {
		return err
	}

	server, err := httpserver.New(
		options.Port,
		engine,
		slip.NewParser(location),
		storage,
		storageName,
		options.MaxUploadSize,
	)
	if err != nil {
		return err
	}

	listener := options.CustomListener
	if listener == nil {
		listener, err = net.Listen("tcp", fmt.Sprintf(":%d", options.Port))
		if err != nil {
			return fmt.Errorf("unable to listen to tcp port %d: %v", options.Port, err)
		}
	}
	port, err := utils.ExtractPort(listener.Addr().String())
	if err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)

	// Start the http server
	group.Go(func() error {
		log.WithFields(logrus.Fields{
			"port":      port,
			"time_zone": options.TimeZone,
		}).Info("server listening")
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("unexpected error while serving http routes: %v", err)
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Info("Gracefully stopping")

		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		log.Debug("Stopping the http server")
		if err := server.Shutdown(stopCtx); err != nil {
			log.WithField("error", err).Warning("Error while stopping the http server")
		}

		if engine != nil {
			log.Debug("Closing the text recognizer")
			if err := engine.Close(); err != nil {
				log.WithField("error", err).Warning("Error while closing the text recognizer")
			}
		}

		log.Debug("Destroying the storage backend")
		storage.Destroy()

		return ctx.Err()
	})

	return group.Wait()
}

// DumpOpenAPISpec writes the OpenAPI specification of the service to
// outputFile without starting it.
func DumpOpenAPISpec(options Options, outputFile string) error {
	location, err := time.LoadLocation(options.TimeZone)
	if err != nil {
		return fmt.Errorf("unable to load time zone [%s]: %v", options.TimeZone, err)
	}

	storage, err := memory.CreateMemoryBackend(1)
	if err != nil {
		return err
	}
	defer storage.Destroy()

	server, err := httpserver.New(
		options.Port,
		options.CustomEngine,
		slip.NewParser(location),
		storage,
		"memory",
		options.MaxUploadSize,
	)
	if err != nil {
		return err
	}
	return server.GenerateOpenAPISpec(outputFile)
}
