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

package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEngine memoizes successful detections keyed by the image hash, so
// uploading the same slip twice does not trigger a second recognition round
// trip.
type CachedEngine struct {
	engine Engine
	cache  *lru.Cache[string, string]
}

// NewCachedEngine wraps engine with an LRU of the given size. A size <= 0
// disables caching and returns engine unchanged.
func NewCachedEngine(engine Engine, size int) (Engine, error) {
	if size <= 0 {
		return engine, nil
	}

	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}

	return &CachedEngine{
		engine: engine,
		cache:  cache,
	}, nil
}

func (engine *CachedEngine) DetectText(ctx context.Context, image []byte) (string, error) {
	key := HashImage(image)
	if text, ok := engine.cache.Get(key); ok {
		return text, nil
	}

	text, err := engine.engine.DetectText(ctx, image)
	if err != nil {
		return "", err
	}

	engine.cache.Add(key, text)
	return text, nil
}

func (engine *CachedEngine) Close() error {
	return engine.engine.Close()
}

// HashImage returns the hex encoded SHA-256 digest of the image bytes.
func HashImage(image []byte) string {
	digest := sha256.Sum256(image)
	return hex.EncodeToString(digest[:])
}
