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

// Package ocr defines the text recognition engine used to read slip images.
package ocr

import (
	"context"
	"fmt"
)

// Engine turns an image into the text it contains.
type Engine interface {
	// DetectText runs text recognition over the raw image bytes and returns
	// the full detected text, or "" when the image holds no text.
	DetectText(ctx context.Context, image []byte) (string, error)
	Close() error
}

// BadImageError is raised when the recognizer rejects the submitted image
// bytes.
type BadImageError struct {
	Err error
}

func (e *BadImageError) Error() string {
	return fmt.Sprintf("the submitted image was rejected: %v", e.Err)
}

func (e *BadImageError) Unwrap() error {
	return e.Err
}

// UpstreamError is raised when the recognition backend fails for any other
// reason.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Google Cloud Vision API error: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
