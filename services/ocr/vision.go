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
	"fmt"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// VisionEngine recognizes text through the Google Cloud Vision API.
type VisionEngine struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionEngine creates a recognizer authenticated with the given service
// account key file. An empty credentialsFile falls back to the application
// default credentials.
func NewVisionEngine(ctx context.Context, credentialsFile string) (*VisionEngine, error) {
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the vision client: %w", err)
	}

	return &VisionEngine{client: client}, nil
}

func (engine *VisionEngine) DetectText(ctx context.Context, image []byte) (string, error) {
	annotations, err := engine.client.DetectTexts(ctx, &visionpb.Image{Content: image}, nil, 0)
	if err != nil {
		if status.Code(err) == codes.InvalidArgument {
			return "", &BadImageError{Err: err}
		}
		return "", &UpstreamError{Err: err}
	}

	// the first annotation aggregates the full detected text, the others
	// carry the individual words
	if len(annotations) == 0 {
		return "", nil
	}
	return annotations[0].GetDescription(), nil
}

func (engine *VisionEngine) Close() error {
	return engine.client.Close()
}
