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

package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/loopfz/gadgeto/tonic"
	"github.com/openlyinc/pointy"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/wI2L/fizz"
	"github.com/wI2L/fizz/openapi"

	"github.com/slipscan/slipscan/services/api/backend"
	"github.com/slipscan/slipscan/services/ocr"
	"github.com/slipscan/slipscan/services/slip"
	"github.com/slipscan/slipscan/version"
)

var log = logrus.WithField("component", "api/httpserver")

var infos = openapi.Info{
	Title: "Slip OCR and Parsing API",
	Description: "API for performing OCR on slip images and extracting key information" +
		" like amount, date/time, and reference number.\n" +
		"\n" +
		"The API is composed of two groups of routes:\n" +
		"- [Parsing](#tag/Parsing)\n" +
		"- [Slip History](#tag/Slip-History)\n",
	Version: version.Version,
}

const imageFormFieldKey = "file"

const defaultListLimit = 50

type Server struct {
	http.Server
	engine        ocr.Engine
	parser        *slip.Parser
	storage       backend.Backend
	storageName   string
	maxUploadSize int64
	startedAt     time.Time

	gin  *gin.Engine
	fizz *fizz.Fizz
}

//nolint:lll
func New(
	port uint,
	engine ocr.Engine,
	parser *slip.Parser,
	storage backend.Backend,
	storageName string,
	maxUploadSize int64,
) (*Server, error) {
	// Debug mode can be helpful during development
	gin.SetMode(gin.ReleaseMode)
	//gin.SetMode(gin.DebugMode)

	tonic.SetErrorHook(tonicErrorHook)

	ginEngine := gin.New()
	fizzEngine := fizz.NewFromEngine(ginEngine)

	server := &Server{
		Server: http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: fizzEngine,
		},
		engine:        engine,
		parser:        parser,
		storage:       storage,
		storageName:   storageName,
		maxUploadSize: maxUploadSize,
		startedAt:     time.Now().UTC(),
		gin:           ginEngine,
		fizz:          fizzEngine,
	}

	server.gin.HandleMethodNotAllowed = true

	// Allows all origins
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true

	server.fizz.Use(cors.New(corsConfig))

	// Use a custom error handler
	server.fizz.Use(ginErrorHandlerMiddleware)

	// Use the custom logger middleware
	server.fizz.Use(ginLoggerMiddleware)

	// Recovery middleware recovers from any panics and writes a 500 if there was one.
	server.fizz.Use(gin.Recovery())

	server.fizz.GET("/", []fizz.OperationOption{
		fizz.Summary("Retrieve information about this API"),
	}, tonic.Handler(server.getInfo, http.StatusOK))

	server.fizz.GET("/health", []fizz.OperationOption{
		fizz.Summary("Report the readiness of the service and its backends"),
	}, tonic.Handler(server.getHealth, http.StatusOK))

	server.fizz.GET("/openapi.json", []fizz.OperationOption{
		fizz.Summary("Retrieve the open api specification"),
		fizz.Response("500", "Bad server configuration or state", httpError{}, nil, nil),
	}, server.fizz.OpenAPI(&infos, "json"))

	parsingGroup := server.fizz.Group(
		"",
		"Parsing",
		"Submit payment slips, as images or as raw text, to extract the amount, the date/time and the reference number.",
	)
	parsingGroup.POST("/parse-slip-image", []fizz.OperationOption{
		fizz.Summary("Perform OCR on an image and parse slip information"),
		fizz.Description("Expects a `multipart/form-data` body with the slip image, PNG or JPG, under the `file` field.\n" +
			"\n" +
			"The image goes through text recognition first, the detected text is then parsed like `/parse-slip-text` does."),
		fizz.Response("400", "Rejected upload", httpError{}, nil, nil),
		fizz.Response("413", "Image larger than the configured limit", httpError{}, nil, nil),
		fizz.Response("500", "Text recognition failure or bad server state", httpError{}, nil, nil),
	}, tonic.Handler(server.parseSlipImage, http.StatusOK))

	parsingGroup.POST("/parse-slip-text", []fizz.OperationOption{
		fizz.Summary("Parse slip information from raw text"),
		fizz.Response("400", "Malformed request body", httpError{}, nil, nil),
		fizz.Response("500", "Bad server configuration or state", httpError{}, nil, nil),
	}, tonic.Handler(server.parseSlipText, http.StatusOK))

	historyGroup := server.fizz.Group(
		"/slips",
		"Slip History",
		"Review and manage previously parsed slips.",
	)
	historyGroup.GET("", []fizz.OperationOption{
		fizz.Summary("Retrieve previously parsed slips, most recent first"),
		fizz.Response("400", "Malformed filters", httpError{}, nil, nil),
		fizz.Response("500", "Bad server configuration or state", httpError{}, nil, nil),
	}, tonic.Handler(server.listSlips, http.StatusOK))
	historyGroup.GET("/:slip_id", []fizz.OperationOption{
		fizz.Summary("Retrieve one parsed slip"),
		fizz.Response("404", "Slip not found", httpError{}, nil, nil),
		fizz.Response("500", "Bad server configuration or state", httpError{}, nil, nil),
	}, tonic.Handler(server.getSlip, http.StatusOK))
	historyGroup.DELETE("/:slip_id", []fizz.OperationOption{
		fizz.Summary("Delete one parsed slip"),
		fizz.Response("404", "Slip not found", httpError{}, nil, nil),
		fizz.Response("500", "Bad server configuration or state", httpError{}, nil, nil),
	}, tonic.Handler(server.deleteSlip, http.StatusOK))

	ginEngine.NoRoute(func(c *gin.Context) {
		_ = c.AbortWithError(http.StatusNotFound, fmt.Errorf("not found"))
	})

	ginEngine.NoMethod(func(c *gin.Context) {
		_ = c.AbortWithError(http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	})

	return server, nil
}

func (server *Server) GenerateOpenAPISpec(outputFile string) error {
	server.fizz.Generator().SetInfo(&infos)
	serializedJSON, err := json.MarshalIndent(server.fizz.Generator().API(), "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(outputFile, serializedJSON, 0o644)
}

type response struct {
	Message string `json:"message" description:"Human-readable response description"`
}

type infoResponse struct {
	response
	Version     string `json:"version" description:"Slipscan Version"`
	VersionHash string `json:"version_hash"`
}

func (server *Server) getInfo(*gin.Context) (infoResponse, error) {
	return infoResponse{
		response: response{
			Message: "This is the Slipscan API",
		},
		Version:     version.Version,
		VersionHash: version.Hash,
	}, nil
}

type healthResponse struct {
	Status     string    `json:"status" description:"Overall service status"`
	Recognizer string    `json:"recognizer" description:"Readiness of the text recognition backend, [ready] or [unavailable]"`
	Storage    string    `json:"storage" description:"Name of the active storage backend"`
	StartedAt  time.Time `json:"started_at" description:"Time the service started"`
}

func (server *Server) getHealth(*gin.Context) (healthResponse, error) {
	recognizer := "ready"
	if server.engine == nil {
		recognizer = "unavailable"
	}
	return healthResponse{
		Status:     "ok",
		Recognizer: recognizer,
		Storage:    server.storageName,
		StartedAt:  server.startedAt,
	}, nil
}

//nolint:lll
type parseSlipResponse struct {
	response
	SlipID      string     `json:"slip_id" description:"Identifier assigned to the recorded slip"`
	Amount      *float64   `json:"amount" description:"Extracted amount, null when none was found"`
	DateTime    *time.Time `json:"date_time" description:"Extracted timestamp, null when none was found"`
	ReferenceNo *string    `json:"reference_no" description:"Extracted transaction reference, null when none was found"`
	RawText     string     `json:"raw_text" description:"Text the extraction worked on"`
	Duplicate   bool       `json:"duplicate" description:"True when another slip with the same reference number was already recorded"`
}

func amountFloat(amount *decimal.Decimal) *float64 {
	if amount == nil {
		return nil
	}
	return pointy.Float64(amount.InexactFloat64())
}

// recordSlip stores the extraction result under a fresh identifier, flagging
// slips whose reference number was seen before.
func (server *Server) recordSlip(
	c *gin.Context,
	source backend.Source,
	parsed slip.Parsed,
	rawText string,
	imageHash string,
	mediaType string,
) (*parseSlipResponse, error) {
	duplicate := false
	if parsed.Reference != nil {
		count, err := server.storage.CountByReference(c, *parsed.Reference)
		if err != nil {
			return nil, wrapError(http.StatusInternalServerError, err)
		}
		duplicate = count > 0
	}

	slipID, err := uuid.NewV7()
	if err != nil {
		return nil, wrapError(http.StatusInternalServerError, err)
	}

	newSlip := backend.Slip{
		ID:        slipID.String(),
		Source:    source,
		Amount:    parsed.Amount,
		Timestamp: parsed.Timestamp,
		Reference: parsed.Reference,
		RawText:   rawText,
		ImageHash: imageHash,
		MediaType: mediaType,
		CreatedAt: time.Now().UTC(),
	}
	err = server.storage.AddSlip(c, &newSlip)
	if err != nil {
		return nil, wrapError(http.StatusInternalServerError, err)
	}

	return &parseSlipResponse{
		response: response{
			Message: fmt.Sprintf("Slip [%s] recorded", newSlip.ID),
		},
		SlipID:      newSlip.ID,
		Amount:      amountFloat(parsed.Amount),
		DateTime:    parsed.Timestamp,
		ReferenceNo: parsed.Reference,
		RawText:     rawText,
		Duplicate:   duplicate,
	}, nil
}

func (server *Server) parseSlipImage(c *gin.Context) (*parseSlipResponse, error) {
	fileHeader, err := c.FormFile(imageFormFieldKey)
	if err != nil {
		return nil, wrapErrorf(
			http.StatusBadRequest,
			"unable to read the uploaded file from the [%s] form field (%w)",
			imageFormFieldKey,
			err,
		)
	}

	if server.maxUploadSize > 0 && fileHeader.Size > server.maxUploadSize {
		return nil, wrapErrorf(
			http.StatusRequestEntityTooLarge,
			"uploaded file weighs [%d] bytes, the limit is [%d] bytes",
			fileHeader.Size,
			server.maxUploadSize,
		)
	}

	declaredType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(declaredType, "image/") {
		return nil, wrapErrorf(
			http.StatusBadRequest,
			"invalid file type [%s], only image files are allowed",
			declaredType,
		)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, wrapError(http.StatusInternalServerError, err)
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		return nil, wrapError(http.StatusInternalServerError, err)
	}

	// The declared content type is client controlled, sniff the actual bytes
	// too.
	detectedType := mimetype.Detect(image)
	if !strings.HasPrefix(detectedType.String(), "image/") {
		return nil, wrapErrorf(
			http.StatusBadRequest,
			"invalid file content [%s], only image files are allowed",
			detectedType,
		)
	}

	if server.engine == nil {
		return nil, wrapError(
			http.StatusInternalServerError,
			errors.New("the text recognizer is not initialized, check the Google Cloud credentials configuration"),
		)
	}

	log.WithFields(logrus.Fields{
		"file_name": fileHeader.Filename,
		"file_size": fileHeader.Size,
	}).Info("parsing slip image")

	rawText, err := server.engine.DetectText(c, image)
	if err != nil {
		var badImageErr *ocr.BadImageError
		if errors.As(err, &badImageErr) {
			return nil, wrapError(http.StatusBadRequest, err)
		}
		return nil, wrapError(http.StatusInternalServerError, err)
	}

	parsed := server.parser.Parse(rawText)

	return server.recordSlip(c, backend.SourceImage, parsed, rawText, ocr.HashImage(image), detectedType.String())
}

type parseSlipTextRequest struct {
	Text *string `json:"text" validate:"required" description:"Raw slip text to extract payment details from"`
}

func (server *Server) parseSlipText(c *gin.Context, request *parseSlipTextRequest) (*parseSlipResponse, error) {
	rawText := *request.Text

	log.WithField("text_length", len(rawText)).Info("parsing slip text")

	parsed := server.parser.Parse(rawText)

	return server.recordSlip(c, backend.SourceText, parsed, rawText, "", "")
}

//nolint:lll
type slipRecord struct {
	SlipID      string     `json:"slip_id" description:"Identifier assigned to the recorded slip"`
	Source      string     `json:"source" description:"Origin of the slip, either [image] or [text]"`
	Amount      *float64   `json:"amount" description:"Extracted amount"`
	DateTime    *time.Time `json:"date_time" description:"Extracted timestamp"`
	ReferenceNo *string    `json:"reference_no" description:"Extracted transaction reference"`
	RawText     string     `json:"raw_text" description:"Text the extraction worked on"`
	ImageHash   string     `json:"image_hash,omitempty" description:"SHA-256 of the submitted image, empty for text slips"`
	MediaType   string     `json:"media_type,omitempty" description:"Detected media type of the submitted image, empty for text slips"`
	CreatedAt   time.Time  `json:"created_at" description:"Time the slip was recorded"`
}

func toSlipRecord(storedSlip *backend.Slip) slipRecord {
	return slipRecord{
		SlipID:      storedSlip.ID,
		Source:      string(storedSlip.Source),
		Amount:      amountFloat(storedSlip.Amount),
		DateTime:    storedSlip.Timestamp,
		ReferenceNo: storedSlip.Reference,
		RawText:     storedSlip.RawText,
		ImageHash:   storedSlip.ImageHash,
		MediaType:   storedSlip.MediaType,
		CreatedAt:   storedSlip.CreatedAt,
	}
}

//nolint:lll
type listSlipsRequest struct {
	Reference string `query:"reference" description:"Only return slips carrying this transaction reference"`
	Source    string `query:"source" validate:"omitempty,oneof=image text" description:"Only return slips from this source, either [image] or [text]"`
	Limit     int    `query:"limit" validate:"gte=0,lte=500" default:"50" description:"Maximum number of slips to return"`
	Offset    int    `query:"offset" validate:"gte=0" description:"Number of slips to skip, from the most recent one"`
}

func (server *Server) listSlips(c *gin.Context, request *listSlipsRequest) ([]slipRecord, error) {
	limit := request.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	slips, err := server.storage.ListSlips(c, backend.Filter{
		// References are recorded lowercased
		Reference: strings.ToLower(request.Reference),
		Source:    backend.Source(request.Source),
		Limit:     limit,
		Offset:    request.Offset,
	})
	if err != nil {
		return nil, wrapError(http.StatusInternalServerError, err)
	}

	records := make([]slipRecord, 0, len(slips))
	for _, storedSlip := range slips {
		records = append(records, toSlipRecord(storedSlip))
	}
	return records, nil
}

type slipRequest struct {
	SlipID string `path:"slip_id" validate:"required" description:"The slip identifier"`
}

func (server *Server) getSlip(c *gin.Context, request *slipRequest) (*slipRecord, error) {
	storedSlip, err := server.storage.GetSlip(c, request.SlipID)
	if err != nil {
		var unknownSlipErr *backend.UnknownSlipError
		if errors.As(err, &unknownSlipErr) {
			return nil, wrapError(http.StatusNotFound, err)
		}
		return nil, wrapError(http.StatusInternalServerError, err)
	}

	record := toSlipRecord(storedSlip)
	return &record, nil
}

func (server *Server) deleteSlip(c *gin.Context, request *slipRequest) (*response, error) {
	err := server.storage.DeleteSlip(c, request.SlipID)
	if err != nil {
		var unknownSlipErr *backend.UnknownSlipError
		if errors.As(err, &unknownSlipErr) {
			return nil, wrapError(http.StatusNotFound, err)
		}
		return nil, wrapError(http.StatusInternalServerError, err)
	}

	log.WithField("slip_id", request.SlipID).Info("slip deleted")

	return &response{
		Message: fmt.Sprintf("Slip [%s] deleted", request.SlipID),
	}, nil
}
