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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipscan/slipscan/services/api/backend/memory"
	"github.com/slipscan/slipscan/services/ocr"
	"github.com/slipscan/slipscan/services/slip"
)

const testMaxUploadSize = 1024 * 1024

var pngImage = append([]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}, make([]byte, 64)...)

const thaiSlipText = `สแกนจ่ายสำเร็จ
15 ก.พ. 2567 14:22
จำนวนเงิน 1,250.00 บาท
เลขที่อ้างอิง SCB90817263rq
ค่าธรรมเนียม 0.00 บาท`

const englishSlipText = `Transfer completed
01/02/2023 14:30
Amount 2,500.00 THB
Ref No. KBNK73619a02`

type fakeEngine struct {
	text  string
	err   error
	calls int
}

func (e *fakeEngine) DetectText(_ context.Context, _ []byte) (string, error) {
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	return e.text, nil
}

func (e *fakeEngine) Close() error {
	return nil
}

func createTestServer(t *testing.T, engine ocr.Engine) *Server {
	location, err := time.LoadLocation(slip.DefaultTimeZone)
	require.NoError(t, err)

	storage, err := memory.CreateMemoryBackend(0)
	require.NoError(t, err)
	t.Cleanup(storage.Destroy)

	server, err := New(8000, engine, slip.NewParser(location), storage, "memory", testMaxUploadSize)
	require.NoError(t, err)
	return server
}

func recordResponse(server *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	server.Handler.ServeHTTP(rr, req)
	return rr
}

func jsonRequest(t *testing.T, method string, route string, body interface{}) *http.Request {
	serializedBody, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(method, route, bytes.NewReader(serializedBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func imageUploadRequest(t *testing.T, fieldName string, contentType string, content []byte) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	partHeader := textproto.MIMEHeader{}
	partHeader.Set(
		"Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="slip.png"`, fieldName),
	)
	partHeader.Set("Content-Type", contentType)

	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest("POST", "/parse-slip-image", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestGetInfo(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})

	req, err := http.NewRequest("GET", "/", nil)
	require.NoError(t, err)
	rr := recordResponse(server, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `{"message":"This is the Slipscan API","version":"dev","version_hash":"n/a"}`, rr.Body.String())
}

func TestGetHealth(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})

	req, err := http.NewRequest("GET", "/health", nil)
	require.NoError(t, err)
	rr := recordResponse(server, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	health := healthResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ready", health.Recognizer)
	assert.Equal(t, "memory", health.Storage)
	assert.WithinDuration(t, time.Now(), health.StartedAt, time.Minute)
}

func TestGetHealthNoRecognizer(t *testing.T) {
	server := createTestServer(t, nil)

	req, err := http.NewRequest("GET", "/health", nil)
	require.NoError(t, err)
	rr := recordResponse(server, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	health := healthResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "unavailable", health.Recognizer)
}

func Test404(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})

	req, err := http.NewRequest("GET", "/foo", nil)
	require.NoError(t, err)
	rr := recordResponse(server, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, `{"message":"not found"}`, rr.Body.String())
}

func Test405(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})

	req, err := http.NewRequest("DELETE", "/health", nil)
	require.NoError(t, err)
	rr := recordResponse(server, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, `{"message":"method not allowed"}`, rr.Body.String())
}

func TestOpenAPISpec(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})

	req, err := http.NewRequest("GET", "/openapi.json", nil)
	require.NoError(t, err)
	rr := recordResponse(server, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Slip OCR and Parsing API")
	assert.Contains(t, rr.Body.String(), "/parse-slip-image")
	assert.Contains(t, rr.Body.String(), "/slips/{slip_id}")
}

func TestGenerateOpenAPISpec(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})

	outputFile := filepath.Join(t.TempDir(), "openapi.json")
	require.NoError(t, server.GenerateOpenAPISpec(outputFile))

	spec, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	assert.Contains(t, string(spec), "Slip OCR and Parsing API")
	assert.Contains(t, string(spec), "/parse-slip-text")
}

func TestParseSlipText(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})

	rr := recordResponse(server, jsonRequest(t, "POST", "/parse-slip-text", map[string]string{"text": thaiSlipText}))
	assert.Equal(t, http.StatusOK, rr.Code)

	parsed := parseSlipResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &parsed))

	assert.NotEmpty(t, parsed.SlipID)
	assert.Equal(t, fmt.Sprintf("Slip [%s] recorded", parsed.SlipID), parsed.Message)

	require.NotNil(t, parsed.Amount)
	assert.Equal(t, 1250.0, *parsed.Amount)

	require.NotNil(t, parsed.DateTime)
	assert.Equal(t, "2024-02-15T14:22:00+07:00", parsed.DateTime.Format(time.RFC3339))

	require.NotNil(t, parsed.ReferenceNo)
	assert.Equal(t, "scb90817263rq", *parsed.ReferenceNo)

	assert.Equal(t, thaiSlipText, parsed.RawText)
	assert.False(t, parsed.Duplicate)

	// A second slip carrying the same reference number is flagged
	rr = recordResponse(server, jsonRequest(t, "POST", "/parse-slip-text", map[string]string{"text": thaiSlipText}))
	assert.Equal(t, http.StatusOK, rr.Code)

	duplicated := parseSlipResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &duplicated))
	assert.NotEqual(t, parsed.SlipID, duplicated.SlipID)
	assert.True(t, duplicated.Duplicate)
}

func TestParseSlipTextNoFindings(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})

	rr := recordResponse(server, jsonRequest(t, "POST", "/parse-slip-text", map[string]string{"text": "nothing of interest"}))
	assert.Equal(t, http.StatusOK, rr.Code)

	parsed := parseSlipResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &parsed))

	assert.NotEmpty(t, parsed.SlipID)
	assert.Nil(t, parsed.Amount)
	assert.Nil(t, parsed.DateTime)
	assert.Nil(t, parsed.ReferenceNo)
	assert.False(t, parsed.Duplicate)
}

func TestParseSlipTextMissingText(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})

	rr := recordResponse(server, jsonRequest(t, "POST", "/parse-slip-text", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotEmpty(t, body["message"])
}

func TestParseSlipImage(t *testing.T) {
	engine := &fakeEngine{text: englishSlipText}
	server := createTestServer(t, engine)

	rr := recordResponse(server, imageUploadRequest(t, "file", "image/png", pngImage))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, engine.calls)

	parsed := parseSlipResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &parsed))

	require.NotNil(t, parsed.Amount)
	assert.Equal(t, 2500.0, *parsed.Amount)

	require.NotNil(t, parsed.DateTime)
	assert.Equal(t, "2023-02-01T14:30:00+07:00", parsed.DateTime.Format(time.RFC3339))

	require.NotNil(t, parsed.ReferenceNo)
	assert.Equal(t, "kbnk73619a02", *parsed.ReferenceNo)

	assert.Equal(t, englishSlipText, parsed.RawText)

	// The stored slip carries the image fingerprint
	req, err := http.NewRequest("GET", "/slips/"+parsed.SlipID, nil)
	require.NoError(t, err)
	rr = recordResponse(server, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	record := slipRecord{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &record))
	assert.Equal(t, "image", record.Source)
	assert.Equal(t, ocr.HashImage(pngImage), record.ImageHash)
	assert.Equal(t, "image/png", record.MediaType)
}

func TestParseSlipImageInvalidFileType(t *testing.T) {
	engine := &fakeEngine{text: englishSlipText}
	server := createTestServer(t, engine)

	rr := recordResponse(server, imageUploadRequest(t, "file", "application/pdf", pngImage))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, `{"message":"invalid file type [application/pdf], only image files are allowed"}`, rr.Body.String())
	assert.Equal(t, 0, engine.calls)
}

func TestParseSlipImageInvalidFileContent(t *testing.T) {
	engine := &fakeEngine{text: englishSlipText}
	server := createTestServer(t, engine)

	rr := recordResponse(server, imageUploadRequest(t, "file", "image/png", []byte("definitely not an image")))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid file content")
	assert.Equal(t, 0, engine.calls)
}

func TestParseSlipImageMissingFileField(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})

	rr := recordResponse(server, imageUploadRequest(t, "attachment", "image/png", pngImage))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unable to read the uploaded file")
}

func TestParseSlipImageTooLarge(t *testing.T) {
	engine := &fakeEngine{text: englishSlipText}
	server := createTestServer(t, engine)

	hugeImage := append([]byte{}, pngImage...)
	hugeImage = append(hugeImage, make([]byte, testMaxUploadSize)...)
	rr := recordResponse(server, imageUploadRequest(t, "file", "image/png", hugeImage))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, 0, engine.calls)
}

func TestParseSlipImageNoRecognizer(t *testing.T) {
	server := createTestServer(t, nil)

	rr := recordResponse(server, imageUploadRequest(t, "file", "image/png", pngImage))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "the text recognizer is not initialized")
}

func TestParseSlipImageRejectedImage(t *testing.T) {
	engine := &fakeEngine{err: &ocr.BadImageError{Err: fmt.Errorf("unreadable")}}
	server := createTestServer(t, engine)

	rr := recordResponse(server, imageUploadRequest(t, "file", "image/png", pngImage))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, `{"message":"the submitted image was rejected: unreadable"}`, rr.Body.String())
}

func TestParseSlipImageRecognizerFailure(t *testing.T) {
	engine := &fakeEngine{err: &ocr.UpstreamError{Err: fmt.Errorf("quota exceeded")}}
	server := createTestServer(t, engine)

	rr := recordResponse(server, imageUploadRequest(t, "file", "image/png", pngImage))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, `{"message":"Google Cloud Vision API error: quota exceeded"}`, rr.Body.String())
}

func addTextSlips(t *testing.T, server *Server, count int) []string {
	slipIDs := []string{}
	for slipIdx := 0; slipIdx < count; slipIdx++ {
		text := fmt.Sprintf("Amount %d.00 Baht\nRef No. TESTREF%04dX", 100+slipIdx, slipIdx)
		rr := recordResponse(server, jsonRequest(t, "POST", "/parse-slip-text", map[string]string{"text": text}))
		require.Equal(t, http.StatusOK, rr.Code)

		parsed := parseSlipResponse{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &parsed))
		require.NotNil(t, parsed.ReferenceNo)
		require.Equal(t, fmt.Sprintf("testref%04dx", slipIdx), *parsed.ReferenceNo)

		slipIDs = append(slipIDs, parsed.SlipID)
	}
	return slipIDs
}

func listedReferences(t *testing.T, rr *httptest.ResponseRecorder) []string {
	records := []slipRecord{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))

	references := []string{}
	for _, record := range records {
		require.NotNil(t, record.ReferenceNo)
		references = append(references, *record.ReferenceNo)
	}
	return references
}

func TestListSlips(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})
	addTextSlips(t, server, 5)

	req, err := http.NewRequest("GET", "/slips", nil)
	require.NoError(t, err)
	rr := recordResponse(server, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{
		"testref0004x",
		"testref0003x",
		"testref0002x",
		"testref0001x",
		"testref0000x",
	}, listedReferences(t, rr))
}

func TestListSlipsPagination(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})
	addTextSlips(t, server, 5)

	req, err := http.NewRequest("GET", "/slips?limit=2", nil)
	require.NoError(t, err)
	rr := recordResponse(server, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"testref0004x", "testref0003x"}, listedReferences(t, rr))

	req, err = http.NewRequest("GET", "/slips?limit=2&offset=2", nil)
	require.NoError(t, err)
	rr = recordResponse(server, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"testref0002x", "testref0001x"}, listedReferences(t, rr))

	req, err = http.NewRequest("GET", "/slips?offset=4", nil)
	require.NoError(t, err)
	rr = recordResponse(server, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"testref0000x"}, listedReferences(t, rr))
}

func TestListSlipsFilters(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})
	addTextSlips(t, server, 3)

	// The reference filter is case-insensitive
	req, err := http.NewRequest("GET", "/slips?reference=TESTREF0001X", nil)
	require.NoError(t, err)
	rr := recordResponse(server, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"testref0001x"}, listedReferences(t, rr))

	req, err = http.NewRequest("GET", "/slips?source=text", nil)
	require.NoError(t, err)
	rr = recordResponse(server, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, listedReferences(t, rr), 3)

	req, err = http.NewRequest("GET", "/slips?source=image", nil)
	require.NoError(t, err)
	rr = recordResponse(server, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())
}

func TestListSlipsInvalidFilters(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})

	for _, route := range []string{
		"/slips?limit=501",
		"/slips?limit=banana",
		"/slips?offset=-1",
		"/slips?source=paper",
	} {
		req, err := http.NewRequest("GET", route, nil)
		require.NoError(t, err)
		rr := recordResponse(server, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "route %s", route)
	}
}

func TestGetSlip(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})
	slipIDs := addTextSlips(t, server, 2)

	req, err := http.NewRequest("GET", "/slips/"+slipIDs[0], nil)
	require.NoError(t, err)
	rr := recordResponse(server, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	record := slipRecord{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &record))
	assert.Equal(t, slipIDs[0], record.SlipID)
	assert.Equal(t, "text", record.Source)
	require.NotNil(t, record.Amount)
	assert.Equal(t, 100.0, *record.Amount)
	assert.Empty(t, record.ImageHash)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestGetUnknownSlip(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})

	req, err := http.NewRequest("GET", "/slips/unknown-slip", nil)
	require.NoError(t, err)
	rr := recordResponse(server, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, `no slip found with id "unknown-slip"`, body["message"])
}

func TestDeleteSlip(t *testing.T) {
	server := createTestServer(t, &fakeEngine{})
	slipIDs := addTextSlips(t, server, 2)

	req, err := http.NewRequest("DELETE", "/slips/"+slipIDs[1], nil)
	require.NoError(t, err)
	rr := recordResponse(server, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, fmt.Sprintf(`{"message":"Slip [%s] deleted"}`, slipIDs[1]), rr.Body.String())

	// Now gone
	req, err = http.NewRequest("GET", "/slips/"+slipIDs[1], nil)
	require.NoError(t, err)
	rr = recordResponse(server, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// The other slip is untouched
	req, err = http.NewRequest("GET", "/slips/"+slipIDs[0], nil)
	require.NoError(t, err)
	rr = recordResponse(server, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// Deleting it again fails
	req, err = http.NewRequest("DELETE", "/slips/"+slipIDs[1], nil)
	require.NoError(t, err)
	rr = recordResponse(server, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
