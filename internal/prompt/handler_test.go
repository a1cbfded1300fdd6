package prompt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ferdianrazak/gemini-chat/internal/config"
	"github.com/ferdianrazak/gemini-chat/internal/gemini"
	"github.com/ferdianrazak/gemini-chat/internal/upload"
)

type stubProvider struct {
	generateCalls []gemini.GenerateRequest
	generateModel string
	generateResp  *gemini.GenerateResponse
	generateErr   error

	uploadCalls []string
	uploadInfo  *gemini.FileInfo
	uploadErr   error
}

func (s *stubProvider) GenerateContent(_ context.Context, model string, req gemini.GenerateRequest) (*gemini.GenerateResponse, error) {
	s.generateModel = model
	s.generateCalls = append(s.generateCalls, req)
	if s.generateErr != nil {
		return nil, s.generateErr
	}
	if s.generateResp != nil {
		return s.generateResp, nil
	}
	return &gemini.GenerateResponse{}, nil
}

func (s *stubProvider) UploadFile(_ context.Context, path, _ string) (*gemini.FileInfo, error) {
	s.uploadCalls = append(s.uploadCalls, path)
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	if s.uploadInfo != nil {
		return s.uploadInfo, nil
	}
	return &gemini.FileInfo{URI: "https://example.com/files/x", MimeType: "image/png"}, nil
}

func testModels() config.Models {
	return config.Models{Text: "m-text", Image: "m-image", Document: "m-doc", Audio: "m-audio"}
}

func newTestHandler(t *testing.T, p *stubProvider) *Handler {
	t.Helper()
	staging, err := upload.NewStaging(t.TempDir())
	require.NoError(t, err)
	return NewHandler(p, p, testModels(), staging)
}

func textReply(text string) *gemini.GenerateResponse {
	return &gemini.GenerateResponse{Candidates: []gemini.Candidate{{
		Content: &gemini.Content{Role: gemini.RoleModel, Parts: []gemini.Part{gemini.Text(text)}},
	}}}
}

// multipartBody builds a request body with an optional message field and an
// optional file part under the given field name.
func multipartBody(t *testing.T, message *string, field, filename, mimeType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if message != nil {
		require.NoError(t, mw.WriteField("message", *message))
	}
	if field != "" {
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Disposition": {`form-data; name="` + field + `"; filename="` + filename + `"`},
			"Content-Type":        {mimeType},
		})
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func strPtr(s string) *string { return &s }

func stagedFiles(t *testing.T, h *Handler) []string {
	t.Helper()
	entries, err := os.ReadDir(h.staging.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, filepath.Join(h.staging.Dir(), e.Name()))
	}
	return names
}

func TestHandleText_Success(t *testing.T) {
	p := &stubProvider{generateResp: textReply("hello")}
	h := newTestHandler(t, p)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-text", strings.NewReader(`{"message":"hi"}`))
	w := httptest.NewRecorder()
	h.HandleText(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"reply":"hello"}`, w.Body.String())
	require.Equal(t, "m-text", p.generateModel)
	require.Len(t, p.generateCalls, 1)
	require.Equal(t, "hi", p.generateCalls[0].Contents[0].Parts[0].Text)
}

func TestHandleText_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"empty body", ``, "Payload shouldn't be empty"},
		{"missing message", `{}`, "message at body should be a string"},
		{"null message", `{"message":null}`, "message at body should be a string"},
		{"numeric message", `{"message":42}`, "message at body should be a string"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &stubProvider{}
			h := newTestHandler(t, p)

			req := httptest.NewRequest(http.MethodPost, "/api/generate-text", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			h.HandleText(w, req)

			require.Equal(t, http.StatusBadRequest, w.Code)
			var got map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			require.Equal(t, tc.want, got["message"])
			require.Empty(t, p.generateCalls)
		})
	}
}

func TestHandleText_ProviderFailure(t *testing.T) {
	p := &stubProvider{generateErr: errors.New("boom")}
	h := newTestHandler(t, p)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-text", strings.NewReader(`{"message":"hi"}`))
	w := httptest.NewRecorder()
	h.HandleText(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"message":"Server Error"}`, w.Body.String())
}

func TestHandleImage_Success(t *testing.T) {
	p := &stubProvider{generateResp: textReply("a cat")}
	h := newTestHandler(t, p)

	body, ct := multipartBody(t, strPtr("describe this"), "image", "cat.png", "image/png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/generate-from-image", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.HandleImage(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"reply":"a cat"}`, w.Body.String())
	require.Equal(t, "m-image", p.generateModel)
	require.Len(t, p.uploadCalls, 1, "image path must upload to the file store")

	parts := p.generateCalls[0].Contents[0].Parts
	require.Len(t, parts, 2)
	require.Equal(t, "describe this", parts[0].Text)
	require.NotNil(t, parts[1].FileData)
	require.Equal(t, "https://example.com/files/x", parts[1].FileData.FileURI)

	require.Empty(t, stagedFiles(t, h), "staged file must be removed after success")
}

func TestHandleImage_RejectsNonImageMime(t *testing.T) {
	p := &stubProvider{}
	h := newTestHandler(t, p)

	body, ct := multipartBody(t, strPtr("describe"), "image", "doc.pdf", "application/pdf", []byte("pdf"))
	req := httptest.NewRequest(http.MethodPost, "/api/generate-from-image", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.HandleImage(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"message":"Uploaded file must be an image"}`, w.Body.String())
	require.Empty(t, p.uploadCalls, "provider must not be invoked")
	require.Empty(t, p.generateCalls, "provider must not be invoked")
	require.Empty(t, stagedFiles(t, h), "staged file must be removed after rejection")
}

func TestHandleImage_MissingFile(t *testing.T) {
	p := &stubProvider{}
	h := newTestHandler(t, p)

	body, ct := multipartBody(t, strPtr("describe"), "", "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/generate-from-image", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.HandleImage(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"message":"image file is required"}`, w.Body.String())
}

func TestHandleImage_MissingMessage(t *testing.T) {
	p := &stubProvider{}
	h := newTestHandler(t, p)

	body, ct := multipartBody(t, nil, "image", "cat.png", "image/png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/api/generate-from-image", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.HandleImage(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"message":"message at body should be a string"}`, w.Body.String())
}

func TestHandleDocument_InlinesBase64(t *testing.T) {
	p := &stubProvider{generateResp: textReply("a summary")}
	h := newTestHandler(t, p)

	content := []byte("pdf-bytes")
	body, ct := multipartBody(t, strPtr("summarize"), "document", "paper.pdf", "application/pdf", content)
	req := httptest.NewRequest(http.MethodPost, "/api/generate-from-document", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.HandleDocument(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"reply":"a summary"}`, w.Body.String())
	require.Equal(t, "m-doc", p.generateModel)
	require.Empty(t, p.uploadCalls, "document path must not use the file store")

	parts := p.generateCalls[0].Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[1].InlineData)
	require.Equal(t, "application/pdf", parts[1].InlineData.MimeType)
	require.Equal(t, base64.StdEncoding.EncodeToString(content), parts[1].InlineData.Data)

	require.Empty(t, stagedFiles(t, h), "staged file must be removed after success")
}

func TestHandleAudio_ProviderFailureCleansUp(t *testing.T) {
	p := &stubProvider{generateErr: errors.New("upstream down")}
	h := newTestHandler(t, p)

	body, ct := multipartBody(t, strPtr("transcribe"), "audio", "note.mp3", "audio/mpeg", []byte("mp3"))
	req := httptest.NewRequest(http.MethodPost, "/api/generate-from-audio", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.HandleAudio(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"Server Error"}`, w.Body.String())
	require.Empty(t, stagedFiles(t, h), "staged file must be removed after provider failure")
}

func TestHandleAudio_MissingFile(t *testing.T) {
	p := &stubProvider{}
	h := newTestHandler(t, p)

	body, ct := multipartBody(t, strPtr("transcribe"), "", "", "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/generate-from-audio", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	h.HandleAudio(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"message":"audio file is required"}`, w.Body.String())
}

func TestHandleDocument_NonMultipartBody(t *testing.T) {
	p := &stubProvider{}
	h := newTestHandler(t, p)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-from-document", strings.NewReader("not multipart"))
	w := httptest.NewRecorder()
	h.HandleDocument(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"message":"Payload shouldn't be empty"}`, w.Body.String())
}
