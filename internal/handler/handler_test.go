package handler_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/sakif/icon-gallery/internal/auth"
	"github.com/sakif/icon-gallery/internal/handler"
	"github.com/sakif/icon-gallery/internal/model"
	"github.com/sakif/icon-gallery/internal/repository/sqlite"
	"github.com/sakif/icon-gallery/internal/service"
	"github.com/sakif/icon-gallery/internal/storage"
)

// testEnv wires real services over an in-memory SQLite database and a
// temp-dir content store. Handlers are exercised against the full stack;
// only the HTTP router and the OAuth exchange are out of the picture.
type testEnv struct {
	icons      *handler.IconHandler
	categories *handler.CategoryHandler
	admin      *handler.AdminHandler
	settings   *handler.SettingsHandler
	authH      *handler.AuthHandler

	iconSvc    *service.IconService
	userSvc    *service.UserService
	settingSvc *service.SettingService
	tokens     *auth.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	tokens, err := auth.NewTokenService("handler-test-secret-32-chars!!!!")
	if err != nil {
		t.Fatalf("auth.NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)

	iconSvc := service.NewIconService(db, db, store, true, logger)
	categorySvc := service.NewCategoryService(db, db, logger)
	userSvc := service.NewUserService(db, db, store, passwords, logger)
	settingSvc := service.NewSettingService(db, logger)

	return &testEnv{
		icons:      handler.NewIconHandler(iconSvc, userSvc, logger),
		categories: handler.NewCategoryHandler(categorySvc, logger),
		admin:      handler.NewAdminHandler(iconSvc, categorySvc, userSvc, logger),
		settings:   handler.NewSettingsHandler(settingSvc, logger),
		authH:      handler.NewAuthHandler(userSvc, settingSvc, tokens, logger),
		iconSvc:    iconSvc,
		userSvc:    userSvc,
		settingSvc: settingSvc,
		tokens:     tokens,
	}
}

// registerUser creates an account directly through the service.
func (e *testEnv) registerUser(t *testing.T, name, email string) *model.User {
	t.Helper()
	user, err := e.userSvc.Register(context.Background(), name, email, "password123")
	if err != nil {
		t.Fatalf("registering %s: %v", email, err)
	}
	return user
}

// uploadIcon creates an icon for userID through the service.
func (e *testEnv) uploadIcon(t *testing.T, userID, name string) *model.Icon {
	t.Helper()
	icon, err := e.iconSvc.Upload(context.Background(), userID, service.UploadInput{
		Name:     name,
		Category: "design",
		File: &service.FileUpload{
			Filename: "icon.svg",
			Size:     6,
			Reader:   strings.NewReader("<svg/>"),
		},
	})
	if err != nil {
		t.Fatalf("uploading icon %q: %v", name, err)
	}
	return icon
}

// asUser stamps the request context with an authenticated user ID, the
// same way the auth middleware would after validating a token.
func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), userID))
}

// multipartUpload builds a multipart form body for the upload endpoint.
func multipartUpload(t *testing.T, fields map[string]string, files map[string]struct {
	filename string
	content  string
}) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("writing field %s: %v", key, err)
		}
	}
	for field, f := range files {
		part, err := mw.CreateFormFile(field, f.filename)
		if err != nil {
			t.Fatalf("creating file part %s: %v", field, err)
		}
		if _, err := io.Copy(part, strings.NewReader(f.content)); err != nil {
			t.Fatalf("writing file part %s: %v", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

func doRequest(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, r)
	return rr
}
