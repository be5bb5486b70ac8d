package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/octobees/leads-prospector/internal/ledger"
	"github.com/octobees/leads-prospector/internal/repository"
	"github.com/octobees/leads-prospector/internal/service"
)

func newAdminUploadHandler(store repository.Store) *AdminUploadHandler {
	return NewAdminUploadHandler(service.NewImporter(ledger.New(store), nil))
}

func TestAdminUploadHandler_MissingFile(t *testing.T) {
	store, _ := newTestStore(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/admin/upload-csv", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_ = newAdminUploadHandler(store).UploadCSV(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminUploadHandler_InvalidCSV(t *testing.T) {
	store, _ := newTestStore(t)
	e := echo.New()
	req, rec := multipartRequest(t, "file", "test.csv", "Nome,Endereço\nPadaria,Rua XV\n")
	c := e.NewContext(req, rec)

	_ = newAdminUploadHandler(store).UploadCSV(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid csv, got %d", rec.Code)
	}
}

func TestAdminUploadHandler_RepositoryError(t *testing.T) {
	store, db := newTestStore(t)
	db.Close()
	e := echo.New()
	req, rec := multipartRequest(t, "file", "test.csv", validCSV())
	c := e.NewContext(req, rec)

	_ = newAdminUploadHandler(store).UploadCSV(c)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestAdminUploadHandler_Success(t *testing.T) {
	store, _ := newTestStore(t)
	e := echo.New()
	req, rec := multipartRequest(t, "file", "test.csv", validCSV())
	c := e.NewContext(req, rec)

	_ = newAdminUploadHandler(store).UploadCSV(c)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	count, err := store.Businesses.Count(c.Request().Context(), dtoAll())
	if err != nil || count != 1 {
		t.Fatalf("expected 1 stored business, got %d (%v)", count, err)
	}
}

func multipartRequest(t *testing.T, field, filename, content string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/admin/upload-csv", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	return req, rec
}

func validCSV() string {
	return "Nome,Telefone,Endereço,Categoria,Avaliação\nPadaria Estrela,41 3333-4444,Rua XV,Padaria,\"4,5\"\n"
}
