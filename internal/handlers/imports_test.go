package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func multipartUpload(t *testing.T, filename, contentType, body, options string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		fileHeader.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(fileHeader)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte(body)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if options != "" {
		if err := mw.WriteField("options", options); err != nil {
			t.Fatalf("write options: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/imports/customers/preview", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestParseImportUploadCSV(t *testing.T) {
	csv := "Customer Name,Phone\nAcme Logistics,555-0100\n,\nGlobe Freight,555-0200\n"
	req := multipartUpload(t, "customers.csv", "text/csv", csv, "")

	parsed, appErr := parseImportUpload(req, 1000, 1<<20)
	if appErr != nil {
		t.Fatalf("parseImportUpload: %+v", appErr)
	}
	if parsed.filename != "customers.csv" {
		t.Fatalf("filename = %q", parsed.filename)
	}
	if len(parsed.fileSHA256) != 64 {
		t.Fatalf("sha256 = %q", parsed.fileSHA256)
	}
	if len(parsed.headers) != 2 || parsed.headers[0] != "Customer Name" {
		t.Fatalf("headers = %v", parsed.headers)
	}
	// The all-blank middle row is dropped.
	if len(parsed.rows) != 2 {
		t.Fatalf("rows = %d", len(parsed.rows))
	}
	if parsed.rows[1]["Customer Name"] != "Globe Freight" {
		t.Fatalf("row 2 = %v", parsed.rows[1])
	}
}

func TestParseImportUploadOptions(t *testing.T) {
	csv := "Acme Logistics,555-0100\n"
	options := `{"hasHeader": false, "updateExisting": true, "mapping": {"col_1": "name"}}`
	req := multipartUpload(t, "customers.csv", "text/csv", csv, options)

	parsed, appErr := parseImportUpload(req, 1000, 1<<20)
	if appErr != nil {
		t.Fatalf("parseImportUpload: %+v", appErr)
	}
	if !parsed.options.UpdateExisting {
		t.Fatal("updateExisting not decoded")
	}
	if len(parsed.headers) != 2 || parsed.headers[0] != "col_1" || parsed.headers[1] != "col_2" {
		t.Fatalf("synthesized headers = %v", parsed.headers)
	}
	if len(parsed.rows) != 1 || parsed.rows[0]["col_1"] != "Acme Logistics" {
		t.Fatalf("rows = %v", parsed.rows)
	}
	if parsed.options.Mapping["col_1"] != "name" {
		t.Fatalf("mapping = %v", parsed.options.Mapping)
	}
}

func TestParseImportUploadBOMHeader(t *testing.T) {
	csv := "\uFEFFCustomer Name\nAcme Logistics\n"
	req := multipartUpload(t, "customers.csv", "text/csv", csv, "")

	parsed, appErr := parseImportUpload(req, 1000, 1<<20)
	if appErr != nil {
		t.Fatalf("parseImportUpload: %+v", appErr)
	}
	if parsed.headers[0] != "Customer Name" {
		t.Fatalf("BOM not stripped: %q", parsed.headers[0])
	}
}

func TestParseImportUploadXLSX(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	_ = book.SetCellValue(sheet, "A1", "Customer Name")
	_ = book.SetCellValue(sheet, "B1", "Phone")
	_ = book.SetCellValue(sheet, "A2", "Acme Logistics")
	_ = book.SetCellValue(sheet, "B2", "555-0100")
	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	req := multipartUpload(t, "customers.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.String(), "")
	parsed, appErr := parseImportUpload(req, 1000, 10<<20)
	if appErr != nil {
		t.Fatalf("parseImportUpload: %+v", appErr)
	}
	if len(parsed.headers) != 2 || parsed.headers[0] != "Customer Name" {
		t.Fatalf("headers = %v", parsed.headers)
	}
	if len(parsed.rows) != 1 || parsed.rows[0]["Customer Name"] != "Acme Logistics" {
		t.Fatalf("rows = %v", parsed.rows)
	}
}

func TestParseImportUploadRejections(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		ctype    string
		body     string
		maxRows  int
		maxBytes int64
		wantCode string
	}{
		{"wrong extension", "customers.pdf", "application/pdf", "x", 100, 1 << 20, "invalid_file_type"},
		{"wrong csv content type", "customers.csv", "image/png", "a,b\n", 100, 1 << 20, "invalid_content_type"},
		{"empty file", "customers.csv", "text/csv", "", 100, 1 << 20, "empty_file"},
		{"too large", "customers.csv", "text/csv", strings.Repeat("a", 64), 100, 16, "file_too_large"},
		{"row limit", "customers.csv", "text/csv", "h\n1\n2\n3\n", 2, 1 << 20, "row_limit_exceeded"},
	}
	for _, tc := range cases {
		req := multipartUpload(t, tc.filename, tc.ctype, tc.body, "")
		_, appErr := parseImportUpload(req, tc.maxRows, tc.maxBytes)
		if appErr == nil || appErr.Code != tc.wantCode {
			t.Fatalf("%s: got %+v, want code %s", tc.name, appErr, tc.wantCode)
		}
	}
}

func TestParseImportUploadRequiresMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/imports/customers/preview", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	_, appErr := parseImportUpload(req, 100, 1<<20)
	if appErr == nil || appErr.Code != "invalid_content_type" {
		t.Fatalf("got %+v", appErr)
	}
}

func TestParseImportUploadMissingFile(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("options", "{}"); err != nil {
		t.Fatalf("write options: %v", err)
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/imports/customers/preview", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	_, appErr := parseImportUpload(req, 100, 1<<20)
	if appErr == nil || appErr.Code != "missing_file" {
		t.Fatalf("got %+v", appErr)
	}
}
