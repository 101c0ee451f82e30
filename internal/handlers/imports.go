package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/xuri/excelize/v2"

	"github.com/haulops-platform/api/internal/audit"
	"github.com/haulops-platform/api/internal/httpx"
	"github.com/haulops-platform/api/internal/importer"
	"github.com/haulops-platform/api/internal/middleware"
	"github.com/haulops-platform/api/internal/model"
)

const (
	importSeverityError = "error"
	importSeverityWarn  = "warn"
)

var supportedCSVContentTypes = map[string]struct{}{
	"text/csv":                 {},
	"application/csv":          {},
	"application/vnd.ms-excel": {},
}

type importMode string

const (
	importModePreview importMode = "preview"
	importModeCommit  importMode = "commit"
)

type importOptionsPayload struct {
	UpdateExisting bool              `json:"updateExisting"`
	BillingEntity  string            `json:"billingEntity,omitempty"`
	HasHeader      *bool             `json:"hasHeader,omitempty"`
	Mapping        map[string]string `json:"mapping,omitempty"`
}

type importRunSummary struct {
	Total   int  `json:"total"`
	Created int  `json:"created"`
	Updated int  `json:"updated"`
	Skipped int  `json:"skipped"`
	Errors  int  `json:"errors"`
	Success bool `json:"success"`
}

type importRunResponse struct {
	ID          uuid.UUID        `json:"id"`
	Entity      string           `json:"entity"`
	Mode        string           `json:"mode"`
	Filename    string           `json:"filename"`
	FileSHA256  string           `json:"fileSha256"`
	Status      string           `json:"status"`
	Summary     importRunSummary `json:"summary"`
	CreatedAt   string           `json:"createdAt"`
	CompletedAt *string          `json:"completedAt,omitempty"`
	RequestID   string           `json:"requestId"`
}

type importResultResponse struct {
	Run      importRunResponse   `json:"run"`
	Created  []any               `json:"created"`
	Preview  []any               `json:"preview,omitempty"`
	Errors   []importer.RowIssue `json:"errors"`
	Warnings []importer.RowIssue `json:"warnings"`
}

type parsedImportFile struct {
	filename   string
	fileSHA256 string
	options    importOptionsPayload
	headers    []string
	rows       []importer.Row
}

type appError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (s *Server) PostImportsEntityPreview(w http.ResponseWriter, r *http.Request) {
	s.handleImport(w, r, importModePreview)
}

func (s *Server) PostImportsEntityCommit(w http.ResponseWriter, r *http.Request) {
	s.handleImport(w, r, importModeCommit)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, mode importMode) {
	_, tenantID, userID, ok := requireActorIDs(w, r)
	if !ok {
		return
	}

	entity := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "entity")))
	if !validEntity(entity) {
		httpx.WriteError(w, r, http.StatusNotFound, "unknown_entity", "Unknown import entity", map[string]any{"entity": entity})
		return
	}

	parsed, appErr := parseImportUpload(r, s.Config.ImportMaxRows, s.Config.ImportMaxFileBytes)
	if appErr != nil {
		httpx.WriteError(w, r, appErr.Status, appErr.Code, appErr.Message, appErr.Details)
		return
	}

	mappingJSON, _ := json.Marshal(map[string]any{
		"updateExisting": parsed.options.UpdateExisting,
		"billingEntity":  parsed.options.BillingEntity,
		"mapping":        parsed.options.Mapping,
	})
	runID := uuid.New()
	run := model.ImportRun{
		ID:          runID,
		TenantID:    tenantID,
		Entity:      entity,
		Mode:        string(mode),
		Filename:    parsed.filename,
		FileSHA256:  parsed.fileSHA256,
		MappingJSON: mappingJSON,
		SummaryJSON: []byte(`{}`),
		Status:      "failed",
	}
	if err := s.Store.InsertImportRun(r.Context(), run); err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to create import run", nil)
		return
	}

	requestID := middleware.RequestIDFromContext(r.Context())
	startAction := "import.preview_started"
	completeAction := "import.preview_completed"
	if mode == importModeCommit {
		startAction = "import.commit_started"
		completeAction = "import.commit_completed"
	}
	_ = s.Audit.Log(r.Context(), audit.Entry{
		TenantID:   tenantID,
		UserID:     &userID,
		Action:     startAction,
		EntityType: "import_run",
		EntityID:   &runID,
		RequestID:  requestID,
		Metadata: map[string]any{
			"mode":       mode,
			"entity":     entity,
			"filename":   parsed.filename,
			"fileSha256": parsed.fileSHA256,
			"rowsTotal":  len(parsed.rows),
		},
	})

	engine := importer.NewEngine(s.Store, tenantID, s.Config.Import, s.Logger, s.valueFixer())
	opts := importer.Options{
		PreviewOnly:          mode == importModePreview,
		UpdateExisting:       parsed.options.UpdateExisting,
		CurrentBillingEntity: parsed.options.BillingEntity,
		ColumnMapping:        parsed.options.Mapping,
		ImportBatchID:        &runID,
	}
	res, err := engine.Import(r.Context(), entity, parsed.rows, opts)
	if err != nil {
		_ = s.Store.CompleteImportRun(r.Context(), runID, "failed", []byte(`{}`))
		httpx.WriteError(w, r, http.StatusBadRequest, "import_failed", err.Error(), map[string]any{"importRunId": runID})
		return
	}

	if rowResults := buildRowResults(tenantID, runID, res); len(rowResults) > 0 {
		if err := s.Store.InsertImportRowResults(r.Context(), rowResults); err != nil {
			s.Logger.Error("persist import row results", "error", err, "importRunId", runID)
		}
	}

	summary := importRunSummary{
		Total:   res.Summary.Total,
		Created: res.Summary.Created,
		Updated: res.Summary.Updated,
		Skipped: res.Summary.Skipped,
		Errors:  res.Summary.Errors,
		Success: res.Success,
	}
	summaryJSON, _ := json.Marshal(summary)
	finalStatus := "completed"
	if !res.Success {
		finalStatus = "completed_with_errors"
	}
	if err := s.Store.CompleteImportRun(r.Context(), runID, finalStatus, summaryJSON); err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to complete import run", nil)
		return
	}

	_ = s.Audit.Log(r.Context(), audit.Entry{
		TenantID:   tenantID,
		UserID:     &userID,
		Action:     completeAction,
		EntityType: "import_run",
		EntityID:   &runID,
		RequestID:  requestID,
		Metadata: map[string]any{
			"mode":    mode,
			"entity":  entity,
			"status":  finalStatus,
			"summary": summary,
		},
	})

	updated, err := s.Store.GetImportRun(r.Context(), tenantID, runID)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load import run", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, importResultResponse{
		Run:      mapImportRun(updated, summary, requestID),
		Created:  res.Created,
		Preview:  res.Preview,
		Errors:   res.Errors,
		Warnings: res.Warnings,
	})
}

func validEntity(entity string) bool {
	for _, known := range importer.Entities() {
		if entity == known {
			return true
		}
	}
	return false
}

func buildRowResults(tenantID, runID uuid.UUID, res *importer.Result) []model.ImportRowResult {
	out := make([]model.ImportRowResult, 0, len(res.Errors)+len(res.Warnings))
	appendIssues := func(issues []importer.RowIssue, severity string) {
		for _, issue := range issues {
			out = append(out, model.ImportRowResult{
				ID:          uuid.New(),
				TenantID:    tenantID,
				ImportRunID: runID,
				RowNumber:   issue.Row,
				Severity:    severity,
				Field:       stringPtrOrNil(issue.Field),
				Message:     issue.Error,
			})
		}
	}
	appendIssues(res.Errors, importSeverityError)
	appendIssues(res.Warnings, importSeverityWarn)
	return out
}

func mapImportRun(run model.ImportRun, summary importRunSummary, requestID string) importRunResponse {
	resp := importRunResponse{
		ID:         run.ID,
		Entity:     run.Entity,
		Mode:       run.Mode,
		Filename:   run.Filename,
		FileSHA256: run.FileSHA256,
		Status:     run.Status,
		Summary:    summary,
		CreatedAt:  run.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		RequestID:  requestID,
	}
	if run.CompletedAt != nil {
		completed := run.CompletedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		resp.CompletedAt = &completed
	}
	return resp
}

func parseImportSummary(raw []byte) importRunSummary {
	var summary importRunSummary
	_ = json.Unmarshal(raw, &summary)
	return summary
}

func (s *Server) GetImportsRuns(w http.ResponseWriter, r *http.Request) {
	_, tenantID, _, ok := requireActorIDs(w, r)
	if !ok {
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			httpx.WriteError(w, r, http.StatusBadRequest, "validation_error", "limit must be between 1 and 500", nil)
			return
		}
		limit = parsed
	}

	runs, err := s.Store.ListImportRuns(r.Context(), tenantID, limit)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to list import runs", nil)
		return
	}

	requestID := middleware.RequestIDFromContext(r.Context())
	out := make([]importRunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, mapImportRun(run, parseImportSummary(run.SummaryJSON), requestID))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"runs": out, "requestId": requestID})
}

func (s *Server) GetImportsRunID(w http.ResponseWriter, r *http.Request) {
	_, tenantID, _, ok := requireActorIDs(w, r)
	if !ok {
		return
	}
	runID, appErr := parseRunID(r)
	if appErr != nil {
		httpx.WriteError(w, r, appErr.Status, appErr.Code, appErr.Message, appErr.Details)
		return
	}

	run, err := s.Store.GetImportRun(r.Context(), tenantID, runID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpx.WriteError(w, r, http.StatusNotFound, "import_run_not_found", "Import run not found", nil)
			return
		}
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load import run", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, mapImportRun(run, parseImportSummary(run.SummaryJSON), middleware.RequestIDFromContext(r.Context())))
}

func (s *Server) GetImportsRunIDReport(w http.ResponseWriter, r *http.Request) {
	_, tenantID, _, ok := requireActorIDs(w, r)
	if !ok {
		return
	}
	runID, appErr := parseRunID(r)
	if appErr != nil {
		httpx.WriteError(w, r, appErr.Status, appErr.Code, appErr.Message, appErr.Details)
		return
	}

	run, err := s.Store.GetImportRun(r.Context(), tenantID, runID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpx.WriteError(w, r, http.StatusNotFound, "import_run_not_found", "Import run not found", nil)
			return
		}
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load import run", nil)
		return
	}
	rows, err := s.Store.ListImportRowResults(r.Context(), tenantID, runID)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load import rows", nil)
		return
	}

	requestID := middleware.RequestIDFromContext(r.Context())
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"run":       mapImportRun(run, parseImportSummary(run.SummaryJSON), requestID),
		"rows":      rows,
		"requestId": requestID,
	})
}

func (s *Server) GetImportsRunIDErrorsCsv(w http.ResponseWriter, r *http.Request) {
	_, tenantID, _, ok := requireActorIDs(w, r)
	if !ok {
		return
	}
	runID, appErr := parseRunID(r)
	if appErr != nil {
		httpx.WriteError(w, r, appErr.Status, appErr.Code, appErr.Message, appErr.Details)
		return
	}

	if _, err := s.Store.GetImportRun(r.Context(), tenantID, runID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpx.WriteError(w, r, http.StatusNotFound, "import_run_not_found", "Import run not found", nil)
			return
		}
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load import run", nil)
		return
	}

	rows, err := s.Store.ListImportRowResults(r.Context(), tenantID, runID)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to load import rows", nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"import-%s-errors.csv\"", runID))
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"row_number", "severity", "field", "message"})
	for _, row := range rows {
		_ = writer.Write([]string{
			strconv.Itoa(row.RowNumber),
			row.Severity,
			derefString(row.Field),
			row.Message,
		})
	}
	writer.Flush()
}

func (s *Server) GetImportsTemplateCsv(w http.ResponseWriter, r *http.Request) {
	entity := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "entity")))
	fields := importer.FieldsFor(entity)
	if len(fields) == 0 {
		httpx.WriteError(w, r, http.StatusNotFound, "template_not_found", "Import template not found", nil)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s-template.csv\"", entity))
	writer := csv.NewWriter(w)
	_ = writer.Write(fields)
	writer.Flush()
}

type mappingSuggestRequest struct {
	Headers []string `json:"headers"`
}

// PostImportsMappingSuggest resolves source headers to system fields. The
// synonym tables answer deterministically; headers they cannot place go to
// the AI collaborator when one is configured.
func (s *Server) PostImportsMappingSuggest(w http.ResponseWriter, r *http.Request) {
	_, _, _, ok := requireActorIDs(w, r)
	if !ok {
		return
	}

	entity := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "entity")))
	if !validEntity(entity) {
		httpx.WriteError(w, r, http.StatusNotFound, "unknown_entity", "Unknown import entity", map[string]any{"entity": entity})
		return
	}

	var req mappingSuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "invalid_body", "Malformed JSON body", nil)
		return
	}
	if len(req.Headers) == 0 {
		httpx.WriteError(w, r, http.StatusBadRequest, "validation_error", "headers is required", nil)
		return
	}

	mapping := importer.SuggestMapping(entity, req.Headers)

	if s.AI != nil {
		var unmatched []string
		for _, header := range req.Headers {
			if _, ok := mapping[header]; !ok && strings.TrimSpace(header) != "" {
				unmatched = append(unmatched, header)
			}
		}
		if len(unmatched) > 0 {
			suggested, err := s.AI.SuggestColumnMapping(r.Context(), entity, unmatched, importer.FieldsFor(entity))
			if err != nil {
				s.Logger.Warn("ai mapping suggestion failed", "error", err, "entity", entity)
			} else {
				for header, field := range suggested {
					if _, taken := mapping[header]; !taken {
						mapping[header] = field
					}
				}
			}
		}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"entity":    entity,
		"mapping":   mapping,
		"requestId": middleware.RequestIDFromContext(r.Context()),
	})
}

func parseRunID(r *http.Request) (uuid.UUID, *appError) {
	raw := chi.URLParam(r, "runId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_run_id",
			Message: "runId must be a UUID",
		}
	}
	return id, nil
}

func parseImportUpload(r *http.Request, maxRows int, maxFileBytes int64) (parsedImportFile, *appError) {
	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		return parsedImportFile{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_content_type",
			Message: "Content-Type must be multipart/form-data",
		}
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return parsedImportFile{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_multipart",
			Message: "Failed to parse multipart form",
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return parsedImportFile{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "missing_file",
			Message: "file is required",
		}
	}
	defer file.Close()

	var options importOptionsPayload
	if optionsRaw := strings.TrimSpace(r.FormValue("options")); optionsRaw != "" {
		if err := json.Unmarshal([]byte(optionsRaw), &options); err != nil {
			return parsedImportFile{}, &appError{
				Status:  http.StatusBadRequest,
				Code:    "invalid_options",
				Message: "options must be valid JSON",
			}
		}
	}

	data, err := io.ReadAll(io.LimitReader(file, maxFileBytes+1))
	if err != nil {
		return parsedImportFile{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_file",
			Message: "Failed to read uploaded file",
		}
	}
	if int64(len(data)) > maxFileBytes {
		return parsedImportFile{}, &appError{
			Status:  http.StatusRequestEntityTooLarge,
			Code:    "file_too_large",
			Message: "Uploaded file exceeds the size limit",
			Details: map[string]any{"maxBytes": maxFileBytes},
		}
	}
	digest := sha256.Sum256(data)
	fileSHA256 := hex.EncodeToString(digest[:])

	filename := header.Filename
	ext := strings.ToLower(filepath.Ext(filename))
	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))

	var records [][]string
	switch ext {
	case ".csv":
		if contentType != "" && !strings.HasPrefix(contentType, "multipart/") {
			if _, ok := supportedCSVContentTypes[contentType]; !ok && contentType != "application/octet-stream" {
				return parsedImportFile{}, &appError{
					Status:  http.StatusBadRequest,
					Code:    "invalid_content_type",
					Message: "Unsupported CSV content type",
					Details: map[string]any{"contentType": contentType},
				}
			}
		}
		records, err = readCSVRecords(data)
		if err != nil {
			return parsedImportFile{}, &appError{
				Status:  http.StatusBadRequest,
				Code:    "invalid_csv",
				Message: "CSV parsing failed",
			}
		}
	case ".xlsx":
		records, err = readXLSXRecords(data)
		if err != nil {
			return parsedImportFile{}, &appError{
				Status:  http.StatusBadRequest,
				Code:    "invalid_xlsx",
				Message: "Workbook parsing failed",
			}
		}
	default:
		return parsedImportFile{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_file_type",
			Message: "Only .csv and .xlsx uploads are supported",
		}
	}

	if len(records) == 0 {
		return parsedImportFile{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "empty_file",
			Message: "Uploaded file is empty",
		}
	}

	hasHeader := true
	if options.HasHeader != nil {
		hasHeader = *options.HasHeader
	}

	var headers []string
	dataRows := records
	if hasHeader {
		headers = normalizeHeaderRow(records[0])
		dataRows = records[1:]
	} else {
		// Headerless files get positional names; the caller's mapping must
		// assign them to system fields.
		widest := 0
		for _, rec := range records {
			if len(rec) > widest {
				widest = len(rec)
			}
		}
		headers = make([]string, widest)
		for i := range headers {
			headers[i] = fmt.Sprintf("col_%d", i+1)
		}
	}

	if maxRows > 0 && len(dataRows) > maxRows {
		return parsedImportFile{}, &appError{
			Status:  http.StatusBadRequest,
			Code:    "row_limit_exceeded",
			Message: "Row limit exceeded",
			Details: map[string]any{"maxRows": maxRows},
		}
	}

	rows := make([]importer.Row, 0, len(dataRows))
	for _, rec := range dataRows {
		row := importer.Row{}
		empty := true
		for i, cell := range rec {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			row[headers[i]] = cell
			if strings.TrimSpace(cell) != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}

	return parsedImportFile{
		filename:   filename,
		fileSHA256: fileSHA256,
		options:    options,
		headers:    headers,
		rows:       rows,
	}, nil
}

func readCSVRecords(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records := make([][]string, 0, 1024)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func readXLSXRecords(data []byte) ([][]string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer book.Close()

	sheet := book.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return book.GetRows(sheet)
}

func normalizeHeaderRow(row []string) []string {
	headers := make([]string, len(row))
	for i, col := range row {
		headers[i] = strings.TrimPrefix(strings.TrimSpace(col), "\uFEFF")
	}
	return headers
}
