package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nafisfuad/coursedeck/internal/config"
	"github.com/nafisfuad/coursedeck/internal/db"
	"github.com/nafisfuad/coursedeck/internal/errors"
	"github.com/nafisfuad/coursedeck/internal/prefs"
	"github.com/nafisfuad/coursedeck/internal/snapshot"
)

// listingHTML returns a scraped page fixture with five course rows.
func listingHTML() string {
	row := func(index int, code string, section int, faculty, time, room string) string {
		return fmt.Sprintf(
			"<tr><td>%d.</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td><td>%s</td><td>35</td></tr>",
			index, code, section, faculty, time, room)
	}
	return "<html><body><h2>Offered Course List (Summer 2024)</h2><table><tbody>" +
		row(1, "CSE115", 1, "ABC", "MW 9:40 AM - 11:10 AM", "NAC115") +
		row(2, "CSE215", 1, "DEF", "TR 8:00 AM - 9:30 AM", "NAC201") +
		row(3, "MAT120", 2, "GHI", "M 2:40 PM - 4:10 PM", "SAC304") +
		row(4, "ENG102", 3, "JKL", "RA 11:20 AM - 12:50 PM", "NAC514") +
		row(5, "BIO103", 1, "MNO", "TBA", "TBA") +
		"</tbody></table></body></html>"
}

// testSetup creates a snapshot file, database-backed prefs store, and
// config for handler tests.
func testSetup(t *testing.T) (*snapshot.Snapshot, *prefs.Store, *config.Config) {
	t.Helper()

	tmpDir := t.TempDir()
	dataPath := filepath.Join(tmpDir, "response.html")
	if err := os.WriteFile(dataPath, []byte(listingHTML()), 0o644); err != nil {
		t.Fatalf("failed to write listing fixture: %v", err)
	}

	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store, err := prefs.NewStore(db.NewKV(database))
	if err != nil {
		t.Fatalf("failed to create prefs store: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.DataPath = dataPath

	return snapshot.New(dataPath), store, cfg
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// TestHandleList tests the course_list handler.
func TestHandleList(t *testing.T) {
	snap, store, cfg := testSetup(t)
	h := NewHandlers(snap, store, cfg)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantItems int
		wantError bool
		errorCode string
	}{
		{
			name:      "no filters returns everything",
			args:      map[string]any{},
			wantItems: 5,
		},
		{
			name:      "search terms are ANDed",
			args:      map[string]any{"search": "cse 115"},
			wantItems: 1,
		},
		{
			name:      "course filter is case-insensitive",
			args:      map[string]any{"courses": []any{"mat120"}},
			wantItems: 1,
		},
		{
			name:      "day pair filter matches by containment",
			args:      map[string]any{"days": []any{"MW"}},
			wantItems: 1,
		},
		{
			name:      "unknown day filter rejected",
			args:      map[string]any{"days": []any{"XY"}},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name: "unknown sort key rejected",
			args: map[string]any{
				"sort": []any{map[string]any{"key": "bogus"}},
			},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name: "bad sort direction rejected",
			args: map[string]any{
				"sort": []any{map[string]any{"key": "faculty", "direction": "sideways"}},
			},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleList(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
				return
			}
			if result.IsError {
				t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
			}

			output := parseOutput(t, result)
			items := output["items"].([]any)
			if len(items) != tt.wantItems {
				t.Errorf("got %d items, want %d", len(items), tt.wantItems)
			}
		})
	}
}

func TestHandleList_Pagination(t *testing.T) {
	snap, store, cfg := testSetup(t)
	h := NewHandlers(snap, store, cfg)
	ctx := context.Background()

	result, err := h.HandleList(ctx, makeRequest(map[string]any{
		"limit":  2,
		"offset": 1,
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output := parseOutput(t, result)

	items := output["items"].([]any)
	if len(items) != 2 {
		t.Errorf("got %d items, want 2", len(items))
	}

	pagination := output["pagination"].(map[string]any)
	if int(pagination["total"].(float64)) != 5 {
		t.Errorf("pagination.total = %v, want 5", pagination["total"])
	}
	if pagination["has_more"] != true {
		t.Errorf("pagination.has_more = %v, want true", pagination["has_more"])
	}
}

func TestHandleList_SortSpecApplied(t *testing.T) {
	snap, store, cfg := testSetup(t)
	h := NewHandlers(snap, store, cfg)
	ctx := context.Background()

	result, err := h.HandleList(ctx, makeRequest(map[string]any{
		"sort": []any{map[string]any{"key": "time", "direction": "desc"}},
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output := parseOutput(t, result)
	items := output["items"].([]any)

	first := items[0].(map[string]any)
	if first["id"] != "MAT120-2" {
		t.Errorf("first item = %v, want MAT120-2 (latest start time)", first["id"])
	}
}

// TestHandleGet tests the course_get handler.
func TestHandleGet(t *testing.T) {
	snap, store, cfg := testSetup(t)
	h := NewHandlers(snap, store, cfg)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name: "get existing section",
			args: map[string]any{"id": "CSE115-1"},
		},
		{
			name:      "get missing section",
			args:      map[string]any{"id": "CSE999-1"},
			wantError: true,
			errorCode: "NOT_FOUND",
		},
		{
			name:      "get without id",
			args:      map[string]any{},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleGet(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
				return
			}

			output := parseOutput(t, result)
			item := output["item"].(map[string]any)
			if item["courseCode"] != "CSE115" {
				t.Errorf("courseCode = %v, want CSE115", item["courseCode"])
			}
			if item["starred"] != false {
				t.Errorf("starred = %v, want false", item["starred"])
			}
		})
	}
}

// TestHandleMeta tests the course_meta handler.
func TestHandleMeta(t *testing.T) {
	snap, store, cfg := testSetup(t)
	h := NewHandlers(snap, store, cfg)
	ctx := context.Background()

	result, err := h.HandleMeta(ctx, makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output := parseOutput(t, result)
	meta := output["meta"].(map[string]any)

	if meta["semester"] != "Summer 2024" {
		t.Errorf("semester = %v, want Summer 2024", meta["semester"])
	}
	if int(meta["totalSections"].(float64)) != 5 {
		t.Errorf("totalSections = %v, want 5", meta["totalSections"])
	}
	if int(meta["uniqueCourses"].(float64)) != 5 {
		t.Errorf("uniqueCourses = %v, want 5", meta["uniqueCourses"])
	}
}

// TestHandleStar tests the course_star handler.
func TestHandleStar(t *testing.T) {
	snap, store, cfg := testSetup(t)
	h := NewHandlers(snap, store, cfg)
	ctx := context.Background()

	result, err := h.HandleStar(ctx, makeRequest(map[string]any{"id": "CSE115-1"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output := parseOutput(t, result)
	if output["starred"] != true {
		t.Errorf("starred = %v, want true after first toggle", output["starred"])
	}

	result, err = h.HandleStar(ctx, makeRequest(map[string]any{"id": "CSE115-1"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output = parseOutput(t, result)
	if output["starred"] != false {
		t.Errorf("starred = %v, want false after second toggle", output["starred"])
	}

	result, err = h.HandleStar(ctx, makeRequest(map[string]any{"id": "CSE999-9"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error for unknown section")
	}
	assertErrorCode(t, result, "NOT_FOUND")
}

// TestHandlePriority tests the course_priority handler.
func TestHandlePriority(t *testing.T) {
	snap, store, cfg := testSetup(t)
	h := NewHandlers(snap, store, cfg)
	ctx := context.Background()

	tests := []struct {
		name         string
		args         map[string]any
		wantPriority int
		wantError    bool
		errorCode    string
	}{
		{
			name:         "set absolute priority",
			args:         map[string]any{"id": "CSE115-1", "priority": 5},
			wantPriority: 5,
		},
		{
			name:         "bump clamps at upper bound",
			args:         map[string]any{"id": "CSE115-1", "delta": 1000},
			wantPriority: prefs.MaxPriority,
		},
		{
			name:         "set zero clears the entry",
			args:         map[string]any{"id": "CSE115-1", "priority": 0},
			wantPriority: 0,
		},
		{
			name:      "priority and delta together rejected",
			args:      map[string]any{"id": "CSE115-1", "priority": 1, "delta": 1},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "neither priority nor delta rejected",
			args:      map[string]any{"id": "CSE115-1"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "unknown section rejected",
			args:      map[string]any{"id": "CSE999-9", "priority": 1},
			wantError: true,
			errorCode: "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandlePriority(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
				return
			}

			output := parseOutput(t, result)
			if int(output["priority"].(float64)) != tt.wantPriority {
				t.Errorf("priority = %v, want %d", output["priority"], tt.wantPriority)
			}
		})
	}
}

// TestHandleSave tests the course_save handler.
func TestHandleSave(t *testing.T) {
	snap, store, cfg := testSetup(t)
	h := NewHandlers(snap, store, cfg)
	ctx := context.Background()

	// Toggle on
	result, err := h.HandleSave(ctx, makeRequest(map[string]any{
		"kind": "course", "value": "CSE115",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output := parseOutput(t, result)
	if output["saved"] != true {
		t.Errorf("saved = %v, want true", output["saved"])
	}

	// Toggle off with different casing
	result, err = h.HandleSave(ctx, makeRequest(map[string]any{
		"kind": "course", "value": "cse115",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output = parseOutput(t, result)
	if output["saved"] != false {
		t.Errorf("saved = %v, want false after case-insensitive untoggle", output["saved"])
	}

	// Remove mode
	if err := store.ToggleSavedFaculty("ABC"); err != nil {
		t.Fatalf("setup save failed: %v", err)
	}
	result, err = h.HandleSave(ctx, makeRequest(map[string]any{
		"kind": "faculty", "value": "ABC", "remove": true,
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output = parseOutput(t, result)
	if output["removed"] != true {
		t.Errorf("removed = %v, want true", output["removed"])
	}

	// Unknown kind
	result, err = h.HandleSave(ctx, makeRequest(map[string]any{
		"kind": "room", "value": "NAC115",
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error for unknown kind")
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

// TestHandleExportImport tests the prefs_export and prefs_import handlers.
func TestHandleExportImport(t *testing.T) {
	snap, store, cfg := testSetup(t)
	h := NewHandlers(snap, store, cfg)
	ctx := context.Background()

	if _, err := store.ToggleStar("CSE115-1"); err != nil {
		t.Fatalf("setup star failed: %v", err)
	}
	if err := store.SetPriority("MAT120-2", 7); err != nil {
		t.Fatalf("setup priority failed: %v", err)
	}

	exportResult, err := h.HandleExport(ctx, makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("export handler returned error: %v", err)
	}
	doc := parseOutput(t, exportResult)
	if doc["export_id"] == nil || doc["export_id"] == "" {
		t.Error("export document missing export_id")
	}

	// Import into a second store backed by a fresh database.
	snap2, store2, cfg2 := testSetup(t)
	h2 := NewHandlers(snap2, store2, cfg2)

	importResult, err := h2.HandleImport(ctx, makeRequest(map[string]any{
		"document": doc,
	}))
	if err != nil {
		t.Fatalf("import handler returned error: %v", err)
	}
	output := parseOutput(t, importResult)
	if output["imported"] != true {
		t.Errorf("imported = %v, want true", output["imported"])
	}

	if !store2.IsStarred("CSE115-1") {
		t.Error("imported star missing")
	}
	if got := store2.GetPriority("MAT120-2"); got != 7 {
		t.Errorf("imported priority = %d, want 7", got)
	}
}

func TestHandleImport_InvalidDocument(t *testing.T) {
	snap, store, cfg := testSetup(t)
	h := NewHandlers(snap, store, cfg)
	ctx := context.Background()

	result, err := h.HandleImport(ctx, makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error for missing document")
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleMeta_MissingSnapshotIsLoadFailed(t *testing.T) {
	_, store, cfg := testSetup(t)
	snap := snapshot.New(filepath.Join(t.TempDir(), "nope.html"))
	h := NewHandlers(snap, store, cfg)

	result, err := h.HandleMeta(context.Background(), makeRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for missing snapshot")
	}
	assertErrorCode(t, result, string(errors.ErrLoadFailed))
}

func TestServerRegistration(t *testing.T) {
	snap, store, cfg := testSetup(t)

	s := NewServer(snap, store, cfg, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"course_list",
		"course_get",
		"course_meta",
		"course_star",
		"course_priority",
		"course_save",
		"prefs_export",
		"prefs_import",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}

	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	snap, store, cfg := testSetup(t)

	cfg.DisabledTools = []string{"prefs_import", "course_save"}
	s := NewServer(snap, store, cfg, "test")
	tools := s.ListTools()

	if len(tools) != 6 {
		t.Errorf("registered tool count = %d, want 6", len(tools))
	}

	for _, name := range []string{"prefs_import", "course_save"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	snap, store, cfg := testSetup(t)

	cfg.DisabledTypes = []string{"prefs"}
	s := NewServer(snap, store, cfg, "test")
	tools := s.ListTools()

	if len(tools) != 6 {
		t.Errorf("registered tool count = %d, want 6 (prefs tools excluded)", len(tools))
	}
	for _, name := range []string{"prefs_export", "prefs_import"} {
		if _, ok := tools[name]; ok {
			t.Errorf("tool %q of disabled type should not be registered", name)
		}
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{
			name:    "all valid",
			input:   []string{"course_list", "prefs_export"},
			wantLen: 0,
		},
		{
			name:    "one unknown",
			input:   []string{"course_list", "fake_tool"},
			wantLen: 1,
		},
		{
			name:    "empty list",
			input:   []string{},
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestValidateDisabledTypes(t *testing.T) {
	unknown := ValidateDisabledTypes([]string{"course", "prefs", "roster"})
	if len(unknown) != 1 || unknown[0] != "roster" {
		t.Errorf("ValidateDisabledTypes() = %v, want [roster]", unknown)
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()

	if len(names) != 8 {
		t.Errorf("AllToolNames() returned %d names, want 8", len(names))
	}

	unknown := ValidateDisabledTools(names)
	if len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	r := errorResult(errors.NewNotFound("CSE999-1"))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrNotFound) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if _, ok := errObj["details"]; !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Errorf("content is not TextContent")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}

	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Errorf("no error object in payload")
		return
	}

	code, ok := errorObj["code"].(string)
	if !ok {
		t.Errorf("no code in error object")
		return
	}

	if code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
