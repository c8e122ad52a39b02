package prefs

import (
	"encoding/json"
	"testing"

	"github.com/nafisfuad/coursedeck/internal/errors"
)

func TestExport_ContainsAllFiveEntries(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.ToggleStar("CSE115-1"); err != nil {
		t.Fatalf("ToggleStar failed: %v", err)
	}
	if err := store.SetPriority("CSE215-3", 7); err != nil {
		t.Fatalf("SetPriority failed: %v", err)
	}
	if err := store.ToggleSavedCourse("CSE115"); err != nil {
		t.Fatalf("ToggleSavedCourse failed: %v", err)
	}

	doc := store.Export()

	if len(doc.ExportID) != 26 {
		t.Errorf("ExportID length = %d, want 26 (ULID)", len(doc.ExportID))
	}
	if doc.ExportedAt == 0 {
		t.Error("ExportedAt not set")
	}
	if doc.Starred == nil || len(*doc.Starred) != 1 {
		t.Errorf("Starred = %v, want one entry", doc.Starred)
	}
	if doc.Priorities == nil || (*doc.Priorities)["CSE215-3"] != 7 {
		t.Errorf("Priorities = %v, want CSE215-3:7", doc.Priorities)
	}
	if doc.SavedCourses == nil || len(*doc.SavedCourses) != 1 {
		t.Errorf("SavedCourses = %v, want one entry", doc.SavedCourses)
	}
	if doc.HiddenColumns == nil || len(*doc.HiddenColumns) != 1 {
		t.Errorf("HiddenColumns = %v, want the default hidden set", doc.HiddenColumns)
	}
}

func TestImport_RoundTrip(t *testing.T) {
	source, _ := newTestStore(t)
	if _, err := source.ToggleStar("CSE115-1"); err != nil {
		t.Fatalf("ToggleStar failed: %v", err)
	}
	if err := source.SetPriority("CSE115-1", 3); err != nil {
		t.Fatalf("SetPriority failed: %v", err)
	}
	if err := source.ToggleSavedFaculty("ABC"); err != nil {
		t.Fatalf("ToggleSavedFaculty failed: %v", err)
	}

	data, err := json.Marshal(source.Export())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	target, kv := newTestStore(t)
	if err := target.Import(data); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if !target.IsStarred("CSE115-1") {
		t.Error("star not imported")
	}
	if target.GetPriority("CSE115-1") != 3 {
		t.Errorf("priority = %d, want 3", target.GetPriority("CSE115-1"))
	}
	if got := target.SavedFaculties(); len(got) != 1 || got[0] != "ABC" {
		t.Errorf("SavedFaculties = %v, want [ABC]", got)
	}

	// Imported state must be durable.
	reloaded, err := NewStore(kv)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if !reloaded.IsStarred("CSE115-1") {
		t.Error("imported star not persisted")
	}
}

func TestImport_PartialDocument(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.ToggleStar("CSE115-1"); err != nil {
		t.Fatalf("ToggleStar failed: %v", err)
	}

	// Only saved_courses present; stars must survive, unknown keys ignored.
	err := store.Import([]byte(`{"saved_courses": ["MAT120"], "some_future_key": 42}`))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if !store.IsStarred("CSE115-1") {
		t.Error("partial import must not clear absent entries")
	}
	if got := store.SavedCourses(); len(got) != 1 || got[0] != "MAT120" {
		t.Errorf("SavedCourses = %v, want [MAT120]", got)
	}
}

func TestImport_AllColumnsHiddenFallsBackToDefault(t *testing.T) {
	store, kv := newTestStore(t)

	names := make([]string, 0, len(Columns))
	for _, c := range Columns {
		names = append(names, string(c))
	}
	doc, err := json.Marshal(map[string]any{"hidden_columns": names})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	if err := store.Import(doc); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	// Hiding every column is not a reachable state; the default hidden
	// set applies instead.
	if got := store.HiddenColumns(); len(got) != 1 || got[0] != ColumnIndex {
		t.Errorf("HiddenColumns = %v, want [index]", got)
	}
	if !store.IsColumnVisible(ColumnCourseCode) {
		t.Error("courseCode must stay visible")
	}

	// The sanitized set is what persists.
	reloaded, err := NewStore(kv)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if got := reloaded.HiddenColumns(); len(got) != 1 || got[0] != ColumnIndex {
		t.Errorf("HiddenColumns after reload = %v, want [index]", got)
	}
}

func TestNewStore_AllColumnsHiddenInStorage(t *testing.T) {
	_, kv := newTestStore(t)

	names := make([]string, 0, len(Columns))
	for _, c := range Columns {
		names = append(names, string(c))
	}
	data, err := json.Marshal(names)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := kv.Set(KeyHiddenColumns, data); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	store, err := NewStore(kv)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if got := store.HiddenColumns(); len(got) != 1 || got[0] != ColumnIndex {
		t.Errorf("HiddenColumns = %v, want [index]", got)
	}
}

func TestImport_InvalidRejectedWholesale(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.ToggleStar("CSE115-1"); err != nil {
		t.Fatalf("ToggleStar failed: %v", err)
	}

	err := store.Import([]byte(`{"starred_sections": [`))
	if err == nil {
		t.Fatal("expected error for malformed document")
	}
	if !errors.Is(err, errors.ErrImportInvalid) {
		t.Errorf("error code = %v, want IMPORT_INVALID", err)
	}

	// Prior state untouched.
	if !store.IsStarred("CSE115-1") {
		t.Error("failed import must not modify state")
	}
}

func TestImport_ZeroPrioritiesDropped(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Import([]byte(`{"priorities": {"CSE115-1": 0, "CSE215-3": 2}}`))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	priorities := store.Priorities()
	if len(priorities) != 1 {
		t.Errorf("Priorities = %v, want only the non-zero entry", priorities)
	}
	if priorities["CSE215-3"] != 2 {
		t.Errorf("priority = %d, want 2", priorities["CSE215-3"])
	}
}
