package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nafisfuad/coursedeck/internal/config"
	"github.com/nafisfuad/coursedeck/internal/course"
	"github.com/nafisfuad/coursedeck/internal/errors"
	"github.com/nafisfuad/coursedeck/internal/prefs"
	"github.com/nafisfuad/coursedeck/internal/query"
	"github.com/nafisfuad/coursedeck/internal/snapshot"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	snap  *snapshot.Snapshot
	store *prefs.Store
	cfg   *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(snap *snapshot.Snapshot, store *prefs.Store, cfg *config.Config) *Handlers {
	return &Handlers{snap: snap, store: store, cfg: cfg}
}

// Request types for each tool

// ListRequest represents the arguments for course_list.
type ListRequest struct {
	Search      string     `json:"search,omitempty"`
	Courses     []string   `json:"courses,omitempty"`
	Faculties   []string   `json:"faculties,omitempty"`
	Days        []string   `json:"days,omitempty"`
	StarredOnly bool       `json:"starred_only,omitempty"`
	Sort        []SortSpec `json:"sort,omitempty"`
	Limit       int        `json:"limit,omitempty"`
	Offset      int        `json:"offset,omitempty"`
}

// SortSpec is one requested sort entry, primary first.
type SortSpec struct {
	Key       string `json:"key"`
	Direction string `json:"direction,omitempty"`
}

// GetRequest represents the arguments for course_get.
type GetRequest struct {
	ID string `json:"id"`
}

// StarRequest represents the arguments for course_star.
type StarRequest struct {
	ID string `json:"id"`
}

// PriorityRequest represents the arguments for course_priority.
type PriorityRequest struct {
	ID       string `json:"id"`
	Priority *int   `json:"priority,omitempty"`
	Delta    *int   `json:"delta,omitempty"`
}

// SaveRequest represents the arguments for course_save.
type SaveRequest struct {
	Kind   string `json:"kind"`
	Value  string `json:"value"`
	Remove bool   `json:"remove,omitempty"`
}

// ImportRequest represents the arguments for prefs_import.
type ImportRequest struct {
	Document json.RawMessage `json:"document"`
}

// courseItem is one section in tool output, annotated with the caller's
// personalization state.
type courseItem struct {
	course.Course
	Starred  bool `json:"starred"`
	Priority int  `json:"priority"`
}

func (h *Handlers) item(c course.Course) courseItem {
	return courseItem{
		Course:   c,
		Starred:  h.store.IsStarred(c.ID),
		Priority: h.store.GetPriority(c.ID),
	}
}

// findSection returns the section with the given id from the snapshot.
func findSection(data *course.CourseData, id string) (course.Course, bool) {
	for _, c := range data.Courses {
		if c.ID == id {
			return c, true
		}
	}
	return course.Course{}, false
}

// Handler implementations

// HandleList handles the course_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	data, err := h.snap.Load()
	if err != nil {
		return errorResult(err), nil
	}

	eng := query.NewEngine(data.Courses, h.store, h.cfg.PageSize)
	eng.SetSearch(input.Search)
	for _, code := range input.Courses {
		eng.ToggleCourseFilter(code)
	}
	for _, f := range input.Faculties {
		eng.ToggleFacultyFilter(f)
	}
	for _, d := range input.Days {
		if err := eng.ToggleDayFilter(query.DayFilter(d)); err != nil {
			return errorResult(err), nil
		}
	}
	if input.StarredOnly {
		eng.ToggleStarredOnly()
	}
	if len(input.Sort) > 0 {
		eng.ClearSorts()
		for _, spec := range input.Sort {
			if spec.Direction != "" && spec.Direction != "asc" && spec.Direction != "desc" {
				return errorResult(errors.NewInvalidRequest("sort direction must be asc or desc: " + spec.Direction)), nil
			}
			if err := eng.ToggleSort(query.SortKey(spec.Key)); err != nil {
				return errorResult(err), nil
			}
			if spec.Direction == "desc" {
				if err := eng.ToggleSort(query.SortKey(spec.Key)); err != nil {
					return errorResult(err), nil
				}
			}
		}
	}

	matched := eng.Courses()
	total := len(matched)

	limit := input.Limit
	if limit <= 0 {
		limit = h.cfg.PageSize
	}
	if limit <= 0 {
		limit = config.DefaultPageSize
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	items := make([]courseItem, 0, end-offset)
	for _, c := range matched[offset:end] {
		items = append(items, h.item(c))
	}

	return successResult(map[string]any{
		"items": items,
		"meta":  data.Meta,
		"pagination": map[string]any{
			"total":    total,
			"limit":    limit,
			"offset":   offset,
			"has_more": end < total,
		},
	})
}

// HandleGet handles the course_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	data, err := h.snap.Load()
	if err != nil {
		return errorResult(err), nil
	}

	c, ok := findSection(data, input.ID)
	if !ok {
		return errorResult(errors.NewNotFound(input.ID)), nil
	}

	return successResult(map[string]any{"item": h.item(c)})
}

// HandleMeta handles the course_meta tool call.
func (h *Handlers) HandleMeta(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := h.snap.Load()
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"meta": data.Meta})
}

// HandleStar handles the course_star tool call.
func (h *Handlers) HandleStar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StarRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	data, err := h.snap.Load()
	if err != nil {
		return errorResult(err), nil
	}
	if _, ok := findSection(data, input.ID); !ok {
		return errorResult(errors.NewNotFound(input.ID)), nil
	}

	starred, err := h.store.ToggleStar(input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"id":      input.ID,
		"starred": starred,
	})
}

// HandlePriority handles the course_priority tool call.
func (h *Handlers) HandlePriority(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PriorityRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}
	if (input.Priority == nil) == (input.Delta == nil) {
		return errorResult(errors.NewInvalidRequest("exactly one of priority or delta is required")), nil
	}

	data, err := h.snap.Load()
	if err != nil {
		return errorResult(err), nil
	}
	if _, ok := findSection(data, input.ID); !ok {
		return errorResult(errors.NewNotFound(input.ID)), nil
	}

	var current int
	if input.Priority != nil {
		if err := h.store.SetPriority(input.ID, *input.Priority); err != nil {
			return errorResult(err), nil
		}
		current = h.store.GetPriority(input.ID)
	} else {
		current, err = h.store.BumpPriority(input.ID, *input.Delta)
		if err != nil {
			return errorResult(err), nil
		}
	}

	return successResult(map[string]any{
		"id":       input.ID,
		"priority": current,
	})
}

// HandleSave handles the course_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Value == "" {
		return errorResult(errors.NewInvalidRequest("value is required")), nil
	}

	switch input.Kind {
	case "course":
		if input.Remove {
			removed, err := h.store.RemoveSavedCourse(input.Value)
			if err != nil {
				return errorResult(err), nil
			}
			return successResult(map[string]any{
				"kind":    input.Kind,
				"value":   input.Value,
				"removed": removed,
				"saved":   false,
			})
		}
		if err := h.store.ToggleSavedCourse(input.Value); err != nil {
			return errorResult(err), nil
		}
		return successResult(map[string]any{
			"kind":  input.Kind,
			"value": input.Value,
			"saved": containsFold(h.store.SavedCourses(), input.Value),
		})
	case "faculty":
		if input.Remove {
			removed, err := h.store.RemoveSavedFaculty(input.Value)
			if err != nil {
				return errorResult(err), nil
			}
			return successResult(map[string]any{
				"kind":    input.Kind,
				"value":   input.Value,
				"removed": removed,
				"saved":   false,
			})
		}
		if err := h.store.ToggleSavedFaculty(input.Value); err != nil {
			return errorResult(err), nil
		}
		return successResult(map[string]any{
			"kind":  input.Kind,
			"value": input.Value,
			"saved": containsFold(h.store.SavedFaculties(), input.Value),
		})
	default:
		return errorResult(errors.NewInvalidRequest("kind must be course or faculty: " + input.Kind)), nil
	}
}

// HandleExport handles the prefs_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.store.Export())
}

// HandleImport handles the prefs_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if len(input.Document) == 0 {
		return errorResult(errors.NewInvalidRequest("document is required")), nil
	}

	if err := h.store.Import(input.Document); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"imported": true,
		"counts": map[string]any{
			"starred":         len(h.store.Starred()),
			"priorities":      len(h.store.Priorities()),
			"saved_courses":   len(h.store.SavedCourses()),
			"saved_faculties": len(h.store.SavedFaculties()),
			"hidden_columns":  len(h.store.HiddenColumns()),
		},
	})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if deckErr, ok := err.(*errors.DeckError); ok {
		errorObj := map[string]any{
			"code":    deckErr.Code,
			"message": deckErr.Message,
			"status":  deckErr.Status,
		}
		if deckErr.Code != errors.ErrInternal && deckErr.Details != nil {
			errorObj["details"] = deckErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
