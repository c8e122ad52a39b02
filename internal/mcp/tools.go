package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var listToolDef = mcp.NewTool("course_list",
	mcp.WithDescription("List course sections from the current snapshot with optional search, filters, sorting, and pagination."),
	mcp.WithString("search",
		mcp.Description("Free-text search; whitespace-separated terms are ANDed across code, section, faculty, time, room, and index."),
	),
	mcp.WithArray("courses",
		mcp.Description("Course codes to filter by, matched case-insensitively. Multiple codes are ORed."),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithArray("faculties",
		mcp.Description("Faculty initials to filter by, matched case-insensitively. Multiple values are ORed."),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithArray("days",
		mcp.Description("Day pattern filters: one of ST, MW, RA, S, T, M, W, R, A. Singles match exact day runs, pairs match by containment."),
		mcp.Items(map[string]any{"type": "string"}),
	),
	mcp.WithBoolean("starred_only",
		mcp.Description("When true, only starred sections are returned."),
	),
	mcp.WithArray("sort",
		mcp.Description("Ordered sort specs, primary first. Each item is {key, direction} with key one of index, courseCode, section, faculty, time, room, priority and direction asc or desc. Defaults to priority descending."),
		mcp.Items(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key":       map[string]any{"type": "string"},
				"direction": map[string]any{"type": "string"},
			},
		}),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of sections to return (default 50)."),
	),
	mcp.WithNumber("offset",
		mcp.Description("Number of sections to skip from the start of the result."),
	),
)

var getToolDef = mcp.NewTool("course_get",
	mcp.WithDescription("Fetch one course section by its id (courseCode-section)."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Section id, e.g. CSE115-1."),
	),
)

var metaToolDef = mcp.NewTool("course_meta",
	mcp.WithDescription("Return snapshot metadata: semester label, extraction timestamp, total sections, and unique course count."),
)

var starToolDef = mcp.NewTool("course_star",
	mcp.WithDescription("Toggle the star on a course section. Returns the new starred state."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Section id, e.g. CSE115-1."),
	),
)

var priorityToolDef = mcp.NewTool("course_priority",
	mcp.WithDescription("Set or bump a section's sort priority. Setting 0 removes the entry. Bumps clamp to [-9, 99]."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Section id, e.g. CSE115-1."),
	),
	mcp.WithNumber("priority",
		mcp.Description("Absolute priority to assign. Mutually exclusive with delta."),
	),
	mcp.WithNumber("delta",
		mcp.Description("Signed amount to add to the current priority. Mutually exclusive with priority."),
	),
)

var saveToolDef = mcp.NewTool("course_save",
	mcp.WithDescription("Toggle or remove a saved course code or faculty for quick filtering."),
	mcp.WithString("kind",
		mcp.Required(),
		mcp.Description("What to save: course or faculty."),
		mcp.Enum("course", "faculty"),
	),
	mcp.WithString("value",
		mcp.Required(),
		mcp.Description("Course code or faculty initials."),
	),
	mcp.WithBoolean("remove",
		mcp.Description("When true, remove the entry instead of toggling it."),
	),
)

var exportToolDef = mcp.NewTool("prefs_export",
	mcp.WithDescription("Export all personalization state (stars, priorities, saved courses, saved faculties, hidden columns) as a portable document."),
)

var importToolDef = mcp.NewTool("prefs_import",
	mcp.WithDescription("Import a previously exported preferences document. Fields present in the document replace current state wholesale; absent fields are left untouched."),
	mcp.WithObject("document",
		mcp.Required(),
		mcp.Description("The exported preferences document."),
	),
)
