package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/nafisfuad/coursedeck/internal/config"
	"github.com/nafisfuad/coursedeck/internal/course"
	"github.com/nafisfuad/coursedeck/internal/errors"
	"github.com/nafisfuad/coursedeck/internal/prefs"
	"github.com/nafisfuad/coursedeck/internal/query"
	"github.com/nafisfuad/coursedeck/internal/snapshot"
	"github.com/nafisfuad/coursedeck/internal/web"
)

// maxImportBytes caps how much stdin the import command will read.
const maxImportBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(snap *snapshot.Snapshot, store *prefs.Store, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "coursedeck",
		Usage:   "Local course section browser",
		Version: Version,
		Commands: []*cli.Command{
			listCmd(snap, store, cfg),
			getCmd(snap, store),
			metaCmd(snap),
			starCmd(snap, store),
			priorityCmd(snap, store),
			saveCmd(store),
			columnsCmd(store),
			exportCmd(store),
			importCmd(store),
			serveCmd(snap, store, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// courseItem is one section in CLI output, annotated with the caller's
// personalization state.
type courseItem struct {
	course.Course
	Starred  bool `json:"starred"`
	Priority int  `json:"priority"`
}

func annotate(c course.Course, store *prefs.Store) courseItem {
	return courseItem{
		Course:   c,
		Starred:  store.IsStarred(c.ID),
		Priority: store.GetPriority(c.ID),
	}
}

// listCmd creates the list command.
func listCmd(snap *snapshot.Snapshot, store *prefs.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List course sections with optional search, filters, and sorting",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Free-text search, terms are ANDed"},
			&cli.StringSliceFlag{Name: "course", Aliases: []string{"c"}, Usage: "Filter by course code (repeatable)"},
			&cli.StringSliceFlag{Name: "faculty", Aliases: []string{"f"}, Usage: "Filter by faculty initials (repeatable)"},
			&cli.StringSliceFlag{Name: "day", Aliases: []string{"d"}, Usage: "Filter by day pattern: ST, MW, RA, S, T, M, W, R, A (repeatable)"},
			&cli.BoolFlag{Name: "starred", Usage: "Only starred sections"},
			&cli.StringSliceFlag{Name: "sort", Usage: "Sort spec 'key' or 'key:desc' (repeatable, primary first)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum sections to return (default: page size)"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Sections to skip"},
		},
		Action: func(c *cli.Context) error {
			data, err := snap.Load()
			if err != nil {
				return outputError(err)
			}

			eng := query.NewEngine(data.Courses, store, cfg.PageSize)
			eng.SetSearch(c.String("search"))
			for _, code := range c.StringSlice("course") {
				eng.ToggleCourseFilter(code)
			}
			for _, f := range c.StringSlice("faculty") {
				eng.ToggleFacultyFilter(f)
			}
			for _, d := range c.StringSlice("day") {
				if err := eng.ToggleDayFilter(query.DayFilter(d)); err != nil {
					return outputError(err)
				}
			}
			if c.Bool("starred") {
				eng.ToggleStarredOnly()
			}
			if sorts := c.StringSlice("sort"); len(sorts) > 0 {
				eng.ClearSorts()
				for _, s := range sorts {
					if err := applySortSpec(eng, s); err != nil {
						return outputError(err)
					}
				}
			}

			matched := eng.Courses()
			total := len(matched)

			limit := c.Int("limit")
			if limit <= 0 {
				limit = cfg.PageSize
			}
			offset := c.Int("offset")
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
			for _, cs := range matched[offset:end] {
				items = append(items, annotate(cs, store))
			}

			return outputJSON(map[string]any{
				"items": items,
				"meta":  data.Meta,
				"pagination": map[string]any{
					"total":    total,
					"limit":    limit,
					"offset":   offset,
					"has_more": end < total,
				},
			})
		},
	}
}

// getCmd creates the get command.
func getCmd(snap *snapshot.Snapshot, store *prefs.Store) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch one section by id (courseCode-section)",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("section id is required"))
			}
			id := c.Args().First()

			data, err := snap.Load()
			if err != nil {
				return outputError(err)
			}
			for _, cs := range data.Courses {
				if cs.ID == id {
					return outputJSON(annotate(cs, store))
				}
			}
			return outputError(errors.NewNotFound(id))
		},
	}
}

// metaCmd creates the meta command.
func metaCmd(snap *snapshot.Snapshot) *cli.Command {
	return &cli.Command{
		Name:  "meta",
		Usage: "Show snapshot metadata",
		Action: func(c *cli.Context) error {
			data, err := snap.Load()
			if err != nil {
				return outputError(err)
			}
			return outputJSON(data.Meta)
		},
	}
}

// starCmd creates the star command.
func starCmd(snap *snapshot.Snapshot, store *prefs.Store) *cli.Command {
	return &cli.Command{
		Name:      "star",
		Usage:     "Toggle the star on a section",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("section id is required"))
			}
			id := c.Args().First()

			data, err := snap.Load()
			if err != nil {
				return outputError(err)
			}
			if !sectionExists(data, id) {
				return outputError(errors.NewNotFound(id))
			}

			starred, err := store.ToggleStar(id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"id": id, "starred": starred})
		},
	}
}

// priorityCmd creates the priority command.
func priorityCmd(snap *snapshot.Snapshot, store *prefs.Store) *cli.Command {
	return &cli.Command{
		Name:      "priority",
		Usage:     "Set or bump a section's sort priority",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "set", Usage: "Absolute priority (0 clears the entry)"},
			&cli.IntFlag{Name: "delta", Aliases: []string{"d"}, Usage: "Signed bump, clamped to [-9, 99]"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("section id is required"))
			}
			if c.IsSet("set") == c.IsSet("delta") {
				return outputError(errors.NewInvalidRequest("exactly one of --set or --delta is required"))
			}
			id := c.Args().First()

			data, err := snap.Load()
			if err != nil {
				return outputError(err)
			}
			if !sectionExists(data, id) {
				return outputError(errors.NewNotFound(id))
			}

			var current int
			if c.IsSet("set") {
				if err := store.SetPriority(id, c.Int("set")); err != nil {
					return outputError(err)
				}
				current = store.GetPriority(id)
			} else {
				current, err = store.BumpPriority(id, c.Int("delta"))
				if err != nil {
					return outputError(err)
				}
			}
			return outputJSON(map[string]any{"id": id, "priority": current})
		},
	}
}

// saveCmd creates the save command.
func saveCmd(store *prefs.Store) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Toggle or remove a saved course code or faculty",
		ArgsUsage: "<value>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Value: "course", Usage: "What to save: course|faculty"},
			&cli.BoolFlag{Name: "remove", Usage: "Remove the entry instead of toggling"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("value is required"))
			}
			value := c.Args().First()
			kind := c.String("kind")

			switch kind {
			case "course":
				if c.Bool("remove") {
					removed, err := store.RemoveSavedCourse(value)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"kind": kind, "value": value, "removed": removed})
				}
				if err := store.ToggleSavedCourse(value); err != nil {
					return outputError(err)
				}
				return outputJSON(map[string]any{"kind": kind, "value": value, "saved_courses": store.SavedCourses()})
			case "faculty":
				if c.Bool("remove") {
					removed, err := store.RemoveSavedFaculty(value)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]any{"kind": kind, "value": value, "removed": removed})
				}
				if err := store.ToggleSavedFaculty(value); err != nil {
					return outputError(err)
				}
				return outputJSON(map[string]any{"kind": kind, "value": value, "saved_faculties": store.SavedFaculties()})
			default:
				return outputError(errors.NewInvalidRequest("kind must be course or faculty: " + kind))
			}
		},
	}
}

// columnsCmd creates the columns command.
func columnsCmd(store *prefs.Store) *cli.Command {
	return &cli.Command{
		Name:  "columns",
		Usage: "Show or change table column visibility",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "toggle", Aliases: []string{"t"}, Usage: "Toggle a column by name"},
			&cli.BoolFlag{Name: "reset", Usage: "Restore default column visibility"},
		},
		Action: func(c *cli.Context) error {
			if c.Bool("reset") {
				if err := store.ResetColumns(); err != nil {
					return outputError(err)
				}
			} else if name := c.String("toggle"); name != "" {
				if _, err := store.ToggleColumn(prefs.Column(name)); err != nil {
					return outputError(err)
				}
			}

			states := make([]map[string]any, 0, len(prefs.Columns))
			for _, col := range prefs.Columns {
				states = append(states, map[string]any{
					"name":    string(col),
					"visible": store.IsColumnVisible(col),
				})
			}
			return outputJSON(map[string]any{"columns": states})
		},
	}
}

// exportCmd creates the export command.
func exportCmd(store *prefs.Store) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export personalization state as a portable document",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Write to a file instead of stdout"},
		},
		Action: func(c *cli.Context) error {
			doc := store.Export()

			if path := c.String("path"); path != "" {
				data, err := json.MarshalIndent(doc, "", "  ")
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
					return outputError(errors.NewInternal(err))
				}
				return outputJSON(map[string]any{"exported": true, "path": path})
			}

			return outputJSON(doc)
		},
	}
}

// importCmd creates the import command.
func importCmd(store *prefs.Store) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a preferences document from a file or stdin",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Import file path (default: stdin)"},
		},
		Action: func(c *cli.Context) error {
			var data []byte
			var err error

			if path := c.String("path"); path != "" {
				data, err = os.ReadFile(path)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
			} else {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("document must be piped via stdin or given with --path"))
				}
				data, err = readStdin(maxImportBytes)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
			}

			if err := store.Import(data); err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"imported": true})
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(snap *snapshot.Snapshot, store *prefs.Store, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8750, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(snap, store, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if deckErr, ok := err.(*errors.DeckError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", deckErr.Code, deckErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// applySortSpec toggles a 'key' or 'key:desc' sort spec onto the engine.
func applySortSpec(eng *query.Engine, spec string) error {
	key, dir, _ := strings.Cut(spec, ":")
	if dir != "" && dir != "asc" && dir != "desc" {
		return errors.NewInvalidRequest("sort direction must be asc or desc: " + dir)
	}
	if err := eng.ToggleSort(query.SortKey(key)); err != nil {
		return err
	}
	if dir == "desc" {
		return eng.ToggleSort(query.SortKey(key))
	}
	return nil
}

// sectionExists reports whether the snapshot carries a section with the id.
func sectionExists(data *course.CourseData, id string) bool {
	for _, c := range data.Courses {
		if c.ID == id {
			return true
		}
	}
	return false
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads stdin up to limit bytes, erroring once the limit is exceeded.
func readStdin(limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("document exceeds %d bytes", limit)
	}
	return data, nil
}
