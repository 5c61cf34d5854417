package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/ccp-journal/ccp/internal/config"
	"github.com/ccp-journal/ccp/internal/entry"
	"github.com/ccp-journal/ccp/internal/errors"
	"github.com/ccp-journal/ccp/internal/logging"
	"github.com/ccp-journal/ccp/internal/mcp"
	"github.com/ccp-journal/ccp/internal/ops"
)

// defaultRootDir is the store root, relative to the home directory, used
// when --root is not given.
const defaultRootDir = ".ccp"

// appState opens the store lazily, once the global flags are known.
type appState struct {
	env *ops.Env
}

// open returns the environment for rootFlag, opening it on first use.
// The configuration is read from the starting directory; a root named
// there takes precedence over rootFlag.
func (s *appState) open(rootFlag string) (*ops.Env, error) {
	if s.env != nil {
		return s.env, nil
	}

	start := rootFlag
	if start == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home directory: %w", err)
		}
		start = filepath.Join(homeDir, defaultRootDir)
	}

	cfg, err := config.Load(start)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	root, err := config.ResolveRoot(cfg, start)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	env, err := ops.Open(cfg, root, logging.New(os.Stderr, cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	s.env = env
	return env, nil
}

// Close releases the store if it was opened.
func (s *appState) Close() {
	if s.env != nil {
		s.env.Close()
		s.env = nil
	}
}

// withEnv adapts an action that needs the store.
func (s *appState) withEnv(action func(c *cli.Context, env *ops.Env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		env, err := s.open(c.String("root"))
		if err != nil {
			return outputError(err)
		}
		return action(c, env)
	}
}

// serveMCP runs the MCP server on stdio until the client disconnects.
func serveMCP(env *ops.Env) error {
	return mcp.Run(env, Version)
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(state *appState) *cli.App {
	app := &cli.App{
		Name:    "ccp",
		Usage:   "Dated entry store",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Usage: "Store root directory (default: ~/.ccp)"},
		},
		Commands: []*cli.Command{
			initCmd(state),
			addCmd(state),
			getCmd(state),
			listCmd(state),
			updateCmd(state),
			searchCmd(state),
			statsCmd(state),
			tagsCmd(state),
			renderCmd(state),
			pathsCmd(state),
			exportCmd(state),
			importCmd(state),
			reindexCmd(state),
			repairCmd(state),
			mcpCmd(state),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// initCmd creates the init command.
func initCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Prepare the store: aggregate file and identifier counter",
		Action: state.withEnv(func(c *cli.Context, env *ops.Env) error {
			output, err := ops.Init(c.Context, env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		}),
	}
}

// addCmd creates the add command.
func addCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Create an entry (reads text from stdin when piped)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Entry title"},
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Day of the entry, YYYY-MM-DD (default: today)"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: "text", Usage: "Entry text"},
			&cli.Float64Flag{Name: "size", Usage: "Size of the recording"},
			&cli.Float64Flag{Name: "duration", Usage: "Duration of the recording"},
		},
		Action: state.withEnv(func(c *cli.Context, env *ops.Env) error {
			date, err := parseDateFlag(c, "date")
			if err != nil {
				return outputError(err)
			}

			input := ops.CreateInput{
				Title:    c.String("title"),
				Date:     date,
				Tags:     parseTags(c.String("tags")),
				Text:     c.String("text"),
				Size:     c.Float64("size"),
				Duration: c.Float64("duration"),
			}
			if !c.IsSet("text") && stdinHasData() {
				text, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				input.Text = text
			}

			output, err := ops.Create(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		}),
	}
}

// getCmd creates the get command.
func getCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch an entry by ID",
		ArgsUsage: "<id>",
		Action: state.withEnv(func(c *cli.Context, env *ops.Env) error {
			id, err := parseIDArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Get(c.Context, env, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		}),
	}
}

// listCmd creates the list command.
func listCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List entries in id order",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag", Usage: "Filter by tag"},
			&cli.StringFlag{Name: "from", Usage: "First day included, YYYY-MM-DD"},
			&cli.StringFlag{Name: "to", Usage: "First day excluded, YYYY-MM-DD"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: state.withEnv(func(c *cli.Context, env *ops.Env) error {
			from, err := parseDateFlag(c, "from")
			if err != nil {
				return outputError(err)
			}
			to, err := parseDateFlag(c, "to")
			if err != nil {
				return outputError(err)
			}

			input := ops.ListInput{
				From:   from,
				To:     to,
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			}
			if tag := c.String("tag"); tag != "" {
				input.Tag = &tag
			}

			output, err := ops.List(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		}),
	}
}

// updateCmd creates the update command.
func updateCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update fields of an entry (--text - reads text from stdin)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "New day, YYYY-MM-DD"},
			&cli.StringFlag{Name: "tags", Usage: "New comma-separated tags (empty clears)"},
			&cli.StringFlag{Name: "text", Usage: "New text, or - to read stdin"},
			&cli.Float64Flag{Name: "size", Usage: "New size"},
			&cli.Float64Flag{Name: "duration", Usage: "New duration"},
		},
		Action: state.withEnv(func(c *cli.Context, env *ops.Env) error {
			id, err := parseIDArg(c)
			if err != nil {
				return outputError(err)
			}
			date, err := parseDateFlag(c, "date")
			if err != nil {
				return outputError(err)
			}

			input := ops.UpdateInput{ID: id, Date: date}
			if c.IsSet("title") {
				title := c.String("title")
				input.Title = &title
			}
			if c.IsSet("tags") {
				tags := parseTags(c.String("tags"))
				if tags == nil {
					tags = []string{}
				}
				input.Tags = &tags
			}
			if c.IsSet("text") {
				text := c.String("text")
				if text == "-" {
					if text, err = readStdin(); err != nil {
						return outputError(errors.NewInternal(err))
					}
				}
				input.Text = &text
			}
			if c.IsSet("size") {
				size := c.Float64("size")
				input.Size = &size
			}
			if c.IsSet("duration") {
				duration := c.Float64("duration")
				input.Duration = &duration
			}

			output, err := ops.Update(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		}),
	}
}

// searchCmd creates the search command.
func searchCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search over titles, tags and text",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "from", Usage: "First day included, YYYY-MM-DD"},
			&cli.StringFlag{Name: "to", Usage: "First day excluded, YYYY-MM-DD"},
			&cli.StringFlag{Name: "sort", Value: "relevance", Usage: "Result order: relevance|day"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultSearchLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: state.withEnv(func(c *cli.Context, env *ops.Env) error {
			from, err := parseDateFlag(c, "from")
			if err != nil {
				return outputError(err)
			}
			to, err := parseDateFlag(c, "to")
			if err != nil {
				return outputError(err)
			}

			input := ops.SearchInput{
				Query:  strings.Join(c.Args().Slice(), " "),
				From:   from,
				To:     to,
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			}
			switch c.String("sort") {
			case "relevance":
			case "day":
				input.SortByDay = true
			default:
				return outputError(errors.NewInvalidRequest("sort must be relevance or day"))
			}

			output, err := ops.Search(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		}),
	}
}

// statsCmd creates the stats command.
func statsCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show totals from the aggregate file",
		Action: state.withEnv(func(c *cli.Context, env *ops.Env) error {
			output, err := ops.Stats(c.Context, env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		}),
	}
}

// tagsCmd creates the tags command.
func tagsCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List tags in use, least frequent first",
		Action: state.withEnv(func(c *cli.Context, env *ops.Env) error {
			output, err := ops.Stats(c.Context, env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output.TagNames)
		}),
	}
}

// renderCmd creates the render command.
func renderCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Render the Markdown text of an entry as HTML",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "page", Usage: "Print a standalone HTML page instead of JSON"},
		},
		Action: state.withEnv(func(c *cli.Context, env *ops.Env) error {
			id, err := parseIDArg(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Render(c.Context, env, id)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("page") {
				_, err := io.WriteString(os.Stdout, ops.RenderDocument(output))
				return err
			}
			return outputJSON(output)
		}),
	}
}

// pathsCmd creates the paths command.
func pathsCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:      "paths",
		Usage:     "Show the artifact paths of an entry",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "ensure", Usage: "Create the parent directories"},
		},
		Action: state.withEnv(func(c *cli.Context, env *ops.Env) error {
			id, err := parseIDArg(c)
			if err != nil {
				return outputError(err)
			}
			if !c.Bool("ensure") {
				return outputJSON(ops.ArtifactPaths(env, id))
			}
			output, err := ops.EnsureArtifactPaths(env, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		}),
	}
}

// exportCmd creates the export command.
func exportCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export entries to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: <root>/exports/entries-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "tag", Usage: "Filter by tag"},
		},
		Action: state.withEnv(func(c *cli.Context, env *ops.Env) error {
			input := ops.ExportInput{Path: c.String("path")}
			if tag := c.String("tag"); tag != "" {
				input.Tag = &tag
			}

			output, err := ops.Export(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		}),
	}
}

// importCmd creates the import command.
func importCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import entries from a .json, .jsonl, .yaml or .yml file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
		},
		Action: state.withEnv(func(c *cli.Context, env *ops.Env) error {
			output, err := ops.Import(c.Context, env, ops.ImportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		}),
	}
}

// reindexCmd creates the reindex command.
func reindexCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "reindex",
		Usage: "Rebuild the search index from the stored entries",
		Action: state.withEnv(func(c *cli.Context, env *ops.Env) error {
			output, err := ops.Reindex(c.Context, env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		}),
	}
}

// repairCmd creates the repair command.
func repairCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "repair",
		Usage: "Recompute the aggregate file from the stored entries",
		Action: state.withEnv(func(c *cli.Context, env *ops.Env) error {
			output, err := ops.Repair(c.Context, env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		}),
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the entry tools over MCP on stdio",
		Action: state.withEnv(func(_ *cli.Context, env *ops.Env) error {
			if err := serveMCP(env); err != nil && !stderrors.Is(err, context.Canceled) {
				return outputError(errors.NewInternal(err))
			}
			return nil
		}),
	}
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var ccpErr *errors.CcpError
	if stderrors.As(err, &ccpErr) {
		message := ccpErr.Message
		if err != error(ccpErr) {
			message = err.Error()
		}
		return cli.Exit(fmt.Sprintf("[%s] %s", ccpErr.Code, message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// parseIDArg reads the positional entry ID.
func parseIDArg(c *cli.Context) (entry.ID, error) {
	if c.NArg() == 0 {
		return 0, errors.NewInvalidRequest("an entry id is required")
	}
	id, err := entry.ParseID(c.Args().First())
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("invalid entry id %q", c.Args().First()))
	}
	return id, nil
}

// parseDateFlag reads an optional YYYY-MM-DD flag.
func parseDateFlag(c *cli.Context, name string) (*entry.Date, error) {
	s := strings.TrimSpace(c.String(name))
	if s == "" {
		return nil, nil
	}
	d, err := entry.ParseDate(s)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s must be a date in YYYY-MM-DD form", name))
	}
	return &d, nil
}
