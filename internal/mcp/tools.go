package mcp

import "github.com/mark3labs/mcp-go/mcp"

var createToolDef = mcp.NewTool("entry_create",
	mcp.WithDescription("Create a journal entry. The entry gets the next identifier; title defaults to \"TITLE MISSING\" and the day to today."),
	mcp.WithString("title", mcp.Description("Entry title.")),
	mcp.WithString("timestamp", mcp.Description("Day of the entry as YYYY-MM-DD.")),
	mcp.WithArray("tags", mcp.Description("Tags, kept in order. Duplicates are allowed."), mcp.WithStringItems()),
	mcp.WithString("text", mcp.Description("Entry body in Markdown.")),
	mcp.WithNumber("size", mcp.Description("Size of the recording in bytes."), mcp.Min(0)),
	mcp.WithNumber("duration", mcp.Description("Duration of the recording in seconds."), mcp.Min(0)),
)

var getToolDef = mcp.NewTool("entry_get",
	mcp.WithDescription("Fetch one entry by identifier."),
	mcp.WithNumber("id", mcp.Required(), mcp.Description("Entry identifier.")),
)

var listToolDef = mcp.NewTool("entry_list",
	mcp.WithDescription("List entries in identifier order, optionally filtered by tag or day range."),
	mcp.WithString("tag", mcp.Description("Only entries carrying this tag.")),
	mcp.WithString("from", mcp.Description("First day included, YYYY-MM-DD.")),
	mcp.WithString("to", mcp.Description("First day excluded, YYYY-MM-DD.")),
	mcp.WithNumber("limit", mcp.Description("Page size, default 20, max 100.")),
	mcp.WithNumber("offset", mcp.Description("Number of entries to skip.")),
)

var updateToolDef = mcp.NewTool("entry_update",
	mcp.WithDescription("Change fields of an entry. Omitted fields are kept; the identifier never changes."),
	mcp.WithNumber("id", mcp.Required(), mcp.Description("Entry identifier.")),
	mcp.WithString("title", mcp.Description("New title.")),
	mcp.WithString("timestamp", mcp.Description("New day, YYYY-MM-DD.")),
	mcp.WithArray("tags", mcp.Description("Replacement tag list."), mcp.WithStringItems()),
	mcp.WithString("text", mcp.Description("New body in Markdown.")),
	mcp.WithNumber("size", mcp.Description("New size in bytes."), mcp.Min(0)),
	mcp.WithNumber("duration", mcp.Description("New duration in seconds."), mcp.Min(0)),
)

var searchToolDef = mcp.NewTool("entry_search",
	mcp.WithDescription("Full-text search over titles, text and tags. Every word must match."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Words to search for.")),
	mcp.WithString("from", mcp.Description("First day included, YYYY-MM-DD.")),
	mcp.WithString("to", mcp.Description("First day excluded, YYYY-MM-DD.")),
	mcp.WithString("sort", mcp.Description("relevance (default) or day."), mcp.Enum("relevance", "day")),
	mcp.WithNumber("limit", mcp.Description("Page size, default 20, max 100.")),
	mcp.WithNumber("offset", mcp.Description("Number of hits to skip.")),
)

var statsToolDef = mcp.NewTool("entry_stats",
	mcp.WithDescription("Entry count, total size, last identifier and tags by ascending use."),
)

var renderToolDef = mcp.NewTool("entry_render",
	mcp.WithDescription("Render the Markdown text of an entry as HTML."),
	mcp.WithNumber("id", mcp.Required(), mcp.Description("Entry identifier.")),
)

var pathsToolDef = mcp.NewTool("entry_paths",
	mcp.WithDescription("Artifact locations of an entry: final output, working file and transcript."),
	mcp.WithNumber("id", mcp.Required(), mcp.Description("Entry identifier.")),
	mcp.WithBoolean("ensure", mcp.Description("Create the directories as well.")),
)

var exportToolDef = mcp.NewTool("entry_export",
	mcp.WithDescription("Write entries to a JSONL file, one header line then one entry per line."),
	mcp.WithString("path", mcp.Description("Destination .jsonl file; defaults to the exports directory.")),
	mcp.WithString("tag", mcp.Description("Only export entries carrying this tag.")),
)

var importToolDef = mcp.NewTool("entry_import",
	mcp.WithDescription("Import entries from a .json, .jsonl, .yaml or .yml file. Failing records are reported and skipped."),
	mcp.WithString("path", mcp.Required(), mcp.Description("File to import.")),
)
