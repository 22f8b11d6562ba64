package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `inventory reports on the uploads and per-project databases of the data normalization platform.

Core concepts:
- Upload: one data upload recorded in the main store (status completed, failed or in_progress).
- Project database: a per-project SQLite file registered in the service store; uploads point at one by database_id.
- Scan: a pass over every upload that counts nomenclature and counterparty records in each database file.
- Summary: the aggregate a scan produces. Details list one entry per upload.
- Scan history: every scan run is recorded, failures included, and can be listed and compared.

Default workflow:
1) get_system_summary for the latest numbers (refresh=true to scan now; full=true to ignore incremental mode).
2) Narrow large summaries with status / search / sort_by / limit instead of reading every detail.
3) get_scan_history and compare_scans to see what changed between runs.
4) get_client / get_client_project / get_project_database to resolve ids in upload details.

Docs:
- inventory://docs/index
- inventory://docs/scanning
- inventory://docs/history
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "inventory://docs/index",
		Name:        "docs_index",
		Title:       "inventory docs index",
		Description: "Entry point: available tools, what to read next, and known limitations.",
		Content: `# inventory: Docs Index

## Quick start

1. ` + "`get_system_summary`" + ` returns the latest scan, scanning first if nothing has been scanned yet.
2. ` + "`get_scan_history`" + ` lists recorded scans (most recent first).
3. ` + "`compare_scans`" + ` diffs the two most recent scans, or two scans by id.

## Docs

- ` + "`inventory://docs/scanning`" + ` - how scans count records, incremental mode, skipped databases.
- ` + "`inventory://docs/history`" + ` - how runs are recorded and compared.

## Limitations

- Counts are read from database files on disk; a file that cannot be opened within the per-database timeout is skipped.
- Metadata lookups are cached (databases 5m, projects 10m, clients 15m by default). Use ` + "`invalidate_metadata`" + ` after editing the service store.
- Summaries with many uploads are large. Use ` + "`limit`" + ` and filters to control token usage.
`,
	},
	{
		URI:         "inventory://docs/scanning",
		Name:        "docs_scanning",
		Title:       "Scanning",
		Description: "How a scan is built and what incremental mode reports.",
		Content: `# Scanning

A scan reads every upload from the main store, resolves each upload's database_id to a file
through the service store, and counts records in that file:

- nomenclature: rows of ` + "`nomenclature_items`" + `
- counterparties: rows of ` + "`counterparties`" + `, else typed rows of ` + "`normalized_data`" + `, else ` + "`catalog_items`" + `

Database files are counted concurrently with a per-file timeout. Files that are missing, unreadable
or slow are skipped: the upload stays in the details with zero counts and ` + "`databases_skipped`" + ` grows.

## Totals

- ` + "`total_uploads`" + ` counts every upload; completed / failed / in_progress count exact statuses.
- ` + "`total_databases`" + ` counts distinct database ids.
- ` + "`last_activity`" + ` is the latest started or completed time.

## Incremental mode

When the server runs in incremental mode, a scan reports only uploads whose database file changed
since the previous scan (plus uploads with no database file). Totals describe that subset.
Pass ` + "`full=true`" + ` to get totals for the whole inventory.
`,
	},
	{
		URI:         "inventory://docs/history",
		Name:        "docs_history",
		Title:       "Scan history",
		Description: "How scans are recorded, listed and compared.",
		Content: `# Scan history

Every scan run is recorded with its time, duration and outcome. Failed runs are recorded with
` + "`success=false`" + ` and an ` + "`error`" + ` message.

## Listing

` + "`get_scan_history`" + ` returns at most 50 scans by default and never more than 1000. Per-upload details
are dropped unless ` + "`include_details=true`" + `.

## Comparing

` + "`compare_scans`" + ` reports the change in each total (new minus old) and the uploads present in the
newer scan but not the older one, matched by upload uuid. Without ids it compares the two most
recent scans; it fails with NOT_ENOUGH_HISTORY when fewer than two are recorded.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
