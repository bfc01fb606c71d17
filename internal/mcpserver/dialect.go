package mcpserver

// DialectReference tells LLM consumers which VimWiki constructs are rewritten
// and what the Neorg output looks like.
const DialectReference = `# VimWiki to Neorg Conversion Reference

Files ending in ` + "`" + `.wiki` + "`" + ` under the source root are rewritten and written
to the same relative path under the destination root with the extension
changed to ` + "`" + `.norg` + "`" + `. Other files are ignored.

## Rules

Rules run in this order; each rule sees the output of the previous one.

| # | Rule | VimWiki | Neorg |
|---|------|---------|-------|
| 1 | header-3 | ` + "`" + `=== Title ===` + "`" + ` | ` + "`" + `*** Title` + "`" + ` |
| 2 | header-2 | ` + "`" + `== Title ==` + "`" + ` | ` + "`" + `** Title` + "`" + ` |
| 3 | header-1 | ` + "`" + `= Title =` + "`" + ` | ` + "`" + `* Title` + "`" + ` |
| 4 | link | ` + "`" + `[[My Page]]` + "`" + ` | ` + "`" + `[My_Page.norg]{My Page}` + "`" + ` |
| 5 | piped-link | ` + "`" + `[[target|label]]` + "`" + ` | ` + "`" + `[target.norg]{label}` + "`" + ` |
| 6 | trailing-marker | ` + "`" + `* Title ====` + "`" + ` | ` + "`" + `* Title` + "`" + ` |
| 7 | code-block | three backticks, a language, code, three backticks | ` + "`" + `@code lang` + "`" + ` ... ` + "`" + `@end` + "`" + ` |

Headers are matched at the start of a line only.

## Link targets

A link target becomes a file name: everything after the last dot is dropped,
spaces become underscores and ` + "`" + `.norg` + "`" + ` is appended.

- ` + "`" + `My Page` + "`" + ` -> ` + "`" + `My_Page.norg` + "`" + `
- ` + "`" + `notes.v2.draft` + "`" + ` -> ` + "`" + `notes.v2.norg` + "`" + `
- ` + "`" + `diary/2024 01 01` + "`" + ` -> ` + "`" + `diary/2024_01_01.norg` + "`" + `

## Known limitation

The plain link rule runs before the piped one and matches piped links too, so
` + "`" + `[[Home|Go Home]]` + "`" + ` currently becomes
` + "`" + `[Home|Go_Home.norg]{Home|Go Home}` + "`" + `. Existing trees depend on this
output; do not hand-fix converted files expecting a different shape.

## Everything else

Text that no rule matches (bold, lists, tables, tags, templates) is copied
through unchanged.
`
