// Package models defines the domain types shared by the converter packages.
package models

import "time"

// SourceFile is a VimWiki file found under the source root.
type SourceFile struct {
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Conversion records one source file written to its Neorg counterpart.
type Conversion struct {
	Source      string    `json:"source"`
	Dest        string    `json:"dest"`
	Checksum    string    `json:"checksum"`
	RunID       string    `json:"run_id,omitempty"`
	ConvertedAt time.Time `json:"converted_at"`
}

// Link is a wikilink edge from a converted file, as stored by the manifest.
type Link struct {
	Source string `json:"source"`
	Raw    string `json:"raw"`
	Target string `json:"target"`
	File   string `json:"file"`
}
