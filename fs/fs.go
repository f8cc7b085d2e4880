// Package appfs embeds the files shipped inside the binaries: SQL migrations, email templates & static assets.
package appfs

import "embed"

//go:embed migrations/*.sql all:templates assets
var FS embed.FS
