// Package views embeds the HTML templates rendered by the product pages.
package views

import "embed"

//go:embed layouts/*.html products/*.html
var FS embed.FS
