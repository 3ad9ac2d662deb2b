// Package appfs embeds the files the binaries need at runtime.
package appfs

import "embed"

// FS holds the goose migrations and the e-mail templates.
//go:embed migrations/*.sql templates/email/*
var FS embed.FS
