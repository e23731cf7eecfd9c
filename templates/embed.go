package templates

import "embed"

// EmailFS contains the html/template and text/template files used for outgoing email.
//
//go:embed email/*
var EmailFS embed.FS
