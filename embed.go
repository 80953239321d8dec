package voicebox

import "embed"

//go:embed web/*
var WebFiles embed.FS
