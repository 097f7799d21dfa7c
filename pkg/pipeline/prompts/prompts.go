// Package prompts embeds the prompt templates used by the pipeline.
package prompts

import "embed"

// PromptsFS contains the embedded prompt files.
//
//go:embed *.md
var PromptsFS embed.FS
