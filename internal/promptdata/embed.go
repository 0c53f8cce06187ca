// Package promptdata embeds the default section prompts shipped with the
// profilegen binary. The filesystem is rooted at "prompts/" and holds one
// markdown file per section plus order.yaml.
package promptdata

import "embed"

// PromptsFS contains the embedded prompt files.
//
//go:embed prompts/*.md prompts/order.yaml
var PromptsFS embed.FS
