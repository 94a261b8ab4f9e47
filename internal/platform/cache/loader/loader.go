// Package loader registers cache drivers via blank imports.
//
// Usage in main.go:
//
//	import _ "github.com/MahdiBaghbani/pizzabot-go/internal/platform/cache/loader"
package loader

import (
	_ "github.com/MahdiBaghbani/pizzabot-go/internal/platform/cache/memory"
)
