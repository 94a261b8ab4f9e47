// Package loader registers every document driver via blank imports.
//
// Usage in main.go:
//
//	import _ "github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/loader"
package loader

import (
	_ "github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/json"
	_ "github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/memory"
	_ "github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/mirror"
	_ "github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/postgres"
	_ "github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/sqlite"
)
