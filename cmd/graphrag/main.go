// Package main is the entry point for the GraphRAG service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/graphrag/internal/graphrag"
)

func main() {
	graphrag.NewApp().Run()
}
