package main

import (
	cmd "github.com/lifeembedding/lifeembedding/cmd/lifeembedding"
	"github.com/lifeembedding/lifeembedding/internal"
)

var log = internal.GetLogger()

func main() {
	log.Info("Starting lifeembedding")
	cmd.Execute()
}
