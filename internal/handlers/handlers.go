package handlers

import (
	"media-catalog/internal/database"
	"media-catalog/internal/index"
	"media-catalog/internal/indexer"
	"media-catalog/internal/media"
	"media-catalog/internal/startup"
)

// Handlers serves the catalog API.
type Handlers struct {
	indexer  *indexer.Indexer
	state    *index.State
	db       *database.Database
	thumbGen *media.ThumbnailGenerator
}

// New wires handlers to a running indexer. Thumbnails missing from the
// catalog are generated on request unless GenerateThumbnails is off.
func New(idx *indexer.Indexer, db *database.Database, config *startup.Config) *Handlers {
	h := &Handlers{
		indexer: idx,
		state:   idx.State(),
		db:      db,
	}
	if config.GenerateThumbnails {
		h.thumbGen = media.NewThumbnailGenerator(config.ThumbnailSize)
	}
	return h
}
