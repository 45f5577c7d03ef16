/*
Package homebrew is a library for converting asset files into the raw forms
used by homebrew console and handheld toolchains.
*/
package homebrew

import (
	"log"

	"github.com/bodgit/homebrew/cache"
)

type Converter struct {
	cache  *cache.DB
	logger *log.Logger
	warn   *log.Logger
}

// New returns a Converter. The cache may be nil. Progress is reported to
// logger and warnings about questionable options to warn.
func New(cache *cache.DB, logger, warn *log.Logger) *Converter {
	return &Converter{
		cache:  cache,
		logger: logger,
		warn:   warn,
	}
}
