// Package profile holds the runtime configuration shared by the CLI
// and the HTTP server.
package profile

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hupe1980/vectra/persistence"
)

// Profile is the configuration to start the engine and its surfaces.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the HTTP server
	Addr string
	// Data is the snapshot data directory
	Data string
	// CacheMaxBytes is the collection cache byte budget
	CacheMaxBytes int
	// CacheTTL is the idle lifetime of a clean cached collection
	CacheTTL time.Duration
	// FlushInterval is the flush/eviction scheduler period
	FlushInterval time.Duration
	// Compression selects the snapshot body codec: none, zstd or lz4
	Compression string
	// Driver is the bulk-import database driver (sqlite or postgres)
	Driver string
	// DSN is the bulk-import database connection string
	DSN string
	// Version is the current version of the binary
	Version string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Codec resolves the configured compression name.
func (p *Profile) Codec() (persistence.Codec, error) {
	codec, err := persistence.ParseCodec(p.Compression)
	if err != nil {
		return 0, errors.Wrap(err, "invalid compression setting")
	}
	return codec, nil
}

// Validate normalizes the profile and ensures the data directory
// exists, creating it if necessary.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Data == "" {
		p.Data = "data"
	}
	if !filepath.IsAbs(p.Data) {
		absDir, err := filepath.Abs(p.Data)
		if err != nil {
			return errors.Wrapf(err, "unable to resolve data folder %s", p.Data)
		}
		p.Data = absDir
	}
	p.Data = strings.TrimRight(p.Data, "\\/")

	if err := os.MkdirAll(p.Data, 0770); err != nil {
		return errors.Wrapf(err, "unable to create data folder %s", p.Data)
	}

	if _, err := p.Codec(); err != nil {
		return err
	}

	if p.CacheMaxBytes < 0 {
		return errors.Errorf("cache budget must not be negative: %d", p.CacheMaxBytes)
	}
	return nil
}
