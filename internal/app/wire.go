package app

import (
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"timecapsule/internal/crypto"
	"timecapsule/internal/domain"
	"timecapsule/internal/log"
	sealsvc "timecapsule/internal/services/seal"
	"timecapsule/internal/services/sharelink"
	"timecapsule/internal/services/unlock"
	"timecapsule/internal/store"
	"timecapsule/internal/vault"
)

// Daemon bundles the server-side dependency graph.
type Daemon struct {
	Store      *store.BoltStore
	Server     *vault.Server
	Registry   *prometheus.Registry
	LogBackend *log.Backend
}

// logObserver records first opens. Actual owner delivery (email, push)
// is an external collaborator hooked in behind unlock.Observer.
type logObserver struct {
	backend *log.Backend
}

func (o *logObserver) FirstOpened(id domain.LetterID, at time.Time) {
	o.backend.GetLogger("notify").Noticef("letter %s: first opened at %s", id, at.UTC().Format(time.RFC3339))
}

// NewDaemon constructs the server graph from cfg.
func NewDaemon(cfg *Config) (*Daemon, error) {
	backend, err := log.New(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Disable)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(filepath.Join(cfg.Server.DataDir, "vault.db"))
	if err != nil {
		return nil, err
	}
	blobs := store.NewFileBlobStore(filepath.Join(cfg.Server.DataDir, "blobs"))

	clock := domain.Clock(time.Now)
	links := sharelink.New(st, st, clock, backend.GetLogger("sharelink"))
	gate := unlock.New(st, st, clock, &logObserver{backend: backend}, backend.GetLogger("unlock"))

	var reg *prometheus.Registry
	if cfg.Server.Metrics {
		reg = prometheus.NewRegistry()
	}
	srv := vault.NewServer(st, blobs, links, gate, backend.GetLogger("vault"), registerer(reg))

	return &Daemon{Store: st, Server: srv, Registry: reg, LogBackend: backend}, nil
}

func registerer(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return nil
	}
	return reg
}

// Client bundles the CLI dependency graph.
type Client struct {
	Vault      domain.VaultClient
	Blobs      domain.BlobStore
	Seal       *sealsvc.Service
	LogBackend *log.Backend
}

// NewClient constructs the CLI graph from cfg.
func NewClient(cfg ClientConfig) (*Client, error) {
	level := cfg.LogLevel
	if level == "" {
		level = "NOTICE"
	}
	backend, err := log.New("", level, false)
	if err != nil {
		return nil, err
	}

	vc := vault.NewClient(cfg.VaultURL, cfg.HTTP)
	blobs := store.NewFileBlobStore(cfg.BlobDir)
	pipeline := sealsvc.New(vc, blobs, crypto.DefaultParams(), backend.GetLogger("seal"))

	return &Client{Vault: vc, Blobs: blobs, Seal: pipeline, LogBackend: backend}, nil
}
