package hal

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Disk backends accepted by HostConfig.DiskBackend.
const (
	DiskNone   = "none"
	DiskMem    = "mem"
	DiskFile   = "file"
	DiskEEPROM = "eeprom"
)

// HostConfig controls the host HAL.
type HostConfig struct {
	TickInterval time.Duration

	DiskBackend string
	DiskPath    string
	Blocks      int
	BlockSize   int
	Latency     time.Duration

	LogLevel  logrus.Level
	LogJSON   bool
	LogOutput io.Writer
}

type hostHAL struct {
	logger *logrus.Logger
	t      *Ticker
	disk   *DiskController
}

// NewHost returns a HAL backed by the host: a wall-clock ticker, logrus
// logging and an emulated disk on the configured backend.
func NewHost(cfg HostConfig) (HAL, error) {
	logger := logrus.New()
	logger.SetLevel(cfg.LogLevel)
	if cfg.LogOutput != nil {
		logger.SetOutput(cfg.LogOutput)
	} else {
		logger.SetOutput(os.Stderr)
	}
	if cfg.LogJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 512
	}
	if cfg.Blocks <= 0 {
		cfg.Blocks = 256
	}
	size := int64(cfg.Blocks) * int64(cfg.BlockSize)

	var store BlockStore
	var err error
	switch cfg.DiskBackend {
	case "", DiskNone:
	case DiskMem:
		store = NewMemStore(int(size))
	case DiskFile:
		if cfg.DiskPath == "" {
			return nil, fmt.Errorf("file disk backend needs a path: %w", os.ErrInvalid)
		}
		store, err = OpenFileStore(cfg.DiskPath, size)
	case DiskEEPROM:
		store, err = NewEEPROMStore(int(size))
	default:
		return nil, fmt.Errorf("unknown disk backend %q: %w", cfg.DiskBackend, os.ErrInvalid)
	}
	if err != nil {
		return nil, err
	}

	h := &hostHAL{logger: logger, t: NewTicker(cfg.TickInterval)}
	if store != nil {
		h.disk = NewDisk(store, DiskOptions{BlockSize: cfg.BlockSize, Latency: cfg.Latency})
		logger.WithFields(logrus.Fields{
			"backend":    cfg.DiskBackend,
			"blocks":     size / int64(cfg.BlockSize),
			"block_size": cfg.BlockSize,
		}).Debug("disk attached")
	}
	return h, nil
}

func (h *hostHAL) Logger() logrus.FieldLogger { return h.logger }

func (h *hostHAL) Time() Time { return h.t }

func (h *hostHAL) Disk() Disk {
	if h.disk == nil {
		return nil
	}
	return h.disk
}

func (h *hostHAL) Close() error {
	h.t.Stop()
	if h.disk != nil {
		return h.disk.Close()
	}
	return nil
}
