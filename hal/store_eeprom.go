package hal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/at24cx"
)

const (
	eepromPageSize = 64
	eepromMaxSize  = 32 * 1024
)

var errEEPROMNack = errors.New("eeprom: no acknowledge")

// eepromChip emulates an AT24C256-class serial EEPROM on an I2C bus.
type eepromChip struct {
	mu   sync.Mutex
	addr uint16
	mem  []byte
	txs  uint64
}

var _ drivers.I2C = (*eepromChip)(nil)

// Tx implements one I2C transaction: a two byte word address, optionally
// followed by data to write, and an optional sequential read.
func (c *eepromChip) Tx(addr uint16, w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if addr != c.addr {
		return errEEPROMNack
	}
	if len(w) < 2 {
		return fmt.Errorf("eeprom: short address (%d bytes): %w", len(w), os.ErrInvalid)
	}
	c.txs++
	size := len(c.mem)
	ptr := (int(w[0])<<8 | int(w[1])) % size

	if data := w[2:]; len(data) > 0 {
		if len(data) > eepromPageSize {
			return fmt.Errorf("eeprom: page write of %d bytes: %w", len(data), os.ErrInvalid)
		}
		page := ptr - ptr%eepromPageSize
		for i, b := range data {
			c.mem[page+(ptr-page+i)%eepromPageSize] = b
		}
	}
	for i := range r {
		r[i] = c.mem[(ptr+i)%size]
	}
	return nil
}

// eepromStore is a BlockStore on an AT24Cx EEPROM driven through the
// tinygo driver.
type eepromStore struct {
	mu   sync.Mutex
	dev  at24cx.Device
	chip *eepromChip
	size int64
}

// NewEEPROMStore returns a store backed by an emulated serial EEPROM of
// size bytes. size must be a positive multiple of the 64-byte page and at
// most 32 KiB.
func NewEEPROMStore(size int) (BlockStore, error) {
	if size <= 0 || size > eepromMaxSize || size%eepromPageSize != 0 {
		return nil, fmt.Errorf("eeprom size %d: %w", size, os.ErrInvalid)
	}
	chip := &eepromChip{addr: at24cx.Address, mem: make([]byte, size)}
	for i := range chip.mem {
		chip.mem[i] = 0xFF
	}
	dev := at24cx.New(chip)
	dev.Configure(at24cx.Config{PageSize: eepromPageSize, EndRAMAddress: uint16(size)})
	return &eepromStore{dev: dev, chip: chip, size: int64(size)}, nil
}

func (s *eepromStore) Size() int64 { return s.size }

func (s *eepromStore) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if off < 0 || off >= s.size {
		return 0, io.EOF
	}
	short := false
	if rem := s.size - off; int64(len(p)) > rem {
		p = p[:rem]
		short = true
	}
	n, err := s.dev.ReadAt(p, off)
	if err == nil && short {
		err = io.EOF
	}
	return n, err
}

func (s *eepromStore) WriteAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if off < 0 || off+int64(len(p)) > s.size {
		return 0, fmt.Errorf("eeprom write of %d bytes at %d: %w", len(p), off, os.ErrInvalid)
	}
	return s.dev.WriteAt(p, off)
}

func (s *eepromStore) Close() error { return nil }
