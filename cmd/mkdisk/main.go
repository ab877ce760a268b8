// Command mkdisk writes a disk image for the file backend.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"greenos/hal"
)

const (
	defaultImagePath = "disk.img"
	defaultBlocks    = 256
	defaultBlockSize = 512
)

func main() {
	var srcPath string
	var outPath string
	var blocks uint
	var blockSize uint
	var fill uint
	flag.StringVar(&srcPath, "src", "", "File copied to the start of the image (optional).")
	flag.StringVar(&outPath, "out", defaultImagePath, "Output image path.")
	flag.UintVar(&blocks, "blocks", defaultBlocks, "Image size in blocks.")
	flag.UintVar(&blockSize, "block-size", defaultBlockSize, "Block size (bytes).")
	flag.UintVar(&fill, "fill", 0, "Byte value written to every block not covered by -src.")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "error: -out is required")
		os.Exit(2)
	}
	if blocks == 0 || blockSize == 0 {
		fmt.Fprintln(os.Stderr, "error: -blocks and -block-size must be positive")
		os.Exit(2)
	}
	if fill > 0xFF {
		fmt.Fprintln(os.Stderr, "error: -fill must be a byte value")
		os.Exit(2)
	}

	if err := run(srcPath, outPath, int(blocks), int(blockSize), byte(fill)); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(srcPath string, outPath string, blocks int, blockSize int, fill byte) (err error) {
	var src io.Reader
	if srcPath != "" {
		in, err := os.Open(srcPath)
		if err != nil {
			return fmt.Errorf("open src %q: %w", srcPath, err)
		}
		defer func() { _ = in.Close() }()
		st, err := in.Stat()
		if err != nil {
			return fmt.Errorf("stat src %q: %w", srcPath, err)
		}
		if st.Size() > int64(blocks)*int64(blockSize) {
			return fmt.Errorf("src %q is %d bytes, image holds %d", srcPath, st.Size(), blocks*blockSize)
		}
		src = in
	}

	// An existing image keeps its size when opened, so start from scratch.
	if err := os.Remove(outPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove old image %q: %w", outPath, err)
	}
	store, err := hal.OpenFileStore(outPath, int64(blocks)*int64(blockSize))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close image %q: %w", outPath, cerr)
		}
	}()

	buf := make([]byte, blockSize)
	for b := 0; b < blocks; b++ {
		n := 0
		if src != nil {
			n, err = io.ReadFull(src, buf)
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
				src = nil
			case err != nil:
				return fmt.Errorf("read src %q: %w", srcPath, err)
			}
		}
		for i := n; i < blockSize; i++ {
			buf[i] = fill
		}
		if _, err := store.WriteAt(buf, int64(b)*int64(blockSize)); err != nil {
			return fmt.Errorf("write block %d: %w", b, err)
		}
	}
	return nil
}
