package visibility

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/halvard/tradewinds/internal/world"
)

const stateFileVersion = 1

type stateFile struct {
	Version   int
	Active    bool
	Processed []world.Position
}

// Save writes the processed view points to path as zstd-compressed gob.
func (c *Computer) Save(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriter(enc)
	defer bw.Flush()

	file := stateFile{Version: stateFileVersion, Active: c.active}
	for p := range c.processed {
		file.Processed = append(file.Processed, p)
	}
	if err := gob.NewEncoder(bw).Encode(&file); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

// Load replaces the processed view points with those stored at path.
func (c *Computer) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	var file stateFile
	if err := gob.NewDecoder(bufio.NewReader(dec)).Decode(&file); err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}
	if file.Version != stateFileVersion {
		return fmt.Errorf("unsupported visibility state version %d", file.Version)
	}
	c.active = file.Active
	c.processed = make(map[world.Position]bool, len(file.Processed))
	for _, p := range file.Processed {
		c.processed[p] = true
	}
	return nil
}
