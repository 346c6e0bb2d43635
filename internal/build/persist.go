package build

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
)

const queueFileVersion = 1

// queueFile is the on-disk form of the queue.
type queueFile struct {
	Version      int
	Instructions []Instruction
}

// Save writes the queue to path as zstd-compressed gob.
func (q *Queue) Save(path string) error {
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

	file := queueFile{Version: queueFileVersion, Instructions: q.Snapshot()}
	if err := gob.NewEncoder(bw).Encode(&file); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

// Load replaces the queue contents with the instructions stored at path.
func (q *Queue) Load(path string) error {
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

	var file queueFile
	if err := gob.NewDecoder(bufio.NewReader(dec)).Decode(&file); err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}
	if file.Version != queueFileVersion {
		return fmt.Errorf("unsupported build queue version %d", file.Version)
	}
	q.Restore(file.Instructions)
	return nil
}
