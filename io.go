package ipa

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const (
	// DefaultBufferSize is the default value for [Options.BufferSize], which is 32 KiB.
	DefaultBufferSize = 32 * 1024

	// maxConsecutiveEmptyReads matches bufio's limit before a reader is deemed stuck.
	maxConsecutiveEmptyReads = 100
)

var (
	// ErrTruncated is returned when an entry's content ends before its declared uncompressed size.
	ErrTruncated = errors.New("entry content is shorter than its declared size")
	// ErrOverrun is returned when an entry's content continues past its declared uncompressed size.
	ErrOverrun = errors.New("entry content is longer than its declared size")
)

// copyEntry copies exactly size bytes from src to dst.
//
// If src reaches EOF before size bytes have been read, ErrTruncated is returned. If src still has data after size bytes
// have been read, ErrOverrun is returned. If src keeps returning no data and no error, io.ErrNoProgress is returned.
// The context is checked for done status after every write, and fn (if given) is called after every write with the
// running total.
func copyEntry(ctx context.Context, dst io.Writer, src io.Reader, size uint64, buf []byte, fn func(written int64)) (written int64, err error) {
	var nr, empty int
	remaining := size

	for remaining > 0 {
		p := buf
		if uint64(len(p)) > remaining {
			p = p[:remaining]
		}

		nr, err = src.Read(p)
		if nr == 0 && err == nil {
			if empty++; empty == maxConsecutiveEmptyReads {
				return written, io.ErrNoProgress
			}
			continue
		}
		empty = 0

		if nr > 0 {
			if err := write(dst, p[:nr]); err != nil {
				return written, err
			}

			written += int64(nr)
			remaining -= uint64(nr)

			select {
			case <-ctx.Done():
				return written, ctx.Err()
			default:
				if fn != nil {
					fn(written)
				}
			}
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			if remaining > 0 {
				return written, fmt.Errorf("%w: read %d/%d bytes", ErrTruncated, written, size)
			}
		default:
			return written, err
		}
	}

	// one more read to make sure src has nothing left.
	var one [1]byte
	for range maxConsecutiveEmptyReads {
		switch nr, err = src.Read(one[:]); {
		case nr > 0:
			return written, fmt.Errorf("%w: declared %d bytes", ErrOverrun, size)
		case errors.Is(err, io.EOF):
			return written, nil
		case err != nil:
			return written, err
		}
	}

	return written, io.ErrNoProgress
}

// copyFile copies from src to dst until src returns io.EOF.
//
// A write that returns fewer bytes than requested is treated as io.ErrShortWrite, and a src that keeps returning no data
// and no error fails with io.ErrNoProgress. The context is checked for done status after every write, and fn (if given)
// is called after every write with the running total.
func copyFile(ctx context.Context, dst io.Writer, src io.Reader, buf []byte, fn func(written int64)) (written int64, err error) {
	var nr, empty int
	for {
		nr, err = src.Read(buf)
		if nr == 0 && err == nil {
			if empty++; empty == maxConsecutiveEmptyReads {
				return written, io.ErrNoProgress
			}
			continue
		}
		empty = 0

		if nr > 0 {
			if err := write(dst, buf[:nr]); err != nil {
				return written, err
			}

			written += int64(nr)

			select {
			case <-ctx.Done():
				return written, ctx.Err()
			default:
				if fn != nil {
					fn(written)
				}
			}
		}

		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}

func write(dst io.Writer, p []byte) error {
	switch nw, err := dst.Write(p); {
	case err != nil:
		return err
	case nw < len(p):
		return io.ErrShortWrite
	case nw != len(p):
		return fmt.Errorf("invalid write: expected to write %d bytes, wrote %d bytes instead", len(p), nw)
	default:
		return nil
	}
}
