// Package supervisor implements the parent-side notify loop and
// notification handler: polling the seccomp notify descriptor, reading
// the filtered child's memory to recover syscall arguments, decoding
// network/filesystem targets, and driving the policy engine's verdict
// back to the kernel.
package supervisor

import (
	"fmt"
	"os"

	"winewarden/errors"
)

const maxPathBytes = 4096
const pathChunkBytes = 256

// ReadRemoteMemory performs a single bulk read of n bytes from pid's
// virtual address space at addr. A short read is the caller's concern;
// this function only reports how many bytes it actually got.
func ReadRemoteMemory(pid int, addr uint64, n int) ([]byte, error) {
	f, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", pid), os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrMemoryRead, "read remote memory")
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := f.ReadAt(buf, int64(addr))
	if err != nil && read == 0 {
		return nil, errors.Wrap(err, errors.ErrMemoryRead, "read remote memory")
	}
	return buf[:read], nil
}

// ReadRemoteAddr reads exactly n bytes for the address-parse path. A short
// read fails the attempt outright.
func ReadRemoteAddr(pid int, addr uint64, n int) ([]byte, error) {
	buf, err := ReadRemoteMemory(pid, addr, n)
	if err != nil {
		return nil, err
	}
	if len(buf) < n {
		return nil, errors.ErrPartialRead
	}
	return buf, nil
}

// ReadRemoteCString reads a null-terminated string from pid's memory at
// addr, chunked at pathChunkBytes and bounded at maxPathBytes total. A
// short read is acceptable once a null terminator has already been seen;
// otherwise the result is truncated at whatever was read.
func ReadRemoteCString(pid int, addr uint64) (string, error) {
	var out []byte
	for offset := 0; offset < maxPathBytes; offset += pathChunkBytes {
		chunk, err := ReadRemoteMemory(pid, addr+uint64(offset), pathChunkBytes)
		if err != nil {
			if len(out) > 0 {
				return string(out), nil
			}
			return "", err
		}
		if idx := indexByte(chunk, 0); idx >= 0 {
			out = append(out, chunk[:idx]...)
			return string(out), nil
		}
		out = append(out, chunk...)
		if len(chunk) < pathChunkBytes {
			return string(out), nil
		}
	}
	return string(out), nil
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}
