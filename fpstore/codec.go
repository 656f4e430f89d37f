// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package fpstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"go.chromium.org/infra/build/fnbuild/digest"
	"go.chromium.org/infra/build/fnbuild/fndef"
)

// Format:
//
//	signature "# fnbuild fingerprints\n"
//	int32 version
//	records:
//	  uint32 record size
//	  key: uint32 name length, name, uint32 param count,
//	       params (uint32 length, bytes)
//	  content digest: raw sha256 (32 bytes), int64 size
//	  prototype digest: raw sha256 (32 bytes), int64 size
//	  uint8 flags (bit0: clean)
//	  uint32 dependency count, dependency keys
//
// all integers are little endian. The whole file may be compressed
// in a zstd frame.
const (
	fileSignature  = "# fnbuild fingerprints\n"
	currentVersion = 1

	maxRecordSize = 1<<24 - 1

	flagClean = 1 << 0
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// CorruptionError is an error of unrecognized store content.
type CorruptionError struct {
	Offset int
	Msg    string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupted fingerprint store at %d: %s", e.Offset, e.Msg)
}

func corruptf(offset int, format string, args ...any) error {
	return &CorruptionError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// encode encodes records in the store format.
func encode(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fileSignature)
	binary.Write(&buf, binary.LittleEndian, int32(currentVersion))
	var rec bytes.Buffer
	for _, r := range records {
		rec.Reset()
		err := encodeRecord(&rec, r)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", r.Key, err)
		}
		if rec.Len() > maxRecordSize {
			return nil, fmt.Errorf("encode %s: too large record %d", r.Key, rec.Len())
		}
		binary.Write(&buf, binary.LittleEndian, uint32(rec.Len()))
		buf.Write(rec.Bytes())
	}
	return buf.Bytes(), nil
}

func encodeRecord(buf *bytes.Buffer, r Record) error {
	writeKey(buf, r.Key)
	for _, d := range []digest.Digest{r.ContentHash, r.PrototypeHash} {
		sum, err := d.Raw()
		if err != nil {
			return err
		}
		buf.Write(sum[:])
		binary.Write(buf, binary.LittleEndian, d.SizeBytes)
	}
	var flags uint8
	if r.Clean {
		flags |= flagClean
	}
	buf.WriteByte(flags)
	binary.Write(buf, binary.LittleEndian, uint32(len(r.Deps)))
	for _, k := range r.Deps {
		writeKey(buf, k)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}

func writeKey(buf *bytes.Buffer, k fndef.Key) {
	writeString(buf, k.Name)
	binary.Write(buf, binary.LittleEndian, uint32(len(k.Params)))
	for _, p := range k.Params {
		writeString(buf, p)
	}
}

// decode decodes data in the store format.
// It returns *CorruptionError if data is not recognized.
func decode(data []byte) ([]Record, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		d, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer d.Close()
		data, err = d.DecodeAll(data, nil)
		if err != nil {
			return nil, corruptf(0, "zstd: %v", err)
		}
	}
	if !bytes.HasPrefix(data, []byte(fileSignature)) {
		n := min(len(data), len(fileSignature))
		return nil, corruptf(0, "wrong signature %q", data[:n])
	}
	r := &reader{buf: data, pos: len(fileSignature)}
	ver := int32(r.uint32())
	if r.err != nil {
		return nil, corruptf(r.pos, "no version")
	}
	if ver != currentVersion {
		return nil, corruptf(len(fileSignature), "unknown version %d", ver)
	}
	var records []Record
	seen := make(map[string]bool)
	for r.pos < len(r.buf) {
		offset := r.pos
		size := int(r.uint32())
		if r.err != nil {
			return nil, corruptf(offset, "truncated record header")
		}
		if size > maxRecordSize || size > len(r.buf)-r.pos {
			return nil, corruptf(offset, "bad record size %d", size)
		}
		rr := &reader{buf: r.buf[:r.pos+size], pos: r.pos}
		rec := rr.record()
		if rr.err != nil {
			return nil, corruptf(offset, "bad record: %v", rr.err)
		}
		if rr.pos != len(rr.buf) {
			return nil, corruptf(offset, "record %s: %d extra bytes", rec.Key, len(rr.buf)-rr.pos)
		}
		ks := rec.Key.String()
		if seen[ks] {
			return nil, corruptf(offset, "duplicate record %s", ks)
		}
		seen[ks] = true
		records = append(records, rec)
		r.pos = rr.pos
	}
	return records, nil
}

var errShort = errors.New("unexpected end of record")

// reader reads little endian values from buf.
// Once it fails, err is set and all following reads return zero.
type reader struct {
	buf []byte
	pos int
	err error
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf)-r.pos {
		r.err = errShort
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) uint32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) int64() int64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b))
}

func (r *reader) string() string {
	n := r.uint32()
	return string(r.next(int(n)))
}

func (r *reader) key() fndef.Key {
	k := fndef.Key{Name: r.string()}
	n := int(r.uint32())
	if r.err != nil {
		return k
	}
	// each param needs at least a length field.
	if n > (len(r.buf)-r.pos)/4 {
		r.err = fmt.Errorf("bad param count %d", n)
		return k
	}
	for range n {
		k.Params = append(k.Params, r.string())
	}
	if k.Name == "" && r.err == nil {
		r.err = errors.New("empty name")
	}
	return k
}

func (r *reader) digest() digest.Digest {
	var sum [digest.Size]byte
	b := r.next(digest.Size)
	if b == nil {
		return digest.Digest{}
	}
	copy(sum[:], b)
	return digest.FromRaw(sum, r.int64())
}

func (r *reader) record() Record {
	var rec Record
	rec.Key = r.key()
	rec.ContentHash = r.digest()
	rec.PrototypeHash = r.digest()
	flags := r.next(1)
	if flags != nil {
		rec.Clean = flags[0]&flagClean != 0
	}
	n := int(r.uint32())
	if r.err != nil {
		return rec
	}
	if n > (len(r.buf)-r.pos)/8 {
		r.err = fmt.Errorf("bad dependency count %d", n)
		return rec
	}
	for range n {
		rec.Deps = append(rec.Deps, r.key())
	}
	return rec
}

func compress(data []byte, level int) ([]byte, error) {
	opts := []zstd.EOption{zstd.WithEncoderConcurrency(1)}
	if level > 0 {
		opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	}
	w, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return w.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}
