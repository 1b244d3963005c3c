// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package contentstore implements the versioned, mmap-backed, reference
// counted store the static handler reads from and writes into. On disk,
// root/<name>/<decimal-version> is a plain file holding one version's raw
// bytes; in memory, at most one FileInfo is cached per name at a time.
package contentstore

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/packetd/apiserverd/apierr"
	"github.com/packetd/apiserverd/transport"
)

// FileInfo is an in-memory snapshot of one version of a stored name: a
// read-only mapping of its bytes plus the metadata a client can use to
// detect staleness without transferring the body.
type FileInfo struct {
	data []byte

	Version uint64
	Digest  uint64
	UUID    string
	Size    int64

	refs int
}

// Bytes returns the version's raw contents. Valid only between a Get/Set
// call that returned this FileInfo and the matching Release.
func (fi *FileInfo) Bytes() []byte { return fi.data }

// Stat is a read-only projection of a cached FileInfo, returned without
// taking a reference — it does not need releasing.
type Stat struct {
	Version uint64
	Digest  uint64
	UUID    string
	Size    int64
}

// Store owns one versioned directory tree and the single mutex that
// serialises every cache-slot swap and refcount update across it. It is a
// value, not a package-level global — callers construct one per root and
// thread it through wherever it's needed.
type Store struct {
	root string

	mu     sync.Mutex
	cached map[string]*FileInfo
}

// New returns a Store rooted at root. The directory is not required to
// exist yet; Set creates name subdirectories on demand.
func New(root string) *Store {
	return &Store{root: root, cached: make(map[string]*FileInfo)}
}

// latestVersion scans dir for the largest filename that parses as a
// non-negative decimal integer, returning apierr.KindMissing if dir is
// absent or contains no such filename — the directory-or-version-missing
// case is a hard error here rather than silently discarded (see §9 of the
// design notes).
func latestVersion(dir string) (uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, apierr.New(apierr.KindMissing, err)
	}

	var version uint64
	found := false
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		n, err := strconv.ParseUint(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		if !found || n > version {
			version = n
			found = true
		}
	}
	if !found {
		return 0, apierr.New(apierr.KindMissing, nil)
	}
	return version, nil
}

// load opens, stats and mmaps dir/<version> read-only/private, and computes
// its xxhash digest and a fresh UUID tag. The returned FileInfo starts with
// refs == 1, representing the store's own cache-slot reference.
func load(dir string, version uint64) (*FileInfo, error) {
	path := filepath.Join(dir, strconv.FormatUint(version, 10))

	file, err := os.Open(path)
	if err != nil {
		return nil, apierr.New(apierr.KindMissing, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, apierr.New(apierr.KindEVFS, err)
	}
	size := info.Size()

	var data []byte
	if size > 0 {
		data, err = unix.Mmap(int(file.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
		if err != nil {
			errno, _ := err.(unix.Errno)
			return nil, apierr.NewErrno(errno)
		}
	}

	return &FileInfo{
		data:    data,
		Version: version,
		Digest:  xxhash.Sum64(data),
		UUID:    uuid.NewString(),
		Size:    size,
		refs:    1,
	}, nil
}

// ensureCached returns the cached FileInfo for name, loading the latest
// on-disk version first if nothing is cached yet. Callers must hold s.mu.
func (s *Store) ensureCached(name string) (*FileInfo, error) {
	if fi, ok := s.cached[name]; ok {
		return fi, nil
	}

	dir := filepath.Join(s.root, name)
	version, err := latestVersion(dir)
	if err != nil {
		return nil, err
	}
	fi, err := load(dir, version)
	if err != nil {
		return nil, err
	}
	s.cached[name] = fi
	return fi, nil
}

// release decrements fi's refcount, unmapping and discarding it once no one
// holds it any longer. Callers must hold s.mu.
func release(fi *FileInfo) {
	fi.refs--
	if fi.refs == 0 && fi.data != nil {
		_ = unix.Munmap(fi.data)
	}
}

// Get returns the cached FileInfo for name, loading it from disk first if
// necessary, with an extra reference held on the caller's behalf. The
// caller must call Release exactly once when done.
func (s *Store) Get(name string) (*FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fi, err := s.ensureCached(name)
	if err != nil {
		return nil, err
	}
	fi.refs++
	return fi, nil
}

// Release drops the reference a prior Get or Set returned.
func (s *Store) Release(fi *FileInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	release(fi)
}

// Stat returns a snapshot of the cached FileInfo for name without taking a
// reference, loading it from disk first if necessary.
func (s *Store) Stat(name string) (Stat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fi, err := s.ensureCached(name)
	if err != nil {
		return Stat{}, err
	}
	return Stat{Version: fi.Version, Digest: fi.Digest, UUID: fi.UUID, Size: fi.Size}, nil
}

// transfer copies exactly size bytes from stream into out, reading in
// chunks capped at the stream's own maximum buffer size.
func transfer(stream *transport.Stream, out *os.File, size int64) error {
	for size > 0 {
		want := size
		if want > transport.BufferSizeMax {
			want = transport.BufferSizeMax
		}

		buf, err := stream.Read(int(want))
		if err != nil {
			return err
		}
		n := int64(len(buf))
		if n > size {
			n = size
			buf = buf[:n]
		}

		if _, err := out.Write(buf); err != nil {
			return apierr.New(apierr.KindWrite, err)
		}
		stream.ReadFlush(len(buf))
		size -= n
	}
	return nil
}

// Set reads exactly size bytes from stream into a new version of name,
// publishing it atomically: the bytes land in a temporary file first, which
// is renamed into place only once fully written, so a crash mid-transfer
// can never leave a partial file visible as "latest". The previous cached
// FileInfo, if any, is released once the new one is in place — concurrent
// readers already holding it keep seeing the old bytes until they release.
func (s *Store) Set(name string, stream *transport.Stream, size int64) error {
	s.mu.Lock()
	var currentVersion uint64
	if fi, ok := s.cached[name]; ok {
		currentVersion = fi.Version
	} else {
		dir := filepath.Join(s.root, name)
		version, err := latestVersion(dir)
		if err != nil {
			if kind, classified := apierr.As(err); !classified || kind != apierr.KindMissing {
				s.mu.Unlock()
				return err
			}
			currentVersion = 0 // tolerate "does not exist yet" for the very first write
		} else {
			fi, err := load(dir, version)
			if err != nil {
				s.mu.Unlock()
				return err
			}
			s.cached[name] = fi
			currentVersion = version
		}
	}
	s.mu.Unlock()

	newVersion := currentVersion + 1
	dir := filepath.Join(s.root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apierr.New(apierr.KindEVFS, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return apierr.New(apierr.KindEVFS, err)
	}
	tmpPath := tmp.Name()

	if err := transfer(stream, tmp, size); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apierr.New(apierr.KindEVFS, err)
	}

	finalPath := filepath.Join(dir, strconv.FormatUint(newVersion, 10))
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return apierr.New(apierr.KindEVFS, err)
	}

	newFI, err := load(dir, newVersion)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.cached[name]
	s.cached[name] = newFI
	if old != nil {
		release(old)
	}
	s.mu.Unlock()

	return nil
}
