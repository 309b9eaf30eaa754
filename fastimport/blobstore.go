package fastimport

import (
	"compress/gzip"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/alitto/pond"
	"github.com/h2non/filetype"
	libfastimport "github.com/rcowham/go-libgitfastimport"

	"github.com/cvsup/cvsup/model"
)

// BlobStore allocates fast-import marks for file revision content, writes
// each blob record to the stream immediately - fast-import requires a
// blob defined before any commit references it - and durably archives a
// compressed copy off the hot path via a worker pool, so a large
// conversion's resident memory stays bounded once a blob has been
// written.
type BlobStore struct {
	w           *Writer
	pool        *pond.WorkerPool
	archiveRoot string

	mu       sync.Mutex
	nextMark int
	marks    map[*model.FileRevision]int
}

// NewBlobStore returns a BlobStore that writes blob records to w and, if
// archiveRoot is non-empty, archives a compressed copy of each blob under
// it using pool for concurrency.
func NewBlobStore(w *Writer, pool *pond.WorkerPool, archiveRoot string) *BlobStore {
	return &BlobStore{w: w, pool: pool, archiveRoot: archiveRoot, marks: make(map[*model.FileRevision]int)}
}

// Mark returns fr's fast-import mark, allocating one and writing/archiving
// its blob the first time fr is seen; later calls for the same fr are a
// cache hit and ignore data.
func (s *BlobStore) Mark(fr *model.FileRevision, data string) int {
	s.mu.Lock()
	if mark, ok := s.marks[fr]; ok {
		s.mu.Unlock()
		return mark
	}
	s.nextMark++
	mark := s.nextMark
	s.marks[fr] = mark
	s.mu.Unlock()

	s.w.WriteBlob(libfastimport.CmdBlob{Mark: mark, Data: data})
	if s.archiveRoot != "" && s.pool != nil {
		s.archive(mark, data)
	}
	return mark
}

// classify sniffs the leading bytes to decide whether gzip is worth the
// archive's while. Image/video/archive/audio formats are already
// compressed; everything else gets gzipped.
func classify(data string) (compress bool) {
	head := data
	if len(head) > 261 {
		head = head[:261]
	}
	sample := []byte(head)
	if filetype.IsImage(sample) || filetype.IsVideo(sample) || filetype.IsArchive(sample) || filetype.IsAudio(sample) {
		return false
	}
	return true
}

func (s *BlobStore) archive(mark int, data string) {
	compress := classify(data)
	name := fmt.Sprintf("%07d", mark)
	dir := path.Join(s.archiveRoot, name[:1], name[1:4])
	s.pool.Submit(func() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return
		}
		if compress {
			f, err := os.Create(path.Join(dir, name+".gz"))
			if err != nil {
				return
			}
			defer f.Close()
			zw := gzip.NewWriter(f)
			defer zw.Close()
			zw.Write([]byte(data))
			return
		}
		f, err := os.Create(path.Join(dir, name))
		if err != nil {
			return
		}
		defer f.Close()
		f.Write([]byte(data))
	})
}
