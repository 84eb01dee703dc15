// Package filexfer implements the large-file reassembler (spec.md §4.5):
// tracking in-flight downloads across PLO_LARGEFILESTART/SIZE,
// PLO_RAWDATA, PLO_FILE, and PLO_LARGEFILEEND, plus the PLO_FILE
// content-identification heuristic the server's loose framing requires.
package filexfer

import (
	"sync"

	"github.com/google/uuid"

	"reborn-client/internal/metrics"
)

// Download tracks one in-flight file transfer (spec.md §4.5).
type Download struct {
	ID           string
	Filename     string
	ExpectedSize int
	Accumulator  []byte
	ReceivedSize int
	IsLargeFile  bool
}

// Reassembler owns the download_id -> Download map (spec.md §5: "mutated
// only from the dispatching task", so no internal locking is required
// for correctness under the engine's own concurrency model; the mutex
// here only guards against a caller using it outside that model, e.g.
// from tests running table checks concurrently).
type Reassembler struct {
	mu       sync.Mutex
	byID     map[string]*Download
	byName   map[string]string // filename -> id
	metrics  *metrics.Collectors
	onFinish func(filename string, content []byte)
}

func New(coll *metrics.Collectors, onFinish func(filename string, content []byte)) *Reassembler {
	if coll == nil {
		coll = metrics.Noop()
	}
	return &Reassembler{
		byID:     make(map[string]*Download),
		byName:   make(map[string]string),
		metrics:  coll,
		onFinish: onFinish,
	}
}

// Start handles PLO_LARGEFILESTART. If id is empty (absent in the wire
// format), one is generated locally (spec.md §4.5).
func (r *Reassembler) Start(id, filename string) *Download {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	d := &Download{ID: id, Filename: filename, IsLargeFile: true}
	r.byID[id] = d
	r.byName[filename] = id
	r.metrics.DownloadsActive.Inc()
	return d
}

// SetSize handles PLO_LARGEFILESIZE.
func (r *Reassembler) SetSize(id string, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byID[id]; ok {
		d.ExpectedSize = size
	}
}

// AppendRaw handles PLO_RAWDATA chunks delivered by the frame reader's
// raw-data mode (spec.md §4.3/§4.5).
func (r *Reassembler) AppendRaw(id string, chunk []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return
	}
	d.Accumulator = append(d.Accumulator, chunk...)
	d.ReceivedSize += len(chunk)
	r.metrics.DownloadBytesTotal.Add(float64(len(chunk)))
}

// largeFileThreshold is the size above which an unmatched PLO_FILE
// starts a synthetic large download (spec.md §4.5: "> 30 KB").
const largeFileThreshold = 30 * 1024

// HandleFile handles PLO_FILE. If an active download matches by
// filename, the content is appended without finalizing; downloads are
// not matched by id here. If none
// matches and the content exceeds largeFileThreshold, a synthetic
// download is started. Otherwise the file is small enough to finish in
// a single packet and Finish is invoked immediately.
func (r *Reassembler) HandleFile(filename string, content []byte) {
	r.mu.Lock()
	id, matched := r.byName[filename]
	var d *Download
	if matched {
		d = r.byID[id]
	}
	r.mu.Unlock()

	switch {
	case d != nil:
		r.AppendRaw(d.ID, content)
	case len(content) > largeFileThreshold:
		started := r.Start("", filename)
		r.AppendRaw(started.ID, content)
	default:
		r.finishWith(filename, content)
	}
}

// Finish handles PLO_LARGEFILEEND, identified by either download id or
// filename (spec.md §4.5).
func (r *Reassembler) Finish(idOrFilename string) {
	r.mu.Lock()
	d, ok := r.byID[idOrFilename]
	if !ok {
		if id, byName := r.byName[idOrFilename]; byName {
			d, ok = r.byID[id]
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	r.mu.Lock()
	delete(r.byID, d.ID)
	delete(r.byName, d.Filename)
	r.mu.Unlock()

	r.metrics.DownloadsActive.Dec()
	r.finishWith(d.Filename, d.Accumulator)
}

func (r *Reassembler) finishWith(filename string, content []byte) {
	if r.onFinish != nil {
		r.onFinish(filename, content)
	}
}

// Active reports whether a download is tracked by id.
func (r *Reassembler) Active(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byID[id]
	return ok
}
