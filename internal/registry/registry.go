package registry

import (
	"sync"
)

// Context distinguishes the two namespaces a packet id can belong to
// (spec.md §3: "client" or "rc" — remote control).
type Context string

const (
	ContextClient Context = "client"
	ContextRC     Context = "rc"
)

// PostParseFunc enriches the flat field map produced by the generic
// decoder into structured, domain-meaningful output (spec.md §4.4: "A
// structure MAY declare a custom post-parse function"). Events is the
// list of domain event names the dispatcher should emit after routing
// (spec.md §4.7, step d).
type PostParseFunc func(fields map[string]any, announcedSize int) (data map[string]any, events []string)

// PacketStructure is one registry entry: a declarative description of a
// server->client packet shape (spec.md §3).
type PacketStructure struct {
	ID             int
	Name           string
	Context        Context
	Fields         []FieldSpec
	VariableLength bool
	PostParse      PostParseFunc
}

// ParsedPacket is the generic decoder's output (spec.md §4.4).
type ParsedPacket struct {
	ID         int
	Name       string
	Fields     map[string]any
	ParsedData map[string]any
	Events     []string
}

// Registry holds the packet id -> structure table. Lookup falls back to
// the other context when a structure isn't registered in the requested
// one (spec.md §4.4: "with fallback to the other context if absent").
type Registry struct {
	mu     sync.RWMutex
	client map[int]*PacketStructure
	rc     map[int]*PacketStructure
}

func New() *Registry {
	return &Registry{
		client: make(map[int]*PacketStructure),
		rc:     make(map[int]*PacketStructure),
	}
}

// Register adds a structure to the table. Duplicates are allowed per
// spec.md §3's invariant ("duplicates are logged and the later one
// wins"); the caller is responsible for logging, Register just applies
// last-write-wins.
func (r *Registry) Register(s *PacketStructure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	table := r.client
	if s.Context == ContextRC {
		table = r.rc
	}
	table[s.ID] = s
}

// Lookup finds a structure for id in ctx, falling back to the other
// context if absent.
func (r *Registry) Lookup(id int, ctx Context) (*PacketStructure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	primary, fallback := r.client, r.rc
	if ctx == ContextRC {
		primary, fallback = r.rc, r.client
	}
	if s, ok := primary[id]; ok {
		return s, true
	}
	s, ok := fallback[id]
	return s, ok
}

// Decode runs the generic field decoder against inner (the bytes after
// the id byte has already been stripped), then applies the structure's
// post-parse function if one is declared.
func Decode(s *PacketStructure, inner []byte, announcedSize int) *ParsedPacket {
	cur := NewCursor(inner)
	fields := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		fields[f.Name] = ParseField(cur, f, announcedSize)
	}

	// Surplus bytes on a variable-length packet become VARIABLE_DATA
	// (already consumed by a trailing VariableData field in practice);
	// surplus on a fixed-length packet is logged by the caller and
	// ignored here (spec.md §3 invariant).
	pp := &ParsedPacket{ID: s.ID, Name: s.Name, Fields: fields}
	if s.PostParse != nil {
		data, events := s.PostParse(fields, announcedSize)
		pp.ParsedData = data
		pp.Events = events
	}
	return pp
}

// ExpectedSize mirrors pyreborn's PacketStructure.get_expected_size: the
// sum of fixed-width field sizes, or -1 if the structure has any
// variable-width field.
func ExpectedSize(s *PacketStructure) int {
	if s.VariableLength {
		return -1
	}
	total := 0
	for _, f := range s.Fields {
		if f.Kind == FixedData {
			total += f.Size
			continue
		}
		w := fixedWidth(f.Kind)
		if w < 0 {
			return -1
		}
		total += w
	}
	return total
}
