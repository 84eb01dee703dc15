package filexfer

import "bytes"

// knownExtensions is scanned in list order; the first extension in the
// list that occurs anywhere in the payload (at its first occurrence) is
// taken as the filename's extension (spec.md §4.5 content-identification
// heuristic).
var knownExtensions = []string{".nw", ".gmap", ".png", ".gif"}

// obfuscationPrefixes are stripped from the front of a filename run once
// the extension scan has isolated it (spec.md §4.5).
var obfuscationPrefixes = []string{"cuB", "uB"}

// magicByExtension maps a recognized extension to the byte signature
// its content should begin with.
var magicByExtension = map[string][]byte{
	".nw":   []byte("GLEVNW01"),
	".gmap": []byte("GRMAP001"),
	".png":  {0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'},
	".gif":  []byte("GIF8"),
}

// Identified is the result of scanning a loosely-framed PLO_FILE payload.
type Identified struct {
	Filename     string
	Content      []byte
	ContentValid bool
}

// Identify applies the PLO_FILE heuristic (spec.md §4.5): scan for a
// known extension, work backward to isolate the filename run, strip
// known obfuscation prefixes, then locate content by the extension's
// expected magic bytes. If no known extension or magic is found, the
// whole payload is returned as content with ContentValid false.
func Identify(payload []byte) Identified {
	for _, ext := range knownExtensions {
		idx := bytes.Index(payload, []byte(ext))
		if idx < 0 {
			continue
		}
		nameEnd := idx + len(ext)
		nameStart := filenameRunStart(payload, idx)
		filename := stripObfuscationPrefix(string(payload[nameStart:nameEnd]))

		magic, known := magicByExtension[ext]
		contentStart := nameEnd
		if known {
			if m := bytes.Index(payload[nameEnd:], magic); m >= 0 {
				contentStart = nameEnd + m
			}
		}
		content := payload[contentStart:]
		return Identified{
			Filename:     filename,
			Content:      content,
			ContentValid: known && bytes.HasPrefix(content, magic),
		}
	}

	return Identified{Content: payload, ContentValid: false}
}

// filenameRunStart walks backward from extIdx over bytes plausible in a
// filename (alnum, '.', '_', '-') to find where the name begins.
func filenameRunStart(payload []byte, extIdx int) int {
	i := extIdx
	for i > 0 && isFilenameByte(payload[i-1]) {
		i--
	}
	return i
}

func isFilenameByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	case b == '.' || b == '_' || b == '-':
		return true
	default:
		return false
	}
}

// stripObfuscationPrefix strips the literal prefix plus one extra
// garbage byte that follows it (file.py: "cuB"[4:], "uB"[3:] — one byte
// past the literal prefix length in both cases).
func stripObfuscationPrefix(name string) string {
	for _, prefix := range obfuscationPrefixes {
		cut := len(prefix) + 1
		if len(name) > cut && name[:len(prefix)] == prefix {
			return name[cut:]
		}
	}
	return name
}
