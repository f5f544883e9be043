package patch

import "strings"

// EncodeToken escapes a single JSON-Pointer reference token per RFC 6901:
// "~" is encoded first as "~0", then "/" is encoded as "~1". Order matters —
// encoding "/" before "~" would double-escape any literal "~1" sequence
// already present in the key.
func EncodeToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~", "~0")
	tok = strings.ReplaceAll(tok, "/", "~1")
	return tok
}

// DecodeToken reverses EncodeToken: "~1" decodes to "/" first, then "~0"
// decodes to "~". The reverse order from encoding is required so that a
// decoded "/" is never mistaken for a second escape sequence.
func DecodeToken(tok string) string {
	tok = strings.ReplaceAll(tok, "~1", "/")
	tok = strings.ReplaceAll(tok, "~0", "~")
	return tok
}

// Join appends an already-unescaped component to a base pointer path,
// escaping the component along the way. Join("", "a") == "/a";
// Join("/a", "b/c") == "/a/b~1c".
func Join(basePath, component string) string {
	return basePath + "/" + EncodeToken(component)
}

// Split breaks a JSON Pointer into its unescaped components. Split("/a/b~1c")
// == []string{"a", "b/c"}. The empty pointer "" splits to an empty slice.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	raw := strings.Split(strings.TrimPrefix(path, "/"), "/")
	out := make([]string, len(raw))
	for i, tok := range raw {
		out[i] = DecodeToken(tok)
	}
	return out
}
