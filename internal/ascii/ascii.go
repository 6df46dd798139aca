// Package ascii implements the small set of byte-classification and
// hex-escape helpers shared by the binary/ASCII personality switch in
// package serializer and package unserializer: the same role dbf.c's
// is_char_part_of_word/word_length and utility_functions.c's atoll/hex
// helpers play, kept together here rather than duplicated in both call sites.
package ascii

var hexDigits = [16]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'A', 'B', 'C', 'D', 'E', 'F'}

// EncodeHexDigit returns the hex character for the low nibble of d.
func EncodeHexDigit(d byte) byte {
	return hexDigits[d&0xF]
}

// DecodeHexDigit returns the nibble value of a hex character, or -1 if ch is
// not a hex digit. Accepts both upper- and lower-case a-f.
func DecodeHexDigit(ch byte) int {
	switch {
	case ch >= '0' && ch <= '9':
		return int(ch - '0')
	case ch >= 'a' && ch <= 'f':
		return int(ch-'a') + 10
	case ch >= 'A' && ch <= 'F':
		return int(ch-'A') + 10
	default:
		return -1
	}
}

// IsPrint reports whether ch is in the printable ASCII range, including
// space (matches C isprint for 7-bit input).
func IsPrint(ch byte) bool {
	return ch >= 0x20 && ch < 0x7F
}

// IsGraph reports whether ch is printable excluding space (matches C
// isgraph for 7-bit input).
func IsGraph(ch byte) bool {
	return ch > 0x20 && ch < 0x7F
}

// IsWordChar reports whether ch can appear in an unquoted word: graphical,
// and neither a quote nor a backslash (dbf.c's is_char_part_of_word, not
// utility_functions.c's looser utility_is_char_part_of_word).
func IsWordChar(ch byte) bool {
	return ch != '"' && ch != '\\' && IsGraph(ch)
}

// IsNumberChar reports whether ch can appear in an ASCII-mode number token
// (dbf.c's is_char_part_of_number): a digit, '.', or the 'x'/'X' of a hex
// prefix.
func IsNumberChar(ch byte) bool {
	return (ch >= '0' && ch <= '9') || ch == '.' || ch == 'x' || ch == 'X'
}

// WordLength returns the length of the leading run of s that satisfies
// IsWordChar. Mirrors word_length: a serializer asked to write a word whose
// text contains a space, quote or backslash silently truncates at that
// point rather than erroring.
func WordLength(s string) int {
	n := 0
	for n < len(s) && IsWordChar(s[n]) {
		n++
	}
	return n
}

// ParseInt parses a leading signed integer from s the way utility_atoll
// does: an optional '+'/'-', then a '0x'/'0X' hex run, a leading-zero octal
// run, or a decimal run. Unlike strconv.ParseInt this never errors — it
// simply stops consuming digits at the first non-matching byte, returning
// whatever was accumulated (0 if nothing matched). Returns the parsed value
// and the number of bytes of s it consumed.
func ParseInt(s string) (int64, int) {
	if len(s) == 0 {
		return 0, 0
	}
	switch s[0] {
	case '-':
		v, n := ParseInt(s[1:])
		return -v, n + 1
	case '+':
		v, n := ParseInt(s[1:])
		return v, n + 1
	case '0':
		if len(s) >= 2 && (s[1] == 'x' || s[1] == 'X') {
			var v int64
			i := 2
			for i < len(s) {
				d := DecodeHexDigit(s[i])
				if d < 0 {
					break
				}
				v = v*16 + int64(d)
				i++
			}
			return v, i
		}
		var v int64
		i := 1
		for i < len(s) && s[i] >= '0' && s[i] <= '7' {
			v = v*8 + int64(s[i]-'0')
			i++
		}
		return v, i
	default:
		var v int64
		i := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			v = v*10 + int64(s[i]-'0')
			i++
		}
		return v, i
	}
}
