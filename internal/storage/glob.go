package storage

// Match reports whether s matches the Redis glob pattern.
//
// Supported syntax:
//
//	*       any sequence, including empty
//	?       any single byte
//	[abc]   one of the listed bytes
//	[^abc]  any byte not listed
//	[a-z]   a byte in range (bounds may be given in either order)
//	\x      the literal byte x
//
// An unterminated class extends to the end of the pattern, and a trailing
// backslash matches a literal backslash.
func Match(pattern, s []byte) bool {
	px, sx := 0, 0
	starPx, starSx := -1, -1

	for px < len(pattern) || sx < len(s) {
		if px < len(pattern) {
			switch c := pattern[px]; c {
			case '*':
				for px < len(pattern) && pattern[px] == '*' {
					px++
				}
				if px == len(pattern) {
					return true
				}
				starPx, starSx = px, sx
				continue
			case '?':
				if sx < len(s) {
					px++
					sx++
					continue
				}
			case '[':
				if sx < len(s) {
					if ok, next := matchClass(pattern, px+1, s[sx]); ok {
						px = next
						sx++
						continue
					}
				}
			case '\\':
				lit, width := c, 1
				if px+1 < len(pattern) {
					lit, width = pattern[px+1], 2
				}
				if sx < len(s) && s[sx] == lit {
					px += width
					sx++
					continue
				}
			default:
				if sx < len(s) && s[sx] == c {
					px++
					sx++
					continue
				}
			}
		}

		// Mismatch: let the last star absorb one more byte.
		if starPx >= 0 && starSx < len(s) {
			starSx++
			px, sx = starPx, starSx
			continue
		}
		return false
	}
	return true
}

// matchClass matches c against the class body starting at i (just past '[').
// It returns whether c matched and the index after the closing bracket.
func matchClass(pattern []byte, i int, c byte) (bool, int) {
	negate := false
	if i < len(pattern) && pattern[i] == '^' {
		negate = true
		i++
	}

	matched := false
	for {
		if i >= len(pattern) {
			break
		}
		switch {
		case pattern[i] == '\\' && i+1 < len(pattern):
			i++
			if pattern[i] == c {
				matched = true
			}
		case pattern[i] == ']':
			i++
			return matched != negate, i
		case i+2 < len(pattern) && pattern[i+1] == '-':
			lo, hi := pattern[i], pattern[i+2]
			if lo > hi {
				lo, hi = hi, lo
			}
			if c >= lo && c <= hi {
				matched = true
			}
			i += 2
		default:
			if pattern[i] == c {
				matched = true
			}
		}
		i++
	}
	return matched != negate, i
}

// LiteralPrefix returns the leading bytes every key matching pattern must
// start with. Engines use it to narrow ordered scans.
func LiteralPrefix(pattern []byte) []byte {
	var prefix []byte
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*', '?', '[':
			return prefix
		case '\\':
			if i+1 >= len(pattern) {
				return append(prefix, c)
			}
			i++
			prefix = append(prefix, pattern[i])
		default:
			prefix = append(prefix, c)
		}
	}
	return prefix
}

// MatchesAll reports whether pattern matches every key.
func MatchesAll(pattern []byte) bool {
	if len(pattern) == 0 {
		return false
	}
	for _, c := range pattern {
		if c != '*' {
			return false
		}
	}
	return true
}
