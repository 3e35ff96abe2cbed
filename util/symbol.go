// Package util holds the lexical rules shared by the VM and assembly
// languages.
package util

func IsNumber(b byte) bool {
	return b >= '0' && b <= '9'
}

func IsLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// IsSymbolStart reports whether b may begin a symbol: a letter or one of _ . $ :
func IsSymbolStart(b byte) bool {
	return IsLetter(b) || b == '_' || b == '.' || b == '$' || b == ':'
}

func IsSymbolPart(b byte) bool {
	return IsSymbolStart(b) || IsNumber(b)
}

// IsSymbol reports whether s is a valid label, function or variable name.
func IsSymbol(s string) bool {
	if len(s) == 0 || !IsSymbolStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !IsSymbolPart(s[i]) {
			return false
		}
	}
	return true
}

// IsDecimal reports whether s is a non-empty run of decimal digits.
func IsDecimal(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !IsNumber(s[i]) {
			return false
		}
	}
	return true
}
