package packet

// CheckIDMatch reports whether data starts with id. On a match offset is the
// payload start and remaining its length; on a miss both are zero and must
// not be used.
func CheckIDMatch(data, id []byte) (matched bool, offset, remaining int) {
	if len(data) < len(id) {
		return false, 0, 0
	}
	for i, b := range id {
		if data[i] != b {
			return false, 0, 0
		}
	}
	return true, len(id), len(data) - len(id)
}

// Payload returns the bytes following id, or false when data does not start
// with id.
func Payload(data, id []byte) ([]byte, bool) {
	ok, off, n := CheckIDMatch(data, id)
	if !ok {
		return nil, false
	}
	return data[off : off+n], true
}
