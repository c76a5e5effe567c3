package playback

import (
	"errors"
	"strconv"
	"strings"
)

// errUnsatisfiableRange covers both malformed Range headers and spans that
// fall outside the object; the response is 416 either way.
var errUnsatisfiableRange = errors.New("the range you requested is unavailable")

// parseRange resolves a Range request header against an object of the given
// size, returning the inclusive byte span to serve. An empty header means
// the whole object. Only the first range of a multi-range header is used.
func parseRange(size int64, header string) (start, end int64, err error) {
	if header == "" {
		return 0, size - 1, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return 0, 0, errUnsatisfiableRange
	}

	// Multi-range requests are served by their first range only.
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = spec[:i]
	}
	spec = strings.TrimSpace(spec)

	first, last, ok := strings.Cut(spec, "-")
	if !ok {
		return 0, 0, errUnsatisfiableRange
	}

	if first == "" {
		// Suffix form "bytes=-n": the final n bytes.
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, errUnsatisfiableRange
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, nil
	}

	start, err = strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return 0, 0, errUnsatisfiableRange
	}

	if last == "" {
		// Open-ended form "bytes=s-": everything from s.
		end = size - 1
	} else {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil {
			return 0, 0, errUnsatisfiableRange
		}
	}

	if start > end || start >= size || end >= size {
		return 0, 0, errUnsatisfiableRange
	}

	return start, end, nil
}
