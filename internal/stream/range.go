// Package stream negotiates byte ranges and relays backend bytes to clients.
package stream

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hszk-dev/streamgate/internal/domain/model"
)

var (
	// ErrRangeNotSatisfiable is returned for malformed ranges, ranges that start
	// past the end of the object, and zero-length objects.
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
)

const rangeUnitPrefix = "bytes="

// Negotiate computes the serving window for an object of total bytes.
// present reports whether the request carried a Range header at all.
// Only the first clause of a multi-range header is honored.
func Negotiate(header string, present bool, total int64) (model.ServingWindow, error) {
	if total <= 0 {
		return model.ServingWindow{}, fmt.Errorf("%w: empty object", ErrRangeNotSatisfiable)
	}

	if !present {
		return model.NewServingWindow(0, total-1, total, false)
	}

	start, end, err := parseFirstRange(header, total)
	if err != nil {
		return model.ServingWindow{}, err
	}

	w, err := model.NewServingWindow(start, end, total, true)
	if err != nil {
		return model.ServingWindow{}, fmt.Errorf("%w: %v", ErrRangeNotSatisfiable, err)
	}
	return w, nil
}

// parseFirstRange parses "bytes=<start>-<end>?" and clamps end to the object.
func parseFirstRange(header string, total int64) (start, end int64, err error) {
	h := strings.TrimSpace(header)
	if len(h) < len(rangeUnitPrefix) || !strings.EqualFold(h[:len(rangeUnitPrefix)], rangeUnitPrefix) {
		return 0, 0, fmt.Errorf("%w: unsupported unit in %q", ErrRangeNotSatisfiable, header)
	}

	clause := h[len(rangeUnitPrefix):]
	if i := strings.IndexByte(clause, ','); i >= 0 {
		clause = clause[:i]
	}
	clause = strings.TrimSpace(clause)

	startStr, endStr, ok := strings.Cut(clause, "-")
	if !ok || !isDigits(startStr) || (endStr != "" && !isDigits(endStr)) {
		return 0, 0, fmt.Errorf("%w: malformed range %q", ErrRangeNotSatisfiable, header)
	}

	start, err = strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrRangeNotSatisfiable, err)
	}
	if start > total-1 {
		return 0, 0, fmt.Errorf("%w: start %d beyond size %d", ErrRangeNotSatisfiable, start, total)
	}

	end = total - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			// Only overflow gets here; an end that large is past the object anyway.
			end = total - 1
		}
		if start > end {
			return 0, 0, fmt.Errorf("%w: start %d after end %d", ErrRangeNotSatisfiable, start, end)
		}
		end = min(end, total-1)
	}

	return start, end, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
