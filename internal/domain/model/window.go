package model

import (
	"errors"
	"fmt"
)

// ServingWindow is the byte range of an object transmitted in one response.
// Invariant: 0 <= Start <= End <= Total-1.
type ServingWindow struct {
	Start   int64
	End     int64 // inclusive
	Total   int64
	Partial bool
}

var ErrInvalidWindow = errors.New("invalid serving window")

// NewServingWindow validates the window bounds against the object size.
func NewServingWindow(start, end, total int64, partial bool) (ServingWindow, error) {
	if total <= 0 || start < 0 || start > end || end > total-1 {
		return ServingWindow{}, fmt.Errorf("%w: %d-%d/%d", ErrInvalidWindow, start, end, total)
	}
	return ServingWindow{
		Start:   start,
		End:     end,
		Total:   total,
		Partial: partial || start != 0 || end != total-1,
	}, nil
}

// Length returns the number of bytes in the window.
func (w ServingWindow) Length() int64 {
	return w.End - w.Start + 1
}

// ContentRange formats the window as a Content-Range header value.
func (w ServingWindow) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", w.Start, w.End, w.Total)
}

// IsFull reports whether the window covers the whole object.
func (w ServingWindow) IsFull() bool {
	return w.Start == 0 && w.End == w.Total-1
}
