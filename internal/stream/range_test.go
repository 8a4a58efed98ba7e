package stream

import (
	"errors"
	"testing"
)

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		present     bool
		total       int64
		wantStart   int64
		wantEnd     int64
		wantPartial bool
		wantErr     error
	}{
		{name: "no header serves whole object", total: 1000, wantStart: 0, wantEnd: 999},
		{name: "open ended", header: "bytes=500-", present: true, total: 1000, wantStart: 500, wantEnd: 999, wantPartial: true},
		{name: "closed range", header: "bytes=0-99", present: true, total: 1000, wantStart: 0, wantEnd: 99, wantPartial: true},
		{name: "single byte", header: "bytes=0-0", present: true, total: 1000, wantStart: 0, wantEnd: 0, wantPartial: true},
		{name: "last byte", header: "bytes=999-", present: true, total: 1000, wantStart: 999, wantEnd: 999, wantPartial: true},
		{name: "full object requested explicitly", header: "bytes=0-", present: true, total: 1000, wantStart: 0, wantEnd: 999, wantPartial: true},
		{name: "end clamped to object", header: "bytes=900-5000", present: true, total: 1000, wantStart: 900, wantEnd: 999, wantPartial: true},
		{name: "end overflowing int64 clamped", header: "bytes=10-99999999999999999999", present: true, total: 1000, wantStart: 10, wantEnd: 999, wantPartial: true},
		{name: "multi range honors first clause", header: "bytes=0-9,20-29", present: true, total: 1000, wantStart: 0, wantEnd: 9, wantPartial: true},
		{name: "unit is case insensitive", header: "Bytes=5-9", present: true, total: 1000, wantStart: 5, wantEnd: 9, wantPartial: true},
		{name: "surrounding whitespace", header: "  bytes= 5-9 ", present: true, total: 1000, wantStart: 5, wantEnd: 9, wantPartial: true},
		{name: "start at size", header: "bytes=1000-", present: true, total: 1000, wantErr: ErrRangeNotSatisfiable},
		{name: "start past size", header: "bytes=2000-3000", present: true, total: 1000, wantErr: ErrRangeNotSatisfiable},
		{name: "start after end", header: "bytes=50-10", present: true, total: 1000, wantErr: ErrRangeNotSatisfiable},
		{name: "suffix range", header: "bytes=-100", present: true, total: 1000, wantErr: ErrRangeNotSatisfiable},
		{name: "wrong unit", header: "items=0-10", present: true, total: 1000, wantErr: ErrRangeNotSatisfiable},
		{name: "missing dash", header: "bytes=100", present: true, total: 1000, wantErr: ErrRangeNotSatisfiable},
		{name: "negative start", header: "bytes=-5-10", present: true, total: 1000, wantErr: ErrRangeNotSatisfiable},
		{name: "non numeric", header: "bytes=a-b", present: true, total: 1000, wantErr: ErrRangeNotSatisfiable},
		{name: "empty header present", header: "", present: true, total: 1000, wantErr: ErrRangeNotSatisfiable},
		{name: "zero length object without header", total: 0, wantErr: ErrRangeNotSatisfiable},
		{name: "zero length object with header", header: "bytes=0-", present: true, total: 0, wantErr: ErrRangeNotSatisfiable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Negotiate(tt.header, tt.present, tt.total)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Negotiate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("Negotiate() unexpected error = %v", err)
			}
			if w.Start != tt.wantStart || w.End != tt.wantEnd {
				t.Errorf("window = [%d, %d], want [%d, %d]", w.Start, w.End, tt.wantStart, tt.wantEnd)
			}
			if w.Total != tt.total {
				t.Errorf("Total = %d, want %d", w.Total, tt.total)
			}
			if w.Partial != tt.wantPartial {
				t.Errorf("Partial = %v, want %v", w.Partial, tt.wantPartial)
			}
			if w.Length() != tt.wantEnd-tt.wantStart+1 {
				t.Errorf("Length() = %d, want %d", w.Length(), tt.wantEnd-tt.wantStart+1)
			}
		})
	}
}

func TestNegotiate_WindowWithinObject(t *testing.T) {
	headers := []string{"bytes=0-", "bytes=1-1", "bytes=3-7", "bytes=6-100", "bytes=0-0,5-6", "bytes=7-"}
	const total = 8

	for _, h := range headers {
		w, err := Negotiate(h, true, total)
		if err != nil {
			t.Fatalf("Negotiate(%q) unexpected error = %v", h, err)
		}
		if w.Start < 0 || w.Start > w.End || w.End > total-1 {
			t.Errorf("Negotiate(%q) = [%d, %d], outside [0, %d]", h, w.Start, w.End, total-1)
		}
	}
}

func FuzzNegotiate(f *testing.F) {
	f.Add("bytes=0-", int64(10))
	f.Add("bytes=5-2", int64(10))
	f.Add("bytes=-3", int64(10))
	f.Add("bytes=1-2,3-4", int64(1))

	f.Fuzz(func(t *testing.T, header string, total int64) {
		w, err := Negotiate(header, true, total)
		if err != nil {
			if !errors.Is(err, ErrRangeNotSatisfiable) {
				t.Fatalf("Negotiate(%q, %d) error = %v, want ErrRangeNotSatisfiable", header, total, err)
			}
			return
		}
		if w.Start < 0 || w.Start > w.End || w.End > total-1 {
			t.Fatalf("Negotiate(%q, %d) = [%d, %d]", header, total, w.Start, w.End)
		}
	})
}
