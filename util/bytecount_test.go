package util

import "testing"

func TestByteCountString(t *testing.T) {
	cases := []struct {
		n    ByteCount
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1024 * 1024, "1.0 MiB"},
	}
	for _, c := range cases {
		if got := c.n.String(); got != c.want {
			t.Errorf("ByteCount(%d).String() = %q, want %q", int64(c.n), got, c.want)
		}
	}
}
