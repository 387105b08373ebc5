package socks5

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      []byte
		want    string
		wantErr error
	}{
		{
			name: "ipv4",
			in:   []byte{0x01, 10, 0, 0, 1, 0x1f, 0x90},
			want: "10.0.0.1:8080",
		},
		{
			name:    "ipv4 short",
			in:      []byte{0x01, 10, 0, 0, 1, 0x1f},
			wantErr: ErrMalformedRequest,
		},
		{
			name:    "ipv4 trailing byte",
			in:      []byte{0x01, 10, 0, 0, 1, 0x1f, 0x90, 0x00},
			wantErr: ErrMalformedRequest,
		},
		{
			name: "domain",
			in:   append(append([]byte{0x03, 11}, "example.com"...), 0x01, 0xbb),
			want: "example.com:443",
		},
		{
			name: "domain unicode",
			in:   append(append([]byte{0x03, 10}, "bücher.de"...), 0x00, 0x50),
			want: "bücher.de:80",
		},
		{
			name:    "domain length mismatch",
			in:      append(append([]byte{0x03, 12}, "example.com"...), 0x01, 0xbb),
			wantErr: ErrMalformedRequest,
		},
		{
			name:    "domain missing length",
			in:      []byte{0x03},
			wantErr: ErrMalformedRequest,
		},
		{
			name:    "domain empty",
			in:      []byte{0x03, 0, 0x00, 0x50},
			wantErr: ErrMalformedRequest,
		},
		{
			name:    "domain invalid utf8",
			in:      []byte{0x03, 2, 0xff, 0xfe, 0x00, 0x50},
			wantErr: ErrMalformedRequest,
		},
		{
			name: "ipv6",
			in:   []byte{0x04, 0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x01, 0x00, 0x35},
			want: "[2001:db8::1]:53",
		},
		{
			name:    "ipv6 short",
			in:      []byte{0x04, 0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x01, 0x00},
			wantErr: ErrMalformedRequest,
		},
		{
			name:    "unknown type",
			in:      []byte{0x05, 1, 2, 3, 4, 0, 80},
			wantErr: ErrUnsupportedAddressType,
		},
		{
			name:    "empty",
			in:      nil,
			wantErr: ErrMalformedRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DecodeAddress(tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err=%v want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got.String() != tt.want {
				t.Fatalf("got %q want %q", got.String(), tt.want)
			}
		})
	}
}

func TestEncodeAddressRoundTrip(t *testing.T) {
	t.Parallel()

	for _, addr := range []string{
		"127.0.0.1:80",
		"203.0.113.7:65535",
		"[2001:db8::1]:443",
		"[::1]:0",
		"example.com:8080",
		"a.b:1",
	} {
		t.Run(addr, func(t *testing.T) {
			t.Parallel()

			b, err := EncodeAddress(addr)
			if err != nil {
				t.Fatal(err)
			}
			got, err := DecodeAddress(b)
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != addr {
				t.Fatalf("got %q want %q", got.String(), addr)
			}

			again, err := EncodeAddress(got.String())
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(again, b) {
				t.Fatalf("re-encoded % x want % x", again, b)
			}
		})
	}
}

func TestEncodeAddressInvalid(t *testing.T) {
	t.Parallel()

	if _, err := EncodeAddress("no-port"); err == nil {
		t.Fatal("expected error")
	}
}
