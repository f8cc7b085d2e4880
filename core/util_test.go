package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		s    string
		max  int
		want string
	}{
		{name: "short", s: "hello", max: 10, want: "hello"},
		{name: "exact", s: "hello", max: 5, want: "hello"},
		{name: "long", s: "hello world", max: 5, want: "hello..."},
		{name: "runes", s: "héllo wörld", max: 7, want: "héllo w..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.s, tt.max))
		})
	}
}

func TestFormatWIB(t *testing.T) {
	ts := time.Date(2024, time.January, 5, 20, 30, 0, 0, time.UTC)
	assert.Equal(t, "06 Jan 2024, 03:30 WIB", FormatWIB(ts))
	assert.Equal(t, "", FormatWIB(time.Time{}))
}

func TestSecureFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "photo.png", want: "photo.png"},
		{in: "my photo (1).JPG", want: "my_photo_1.JPG"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: `C:\Users\me\scan.pdf`, want: "scan.pdf"},
		{in: "ééé", want: "file"},
		{in: ".hidden", want: "hidden"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SecureFilename(tt.in))
		})
	}
}

func TestUpload_Validate(t *testing.T) {
	png := Upload{Filename: "a.PNG", Data: make([]byte, 10)}
	assert.NoError(t, png.Validate("file", 10, "png", "jpg"))

	tooBig := Upload{Filename: "a.png", Data: make([]byte, 11)}
	err := tooBig.Validate("file", 10, "png")
	if assert.Error(t, err) {
		vErr, ok := err.(*ValidationError)
		assert.True(t, ok)
		assert.Equal(t, "file", vErr.Fields[0].Field)
	}

	exe := Upload{Filename: "a.exe", Data: []byte("MZ")}
	assert.Error(t, exe.Validate("file", 0, "png"))
}

func TestParseOrderings(t *testing.T) {
	got := ParseOrderings("-created_at, name,password_hash,", "created_at", "name")
	assert.Equal(t, []DBOrdering{{Field: "created_at"}, {Field: "name", Ascending: true}}, got)
	assert.Equal(t, "created_at DESC", got[0].String())
}
