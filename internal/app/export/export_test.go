package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Format
		wantErr bool
	}{
		{name: "wav", in: "wav", want: FormatWAV},
		{name: "mp3", in: "mp3", want: FormatMP3},
		{name: "uppercase", in: "WAV", want: FormatWAV},
		{name: "surrounding whitespace", in: " mp3 ", want: FormatMP3},
		{name: "empty", in: "", wantErr: true},
		{name: "unknown", in: "flac", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_MIMETypeAndExt(t *testing.T) {
	assert.Equal(t, "audio/wav", FormatWAV.MIMEType())
	assert.Equal(t, ".wav", FormatWAV.Ext())
	assert.Equal(t, "audio/mpeg", FormatMP3.MIMEType())
	assert.Equal(t, ".mp3", FormatMP3.Ext())
}
