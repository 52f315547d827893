package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name    string
		kvs     []string
		want    map[string]string
		wantErr bool
	}{
		{name: "empty", kvs: nil, want: map[string]string{}},
		{name: "single", kvs: []string{"expver=abcd"}, want: map[string]string{"expver": "abcd"}},
		{
			name: "multiple",
			kvs:  []string{"expver=abcd", "class=rd"},
			want: map[string]string{"expver": "abcd", "class": "rd"},
		},
		{
			name: "value with equals",
			kvs:  []string{"note=a=b"},
			want: map[string]string{"note": "a=b"},
		},
		{name: "empty value", kvs: []string{"expver="}, want: map[string]string{"expver": ""}},
		{name: "missing equals", kvs: []string{"expver"}, wantErr: true},
		{name: "empty key", kvs: []string{"=abcd"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMetadata(tt.kvs)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlagNormalization(t *testing.T) {
	root := GetRootCmd()

	f := root.PersistentFlags().Lookup("json-logs")
	require.NotNil(t, f)

	// Underscored spellings map to the hyphenated flag.
	norm := root.Flags().GetNormalizeFunc()
	assert.Equal(t, "json-logs", string(norm(root.Flags(), "json_logs")))
}
