package gpu

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func le(w uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, w)
}

func TestSPIRVWords(t *testing.T) {
	tests := []struct {
		name    string
		code    []byte
		want    []uint32
		wantErr bool
	}{
		{"magic only", le(SPIRVMagic), []uint32{SPIRVMagic}, false},
		{"two words", append(le(SPIRVMagic), le(0x00010300)...), []uint32{SPIRVMagic, 0x00010300}, false},
		{"empty", nil, nil, true},
		{"ragged", append(le(SPIRVMagic), 1), nil, true},
		{"bad magic", le(0xdeadbeef), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SPIRVWords(tt.code)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSPIRVBytes(t *testing.T) {
	code := append(le(SPIRVMagic), le(0x00010300)...)
	assert.Equal(t, code, SPIRVBytes([]uint32{SPIRVMagic, 0x00010300}))
	assert.Empty(t, SPIRVBytes(nil))
}
