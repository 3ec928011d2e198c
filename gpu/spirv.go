package gpu

import (
	"encoding/binary"
	"fmt"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic = 0x07230203

// SPIRVWords converts a little-endian SPIR-V binary into words.
func SPIRVWords(code []byte) ([]uint32, error) {
	if len(code) < 4 || len(code)%4 != 0 {
		return nil, fmt.Errorf("spirv length %d is not a multiple of 4", len(code))
	}
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	if words[0] != SPIRVMagic {
		return nil, fmt.Errorf("bad spirv magic %#x", words[0])
	}
	return words, nil
}

// SPIRVBytes is the inverse of SPIRVWords.
func SPIRVBytes(words []uint32) []byte {
	code := make([]byte, 0, len(words)*4)
	for _, w := range words {
		code = binary.LittleEndian.AppendUint32(code, w)
	}
	return code
}
