package nal

// emulationPreventionByte follows two zero bytes wherever the payload would otherwise
// contain a start code prefix.
const emulationPreventionByte = 0x03

// ExtractRBSP removes emulation prevention bytes from nalu. The first headerSize bytes are
// copied verbatim. The result is always a fresh buffer; its length is the RBSP size.
func ExtractRBSP(nalu []byte, headerSize int) []byte {
	headerSize = min(max(headerSize, 0), len(nalu))
	rbsp := make([]byte, headerSize, len(nalu))
	copy(rbsp, nalu[:headerSize])

	zeroes := 0
	for _, b := range nalu[headerSize:] {
		if zeroes >= 2 && b == emulationPreventionByte {
			zeroes = 0
			continue
		}
		if b == 0 {
			zeroes++
		} else {
			zeroes = 0
		}
		rbsp = append(rbsp, b)
	}
	return rbsp
}

// InsertEmulationPrevention is the inverse of ExtractRBSP: after two zero bytes, any byte
// <= 0x03 is preceded by 0x03. The first headerSize bytes are copied verbatim.
func InsertEmulationPrevention(rbsp []byte, headerSize int) []byte {
	headerSize = min(max(headerSize, 0), len(rbsp))
	nalu := make([]byte, headerSize, len(rbsp)+len(rbsp)/2)
	copy(nalu, rbsp[:headerSize])

	zeroes := 0
	for _, b := range rbsp[headerSize:] {
		if zeroes >= 2 && b <= emulationPreventionByte {
			nalu = append(nalu, emulationPreventionByte)
			zeroes = 0
		}
		if b == 0 {
			zeroes++
		} else {
			zeroes = 0
		}
		nalu = append(nalu, b)
	}
	return nalu
}
