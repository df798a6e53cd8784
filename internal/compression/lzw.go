package compression

import (
	"io"

	"github.com/mauricemojito/rasterkit/internal/tiff"
)

// LZWCodec implements the TIFF variant of LZW: MSB-first bit packing and
// deferred code-width increment (the width grows after the code that fills
// the current width is emitted), which differs from the GIF-oriented
// compress/lzw in the standard library. Decode is grounded on
// pspoerri-geotiff2pmtiles' decompressTIFFLZW; Encode is authored as its
// symmetric inverse since that package only ever needed to read LZW tiles.
type LZWCodec struct{}

func (LZWCodec) Name() string { return "lzw" }

const (
	lzwMaxWidth  = 12
	lzwClearCode = 256
	lzwEOICode   = 257
	lzwFirstCode = 258
	lzwTableSize = 4097
)

type lzwEntry struct {
	prefix int
	suffix byte
	length int
}

func (LZWCodec) Decode(src []byte, decompressedSize int) ([]byte, error) {
	const op = "compression.LZW.Decode"
	if len(src) == 0 {
		return nil, nil
	}
	d := &lzwBitReader{src: src}

	table := make([]lzwEntry, lzwTableSize)
	for i := 0; i < 256; i++ {
		table[i] = lzwEntry{prefix: -1, suffix: byte(i), length: 1}
	}
	nextCode := lzwFirstCode
	codeWidth := 9

	output := make([]byte, 0, decompressedSize)
	buf := make([]byte, 0, 4096)

	getString := func(code int) []byte {
		entry := &table[code]
		buf = buf[:entry.length]
		idx := entry.length - 1
		for code >= 0 {
			e := &table[code]
			buf[idx] = e.suffix
			idx--
			code = e.prefix
		}
		return buf
	}

	code, err := d.readBits(codeWidth)
	if err != nil {
		return nil, tiff.Wrap(tiff.KindCodec, op, err)
	}
	if code != lzwClearCode {
		return nil, tiff.Newf(tiff.KindCodec, op, "first code is not clear code")
	}
	prevCode := -1

	for {
		code, err := d.readBits(codeWidth)
		if err != nil {
			if err == io.ErrUnexpectedEOF {
				return output, nil
			}
			return nil, tiff.Wrap(tiff.KindCodec, op, err)
		}
		if code == lzwEOICode {
			return output, nil
		}
		if code == lzwClearCode {
			nextCode = lzwFirstCode
			codeWidth = 9
			prevCode = -1
			continue
		}
		if prevCode == -1 {
			if code >= 256 {
				return nil, tiff.Newf(tiff.KindCodec, op, "first code after clear is not literal")
			}
			output = append(output, byte(code))
			prevCode = code
			continue
		}

		var outStr []byte
		switch {
		case code < nextCode:
			outStr = getString(code)
			output = append(output, outStr...)
			if nextCode < lzwTableSize {
				table[nextCode] = lzwEntry{prefix: prevCode, suffix: outStr[0], length: table[prevCode].length + 1}
				nextCode++
			}
		case code == nextCode:
			prevStr := getString(prevCode)
			firstByte := prevStr[0]
			output = append(output, prevStr...)
			output = append(output, firstByte)
			if nextCode < lzwTableSize {
				table[nextCode] = lzwEntry{prefix: prevCode, suffix: firstByte, length: table[prevCode].length + 1}
				nextCode++
			}
		default:
			return nil, tiff.Newf(tiff.KindCodec, op, "invalid code %d", code)
		}

		if nextCode+1 >= (1<<codeWidth) && codeWidth < lzwMaxWidth {
			codeWidth++
		}
		prevCode = code
	}
}

type lzwBitReader struct {
	src    []byte
	bitPos int
}

func (d *lzwBitReader) readBits(n int) (int, error) {
	result := 0
	for i := 0; i < n; i++ {
		bytePos := d.bitPos / 8
		bitOff := 7 - (d.bitPos % 8)
		if bytePos >= len(d.src) {
			return 0, io.ErrUnexpectedEOF
		}
		bit := (int(d.src[bytePos]) >> bitOff) & 1
		result = (result << 1) | bit
		d.bitPos++
	}
	return result, nil
}

type lzwBitWriter struct {
	out    []byte
	bitBuf uint32
	nBits  int
}

func (w *lzwBitWriter) writeBits(code, width int) {
	w.bitBuf = (w.bitBuf << uint(width)) | uint32(code)
	w.nBits += width
	for w.nBits >= 8 {
		shift := uint(w.nBits - 8)
		w.out = append(w.out, byte(w.bitBuf>>shift))
		w.nBits -= 8
		w.bitBuf &= (1 << uint(w.nBits)) - 1
	}
}

func (w *lzwBitWriter) flush() {
	if w.nBits > 0 {
		w.out = append(w.out, byte(w.bitBuf<<uint(8-w.nBits)))
		w.nBits = 0
		w.bitBuf = 0
	}
}

// lzwNode is a trie node used by Encode to find the longest table match for
// the current input run in O(1) per byte.
type lzwNode struct {
	children map[byte]int
}

// Encode implements the encoder side of the same deferred-increment TIFF
// LZW variant Decode reads, maintaining a parallel string table via a
// byte-keyed trie so that extending the current match is a map lookup.
func (LZWCodec) Encode(src []byte) ([]byte, error) {
	w := &lzwBitWriter{}
	nodes := make([]lzwNode, lzwTableSize)
	reset := func() int {
		for i := 0; i < 256; i++ {
			nodes[i] = lzwNode{children: map[byte]int{}}
		}
		return lzwFirstCode
	}
	nextCode := reset()
	codeWidth := 9

	w.writeBits(lzwClearCode, codeWidth)

	if len(src) == 0 {
		w.writeBits(lzwEOICode, codeWidth)
		w.flush()
		return w.out, nil
	}

	cur := int(src[0])
	for i := 1; i < len(src); i++ {
		b := src[i]
		if nodes[cur].children == nil {
			nodes[cur].children = map[byte]int{}
		}
		if next, ok := nodes[cur].children[b]; ok {
			cur = next
			continue
		}

		w.writeBits(cur, codeWidth)

		if nextCode < lzwTableSize {
			nodes[cur].children[b] = nextCode
			nodes[nextCode] = lzwNode{}
			nextCode++
		}
		if nextCode >= (1<<codeWidth) && codeWidth < lzwMaxWidth {
			codeWidth++
		}
		if nextCode >= lzwTableSize-1 {
			w.writeBits(lzwClearCode, codeWidth)
			nextCode = reset()
			codeWidth = 9
		}
		cur = int(b)
	}
	w.writeBits(cur, codeWidth)
	w.writeBits(lzwEOICode, codeWidth)
	w.flush()
	return w.out, nil
}
