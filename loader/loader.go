// Package loader reads program images into simulated memory. Two formats
// are supported: flat binaries placed at a base address, and hex listings
// in the Verilog $readmemh style with one halfword per token and @ADDR
// directives setting the byte address.
package loader

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/ucsim/emu"
)

// Segment is one contiguous run of image bytes.
type Segment struct {
	// Base is the byte address the segment loads at.
	Base uint32

	// Data is the segment contents.
	Data []byte
}

// Image is a loaded program.
type Image struct {
	// Segments are the runs to place in memory.
	Segments []Segment

	// Entry is the byte address execution starts at.
	Entry uint32
}

// CopyTo places every segment into memory.
func (img *Image) CopyTo(mem *emu.Memory) {
	for _, seg := range img.Segments {
		for i, b := range seg.Data {
			mem.Write8(seg.Base+uint32(i), b)
		}
	}
}

// CheckReserved returns an error if any segment overlaps the byte range
// starting at base.
func (img *Image) CheckReserved(base, size uint32) error {
	for _, seg := range img.Segments {
		segEnd := seg.Base + uint32(len(seg.Data))
		if seg.Base < base+size && segEnd > base {
			return fmt.Errorf(
				"segment at 0x%X-0x%X overlaps reserved region 0x%X-0x%X",
				seg.Base, segEnd, base, base+size)
		}
	}
	return nil
}

// LoadBinary reads a flat binary image placed at the given base address.
// The entry point is the base.
func LoadBinary(path string, base uint32) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read binary image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("binary image %s is empty", path)
	}
	if len(data)%2 != 0 {
		// Instructions are halfword granular; pad the tail byte.
		data = append(data, 0)
	}

	return &Image{
		Segments: []Segment{{Base: base, Data: data}},
		Entry:    base,
	}, nil
}

// LoadHex reads a hex listing. Tokens are 16-bit hex halfwords stored
// little-endian at the running address; an @ADDR token sets the byte
// address. Lines may carry // or # comments. The entry point is the
// lowest address written, unless overridden by the caller.
func LoadHex(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hex image: %w", err)
	}
	defer f.Close()

	img := &Image{}
	var cur *Segment
	addr := uint32(0)
	first := true

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}

		for _, tok := range strings.Fields(line) {
			if strings.HasPrefix(tok, "@") {
				v, err := strconv.ParseUint(tok[1:], 16, 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: bad address %q: %w", lineNum, tok, err)
				}
				if v%2 != 0 {
					return nil, fmt.Errorf("line %d: address %q is not halfword aligned", lineNum, tok)
				}
				addr = uint32(v)
				cur = nil
				continue
			}

			v, err := strconv.ParseUint(tok, 16, 16)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad halfword %q: %w", lineNum, tok, err)
			}
			if cur == nil {
				img.Segments = append(img.Segments, Segment{Base: addr})
				cur = &img.Segments[len(img.Segments)-1]
			}
			cur.Data = append(cur.Data, byte(v), byte(v>>8))
			if first || addr < img.Entry {
				img.Entry = addr
				first = false
			}
			addr += 2
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hex image: %w", err)
	}
	if len(img.Segments) == 0 {
		return nil, fmt.Errorf("hex image %s contains no data", path)
	}

	return img, nil
}

// Load picks the format from the file extension: .hex loads as a hex
// listing, everything else as a flat binary at the given base.
func Load(path string, base uint32) (*Image, error) {
	if strings.HasSuffix(path, ".hex") {
		return LoadHex(path)
	}
	return LoadBinary(path, base)
}
