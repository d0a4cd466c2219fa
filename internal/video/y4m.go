package video

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/lbptop/internal/frame"
)

const (
	y4mMagic    = "YUV4MPEG2"
	y4mFrameTag = "FRAME"
	maxY4MDim   = 1 << 14
)

// Y4MHeader is the stream header of a YUV4MPEG2 file.
type Y4MHeader struct {
	Width      int
	Height     int
	FrameRate  string // "num:den" as written, may be empty
	ColorSpace string // C parameter, default 420jpeg
}

// chromaBytes returns the number of bytes following the luma plane in each
// frame.
func (h Y4MHeader) chromaBytes() (int, error) {
	w, ht := h.Width, h.Height
	cw, ch := (w+1)/2, (ht+1)/2
	switch h.ColorSpace {
	case "", "420", "420jpeg", "420paldv", "420mpeg2":
		return 2 * cw * ch, nil
	case "422":
		return 2 * cw * ht, nil
	case "444":
		return 2 * w * ht, nil
	case "444alpha":
		return 3 * w * ht, nil
	case "mono":
		return 0, nil
	}
	return 0, fmt.Errorf("%w: y4m colour space %q", ErrUnsupported, h.ColorSpace)
}

// Y4MReader decodes the luma plane of each frame of a YUV4MPEG2 stream.
type Y4MReader struct {
	r      *bufio.Reader
	header Y4MHeader
	luma   []byte
	skip   int
	frames int
}

// NewY4MReader reads and validates the stream header.
func NewY4MReader(r io.Reader) (*Y4MReader, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("y4m: read header: %w", err)
	}
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != y4mMagic {
		return nil, fmt.Errorf("y4m: bad magic")
	}

	var h Y4MHeader
	for _, f := range fields[1:] {
		if len(f) < 2 {
			continue
		}
		val := f[1:]
		switch f[0] {
		case 'W':
			h.Width, err = strconv.Atoi(val)
		case 'H':
			h.Height, err = strconv.Atoi(val)
		case 'F':
			h.FrameRate = val
		case 'C':
			h.ColorSpace = val
		}
		if err != nil {
			return nil, fmt.Errorf("y4m: header field %q: %w", f, err)
		}
	}
	if h.Width <= 0 || h.Height <= 0 || h.Width > maxY4MDim || h.Height > maxY4MDim {
		return nil, fmt.Errorf("y4m: invalid frame size %dx%d", h.Width, h.Height)
	}
	skip, err := h.chromaBytes()
	if err != nil {
		return nil, err
	}
	return &Y4MReader{
		r:      br,
		header: h,
		luma:   make([]byte, h.Width*h.Height),
		skip:   skip,
	}, nil
}

// Header returns the parsed stream header.
func (y *Y4MReader) Header() Y4MHeader { return y.header }

// Next returns the next frame, or io.EOF after the last one.
func (y *Y4MReader) Next() (*frame.Gray, error) {
	line, err := y.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line == "" {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("y4m: frame %d header: %w", y.frames, err)
	}
	if !strings.HasPrefix(line, y4mFrameTag) {
		return nil, fmt.Errorf("y4m: frame %d: expected %s, got %q", y.frames, y4mFrameTag, strings.TrimSpace(line))
	}
	if _, err := io.ReadFull(y.r, y.luma); err != nil {
		return nil, fmt.Errorf("y4m: frame %d luma: %w", y.frames, err)
	}
	if _, err := y.r.Discard(y.skip); err != nil {
		return nil, fmt.Errorf("y4m: frame %d chroma: %w", y.frames, err)
	}

	g := frame.NewGray(y.header.Width, y.header.Height)
	for i, v := range y.luma {
		g.Pix[i] = float64(v)
	}
	y.frames++
	return g, nil
}

// ReadAll decodes every remaining frame.
func (y *Y4MReader) ReadAll() (frame.Sequence, error) {
	var seq frame.Sequence
	for {
		f, err := y.Next()
		if errors.Is(err, io.EOF) {
			return seq, nil
		}
		if err != nil {
			return nil, err
		}
		seq = append(seq, f)
	}
}

// ReadY4M decodes a .y4m file.
func ReadY4M(path string) (frame.Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := NewY4MReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	seq, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seq, nil
}

// WriteY4M encodes seq as a monochrome YUV4MPEG2 stream, clamping values to
// [0, 255].
func WriteY4M(w io.Writer, seq frame.Sequence, fps int) error {
	width, height, err := seq.Size()
	if err != nil {
		return err
	}
	if fps <= 0 {
		fps = 25
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s W%d H%d F%d:1 Ip A1:1 Cmono\n", y4mMagic, width, height, fps)
	var buf bytes.Buffer
	for _, f := range seq {
		buf.Reset()
		buf.WriteString(y4mFrameTag + "\n")
		buf.Write(f.ToImage().Pix)
		if _, err := bw.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
