package preview

import (
	"errors"
	"fmt"
	"image"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
)

// EncodeFailure is the single domain error kind: the payload cannot be
// represented at the requested size/error-correction combination. It is
// caught at the render boundary and logged; the surface keeps its prior
// contents.
type EncodeFailure struct {
	Req Request
	Err error
}

func (e *EncodeFailure) Error() string {
	return fmt.Sprintf("encode %d bytes at level %s: %v", len(e.Req.Payload), e.Req.Level, e.Err)
}

func (e *EncodeFailure) Unwrap() error { return e.Err }

// IsEncodeFailure reports whether err is (or wraps) an EncodeFailure.
func IsEncodeFailure(err error) bool {
	var ef *EncodeFailure
	return errors.As(err, &ef)
}

// Encoder is the external encoding capability: it turns a normalized
// Request into a rendered QR image of Size×Size pixels.
type Encoder interface {
	Encode(req Request) (image.Image, error)
}

// recoveryLevel maps our level enumeration onto go-qrcode's. The
// library names ~25% recovery "High" and ~30% "Highest".
func recoveryLevel(l Level) qrcode.RecoveryLevel {
	switch l {
	case LevelLow:
		return qrcode.Low
	case LevelQuartile:
		return qrcode.High
	case LevelHigh:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

type qrEncoder struct{}

// NewQREncoder returns the go-qrcode backed Encoder used in production.
func NewQREncoder() Encoder {
	return qrEncoder{}
}

// Encode renders req into a QR image. The request is normalized here as
// a safety net; callers normally pass an already-normalized request.
func (qrEncoder) Encode(req Request) (image.Image, error) {
	req = req.Normalized()

	q, err := qrcode.New(req.Payload, recoveryLevel(req.Level))
	if err != nil {
		return nil, &EncodeFailure{Req: req, Err: err}
	}

	fg, err := ParseHexColor(req.Foreground)
	if err != nil {
		return nil, &EncodeFailure{Req: req, Err: err}
	}
	bg, err := ParseHexColor(req.Background)
	if err != nil {
		return nil, &EncodeFailure{Req: req, Err: err}
	}
	q.ForegroundColor = fg
	q.BackgroundColor = bg

	img := q.Image(req.Size)

	// go-qrcode silently returns a larger image when the matrix plus
	// quiet zone does not fit the requested size (dense payloads near
	// MinSize). The output contract is exactly Size×Size, so scale
	// down when that happens. Nearest-neighbor keeps module edges
	// crisp.
	if b := img.Bounds(); b.Dx() != req.Size || b.Dy() != req.Size {
		dst := image.NewRGBA(image.Rect(0, 0, req.Size, req.Size))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}

	return img, nil
}
