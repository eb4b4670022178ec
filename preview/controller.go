package preview

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// State is the controller's sync state: Stale means a parameter changed
// since the last completed render, Synced means the surface matches the
// current request.
type State string

const (
	StateStale  State = "stale"
	StateSynced State = "synced"
)

// Controller keeps the pixel surface synchronized with the current
// encoding request and supports exporting the surface as PNG. It is the
// sole owner of its Surface; no other component writes to it.
//
// Renders run asynchronously and are never cancelled: overlapping
// renders all write the surface and completion order wins. A render
// only flips the state to Synced when the request it encoded is still
// the current one.
type Controller struct {
	encoder Encoder
	surface *Surface
	log     *slog.Logger

	mu    sync.Mutex
	req   Request
	state State

	renders  int64 // completed successful renders
	failures int64 // encode failures (logged, not surfaced)

	startTime time.Time
	wg        sync.WaitGroup
}

// NewController creates a controller in the Stale state with the given
// initial request. Nothing is rendered until Refresh is called.
func NewController(enc Encoder, initial Request, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		encoder:   enc,
		surface:   NewSurface(),
		log:       log,
		req:       initial.Normalized(),
		state:     StateStale,
		startTime: time.Now(),
	}
}

// Surface returns the controller-owned pixel surface for read access.
func (c *Controller) Surface() *Surface { return c.surface }

// Request returns a snapshot of the current encoding request.
func (c *Controller) Request() Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.req
}

// State returns the current sync state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns the number of completed renders and encode failures.
func (c *Controller) Stats() (renders, failures int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renders, c.failures
}

// StartTime returns when the controller was created.
func (c *Controller) StartTime() time.Time { return c.startTime }

// SetParam updates a single request field and schedules a re-render.
// Field names match the studio form controls: payload, size,
// foreground, background, level. Size values are clamped to
// [MinSize, MaxSize]; level must be one of the four known levels;
// color fields accept whatever the color picker supplies.
func (c *Controller) SetParam(field, value string) error {
	c.mu.Lock()
	next := c.req

	switch field {
	case "payload", "text":
		next.Payload = value
	case "size":
		n, err := strconv.Atoi(value)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("invalid size %q: %w", value, err)
		}
		next.Size = n
	case "foreground", "fg":
		next.Foreground = value
	case "background", "bg":
		next.Background = value
	case "level":
		lvl, err := ParseLevel(value)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		next.Level = lvl
	default:
		c.mu.Unlock()
		return fmt.Errorf("unknown parameter %q", field)
	}

	c.req = next.Normalized()
	c.state = StateStale
	req := c.req
	c.mu.Unlock()

	c.log.Debug("parameter changed", "field", field, "value", value)
	c.scheduleRender(req)
	return nil
}

// Refresh re-invokes the encoder with the current request. It is
// idempotent and carries the same guarantees as any other render.
func (c *Controller) Refresh() {
	c.scheduleRender(c.Request())
}

// Wait blocks until all in-flight renders have completed. Used on
// shutdown and in tests; the UI never calls it.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// ExportPNG serializes the current surface to PNG bytes for a download
// named qrcode.png. Before the first successful render it returns
// ErrNotRendered and callers produce no file.
func (c *Controller) ExportPNG() ([]byte, error) {
	return c.surface.EncodePNG()
}

// scheduleRender runs one render of req in its own goroutine. There is
// no queue and no cancellation of in-flight work: if a newer request
// supersedes req before this render completes, both write the surface
// and the one that finishes last visually wins.
func (c *Controller) scheduleRender(req Request) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.render(req)
	}()
}

// render is the render boundary: encode failures are logged to the
// diagnostic channel and never surfaced, leaving the previous surface
// contents visible.
func (c *Controller) render(req Request) {
	img, err := c.encoder.Encode(req)
	if err != nil {
		c.mu.Lock()
		c.failures++
		c.mu.Unlock()
		c.log.Error("encode failed", "error", err, "size", req.Size, "level", req.Level)
		return
	}

	c.surface.Apply(img)

	c.mu.Lock()
	c.renders++
	if c.req == req {
		// The request we rendered is still current.
		c.state = StateSynced
	}
	c.mu.Unlock()

	c.log.Debug("render completed", "size", req.Size, "level", req.Level)
}
