package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/qrstudio/qrstudio/preview"
	"github.com/qrstudio/qrstudio/store"
)

type setParamRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type controllerResponse struct {
	State   string          `json:"state"`
	Request preview.Request `json:"request"`
}

func (s *Server) controllerSnapshot() controllerResponse {
	return controllerResponse{
		State:   string(s.Controller.State()),
		Request: s.Controller.Request(),
	}
}

// handleSetParam applies a single parameter change from the studio form
// and schedules a re-render.
func (s *Server) handleSetParam(w http.ResponseWriter, r *http.Request) {
	var req setParamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.Controller.SetParam(req.Field, req.Value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.controllerSnapshot())
}

// handleRefresh re-renders the current request without changing it.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.Controller.Refresh()
	writeJSON(w, http.StatusOK, s.controllerSnapshot())
}

// handlePreviewPNG serves the current surface contents. Until the first
// render completes there is nothing to show and the handler returns 404.
func (s *Server) handlePreviewPNG(w http.ResponseWriter, r *http.Request) {
	data, err := s.Controller.Surface().EncodePNG()
	if err != nil {
		if errors.Is(err, preview.ErrNotRendered) {
			writeError(w, http.StatusNotFound, "nothing rendered yet")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleDownload serves the current surface as an attachment named
// qrcode.png and records the export. Before the first successful render
// the download is a no-op: no file is produced.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	data, err := s.Controller.ExportPNG()
	if err != nil {
		if errors.Is(err, preview.ErrNotRendered) {
			writeError(w, http.StatusConflict, "nothing rendered yet")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.Exports != nil {
		req := s.Controller.Request()
		if _, err := s.Exports.Record(store.Export{
			Payload:    req.Payload,
			Size:       req.Size,
			Level:      string(req.Level),
			Foreground: req.Foreground,
			Background: req.Background,
			ByteSize:   len(data),
		}); err != nil {
			// Export log failures never block the download itself.
			s.Log.Error("record export", "error", err)
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="qrcode.png"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleExports lists recent export-log entries.
func (s *Server) handleExports(w http.ResponseWriter, r *http.Request) {
	if s.Exports == nil {
		writeJSON(w, http.StatusOK, []store.Export{})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}

	exports, err := s.Exports.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if exports == nil {
		exports = []store.Export{}
	}
	writeJSON(w, http.StatusOK, exports)
}

func (s *Server) handleStudioPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(studioPageHTML))
}

const studioPageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>QR Studio</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
    background: #0a0a0a;
    color: #e0e0e0;
    display: flex;
    justify-content: center;
    align-items: center;
    min-height: 100vh;
  }
  .card {
    background: #1a1a1a;
    border: 1px solid #333;
    border-radius: 16px;
    padding: 40px;
    display: flex;
    gap: 40px;
    max-width: 820px;
    width: 100%;
  }
  .controls { flex: 1; min-width: 260px; }
  h1 { font-size: 20px; font-weight: 600; margin-bottom: 24px; }
  label { display: block; font-size: 13px; color: #888; margin: 16px 0 6px; }
  input[type=text], select {
    width: 100%;
    background: #111;
    border: 1px solid #333;
    border-radius: 8px;
    color: #e0e0e0;
    padding: 10px 12px;
    font-size: 14px;
  }
  input[type=range] { width: 100%; }
  input[type=color] {
    width: 48px; height: 32px;
    border: 1px solid #333;
    border-radius: 6px;
    background: #111;
    padding: 2px;
  }
  .colors { display: flex; gap: 24px; }
  .buttons { display: flex; gap: 12px; margin-top: 28px; }
  button {
    flex: 1;
    background: #2563eb;
    border: none;
    border-radius: 8px;
    color: #fff;
    padding: 12px 0;
    font-size: 14px;
    font-weight: 600;
    cursor: pointer;
  }
  button.secondary { background: #333; }
  .preview {
    width: 320px;
    display: flex;
    flex-direction: column;
    align-items: center;
    justify-content: center;
  }
  #qr-frame {
    width: 300px; height: 300px;
    background: #fff;
    border-radius: 12px;
    display: flex;
    align-items: center;
    justify-content: center;
  }
  #qr-frame img { max-width: 280px; max-height: 280px; }
  .waiting { color: #888; font-size: 13px; }
  #size-value { color: #e0e0e0; }
</style>
</head>
<body>
<div class="card">
  <div class="controls">
    <h1>QR Studio</h1>
    <label for="payload">Text</label>
    <input type="text" id="payload" data-field="payload" value="">
    <label for="size">Size: <span id="size-value">256</span> px</label>
    <input type="range" id="size" data-field="size" min="64" max="1024" step="8" value="256">
    <div class="colors">
      <div>
        <label for="foreground">Foreground</label>
        <input type="color" id="foreground" data-field="foreground" value="#000000">
      </div>
      <div>
        <label for="background">Background</label>
        <input type="color" id="background" data-field="background" value="#ffffff">
      </div>
    </div>
    <label for="level">Error correction</label>
    <select id="level" data-field="level">
      <option value="low">Low (~7%)</option>
      <option value="medium" selected>Medium (~15%)</option>
      <option value="quartile">Quartile (~25%)</option>
      <option value="high">High (~30%)</option>
    </select>
    <div class="buttons">
      <button class="secondary" id="refresh">Refresh</button>
      <button id="download">Download PNG</button>
    </div>
  </div>
  <div class="preview">
    <div id="qr-frame">
      <span class="waiting" id="loading">Rendering...</span>
    </div>
  </div>
</div>
<script>
(function() {
  var frame = document.getElementById('qr-frame');
  var loadingEl = document.getElementById('loading');
  var sizeValue = document.getElementById('size-value');
  var currentImg = null;

  function updatePreview() {
    if (!currentImg) {
      currentImg = document.createElement('img');
      currentImg.setAttribute('alt', 'QR code preview');
      currentImg.onload = function() {
        if (loadingEl && loadingEl.parentNode) loadingEl.parentNode.removeChild(loadingEl);
        if (!currentImg.parentNode) frame.appendChild(currentImg);
      };
    }
    currentImg.setAttribute('src', '/preview.png?t=' + Date.now());
  }

  function setParam(field, value) {
    fetch('/params', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ field: field, value: String(value) })
    }).then(function() {
      // The render is asynchronous; give it a moment before reloading.
      setTimeout(updatePreview, 150);
    });
  }

  var inputs = document.querySelectorAll('[data-field]');
  for (var i = 0; i < inputs.length; i++) {
    inputs[i].addEventListener('input', function(e) {
      var el = e.target;
      if (el.id === 'size') sizeValue.textContent = el.value;
      setParam(el.getAttribute('data-field'), el.value);
    });
  }

  document.getElementById('refresh').addEventListener('click', function() {
    fetch('/refresh', { method: 'POST' }).then(function() {
      setTimeout(updatePreview, 150);
    });
  });

  document.getElementById('download').addEventListener('click', function() {
    window.location.href = '/download';
  });

  fetch('/status')
    .then(function(r) { return r.json(); })
    .then(function(data) {
      var req = data.request || {};
      if (req.payload !== undefined) document.getElementById('payload').value = req.payload;
      if (req.size) {
        document.getElementById('size').value = req.size;
        sizeValue.textContent = req.size;
      }
      if (req.foreground) document.getElementById('foreground').value = req.foreground;
      if (req.background) document.getElementById('background').value = req.background;
      if (req.level) document.getElementById('level').value = req.level;
    });

  setTimeout(updatePreview, 200);
})();
</script>
</body>
</html>`
