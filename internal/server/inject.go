package server

import (
	"bytes"
	"net/http"
	"strings"
)

const maxInjectSize = 2 << 20

var scriptTag = []byte(`<script async src="` + ScriptPath + `"></script>`)

// injectLiveReload inserts the client script before </body> of HTML responses.
func injectLiveReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if p != "" && !strings.HasSuffix(p, "/") && !strings.HasSuffix(p, ".html") {
			next.ServeHTTP(w, r)
			return
		}
		inj := &injector{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(inj, r)
		inj.finalize()
	})
}

// injector buffers HTML bodies up to maxInjectSize; anything else, or
// anything larger, passes straight through.
type injector struct {
	http.ResponseWriter
	statusCode    int
	buffer        []byte
	buffering     bool
	headerWritten bool
	passthrough   bool
}

func (l *injector) WriteHeader(code int) {
	l.statusCode = code
	if l.passthrough && !l.headerWritten {
		l.ResponseWriter.WriteHeader(code)
		l.headerWritten = true
	}
}

func (l *injector) Write(data []byte) (int, error) {
	if !l.buffering && !l.passthrough {
		ct := l.Header().Get("Content-Type")
		if ct != "" && !strings.Contains(ct, "text/html") {
			l.startPassthrough()
			return l.ResponseWriter.Write(data)
		}
		l.buffering = true
	}
	if l.passthrough {
		return l.ResponseWriter.Write(data)
	}
	if len(l.buffer)+len(data) > maxInjectSize {
		l.startPassthrough()
		if len(l.buffer) > 0 {
			if _, err := l.ResponseWriter.Write(l.buffer); err != nil {
				return 0, err
			}
			l.buffer = nil
		}
		return l.ResponseWriter.Write(data)
	}
	l.buffer = append(l.buffer, data...)
	return len(data), nil
}

func (l *injector) startPassthrough() {
	l.passthrough = true
	if !l.headerWritten {
		l.ResponseWriter.WriteHeader(l.statusCode)
		l.headerWritten = true
	}
}

func (l *injector) finalize() {
	if l.passthrough {
		return
	}
	body := l.buffer
	if i := bytes.LastIndex(body, []byte("</body>")); i >= 0 {
		out := make([]byte, 0, len(body)+len(scriptTag))
		out = append(out, body[:i]...)
		out = append(out, scriptTag...)
		out = append(out, body[i:]...)
		body = out
	}
	l.Header().Del("Content-Length")
	l.ResponseWriter.WriteHeader(l.statusCode)
	if len(body) > 0 {
		_, _ = l.ResponseWriter.Write(body)
	}
}
