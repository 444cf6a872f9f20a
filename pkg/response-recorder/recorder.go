package recorder

import (
	"net/http"
	"time"
)

// ResponseRecorder is a wrapper around http.ResponseWriter that records
// the status code and the number of body bytes written through it.
type ResponseRecorder struct {
	rw           http.ResponseWriter
	status       int
	written      int
	wroteHeaders bool
	CreatedAt    time.Time
}

// Implementation of http.ResponseWriter
func (r *ResponseRecorder) Header() http.Header {
	return r.rw.Header()
}

// Implementation of http.ResponseWriter
func (r *ResponseRecorder) WriteHeader(statusCode int) {
	// only the first call counts, like net/http
	if r.wroteHeaders {
		return
	}
	r.wroteHeaders = true
	r.status = statusCode
	r.rw.WriteHeader(statusCode)
}

// Implementation of http.ResponseWriter
func (r *ResponseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeaders {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.rw.Write(b)
	r.written += n
	return n, err
}

// Flush implements http.Flusher if the underlying writer does.
func (r *ResponseRecorder) Flush() {
	if f, ok := r.rw.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying writer, for http.ResponseController.
func (r *ResponseRecorder) Unwrap() http.ResponseWriter {
	return r.rw
}

// StatusCode returns the status code of the response.
// It is 200 if the handler wrote a body without a status, 0 if it wrote nothing.
func (r *ResponseRecorder) StatusCode() int {
	return r.status
}

// BytesWritten returns the number of body bytes written.
func (r *ResponseRecorder) BytesWritten() int {
	return r.written
}

// Duration returns the time elapsed since the recorder was created.
func (r *ResponseRecorder) Duration() time.Duration {
	return time.Since(r.CreatedAt)
}

// NewResponseRecorder returns a new ResponseRecorder writing to w.
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{
		CreatedAt: time.Now(),
		rw:        w,
	}
}
