// Package xmltrace appends received protocol messages to a diagnostics
// log, pretty-printed with timestamp headers. Tracing is auxiliary: a
// trace failure must never disturb the protocol loops, so Record reports
// errors to its logger and returns.
package xmltrace

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EnvLogPath overrides the configured trace file location.
const EnvLogPath = "CSLINK_XML_LOG"

const defaultPath = "cslink_messages.log"

// ResolvePath picks the trace file location: env override, then the
// configured path, then the default.
func ResolvePath(configured string) string {
	if env := strings.TrimSpace(os.Getenv(EnvLogPath)); env != "" {
		return env
	}
	if strings.TrimSpace(configured) != "" {
		return configured
	}
	return defaultPath
}

// Writer appends pretty-printed messages to one file.
type Writer struct {
	mu   sync.Mutex
	path string
}

func NewWriter(path string) *Writer {
	return &Writer{path: ResolvePath(path)}
}

func (w *Writer) Path() string {
	return w.path
}

// Record appends one received payload with a timestamp header. Payloads
// that fail to pretty-print are written raw.
func (w *Writer) Record(payload []byte) {
	pretty, err := Pretty(string(payload))
	if err != nil {
		log.Debug().Err(err).Msg("xmltrace pretty print failed, writing raw")
		pretty = string(payload)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warn().Err(err).Str("path", w.path).Msg("xmltrace open failed")
		return
	}
	defer file.Close()

	ts := float64(time.Now().UnixMilli()) / 1000.0
	fmt.Fprintf(file, "----- Received at %.3f -----\n", ts)
	io.WriteString(file, pretty)
	if !strings.HasSuffix(pretty, "\n") {
		io.WriteString(file, "\n")
	}
	io.WriteString(file, "----- End -----\n")
}

// Pretty reformats one XML document with two-space indentation.
func Pretty(payload string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(payload))
	dec.Strict = false

	var out strings.Builder
	depth := 0
	indent := func(d int) {
		for i := 0; i < d; i++ {
			out.WriteString("  ")
		}
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			indent(depth)
			out.WriteByte('<')
			out.WriteString(t.Name.Local)
			for _, attr := range t.Attr {
				fmt.Fprintf(&out, " %s=%q", attr.Name.Local, attr.Value)
			}
			out.WriteString(">\n")
			depth++
		case xml.EndElement:
			if depth > 0 {
				depth--
			}
			indent(depth)
			fmt.Fprintf(&out, "</%s>\n", t.Name.Local)
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			indent(depth)
			out.WriteString(text)
			out.WriteByte('\n')
		case xml.Comment:
			indent(depth)
			fmt.Fprintf(&out, "<!--%s-->\n", strings.TrimSpace(string(t)))
		case xml.ProcInst:
			indent(depth)
			fmt.Fprintf(&out, "<?%s %s?>\n", t.Target, strings.TrimSpace(string(t.Inst)))
		case xml.Directive:
			indent(depth)
			fmt.Fprintf(&out, "<!%s>\n", string(t))
		}
	}
	return out.String(), nil
}
