package pipe

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/henil-shah-98/incubyte-test/internal/config"
)

// Defaults reproduce the |H| / |D| format.
const (
	DefaultDelimiter    = "|"
	DefaultHeaderMarker = "|H|"
	DefaultDataMarker   = "|D|"
)

// Options controls line classification and header binding.
type Options struct {
	Delimiter    string
	HeaderMarker string
	DataMarker   string

	// BindFinalHeader maps every data line against the last header in the
	// file instead of the header active when the line was read. Only useful
	// to reproduce legacy output for files with several header lines.
	BindFinalHeader bool
}

// OptionsFrom reads parser options from a JSON option bag:
//
//	delimiter (string), header_marker (string), data_marker (string),
//	bind_final_header (bool)
func OptionsFrom(o config.Options) Options {
	return Options{
		Delimiter:       o.String("delimiter", DefaultDelimiter),
		HeaderMarker:    o.String("header_marker", DefaultHeaderMarker),
		DataMarker:      o.String("data_marker", DefaultDataMarker),
		BindFinalHeader: o.Bool("bind_final_header", false),
	}
}

func (o Options) withDefaults() Options {
	if o.Delimiter == "" {
		o.Delimiter = DefaultDelimiter
	}
	if o.HeaderMarker == "" {
		o.HeaderMarker = DefaultHeaderMarker
	}
	if o.DataMarker == "" {
		o.DataMarker = DefaultDataMarker
	}
	return o
}

// Validate reports option combinations that cannot classify lines.
func (o Options) Validate() error {
	o = o.withDefaults()
	if o.HeaderMarker == o.DataMarker {
		return fmt.Errorf("pipe: header_marker and data_marker must differ (both %q)", o.HeaderMarker)
	}
	if strings.HasPrefix(o.HeaderMarker, o.DataMarker) || strings.HasPrefix(o.DataMarker, o.HeaderMarker) {
		return fmt.Errorf("pipe: markers %q and %q overlap", o.HeaderMarker, o.DataMarker)
	}
	return nil
}

// LookupEncoding resolves a source encoding name. Empty means UTF-8.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "windows-1250", "cp1250":
		return charmap.Windows1250, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("pipe: unsupported encoding %q", name)
	}
}

// NewDecodingReader wraps r so the parser always sees UTF-8 text. A leading
// byte order mark is stripped (and honoured) regardless of enc.
func NewDecodingReader(r io.Reader, enc string) (io.Reader, error) {
	e, err := LookupEncoding(enc)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, unicode.BOMOverride(e.NewDecoder())), nil
}
