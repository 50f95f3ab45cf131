package app

import (
	"bytes"
	"io"

	"github.com/dimiro1/banner"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// PrintBanner writes the startup banner for the named front-end.
func PrintBanner(w io.Writer, frontEnd string) {
	tpl := "{{ .Title \"JARVIS\" \"\" 0 }}\n" + frontEnd + " - version " + Version + " - {{ .Now \"2006-01-02 15:04:05\" }}\n"
	banner.Init(w, true, true, bytes.NewBufferString(tpl))
}
